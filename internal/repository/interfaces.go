// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/kota-pro/Scharade-HomePage/internal/model"
)

// UserRepository は会員データの永続化インターフェース。
// 会員の作成はsignupとOAuthコールバックの2経路のみで、
// 更新はInstagram連携情報の書き換えに限られる。
type UserRepository interface {
	// FindByID は指定IDの会員を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は正規化済みemailで会員を検索する。見つからない場合はnilを返す。
	// passwordHashの有無は呼び出し側で判定する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByInstagramID はInstagramの外部IDで会員を検索する。見つからない場合はnilを返す。
	FindByInstagramID(ctx context.Context, instagramID string) (*model.User, error)

	// Create は会員を作成する。email一意制約違反はエラーとして返る。
	Create(ctx context.Context, user *model.User) error

	// UpdateInstagramIdentity は既存会員のInstagram連携情報を書き換える。
	UpdateInstagramIdentity(ctx context.Context, userID string, identity model.InstagramIdentity) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByID は指定IDのセッションを取得する。
	// 期限切れまたは存在しない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)

	// DeleteByID は指定IDのセッションを削除する。存在しなくてもエラーにしない。
	DeleteByID(ctx context.Context, id string) error

	// DeleteExpired は期限切れセッションを全て削除し、削除件数を返す。
	// バックグラウンドスイープは存在せず、読み書きのたびに呼ばれる（遅延プルーニング）。
	DeleteExpired(ctx context.Context) (int64, error)
}
