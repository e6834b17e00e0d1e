// Package model はドメインモデルを定義する。
package model

import "time"

// InstagramIdentity はInstagram OAuthで連携された外部IDを表す。
// IDはInstagram側の数値ユーザーIDの文字列表現。
type InstagramIdentity struct {
	ID       string
	Username string
}

// User は会員を表す。
// クレデンシャル会員（email + passwordHash）とOAuth会員（Instagram連携のみ）の
// 両方を1つの型で表現する。
type User struct {
	ID           string
	Name         string
	Email        string // 正規化済み（trim + 小文字）。OAuth専用会員は空。
	PasswordHash string // クレデンシャル会員のみ。空 = credentialsプロバイダーなし。
	Approved     bool
	PortfolioID  string // 外部ポートフォリオレコードへの参照。未連携は空。
	Instagram    *InstagramIdentity
	CreatedAt    time.Time
}

// HasCredentials はemail+パスワードでログイン可能な会員かどうかを返す。
func (u *User) HasCredentials() bool {
	return u.PasswordHash != ""
}
