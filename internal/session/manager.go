// Package session はセッションのライフサイクル管理を提供する。
//
// セッションの有効期限はバックグラウンドスイープではなく、
// ストアを読み書きするたびに期限切れ行を削除する遅延プルーニングで強制する。
// 認証リクエストごとにDELETEが1回走るが、小規模な会員サイトでは許容範囲。
// 高トラフィック環境に流用する場合はTTL対応ストアか定期スイープに置き換えること。
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/kota-pro/Scharade-HomePage/internal/model"
	"github.com/kota-pro/Scharade-HomePage/internal/repository"
)

const (
	// DefaultTTL は通常ログインのセッション有効期間。
	DefaultTTL = 8 * time.Hour
	// RememberTTL はremember me指定時のセッション有効期間。
	RememberTTL = 30 * 24 * time.Hour
)

// PruneRecorder はプルーニング件数のメトリクス記録インターフェース。
type PruneRecorder interface {
	RecordSessionsPruned(n int)
}

// Manager はベアラーセッションIDと認証済み会員の対応を管理する。
type Manager struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	recorder PruneRecorder // nil可
}

// NewManager はManagerを生成する。recorderはnilでもよい。
func NewManager(users repository.UserRepository, sessions repository.SessionRepository, recorder PruneRecorder) *Manager {
	return &Manager{
		users:    users,
		sessions: sessions,
		recorder: recorder,
	}
}

// Create は指定会員の新しいセッションを作成して返す。
// 同じ操作の中で期限切れセッションのプルーニングも行う。
func (m *Manager) Create(ctx context.Context, userID string, ttl time.Duration) (*model.Session, error) {
	m.pruneExpired(ctx)

	id, err := newSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// Resolve はセッションIDを会員とセッションに解決する。
// IDが空、セッションが期限切れ、または会員が存在しない場合は(nil, nil, nil)を返す。
// 期限切れセッションと孤立セッション（会員が消えたもの）はこの呼び出しの中で
// ストアから削除される（自己修復）。
func (m *Manager) Resolve(ctx context.Context, sessionID string) (*model.User, *model.Session, error) {
	if sessionID == "" {
		return nil, nil, nil
	}

	m.pruneExpired(ctx)

	session, err := m.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil, nil
	}

	user, err := m.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find session user: %w", err)
	}
	if user == nil {
		// 孤立セッション: 参照先の会員が存在しない
		if err := m.sessions.DeleteByID(ctx, sessionID); err != nil {
			slog.Warn("failed to delete orphaned session",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		}
		return nil, nil, nil
	}

	return user, session, nil
}

// Destroy は指定IDのセッションを削除する。
// 存在しないIDを指定しても冪等にエラーなしで返る。
func (m *Manager) Destroy(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := m.sessions.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// pruneExpired は期限切れセッションを削除する。
// プルーニング失敗は本処理を妨げない（次回の読み書きで再試行される）。
func (m *Manager) pruneExpired(ctx context.Context) {
	n, err := m.sessions.DeleteExpired(ctx)
	if err != nil {
		slog.Warn("failed to prune expired sessions", slog.String("error", err.Error()))
		return
	}
	if n > 0 && m.recorder != nil {
		m.recorder.RecordSessionsPruned(int(n))
	}
}

// newSessionID は暗号的に安全なセッションIDを生成する。
func newSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
