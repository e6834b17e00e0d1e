package model

import "time"

// Session は会員のログインセッションを表す。
// IDは暗号的に安全な乱数で、HTTP Only Cookieのベアラートークンとして使用される。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Valid はセッションが指定時刻において有効期限内かどうかを返す。
// ユーザーの存在確認は呼び出し側（session.Manager）の責務。
func (s *Session) Valid(now time.Time) bool {
	return s.ExpiresAt.After(now)
}
