package model

import "time"

// SessionTTL はセッションの有効期間。発行時に固定され、スライドしない。
const SessionTTL = 30 * 24 * time.Hour

// Session はログインセッションを表す。
// Tokenが唯一のクレデンシャルであり、1コンタクトに対して複数の
// セッションが並行して有効であってよい（ログインごとに新規発行）。
type Session struct {
	Token     string
	ContactID string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired はnow時点でセッションが期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}
