package model

import "time"

// ReputationChange is one ledger entry. BalanceAfter is already clamped.
type ReputationChange struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Delta        int       `json:"delta"`
	Reason       string    `json:"reason"`
	BalanceAfter int       `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

// PasswordReset is a one-time token mailed to the user.
type PasswordReset struct {
	Token     string     `json:"-"`
	UserID    int64      `json:"user_id"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
}

// IsValid checks expiry and single use
func (p *PasswordReset) IsValid(now time.Time) bool {
	return p.UsedAt == nil && now.Before(p.ExpiresAt)
}
