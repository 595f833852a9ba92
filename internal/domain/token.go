package domain

import "time"

type TokenKind string

const (
	TokenKindVerify TokenKind = "verify"
	TokenKindReset  TokenKind = "reset"
)

// EphemeralToken es un secreto de un solo uso con vida limitada.
type EphemeralToken struct {
	Token      string    `json:"token"`
	IdentityID string    `json:"identity_id"`
	CreatedAt  time.Time `json:"created_at"`
	Kind       TokenKind `json:"kind"`
}

// Expired informa si el token supero ttl respecto de now.
func (t EphemeralToken) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(t.CreatedAt) > ttl
}
