package models

import "time"

// TokenStatus is the lifecycle state of a gateway token. Revoked is terminal.
type TokenStatus string

const (
	TokenStatusActive  TokenStatus = "active"
	TokenStatusRevoked TokenStatus = "revoked"
)

// GatewayToken is a credential record. Only the salted hash is stored;
// hash and salt are never serialized.
type GatewayToken struct {
	ID        string      `db:"id" json:"id"`
	GatewayID string      `db:"gateway_id" json:"gatewayId"`
	TokenHash string      `db:"token_hash" json:"-"`
	Salt      string      `db:"salt" json:"-"`
	LookupID  string      `db:"lookup_id" json:"-"`
	Status    TokenStatus `db:"status" json:"status"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
	RevokedAt *time.Time  `db:"revoked_at" json:"revokedAt,omitempty"`
}

// IsActive reports whether the token can still authenticate.
func (t *GatewayToken) IsActive() bool {
	return t.Status == TokenStatusActive
}

// IssuedToken is returned exactly once, when a token is minted.
type IssuedToken struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
}
