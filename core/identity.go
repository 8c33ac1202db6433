package core

import "time"

// Identity is the authenticated principal bound into an access token.
type Identity struct {
	UserID    string    // Internal user identifier
	Wallet    string    // Canonical wallet address
	IssuedAt  time.Time // When the token was minted
	ExpiresAt time.Time // When the token stops being valid
}
