package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims combines standard claims with the chat-specific user binding.
// The subject carries the wallet address; uid carries the internal user ID.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}
