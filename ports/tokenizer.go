package ports

import "github.com/chainchat/chainchat/core"

// Tokenizer converts between an authenticated identity and its bearer token.
type Tokenizer interface {
	IdentityToToken(identity *core.Identity) (string, error)

	// TokenToIdentity fails with core.ErrTokenExpired for expired tokens
	// and core.ErrInvalidToken for anything else that does not parse and
	// verify. It never touches storage.
	TokenToIdentity(token string) (*core.Identity, error)
}
