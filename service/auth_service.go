package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chainchat/chainchat/core"
	"github.com/chainchat/chainchat/internal/eth"
	"github.com/chainchat/chainchat/ports"
)

// AuthService owns the challenge nonce lifecycle and session issuance.
type AuthService struct {
	users     ports.UserStore
	tokenizer ports.Tokenizer

	challengeTTL time.Duration
	accessTTL    time.Duration
}

// NewAuthService creates a new authentication service. challengeTTL bounds
// how long an issued nonce stays verifiable; accessTTL is the session token
// lifetime.
func NewAuthService(users ports.UserStore, tokenizer ports.Tokenizer, challengeTTL, accessTTL time.Duration) *AuthService {
	return &AuthService{
		users:        users,
		tokenizer:    tokenizer,
		challengeTTL: challengeTTL,
		accessTTL:    accessTTL,
	}
}

// RequestChallenge issues a fresh challenge for a wallet address, creating
// the user record on first contact. Requesting again before verification
// replaces the stored nonce, invalidating any earlier challenge text.
func (s *AuthService) RequestChallenge(ctx context.Context, address string) (challengeText, nonce string, err error) {
	addr, err := core.NormalizeWalletAddress(address)
	if err != nil {
		return "", "", err
	}

	nonce, err = generateNonce()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := time.Now().UTC()
	user, err := s.users.FindUserByWallet(ctx, addr)
	switch {
	case errors.Is(err, core.ErrUserNotFound):
		user = &core.User{
			ID:            uuid.New().String(),
			WalletAddress: addr,
			Active:        true,
			CreatedAt:     now,
			Nonce:         nonce,
			NonceIssuedAt: now,
		}
		if err := s.users.InsertUser(ctx, user); err != nil {
			return "", "", fmt.Errorf("insert user: %w", err)
		}
	case err != nil:
		return "", "", fmt.Errorf("find user: %w", err)
	default:
		patch := core.UserPatch{Nonce: nonce, NonceSet: true, NonceIssuedAt: now}
		if err := s.users.UpdateUser(ctx, user.ID, patch); err != nil {
			return "", "", fmt.Errorf("store nonce: %w", err)
		}
	}

	return core.ChallengeMessage(addr, nonce), nonce, nil
}

// Login verifies a signed challenge and mints an access token. The nonce is
// single use: it is cleared before the token is issued, so replaying the
// same challenge and signature fails with ErrStaleChallenge.
func (s *AuthService) Login(ctx context.Context, address, challengeText, signature string) (string, *core.User, error) {
	addr, err := core.NormalizeWalletAddress(address)
	if err != nil {
		return "", nil, err
	}

	user, err := s.users.FindUserByWallet(ctx, addr)
	if err != nil {
		return "", nil, err
	}

	if !eth.VerifyPersonalSign(challengeText, signature, addr) {
		return "", nil, core.ErrInvalidSignature
	}

	// The signature is cryptographically sound, but the text must also be
	// the one built from the currently stored nonce. Anything else is a
	// replay of an older or foreign challenge.
	if user.Nonce == "" || challengeText != core.ChallengeMessage(addr, user.Nonce) {
		return "", nil, core.ErrStaleChallenge
	}
	if s.challengeTTL > 0 && time.Since(user.NonceIssuedAt) > s.challengeTTL {
		return "", nil, core.ErrStaleChallenge
	}

	clear := core.UserPatch{Nonce: "", NonceSet: true}
	if err := s.users.UpdateUser(ctx, user.ID, clear); err != nil {
		return "", nil, fmt.Errorf("clear nonce: %w", err)
	}
	user.Nonce = ""

	now := time.Now().UTC()
	identity := &core.Identity{
		UserID:    user.ID,
		Wallet:    addr,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.accessTTL),
	}
	token, err := s.tokenizer.IdentityToToken(identity)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create token: %w", err)
	}

	return token, user, nil
}

// ResolveToken validates an access token and returns the bound identity.
// Self-contained: expiry comes from the token itself, not from storage.
func (s *AuthService) ResolveToken(token string) (*core.Identity, error) {
	return s.tokenizer.TokenToIdentity(token)
}

// generateNonce returns a hex-encoded 256-bit random nonce.
func generateNonce() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
