package core

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// RecipientKind discriminates the accepted recipient reference forms.
type RecipientKind int

const (
	// RecipientByWallet references a user by wallet address
	RecipientByWallet RecipientKind = iota

	// RecipientByID references a user by internal identifier
	RecipientByID
)

// RecipientRef is a tagged recipient reference. Exactly one of Wallet or ID
// is populated, depending on Kind.
type RecipientRef struct {
	Kind   RecipientKind
	Wallet string // Canonical wallet address when Kind is RecipientByWallet
	ID     string // User identifier when Kind is RecipientByID
}

var walletAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidWalletAddress reports whether raw is a syntactically valid wallet
// address (0x-prefixed, 20 bytes of hex).
func ValidWalletAddress(raw string) bool {
	return walletAddressPattern.MatchString(raw)
}

// NormalizeWalletAddress returns the canonical lowercase form of a wallet
// address, or ErrInvalidAddress when it is malformed.
func NormalizeWalletAddress(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !ValidWalletAddress(raw) {
		return "", ErrInvalidAddress
	}
	return strings.ToLower(raw), nil
}

// ParseRecipientRef classifies a raw recipient reference as either a wallet
// address or a user identifier. Anything that is syntactically neither fails
// with ErrInvalidRecipientRef.
func ParseRecipientRef(raw string) (RecipientRef, error) {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		if !ValidWalletAddress(raw) {
			return RecipientRef{}, ErrInvalidRecipientRef
		}
		return RecipientRef{Kind: RecipientByWallet, Wallet: strings.ToLower(raw)}, nil
	}

	if _, err := uuid.Parse(raw); err != nil {
		return RecipientRef{}, ErrInvalidRecipientRef
	}
	return RecipientRef{Kind: RecipientByID, ID: raw}, nil
}
