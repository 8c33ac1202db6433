package core

import "time"

// User is the stored account for a wallet identity.
type User struct {
	ID            string    // Opaque stable identifier
	WalletAddress string    // Canonical (lowercase) wallet address, unique
	Handle        string    // Optional username, unique when set
	DisplayName   string    // Optional display name
	AvatarURL     string    // Optional avatar reference
	Active        bool      // Inactive users are hidden from search
	CreatedAt     time.Time // When the account was created

	// Nonce is present only between challenge issuance and successful
	// verification; it is single-use and cleared on login.
	Nonce         string
	NonceIssuedAt time.Time // When the current nonce was issued
}

// ProfilePatch enumerates the mutable profile fields. A field is written
// only when its Set flag is raised, so callers can distinguish "clear this
// field" from "leave it alone". Unknown fields have no way in.
type ProfilePatch struct {
	Handle         string
	HandleSet      bool
	DisplayName    string
	DisplayNameSet bool
	AvatarURL      string
	AvatarURLSet   bool
}

// UserPatch is the full partial-update surface accepted by a user store.
// The nonce pair is reserved for the authentication flow: setting an empty
// Nonce with NonceSet raised clears the stored nonce.
type UserPatch struct {
	ProfilePatch

	Nonce         string
	NonceSet      bool
	NonceIssuedAt time.Time
}
