package core

import "errors"

var (
	// ErrUserNotFound is returned when no user matches a lookup
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidAddress is returned when a wallet address is malformed
	ErrInvalidAddress = errors.New("invalid wallet address")

	// ErrInvalidSignature is returned when a signature does not recover
	// to the claimed wallet address
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrStaleChallenge is returned when a presented challenge does not
	// match the currently stored nonce, or the nonce has expired
	ErrStaleChallenge = errors.New("stale challenge")

	// ErrTokenExpired is returned when an access token has expired
	ErrTokenExpired = errors.New("token has expired")

	// ErrInvalidToken is returned when an access token is malformed
	ErrInvalidToken = errors.New("invalid token")

	// ErrUsernameTaken is returned when a requested handle is already in use
	ErrUsernameTaken = errors.New("username already taken")

	// ErrRecipientNotFound is returned when a recipient reference does not
	// resolve to a user
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrInvalidRecipientRef is returned when a recipient reference is
	// syntactically invalid
	ErrInvalidRecipientRef = errors.New("invalid recipient reference")

	// ErrInvalidContent is returned when message content is empty
	ErrInvalidContent = errors.New("invalid message content")

	// ErrStorageUnavailable is returned when the storage layer fails
	ErrStorageUnavailable = errors.New("storage unavailable")
)
