package ports

import (
	"context"

	"github.com/chainchat/chainchat/core"
)

// UserStore is the document-store surface for user records. Lookups that
// match nothing fail with core.ErrUserNotFound; updates are atomic at the
// single-document level.
type UserStore interface {
	FindUserByWallet(ctx context.Context, address string) (*core.User, error)
	FindUserByID(ctx context.Context, id string) (*core.User, error)
	InsertUser(ctx context.Context, user *core.User) error

	// UpdateUser applies a partial field set: only fields with their Set
	// flag raised are written. A handle collision fails with
	// core.ErrUsernameTaken.
	UpdateUser(ctx context.Context, id string, patch core.UserPatch) error

	// SearchUsers matches query case-insensitively as a substring of the
	// handle, display name or wallet address of active users, excluding
	// excludeID.
	SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]core.User, error)
}

// MessageStore persists direct messages and serves conversation history.
type MessageStore interface {
	InsertMessage(ctx context.Context, msg *core.Message) error

	// MessagesBetween returns messages exchanged between idA and idB in
	// either direction, newest first, paginated by skip and limit.
	MessagesBetween(ctx context.Context, idA, idB string, skip, limit int) ([]core.Message, error)
}
