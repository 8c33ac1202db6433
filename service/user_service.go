package service

import (
	"context"

	"github.com/chainchat/chainchat/core"
	"github.com/chainchat/chainchat/ports"
)

const searchLimit = 20

// UserService serves profile reads, updates and directory search.
type UserService struct {
	users ports.UserStore
}

// NewUserService creates a new user service.
func NewUserService(users ports.UserStore) *UserService {
	return &UserService{users: users}
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*core.User, error) {
	return s.users.FindUserByID(ctx, id)
}

// UpdateProfile applies a profile patch and returns the updated user.
// Handle uniqueness is enforced by the store.
func (s *UserService) UpdateProfile(ctx context.Context, id string, patch core.ProfilePatch) (*core.User, error) {
	if err := s.users.UpdateUser(ctx, id, core.UserPatch{ProfilePatch: patch}); err != nil {
		return nil, err
	}
	return s.users.FindUserByID(ctx, id)
}

// Search finds active users matching the query, excluding the caller.
func (s *UserService) Search(ctx context.Context, query, excludeID string) ([]core.User, error) {
	return s.users.SearchUsers(ctx, query, excludeID, searchLimit)
}
