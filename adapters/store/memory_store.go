package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/chainchat/chainchat/core"
)

// MemoryStore is an in-memory implementation of the store ports, used in
// dev mode and by tests.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*core.User // keyed by user ID
	wallets  map[string]string     // wallet address -> user ID
	handles  map[string]string     // lowercase handle -> user ID
	messages []core.Message        // insertion order
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*core.User),
		wallets: make(map[string]string),
		handles: make(map[string]string),
	}
}

// FindUserByWallet returns the user owning the given canonical address.
func (s *MemoryStore) FindUserByWallet(ctx context.Context, address string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.wallets[address]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	u := *s.users[id]
	return &u, nil
}

// FindUserByID returns the user with the given identifier.
func (s *MemoryStore) FindUserByID(ctx context.Context, id string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

// InsertUser stores a new user document.
func (s *MemoryStore) InsertUser(ctx context.Context, user *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *user
	s.users[copied.ID] = &copied
	s.wallets[copied.WalletAddress] = copied.ID
	if copied.Handle != "" {
		s.handles[strings.ToLower(copied.Handle)] = copied.ID
	}
	return nil
}

// UpdateUser applies a partial field set to an existing user document.
func (s *MemoryStore) UpdateUser(ctx context.Context, id string, patch core.UserPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return core.ErrUserNotFound
	}

	if patch.HandleSet {
		newHandle := strings.ToLower(patch.Handle)
		if newHandle != "" {
			if owner, taken := s.handles[newHandle]; taken && owner != id {
				return core.ErrUsernameTaken
			}
		}
		if u.Handle != "" {
			delete(s.handles, strings.ToLower(u.Handle))
		}
		if newHandle != "" {
			s.handles[newHandle] = id
		}
		u.Handle = patch.Handle
	}
	if patch.DisplayNameSet {
		u.DisplayName = patch.DisplayName
	}
	if patch.AvatarURLSet {
		u.AvatarURL = patch.AvatarURL
	}
	if patch.NonceSet {
		u.Nonce = patch.Nonce
		u.NonceIssuedAt = patch.NonceIssuedAt
	}
	return nil
}

// SearchUsers matches query as a case-insensitive substring of handle,
// display name or wallet address over active users.
func (s *MemoryStore) SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	var matched []core.User
	for _, u := range s.users {
		if u.ID == excludeID || !u.Active {
			continue
		}
		if strings.Contains(strings.ToLower(u.Handle), q) ||
			strings.Contains(strings.ToLower(u.DisplayName), q) ||
			strings.Contains(u.WalletAddress, q) {
			matched = append(matched, *u)
		}
	}

	// Map iteration order is random; sort for a stable result set.
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].WalletAddress < matched[j].WalletAddress
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// InsertMessage appends a message record.
func (s *MemoryStore) InsertMessage(ctx context.Context, msg *core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, *msg)
	return nil
}

// MessagesBetween returns the conversation between two users, newest first.
func (s *MemoryStore) MessagesBetween(ctx context.Context, idA, idB string, skip, limit int) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []core.Message
	// Walk in reverse insertion order so equal timestamps keep a stable
	// newest-first order after the sort below.
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		if (m.SenderID == idA && m.RecipientID == idB) ||
			(m.SenderID == idB && m.RecipientID == idA) {
			matched = append(matched, m)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if skip >= len(matched) {
		return nil, nil
	}
	matched = matched[skip:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}
