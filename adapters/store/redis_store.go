package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chainchat/chainchat/core"
)

// RedisStore is a Redis implementation of the store ports. User documents
// live in hashes with wallet and handle index keys beside them; each
// conversation is a sorted set scored by message timestamp.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "chainchat:",
	}
}

func (s *RedisStore) userKey(id string) string     { return s.prefix + "user:" + id }
func (s *RedisStore) walletKey(addr string) string { return s.prefix + "wallet:" + addr }
func (s *RedisStore) handleKey(handle string) string {
	return s.prefix + "handle:" + strings.ToLower(handle)
}
func (s *RedisStore) usersKey() string { return s.prefix + "users" }

// convKey orders the two user IDs so both directions share one sorted set.
func (s *RedisStore) convKey(idA, idB string) string {
	if idB < idA {
		idA, idB = idB, idA
	}
	return s.prefix + "conv:" + idA + ":" + idB
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, core.ErrStorageUnavailable)
}

// FindUserByWallet resolves the wallet index and loads the user document.
func (s *RedisStore) FindUserByWallet(ctx context.Context, address string) (*core.User, error) {
	id, err := s.client.Get(ctx, s.walletKey(address)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, storageErr("get wallet index", err)
	}
	return s.FindUserByID(ctx, id)
}

// FindUserByID loads a user document.
func (s *RedisStore) FindUserByID(ctx context.Context, id string) (*core.User, error) {
	fields, err := s.client.HGetAll(ctx, s.userKey(id)).Result()
	if err != nil {
		return nil, storageErr("get user", err)
	}
	if len(fields) == 0 {
		return nil, core.ErrUserNotFound
	}
	return userFromFields(id, fields)
}

// InsertUser stores a new user document and its index keys.
func (s *RedisStore) InsertUser(ctx context.Context, user *core.User) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.userKey(user.ID), userToFields(user))
	pipe.Set(ctx, s.walletKey(user.WalletAddress), user.ID, 0)
	pipe.SAdd(ctx, s.usersKey(), user.ID)
	if user.Handle != "" {
		pipe.Set(ctx, s.handleKey(user.Handle), user.ID, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return storageErr("insert user", err)
	}
	return nil
}

// UpdateUser applies a partial field set. Handle uniqueness is claimed with
// SETNX before the document is touched.
func (s *RedisStore) UpdateUser(ctx context.Context, id string, patch core.UserPatch) error {
	current, err := s.FindUserByID(ctx, id)
	if err != nil {
		return err
	}

	fields := make(map[string]interface{})
	if patch.HandleSet {
		if patch.Handle != "" && !strings.EqualFold(patch.Handle, current.Handle) {
			ok, err := s.client.SetNX(ctx, s.handleKey(patch.Handle), id, 0).Result()
			if err != nil {
				return storageErr("claim handle", err)
			}
			if !ok {
				return core.ErrUsernameTaken
			}
		}
		if current.Handle != "" && !strings.EqualFold(patch.Handle, current.Handle) {
			if err := s.client.Del(ctx, s.handleKey(current.Handle)).Err(); err != nil {
				return storageErr("release handle", err)
			}
		}
		fields["handle"] = patch.Handle
	}
	if patch.DisplayNameSet {
		fields["display_name"] = patch.DisplayName
	}
	if patch.AvatarURLSet {
		fields["avatar_url"] = patch.AvatarURL
	}
	if patch.NonceSet {
		fields["nonce"] = patch.Nonce
		fields["nonce_issued_at"] = patch.NonceIssuedAt.UTC().Format(time.RFC3339Nano)
	}
	if len(fields) == 0 {
		return nil
	}
	if err := s.client.HSet(ctx, s.userKey(id), fields).Err(); err != nil {
		return storageErr("update user", err)
	}
	return nil
}

// SearchUsers scans the user set and filters client-side. The directory is
// expected to stay small enough that a full scan per search is acceptable.
func (s *RedisStore) SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]core.User, error) {
	ids, err := s.client.SMembers(ctx, s.usersKey()).Result()
	if err != nil {
		return nil, storageErr("list users", err)
	}

	q := strings.ToLower(query)
	var matched []core.User
	for _, id := range ids {
		if id == excludeID {
			continue
		}
		u, err := s.FindUserByID(ctx, id)
		if errors.Is(err, core.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !u.Active {
			continue
		}
		if strings.Contains(strings.ToLower(u.Handle), q) ||
			strings.Contains(strings.ToLower(u.DisplayName), q) ||
			strings.Contains(u.WalletAddress, q) {
			matched = append(matched, *u)
			if limit > 0 && len(matched) == limit {
				break
			}
		}
	}
	return matched, nil
}

// messageDoc is the JSON form a message takes as a sorted-set member.
type messageDoc struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// InsertMessage appends a message to its conversation's sorted set.
func (s *RedisStore) InsertMessage(ctx context.Context, msg *core.Message) error {
	doc := messageDoc{
		ID:          msg.ID,
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		Content:     msg.Content,
		CreatedAt:   msg.CreatedAt.UTC(),
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	key := s.convKey(msg.SenderID, msg.RecipientID)
	member := redis.Z{
		// Microsecond scores stay within float64 integer precision.
		Score:  float64(msg.CreatedAt.UnixMicro()),
		Member: payload,
	}
	if err := s.client.ZAdd(ctx, key, member).Err(); err != nil {
		return storageErr("insert message", err)
	}
	return nil
}

// MessagesBetween pages through a conversation's sorted set, newest first.
func (s *RedisStore) MessagesBetween(ctx context.Context, idA, idB string, skip, limit int) ([]core.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	key := s.convKey(idA, idB)
	raw, err := s.client.ZRevRange(ctx, key, int64(skip), int64(skip+limit-1)).Result()
	if err != nil {
		return nil, storageErr("read conversation", err)
	}

	messages := make([]core.Message, 0, len(raw))
	for _, member := range raw {
		var doc messageDoc
		if err := json.Unmarshal([]byte(member), &doc); err != nil {
			return nil, fmt.Errorf("unmarshal message: %w", err)
		}
		messages = append(messages, core.Message{
			ID:          doc.ID,
			SenderID:    doc.SenderID,
			RecipientID: doc.RecipientID,
			Content:     doc.Content,
			CreatedAt:   doc.CreatedAt,
		})
	}
	return messages, nil
}

func userToFields(user *core.User) map[string]interface{} {
	fields := map[string]interface{}{
		"wallet":       user.WalletAddress,
		"handle":       user.Handle,
		"display_name": user.DisplayName,
		"avatar_url":   user.AvatarURL,
		"active":       boolField(user.Active),
		"created_at":   user.CreatedAt.UTC().Format(time.RFC3339Nano),
		"nonce":        user.Nonce,
	}
	if !user.NonceIssuedAt.IsZero() {
		fields["nonce_issued_at"] = user.NonceIssuedAt.UTC().Format(time.RFC3339Nano)
	}
	return fields
}

func userFromFields(id string, fields map[string]string) (*core.User, error) {
	user := &core.User{
		ID:            id,
		WalletAddress: fields["wallet"],
		Handle:        fields["handle"],
		DisplayName:   fields["display_name"],
		AvatarURL:     fields["avatar_url"],
		Active:        fields["active"] == "1",
		Nonce:         fields["nonce"],
	}
	if raw := fields["created_at"]; raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		user.CreatedAt = t
	}
	if raw := fields["nonce_issued_at"]; raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parse nonce_issued_at: %w", err)
		}
		user.NonceIssuedAt = t
	}
	return user, nil
}

func boolField(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
