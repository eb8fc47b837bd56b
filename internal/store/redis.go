// internal/store/redis.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/vgmguess/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces room keys in Redis.
const DefaultKeyPrefix = "vgmguess:room:"

// RedisStore keeps lobbies as JSON values in Redis so several server
// instances can share rooms. Mutations use WATCH/MULTI: the transaction is
// retried when another writer touched the room between read and write.
type RedisStore struct {
	rdb        *redis.Client
	prefix     string
	ttl        time.Duration
	maxRetries int

	now     func() time.Time
	newCode func() string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL expires rooms that have not been written for ttl. Zero disables expiry.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// WithMaxRetries bounds optimistic transaction retries per Mutate.
func WithMaxRetries(n int) RedisOption {
	return func(s *RedisStore) { s.maxRetries = n }
}

// NewRedisStore wraps an already connected client.
func NewRedisStore(rdb *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:        rdb,
		prefix:     DefaultKeyPrefix,
		maxRetries: 16,
		now:        time.Now,
		newCode:    NewRoomCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(code string) string {
	return s.prefix + code
}

// Create seats host in a new lobby, claiming the code with SETNX.
func (s *RedisStore) Create(ctx context.Context, host string) (*models.Lobby, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		l := models.NewLobby(s.newCode(), host, s.now())
		data, err := json.Marshal(l)
		if err != nil {
			return nil, fmt.Errorf("encode lobby: %w", err)
		}
		ok, err := s.rdb.SetNX(ctx, s.key(l.RoomCode), data, s.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("claim room %s: %w", l.RoomCode, err)
		}
		if ok {
			return l, nil
		}
	}
	return nil, ErrCodeSpace
}

// Get loads the lobby stored under code.
func (s *RedisStore) Get(ctx context.Context, code string) (*models.Lobby, error) {
	data, err := s.rdb.Get(ctx, s.key(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", code, err)
	}
	return decodeLobby(data)
}

// Mutate applies fn inside a WATCH transaction on the room key.
func (s *RedisStore) Mutate(ctx context.Context, code string, fn MutateFunc) (*models.Lobby, error) {
	key := s.key(code)

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		var result *models.Lobby
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("load room %s: %w", code, err)
			}
			l, err := decodeLobby(data)
			if err != nil {
				return err
			}
			if err := fn(l); err != nil {
				return err
			}
			l.UpdatedAt = s.now()

			var encoded []byte
			if !l.Empty() {
				if encoded, err = json.Marshal(l); err != nil {
					return fmt.Errorf("encode lobby: %w", err)
				}
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if l.Empty() {
					pipe.Del(ctx, key)
				} else {
					pipe.Set(ctx, key, encoded, s.ttl)
				}
				return nil
			})
			if err != nil {
				return err
			}
			result = l
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, ErrConflict
}

// Delete removes the room key.
func (s *RedisStore) Delete(ctx context.Context, code string) error {
	n, err := s.rdb.Del(ctx, s.key(code)).Result()
	if err != nil {
		return fmt.Errorf("delete room %s: %w", code, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func decodeLobby(data []byte) (*models.Lobby, error) {
	var l models.Lobby
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decode lobby: %w", err)
	}
	return &l, nil
}
