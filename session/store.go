package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a session id has no stored record.
var ErrNotFound = errors.New("session not found")

// ErrRedisUnavailable wraps Redis transport failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Store keeps session records keyed by SessionID.
//
// Implementations must be safe for concurrent use and must hand out copies,
// never the stored record itself.
type Store interface {
	Save(ctx context.Context, sess *Session, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
	// Purge removes every record written through this store.
	Purge(ctx context.Context) error
}

/*
====================================
MEMORY STORE
====================================
*/

type memoryEntry struct {
	sess      *Session
	expiresAt time.Time
}

// MemoryStore is an in-process [Store].
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryStore) Save(_ context.Context, sess *Session, ttl time.Duration) error {
	if sess == nil || sess.SessionID == "" {
		return errors.New("session id required")
	}
	if err := sess.Validate(); err != nil {
		return err
	}

	entry := memoryEntry{sess: sess.Clone()}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[sess.SessionID] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	entry, ok := m.entries[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, sessionID)
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	return entry.sess.Clone(), nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.entries, sessionID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Purge(context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored records, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

/*
====================================
REDIS STORE
====================================
*/

// RedisStore is a Redis-backed [Store].
//
// Keys live under "<prefix>:<instance>:" where instance is a random id chosen
// at construction, so records written by an earlier process are never read.
type RedisStore struct {
	redis     redis.UniversalClient
	namespace string
}

// NewRedisStore binds a RedisStore to client under prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "gi"
	}
	return &RedisStore{
		redis:     client,
		namespace: prefix + ":" + uuid.NewString(),
	}
}

// Namespace returns the instance-scoped key prefix.
func (s *RedisStore) Namespace() string {
	return s.namespace
}

func (s *RedisStore) key(sessionID string) string {
	return s.namespace + ":" + sessionID
}

func (s *RedisStore) indexKey() string {
	return s.namespace + ":index"
}

// saveSessionScript writes the record and adds it to the instance index. The
// index TTL only ever grows, so it outlives every record it lists; a record
// without TTL makes the index persistent.
const saveSessionScript = `
local ttl = tonumber(ARGV[2])
if ttl > 0 then
  redis.call("SET", KEYS[1], ARGV[1], "PX", ttl)
else
  redis.call("SET", KEYS[1], ARGV[1])
end
local existed = redis.call("EXISTS", KEYS[2])
redis.call("SADD", KEYS[2], ARGV[3])
if ttl <= 0 then
  redis.call("PERSIST", KEYS[2])
else
  local current = redis.call("PTTL", KEYS[2])
  if existed == 0 or (current >= 0 and current < ttl) then
    redis.call("PEXPIRE", KEYS[2], ttl)
  end
end
return 1
`

var saveSessionLua = redis.NewScript(saveSessionScript)

// Save validates and writes the encoded session with ttl and records it in
// the instance index.
//
//	Performance: 1 EVALSHA.
func (s *RedisStore) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	if sess == nil || sess.SessionID == "" {
		return errors.New("session id required")
	}
	if err := sess.Validate(); err != nil {
		return err
	}
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	ttlMillis := ttl.Milliseconds()
	if ttl > 0 && ttlMillis == 0 {
		ttlMillis = 1
	}
	keys := []string{s.key(sess.SessionID), s.indexKey()}
	if err := saveSessionLua.Run(ctx, s.redis, keys, data, ttlMillis, sess.SessionID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get loads and decodes a session.
//
//	Performance: 1 Redis GET.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return Decode(data)
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(sessionID))
		pipe.SRem(ctx, s.indexKey(), sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Purge deletes every session recorded in the instance index and the index.
func (s *RedisStore) Purge(ctx context.Context) error {
	ids, err := s.redis.SMembers(ctx, s.indexKey()).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.key(id))
	}
	keys = append(keys, s.indexKey())

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping measures a Redis round trip.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
