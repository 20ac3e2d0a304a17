package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
)

// Turn is one line of the chat transcript.
type Turn struct {
	Content string `json:"content"`
	IsUser  bool   `json:"isUser"`
}

type Store interface {
	Load(ctx context.Context, sessionID string) ([]Turn, error)
	Save(ctx context.Context, sessionID string, turns []Turn) error
}

type memoryEntry struct {
	turns     []Turn
	expiresAt time.Time
}

// MemoryStore keeps history in process. Entries expire after ttl of inactivity
// and are dropped on the next Load or Sweep.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time

	scheduler *cron.Cron
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) ([]Turn, error) {
	s.mu.RLock()
	entry, ok := s.entries[sessionID]
	s.mu.RUnlock()

	if !ok {
		return []Turn{}, nil
	}
	if s.expired(entry) {
		s.mu.Lock()
		if current, still := s.entries[sessionID]; still && s.expired(current) {
			delete(s.entries, sessionID)
		}
		s.mu.Unlock()
		return []Turn{}, nil
	}
	out := make([]Turn, len(entry.turns))
	copy(out, entry.turns)
	return out, nil
}

func (s *MemoryStore) expired(entry memoryEntry) bool {
	return s.ttl > 0 && s.now().After(entry.expiresAt)
}

// Sweep drops every expired session and returns how many went.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.entries {
		if s.expired(entry) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len counts stored sessions, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// StartSweeper runs Sweep on the given cron spec, e.g. "@every 10m".
func (s *MemoryStore) StartSweeper(spec string) error {
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(spec, func() { s.Sweep() }); err != nil {
		return err
	}
	s.scheduler = scheduler
	scheduler.Start()
	return nil
}

func (s *MemoryStore) Stop() {
	if s.scheduler == nil {
		return
	}
	<-s.scheduler.Stop().Done()
}

func (s *MemoryStore) Save(ctx context.Context, sessionID string, turns []Turn) error {
	cp := make([]Turn, len(turns))
	copy(cp, turns)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionID] = memoryEntry{turns: cp, expiresAt: s.now().Add(s.ttl)}
	return nil
}

// RedisStore keeps history as a JSON array under chat:{sessionID}.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func Key(sessionID string) string {
	return "chat:" + sessionID
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) ([]Turn, error) {
	raw, err := s.client.Get(ctx, Key(sessionID)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return []Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}

	var turns []Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, fmt.Errorf("decode chat history: %w", err)
	}
	return turns, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, turns []Turn) error {
	raw, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("encode chat history: %w", err)
	}
	if err := s.client.Set(ctx, Key(sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save chat history: %w", err)
	}
	return nil
}
