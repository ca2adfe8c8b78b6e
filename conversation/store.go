// Package conversation keeps multi-turn chat history. Conversations
// live in Redis under `conversation:<id>` with a 24h TTL and are always
// mirrored in process memory, so history survives a Redis outage for
// the lifetime of the process. Writes are last-writer-wins on the whole
// conversation.
package conversation

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tamadze/tamada/config"
)

const (
	defaultMaxHistory = 20
	defaultTTL        = 24 * time.Hour
)

// MessageMetadata annotates a single turn. User turns carry the query
// language and intent; assistant turns carry the language and the
// document ids the answer cited.
type MessageMetadata struct {
	Language string   `json:"language,omitempty"`
	Intent   string   `json:"intent,omitempty"`
	Sources  []string `json:"sources,omitempty"`
}

// Message is one conversation turn.
type Message struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Timestamp time.Time       `json:"timestamp"`
	Metadata  MessageMetadata `json:"metadata"`
}

// Metadata aggregates what a conversation has touched. The lists are
// sorted and deduplicated.
type Metadata struct {
	TotalMessages int      `json:"total_messages"`
	LanguagesUsed []string `json:"languages_used"`
	Topics        []string `json:"topics"`
	SourcesUsed   []string `json:"sources_used"`
}

// Conversation is the stored unit: identity, turns and aggregates.
type Conversation struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    string    `json:"user_id,omitempty"`
	Messages  []Message `json:"messages"`
	Metadata  Metadata  `json:"metadata"`
}

// Info is a conversation without its messages.
type Info struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    string    `json:"user_id,omitempty"`
	Metadata  Metadata  `json:"metadata"`
}

// Stats reports store activity since startup.
type Stats struct {
	TotalConversations int64   `json:"total_conversations"`
	TotalMessages      int64   `json:"total_messages"`
	RedisHits          int64   `json:"redis_hits"`
	RedisMisses        int64   `json:"redis_misses"`
	Errors             int64   `json:"errors"`
	CacheHitRate       float64 `json:"cache_hit_rate"`
	InMemory           int     `json:"in_memory_conversations"`
}

// Store reads and writes conversations. A nil Redis client means
// memory-only operation.
type Store struct {
	redis      *redis.Client
	maxHistory int
	ttl        time.Duration
	counter    *tokenCounter

	mu     sync.RWMutex
	memory map[string]Conversation

	conversations atomic.Int64
	messages      atomic.Int64
	redisHits     atomic.Int64
	redisMisses   atomic.Int64
	errs          atomic.Int64
}

// New builds a store on the given Redis client, which may be nil.
func New(client *redis.Client, cfg config.ConversationConfig) *Store {
	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}
	ttl := time.Duration(cfg.TTL) * time.Second
	if ttl <= 0 {
		ttl = defaultTTL
	}

	s := &Store{
		redis:      client,
		maxHistory: maxHistory,
		ttl:        ttl,
		memory:     make(map[string]Conversation),
	}
	if cfg.ExactTokens {
		counter, err := newTokenCounter()
		if err != nil {
			slog.Warn("Tokenizer unavailable, window falls back to character budget", "error", err)
		} else {
			s.counter = counter
		}
	}

	mode := "memory-only"
	if client != nil {
		mode = "redis+memory"
	}
	slog.Info("Conversation store ready", "mode", mode, "max_history", maxHistory, "ttl", ttl)
	return s
}

// NewID allocates a conversation id.
func NewID() string {
	u := uuid.New()
	return "conv_" + hex.EncodeToString(u[:])[:12]
}

// Create returns the conversation under id, creating an empty one when
// absent. An empty id allocates a fresh one.
func (s *Store) Create(ctx context.Context, id, userID string) *Conversation {
	if id == "" {
		id = NewID()
	}
	if conv, ok := s.load(ctx, id); ok {
		return &conv
	}

	now := time.Now().UTC()
	conv := Conversation{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    userID,
		Messages:  []Message{},
		Metadata: Metadata{
			LanguagesUsed: []string{},
			Topics:        []string{},
			SourcesUsed:   []string{},
		},
	}
	s.save(ctx, conv)
	s.conversations.Add(1)
	slog.Info("conversation created", "conversation", id)
	return &conv
}

// Append adds a turn, updates the conversation aggregates and trims
// history to the configured maximum. The conversation is created on
// first use. Storage failures are logged and counted, never surfaced:
// losing a history write must not fail the answer.
func (s *Store) Append(ctx context.Context, id, role, content string, meta MessageMetadata) {
	conv, ok := s.load(ctx, id)
	if !ok {
		conv = *s.Create(ctx, id, "")
	}

	now := time.Now().UTC()
	conv.Messages = append(conv.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: now,
		Metadata:  meta,
	})
	conv.UpdatedAt = now
	conv.Metadata.TotalMessages++

	if meta.Language != "" {
		conv.Metadata.LanguagesUsed = insertSorted(conv.Metadata.LanguagesUsed, meta.Language)
	}
	if meta.Intent != "" {
		conv.Metadata.Topics = insertSorted(conv.Metadata.Topics, meta.Intent)
	}
	for _, src := range meta.Sources {
		conv.Metadata.SourcesUsed = insertSorted(conv.Metadata.SourcesUsed, src)
	}

	if len(conv.Messages) > s.maxHistory {
		removed := len(conv.Messages) - s.maxHistory
		conv.Messages = append([]Message(nil), conv.Messages[removed:]...)
		slog.Debug("trimmed old messages", "conversation", id, "removed", removed)
	}

	s.save(ctx, conv)
	s.messages.Add(1)
}

// History returns the stored turns, oldest first. A positive limit
// keeps only the newest turns.
func (s *Store) History(ctx context.Context, id string, limit int) []Message {
	conv, ok := s.load(ctx, id)
	if !ok {
		return nil
	}
	msgs := conv.Messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs
}

// Describe returns the conversation aggregates without the messages.
func (s *Store) Describe(ctx context.Context, id string) (*Info, bool) {
	conv, ok := s.load(ctx, id)
	if !ok {
		return nil, false
	}
	return &Info{
		ID:        conv.ID,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
		UserID:    conv.UserID,
		Metadata:  conv.Metadata,
	}, true
}

// Clear deletes the conversation from both tiers.
func (s *Store) Clear(ctx context.Context, id string) {
	if s.redis != nil {
		if err := s.redis.Del(ctx, redisKey(id)).Err(); err != nil {
			s.errs.Add(1)
			slog.Warn("conversation delete failed", "conversation", id, "error", err)
		}
	}
	s.mu.Lock()
	delete(s.memory, id)
	s.mu.Unlock()
	slog.Info("conversation cleared", "conversation", id)
}

// Stats reports store counters and the Redis hit rate.
func (s *Store) Stats() Stats {
	hits := s.redisHits.Load()
	misses := s.redisMisses.Load()

	rate := 0.0
	if total := hits + misses; total > 0 {
		rate = math.Round(float64(hits)/float64(total)*10000) / 100
	}

	s.mu.RLock()
	inMemory := len(s.memory)
	s.mu.RUnlock()

	return Stats{
		TotalConversations: s.conversations.Load(),
		TotalMessages:      s.messages.Load(),
		RedisHits:          hits,
		RedisMisses:        misses,
		Errors:             s.errs.Load(),
		CacheHitRate:       rate,
		InMemory:           inMemory,
	}
}

func redisKey(id string) string {
	return "conversation:" + id
}

// load fetches a private copy of the conversation: Redis first, then
// the memory mirror. Redis trouble degrades to memory, it never fails
// the call.
func (s *Store) load(ctx context.Context, id string) (Conversation, bool) {
	if s.redis != nil {
		data, err := s.redis.Get(ctx, redisKey(id)).Bytes()
		switch {
		case err == nil:
			s.redisHits.Add(1)
			var conv Conversation
			jerr := json.Unmarshal(data, &conv)
			if jerr == nil {
				return conv, true
			}
			s.errs.Add(1)
			slog.Warn("conversation payload unreadable", "conversation", id, "error", jerr)
		case errors.Is(err, redis.Nil):
			s.redisMisses.Add(1)
		default:
			s.errs.Add(1)
			slog.Warn("conversation load failed", "conversation", id, "error", err)
		}
	}

	s.mu.RLock()
	conv, ok := s.memory[id]
	s.mu.RUnlock()
	if !ok {
		return Conversation{}, false
	}
	return cloneConversation(conv), true
}

// save writes both tiers. The memory mirror is written even when Redis
// succeeds so a later outage still sees current history.
func (s *Store) save(ctx context.Context, conv Conversation) {
	if s.redis != nil {
		data, err := json.Marshal(conv)
		if err != nil {
			s.errs.Add(1)
			slog.Warn("conversation marshal failed", "conversation", conv.ID, "error", err)
		} else if err := s.redis.SetEx(ctx, redisKey(conv.ID), data, s.ttl).Err(); err != nil {
			s.errs.Add(1)
			slog.Warn("conversation save failed", "conversation", conv.ID, "error", err)
		}
	}

	s.mu.Lock()
	s.memory[conv.ID] = conv
	s.mu.Unlock()
}

// cloneConversation copies the slices so callers can mutate their view
// without racing the mirror.
func cloneConversation(conv Conversation) Conversation {
	conv.Messages = slices.Clone(conv.Messages)
	conv.Metadata.LanguagesUsed = slices.Clone(conv.Metadata.LanguagesUsed)
	conv.Metadata.Topics = slices.Clone(conv.Metadata.Topics)
	conv.Metadata.SourcesUsed = slices.Clone(conv.Metadata.SourcesUsed)
	return conv
}

func insertSorted(list []string, v string) []string {
	i, found := slices.BinarySearch(list, v)
	if found {
		return list
	}
	return slices.Insert(list, i, v)
}
