package session

import (
	"sync"
	"time"

	"github.com/estebmaister/supportbot/internal/observability"
	"github.com/rs/zerolog/log"
)

// Role values used in conversation messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// pruneThreshold is the store fill ratio above which GetOrCreate runs a
// pruning pass before creating a new conversation.
const pruneThreshold = 0.8

// Message represents a single conversation turn. Messages are never
// mutated after they are appended.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// conversation is the bounded message history for one caller identity.
// It is only touched while the store mutex is held.
type conversation struct {
	messages     []Message
	createdAt    time.Time
	lastActivity time.Time
}

// ConversationInfo is a read-only snapshot of conversation metadata.
type ConversationInfo struct {
	Messages     int
	CreatedAt    time.Time
	LastActivity time.Time
}

// Stats describes the store for status reporting.
type Stats struct {
	TotalConversations int `json:"total_conversations"`
	MaxConversations   int `json:"max_conversations"`
}

// Config holds store configuration
type Config struct {
	// Capacity is the per-conversation message bound; oldest messages
	// are dropped first on overflow.
	Capacity int
	// MaxConversations bounds the number of tracked identities.
	MaxConversations int
	// StaleTimeout is the inactivity window after which a conversation
	// is eligible for pruning.
	StaleTimeout time.Duration
}

// Store is the process-wide conversation store. All methods are safe for
// concurrent use; a single mutex serializes writers, and no method holds
// it across anything slower than map and slice operations.
type Store struct {
	mu            sync.Mutex
	conversations map[string]*conversation

	capacity     int
	maxCount     int
	staleTimeout time.Duration

	// now is swappable for tests
	now func() time.Time
}

// New creates a new conversation store
func New(cfg Config) *Store {
	observability.EnsureRegistered()

	if cfg.Capacity <= 0 {
		cfg.Capacity = 50
	}
	if cfg.MaxConversations <= 0 {
		cfg.MaxConversations = 1000
	}
	if cfg.StaleTimeout <= 0 {
		cfg.StaleTimeout = 30 * time.Minute
	}

	return &Store{
		conversations: make(map[string]*conversation),
		capacity:      cfg.Capacity,
		maxCount:      cfg.MaxConversations,
		staleTimeout:  cfg.StaleTimeout,
		now:           time.Now,
	}
}

// GetOrCreate ensures a conversation exists for the given identity. When
// the store is above the prune threshold, a pruning pass runs before a
// new conversation is created. There is no timer: pruning only happens
// opportunistically here, so stale entries can outlive their timeout
// under quiet traffic.
func (s *Store) GetOrCreate(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if float64(len(s.conversations)) > float64(s.maxCount)*pruneThreshold {
		s.pruneLocked(s.now(), s.staleTimeout)
	}

	s.getOrCreateLocked(identity)
}

func (s *Store) getOrCreateLocked(identity string) *conversation {
	conv, ok := s.conversations[identity]
	if !ok {
		now := s.now()
		conv = &conversation{
			createdAt:    now,
			lastActivity: now,
		}
		s.conversations[identity] = conv
		observability.SetActiveConversations(len(s.conversations))
		log.Debug().Str("identity", identity).Msg("Created new conversation")
	}
	return conv
}

// Append adds a message to the identity's conversation, creating the
// conversation if needed and evicting the oldest message on overflow.
func (s *Store) Append(identity, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.getOrCreateLocked(identity)
	now := s.now()

	msg := Message{Role: role, Content: content, Timestamp: now}
	if len(conv.messages) >= s.capacity {
		evict := len(conv.messages) - s.capacity + 1
		conv.messages = append(conv.messages[:0], conv.messages[evict:]...)
		observability.AddEvictedMessages(evict)
	}
	conv.messages = append(conv.messages, msg)
	conv.lastActivity = now
}

// History returns messages for the identity, oldest first. With
// includeAll or a non-positive limit the full history is returned,
// otherwise the most recent limit messages.
func (s *Store) History(identity string, limit int, includeAll bool) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[identity]
	if !ok {
		return nil
	}

	msgs := conv.messages
	if !includeAll && limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// Delete removes the identity's conversation. It returns whether the
// conversation existed.
func (s *Store) Delete(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[identity]; !ok {
		return false
	}

	delete(s.conversations, identity)
	observability.SetActiveConversations(len(s.conversations))
	log.Debug().Str("identity", identity).Msg("Deleted conversation")
	return true
}

// Prune removes all conversations whose last activity is older than
// now minus staleTimeout. It returns the number of removed conversations.
func (s *Store) Prune(now time.Time, staleTimeout time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked(now, staleTimeout)
}

func (s *Store) pruneLocked(now time.Time, staleTimeout time.Duration) int {
	var stale []string
	for identity, conv := range s.conversations {
		if now.Sub(conv.lastActivity) > staleTimeout {
			stale = append(stale, identity)
		}
	}
	for _, identity := range stale {
		delete(s.conversations, identity)
	}

	if len(stale) > 0 {
		observability.SetActiveConversations(len(s.conversations))
		observability.AddPrunedConversations(len(stale))
		log.Info().Int("count", len(stale)).Msg("Pruned stale conversations")
	}
	return len(stale)
}

// Count returns the number of tracked conversations.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// Info returns metadata for the identity's conversation, if present.
func (s *Store) Info(identity string) (ConversationInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[identity]
	if !ok {
		return ConversationInfo{}, false
	}
	return ConversationInfo{
		Messages:     len(conv.messages),
		CreatedAt:    conv.createdAt,
		LastActivity: conv.lastActivity,
	}, true
}

// Stats returns store statistics
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		TotalConversations: len(s.conversations),
		MaxConversations:   s.maxCount,
	}
}

// StaleTimeout returns the configured staleness window.
func (s *Store) StaleTimeout() time.Duration {
	return s.staleTimeout
}
