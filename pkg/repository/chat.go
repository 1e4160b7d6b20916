package repository

import (
	"sync"
	"time"

	"github.com/dskvich/local-chat-relay/pkg/domain"
)

type chatEntry struct {
	// turn is held for a whole chat turn. messages is written only with both
	// turn and chatRepository.mu held.
	turn     sync.Mutex
	messages []domain.Message

	// lastUpdate and active are guarded by chatRepository.mu. An entry with
	// active turns never expires.
	lastUpdate time.Time
	active     int
}

type chatRepository struct {
	mu    sync.Mutex
	chats map[string]*chatEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewChatRepository keeps chat histories in memory. Chats idle for longer
// than ttl are treated as gone; ttl <= 0 keeps them forever.
func NewChatRepository(ttl time.Duration) *chatRepository {
	return &chatRepository{
		chats: make(map[string]*chatEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Update runs fn with exclusive access to the chat's history and stores the
// returned messages when fn reports true. Concurrent updates of the same
// chat run one after another; different chats do not block each other.
// If the chat is cleared while fn runs, the result is discarded.
func (c *chatRepository) Update(chatID string, fn func(messages []domain.Message) ([]domain.Message, bool)) {
	entry := c.acquire(chatID)
	defer c.release(entry)

	messages, ok := fn(domain.CloneMessages(entry.messages))
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.chats[chatID] != entry {
		return
	}
	entry.messages = messages
}

// GetByID returns the last committed history of a chat. It does not wait for
// a turn in progress.
func (c *chatRepository) GetByID(chatID string) (domain.Chat, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.chats[chatID]
	if !ok || c.isExpired(entry) {
		return domain.Chat{}, false
	}

	return domain.Chat{
		ID:         chatID,
		Messages:   domain.CloneMessages(entry.messages),
		LastUpdate: entry.lastUpdate,
	}, true
}

func (c *chatRepository) Clear(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.chats, chatID)
}

// DeleteExpired drops every expired chat and returns how many were removed.
func (c *chatRepository) DeleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for chatID, entry := range c.chats {
		if c.isExpired(entry) {
			delete(c.chats, chatID)
			removed++
		}
	}
	return removed
}

func (c *chatRepository) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.chats)
}

// acquire returns the current entry for chatID with its turn lock held,
// creating a fresh one when missing or expired.
func (c *chatRepository) acquire(chatID string) *chatEntry {
	for {
		c.mu.Lock()
		entry, ok := c.chats[chatID]
		if !ok || c.isExpired(entry) {
			entry = &chatEntry{}
			c.chats[chatID] = entry
		}
		entry.lastUpdate = c.now()
		entry.active++
		c.mu.Unlock()

		entry.turn.Lock()

		c.mu.Lock()
		current := c.chats[chatID] == entry
		if !current {
			entry.active--
		}
		c.mu.Unlock()

		if current {
			return entry
		}
		entry.turn.Unlock()
	}
}

// release ends a turn. The idle period restarts when the turn ends, so a turn
// longer than the ttl does not expire its own chat.
func (c *chatRepository) release(entry *chatEntry) {
	c.mu.Lock()
	entry.active--
	entry.lastUpdate = c.now()
	c.mu.Unlock()

	entry.turn.Unlock()
}

func (c *chatRepository) isExpired(entry *chatEntry) bool {
	if c.ttl <= 0 || entry.active > 0 {
		return false
	}
	return c.now().Sub(entry.lastUpdate) > c.ttl
}
