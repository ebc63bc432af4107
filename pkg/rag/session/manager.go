package session

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/patrickmn/go-cache"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Session struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}

// Manager keeps per-session rolling histories. Each session holds at most
// 2 x maxHistory messages, trimmed from the front on write.
type Manager struct {
	cache      *cache.Cache
	maxHistory int
	counter    uint64
	mu         sync.Mutex
}

func NewManager(maxHistory int) *Manager {
	if maxHistory <= 0 {
		maxHistory = 2
	}
	return &Manager{
		// Sessions live for the process lifetime; no janitor needed.
		cache:      cache.New(cache.NoExpiration, 0),
		maxHistory: maxHistory,
	}
}

// CreateSession returns a fresh identifier from a process-lifetime counter.
func (m *Manager) CreateSession() string {
	n := atomic.AddUint64(&m.counter, 1)
	id := fmt.Sprintf("session_%d", n)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Set(id, &Session{ID: id}, cache.NoExpiration)
	return id
}

// AddMessage appends one message, auto-creating the session if absent.
func (m *Manager) AddMessage(sessionID, role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.getOrCreateLocked(sessionID)
	s.Messages = append(s.Messages, Message{Role: role, Content: content})
	m.trimLocked(s)
	m.cache.Set(sessionID, s, cache.NoExpiration)
}

// AddExchange appends a user/assistant pair, trimmed once as a unit.
func (m *Manager) AddExchange(sessionID, userMessage, assistantMessage string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.getOrCreateLocked(sessionID)
	s.Messages = append(s.Messages,
		Message{Role: "user", Content: userMessage},
		Message{Role: "assistant", Content: assistantMessage},
	)
	m.trimLocked(s)
	m.cache.Set(sessionID, s, cache.NoExpiration)
}

// ConversationHistory renders the session as "User:"/"Assistant:" lines.
// The second return is false when the session is absent or empty.
func (m *Manager) ConversationHistory(sessionID string) (string, bool) {
	if sessionID == "" {
		return "", false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.getLocked(sessionID)
	if s == nil || len(s.Messages) == 0 {
		return "", false
	}

	lines := make([]string, 0, len(s.Messages))
	for _, msg := range s.Messages {
		label := "User"
		if msg.Role == "assistant" {
			label = "Assistant"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", label, msg.Content))
	}
	return strings.Join(lines, "\n"), true
}

// ClearSession removes all messages but keeps the session id valid.
// Clearing an unknown session is a no-op.
func (m *Manager) ClearSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.getLocked(sessionID)
	if s == nil {
		return
	}
	s.Messages = nil
	m.cache.Set(sessionID, s, cache.NoExpiration)
}

// MessageCount reports the stored message count for a session.
func (m *Manager) MessageCount(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.getLocked(sessionID)
	if s == nil {
		return 0
	}
	return len(s.Messages)
}

func (m *Manager) getLocked(sessionID string) *Session {
	if x, found := m.cache.Get(sessionID); found {
		return x.(*Session)
	}
	return nil
}

func (m *Manager) getOrCreateLocked(sessionID string) *Session {
	if s := m.getLocked(sessionID); s != nil {
		return s
	}
	return &Session{ID: sessionID}
}

func (m *Manager) trimLocked(s *Session) {
	limit := 2 * m.maxHistory
	if len(s.Messages) > limit {
		s.Messages = s.Messages[len(s.Messages)-limit:]
	}
}
