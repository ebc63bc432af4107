package session

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSessionIncrementsCounter(t *testing.T) {
	m := NewManager(5)

	for i := 1; i <= 5; i++ {
		assert.Equal(t, fmt.Sprintf("session_%d", i), m.CreateSession())
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	m := NewManager(5)
	s1 := m.CreateSession()
	s2 := m.CreateSession()

	m.AddMessage(s1, "user", "hello from one")
	m.AddMessage(s2, "user", "hello from two")

	h1, ok := m.ConversationHistory(s1)
	require.True(t, ok)
	h2, ok := m.ConversationHistory(s2)
	require.True(t, ok)
	assert.Contains(t, h1, "hello from one")
	assert.NotContains(t, h1, "hello from two")
	assert.Contains(t, h2, "hello from two")
}

func TestAddMessageAutoCreatesSession(t *testing.T) {
	m := NewManager(5)

	m.AddMessage("adhoc", "user", "hi")

	history, ok := m.ConversationHistory("adhoc")
	require.True(t, ok)
	assert.Equal(t, "User: hi", history)
}

func TestAddExchangeAppendsPair(t *testing.T) {
	m := NewManager(5)
	id := m.CreateSession()

	m.AddExchange(id, "What is ML?", "Machine Learning is...")

	history, ok := m.ConversationHistory(id)
	require.True(t, ok)
	lines := strings.Split(history, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "User: What is ML?", lines[0])
	assert.Equal(t, "Assistant: Machine Learning is...", lines[1])
}

func TestHistoryLimitEnforced(t *testing.T) {
	m := NewManager(2)
	id := m.CreateSession()

	m.AddExchange(id, "Q1", "A1")
	m.AddExchange(id, "Q2", "A2")
	m.AddExchange(id, "Q3", "A3")

	assert.Equal(t, 4, m.MessageCount(id))
	history, ok := m.ConversationHistory(id)
	require.True(t, ok)
	assert.Equal(t, "User: Q2\nAssistant: A2\nUser: Q3\nAssistant: A3", history)
}

func TestTrimmingWithIndividualMessages(t *testing.T) {
	m := NewManager(2)
	id := m.CreateSession()

	for i := 0; i < 5; i++ {
		m.AddMessage(id, "user", fmt.Sprintf("Message %d", i))
	}

	assert.Equal(t, 4, m.MessageCount(id))
	history, _ := m.ConversationHistory(id)
	assert.True(t, strings.HasPrefix(history, "User: Message 1"))
}

func TestEmptySessionHistoryAbsent(t *testing.T) {
	m := NewManager(5)
	id := m.CreateSession()

	_, ok := m.ConversationHistory(id)
	assert.False(t, ok)
}

func TestUnknownSessionHistoryAbsent(t *testing.T) {
	m := NewManager(5)

	_, ok := m.ConversationHistory("nonexistent")
	assert.False(t, ok)

	_, ok = m.ConversationHistory("")
	assert.False(t, ok)
}

func TestClearSessionRemovesMessagesKeepsSession(t *testing.T) {
	m := NewManager(5)
	id := m.CreateSession()
	m.AddExchange(id, "Q1", "A1")
	m.AddExchange(id, "Q2", "A2")
	require.Equal(t, 4, m.MessageCount(id))

	m.ClearSession(id)

	assert.Equal(t, 0, m.MessageCount(id))
	_, ok := m.ConversationHistory(id)
	assert.False(t, ok)
}

func TestClearUnknownSessionNoPanic(t *testing.T) {
	m := NewManager(5)

	assert.NotPanics(t, func() { m.ClearSession("nonexistent") })
}
