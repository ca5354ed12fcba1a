package model

import (
	"context"
	"sync"
)

// MockChatModel implements ChatModel for tests. It replays canned responses
// in order and records every call for assertion.
//
// Example:
//
//	mock := &model.MockChatModel{
//	    Responses: []string{`{"diagnosis":"disk full"}`},
//	}
//	node := NewDiagnostician(mock)
type MockChatModel struct {
	mu sync.Mutex

	// Responses are returned one per call, in order. After the list is
	// exhausted the last response repeats.
	Responses []string

	// Err, if non-nil, is returned by every call instead of a response.
	Err error

	// Calls records the messages of each Chat invocation.
	Calls [][]Message

	next int
}

// Chat implements ChatModel.
func (m *MockChatModel) Chat(_ context.Context, messages []Message) (ChatOut, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	recorded := make([]Message, len(messages))
	copy(recorded, messages)
	m.Calls = append(m.Calls, recorded)

	if m.Err != nil {
		return ChatOut{}, m.Err
	}
	if len(m.Responses) == 0 {
		return ChatOut{}, nil
	}

	idx := m.next
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.next++
	}
	return ChatOut{Text: m.Responses[idx]}, nil
}

// CallCount reports how many times Chat was invoked.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
