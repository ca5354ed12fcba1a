package tool

import (
	"context"
	"sync"
)

// MockTool implements Tool for tests. It returns a fixed output or error and
// records every call's input.
type MockTool struct {
	mu sync.Mutex

	// ToolName is returned by Name. Defaults to "mock" when empty.
	ToolName string

	// Output is returned by every successful Call.
	Output map[string]interface{}

	// Err, if non-nil, is returned by every Call.
	Err error

	// Calls records the input of each invocation.
	Calls []map[string]interface{}
}

// Name implements Tool.
func (m *MockTool) Name() string {
	if m.ToolName == "" {
		return "mock"
	}
	return m.ToolName
}

// Call implements Tool.
func (m *MockTool) Call(_ context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, input)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Output, nil
}

// CallCount reports how many times Call was invoked.
func (m *MockTool) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
