package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MockClient implements Client for testing. Handlers are registered per task
// type; every call is recorded so tests can assert call counts and payloads.
type MockClient struct {
	mu       sync.Mutex
	handlers map[TaskType]func(req Request) (Response, error)
	Calls    []Request
}

var _ Client = (*MockClient)(nil)

// NewMockClient creates an empty mock; unhandled task types fail the call.
func NewMockClient() *MockClient {
	return &MockClient{
		handlers: make(map[TaskType]func(req Request) (Response, error)),
	}
}

// Handle registers a handler for a task type.
func (m *MockClient) Handle(task TaskType, fn func(req Request) (Response, error)) {
	m.handlers[task] = fn
}

// Respond registers a fixed successful JSON payload for a task type.
func (m *MockClient) Respond(task TaskType, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("mock payload for %s does not marshal: %v", task, err))
	}
	m.Handle(task, func(Request) (Response, error) {
		return Response{Success: true, Data: data, ProviderUsed: "mock"}, nil
	})
}

// Fail registers a Success=false response for a task type.
func (m *MockClient) Fail(task TaskType, message string) {
	m.Handle(task, func(Request) (Response, error) {
		return Response{Success: false, ErrorMessage: message, ProviderUsed: "mock"}, nil
	})
}

// Complete dispatches to the registered handler.
func (m *MockClient) Complete(ctx context.Context, req Request) (Response, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	fn, ok := m.handlers[req.Task]
	m.mu.Unlock()

	if !ok {
		return Response{
			Success:      false,
			ErrorMessage: fmt.Sprintf("no mock handler for task %s", req.Task),
			ProviderUsed: "mock",
		}, nil
	}
	return fn(req)
}

// CallCount returns the number of calls issued for a task type.
func (m *MockClient) CallCount(task TaskType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Task == task {
			n++
		}
	}
	return n
}
