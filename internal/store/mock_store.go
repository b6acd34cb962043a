// ABOUTME: Mock Querier implementation for testing
// ABOUTME: Records every statement and returns canned rows without a database

package store

import (
	"context"
	"sync"
)

// MockCall is one recorded Querier invocation.
type MockCall struct {
	Method    string
	Statement string
	Args      []any
}

// MockQuerier is a canned-response Querier for testing. Set the exported
// result fields before use; every call is recorded for later inspection.
type MockQuerier struct {
	mu    sync.Mutex
	calls []MockCall

	// Row is returned by FetchOne.
	Row Row
	// Rows is returned by FetchAll and ExecuteReturning.
	Rows []Row
	// Affected is returned by Execute.
	Affected int64
	// Err, when set, is returned by every method.
	Err error
}

// Ensure MockQuerier implements Querier.
var _ Querier = (*MockQuerier)(nil)

// NewMockQuerier creates a new MockQuerier.
func NewMockQuerier() *MockQuerier {
	return &MockQuerier{}
}

func (m *MockQuerier) record(method, statement string, args []any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Statement: statement, Args: args})
}

// FetchOne records the call and returns Row.
func (m *MockQuerier) FetchOne(ctx context.Context, statement string, args ...any) (Row, error) {
	m.record("FetchOne", statement, args)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Row, nil
}

// FetchAll records the call and returns Rows, or an empty slice.
func (m *MockQuerier) FetchAll(ctx context.Context, statement string, args ...any) ([]Row, error) {
	m.record("FetchAll", statement, args)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Rows == nil {
		return []Row{}, nil
	}
	return m.Rows, nil
}

// Execute records the call and returns Affected.
func (m *MockQuerier) Execute(ctx context.Context, statement string, args ...any) (int64, error) {
	m.record("Execute", statement, args)
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Affected, nil
}

// ExecuteReturning records the call and returns Rows.
func (m *MockQuerier) ExecuteReturning(ctx context.Context, statement string, args ...any) ([]Row, error) {
	m.record("ExecuteReturning", statement, args)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Rows == nil {
		return []Row{}, nil
	}
	return m.Rows, nil
}

// Calls returns a copy of every recorded call in order.
func (m *MockQuerier) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// LastCall returns the most recent call, or a zero MockCall if none.
func (m *MockQuerier) LastCall() MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return MockCall{}
	}
	return m.calls[len(m.calls)-1]
}
