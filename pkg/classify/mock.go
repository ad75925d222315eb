package classify

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/photocheck/pkg/verdict"
)

// Mock implements Classifier for testing.
type Mock struct {
	// ClassifyFunc is called when Classify is invoked.
	ClassifyFunc func(ctx context.Context, req *Request) (*Response, error)

	// HealthFunc is called when Health is invoked.
	HealthFunc func(ctx context.Context) error

	mu       sync.Mutex
	calls    []MockCall
	requests []*Request
}

// MockCall records a method invocation.
type MockCall struct {
	Method string
	Time   time.Time
}

// NewMock returns a mock that answers every request with doc.
func NewMock(doc verdict.Document) *Mock {
	return &Mock{
		ClassifyFunc: func(ctx context.Context, req *Request) (*Response, error) {
			return &Response{Document: doc, RequestID: req.RequestID, StatusCode: 200}, nil
		},
		HealthFunc: func(ctx context.Context) error {
			return nil
		},
	}
}

// Classify calls ClassifyFunc and records the request.
func (m *Mock) Classify(ctx context.Context, req *Request) (*Response, error) {
	m.record("Classify")
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if req == nil || len(req.Image) == 0 {
		return nil, ErrEmptyImage
	}
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, req)
	}
	return &Response{Document: verdict.Document{}, StatusCode: 200}, nil
}

// Health calls HealthFunc.
func (m *Mock) Health(ctx context.Context) error {
	m.record("Health")
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close records the call.
func (m *Mock) Close() error {
	m.record("Close")
	return nil
}

// Calls returns all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of calls to a method.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Requests returns the submitted requests in order.
func (m *Mock) Requests() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*Request, len(m.requests))
	copy(result, m.requests)
	return result
}

// Reset clears recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.requests = nil
}

func (m *Mock) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Time: time.Now()})
}

// Ensure Mock implements Classifier.
var _ Classifier = (*Mock)(nil)

// Ensure Client implements Classifier.
var _ Classifier = (*Client)(nil)
