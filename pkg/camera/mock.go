package camera

import (
	"context"
	"sync"
)

// MockSource implements Source for testing.
type MockSource struct {
	// Frame is returned by Snapshot.
	Frame []byte

	// SnapshotFunc overrides Frame when set.
	SnapshotFunc func(opts EncodeOptions) ([]byte, error)

	mu        sync.Mutex
	closed    bool
	snapshots []EncodeOptions
}

// NewMockSource returns a source that always yields frame.
func NewMockSource(frame []byte) *MockSource {
	return &MockSource{Frame: frame}
}

// Snapshot records opts and returns the configured frame.
func (s *MockSource) Snapshot(opts EncodeOptions) ([]byte, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.snapshots = append(s.snapshots, opts)
	fn := s.SnapshotFunc
	s.mu.Unlock()

	if fn != nil {
		return fn(opts)
	}
	if len(s.Frame) == 0 {
		return nil, ErrNoFrame
	}
	out := make([]byte, len(s.Frame))
	copy(out, s.Frame)
	return out, nil
}

// Close marks the source closed.
func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *MockSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Snapshots returns the options of every Snapshot call.
func (s *MockSource) Snapshots() []EncodeOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EncodeOptions, len(s.snapshots))
	copy(out, s.snapshots)
	return out
}

// MockOpener implements Opener for testing.
type MockOpener struct {
	// Source is handed out on success.
	Source Source

	// NewSource, when set, builds a fresh source for every Open.
	NewSource func() Source

	// Err, when set, is returned instead.
	Err error

	mu      sync.Mutex
	opens   int
	configs []Config
}

// Open returns Err or Source.
func (o *MockOpener) Open(ctx context.Context, cfg Config) (Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opens++
	o.configs = append(o.configs, cfg)
	if o.Err != nil {
		return nil, o.Err
	}
	if o.NewSource != nil {
		return o.NewSource(), nil
	}
	return o.Source, nil
}

// Opens returns the number of Open calls.
func (o *MockOpener) Opens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens
}

// LastConfig returns the config of the most recent Open call.
func (o *MockOpener) LastConfig() Config {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.configs) == 0 {
		return Config{}
	}
	return o.configs[len(o.configs)-1]
}

// Ensure mocks implement the interfaces.
var (
	_ Source = (*MockSource)(nil)
	_ Opener = (*MockOpener)(nil)
)
