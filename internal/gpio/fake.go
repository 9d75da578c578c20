package gpio

import (
	"errors"
	"sync"
)

// FakeReader is a test double that returns scripted levels.
type FakeReader struct {
	mu     sync.Mutex
	levels map[int]bool

	// ReadError, if set, will be returned by Read()
	ReadError error
	Closed    bool
}

// NewFakeReader creates a FakeReader with every offset low.
func NewFakeReader(offsets ...int) *FakeReader {
	f := &FakeReader{levels: make(map[int]bool, len(offsets))}
	for _, o := range offsets {
		f.levels[o] = false
	}
	return f
}

// Set changes the level of offset.
func (f *FakeReader) Set(offset int, level bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.levels[offset] = level
}

func (f *FakeReader) Read() (map[int]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadError != nil {
		return nil, f.ReadError
	}
	if len(f.levels) == 0 {
		return nil, errors.New("no lines configured")
	}

	out := make(map[int]bool, len(f.levels))
	for k, v := range f.levels {
		out[k] = v
	}
	return out, nil
}

func (f *FakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
