package asset

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

// Handle errors.
var (
	ErrReleased = errors.New("asset handle released")
	ErrClosed   = errors.New("asset registry closed")
)

// Handle is the owned reference to one upload's bytes. It is tagged with the
// upload generation and must be released when superseded, when decoding
// fails, or on unmount.
type Handle struct {
	reg        *Registry
	name       string
	format     FormatTag
	generation uint64
	size       int

	mu   sync.Mutex
	data []byte
}

// Name returns the original file name.
func (h *Handle) Name() string { return h.name }

// Format returns the extension-derived format.
func (h *Handle) Format() FormatTag { return h.format }

// Generation returns the upload generation this handle belongs to.
func (h *Handle) Generation() uint64 { return h.generation }

// Size returns the byte length of the upload.
func (h *Handle) Size() int { return h.size }

// Bytes returns the upload content, or ErrReleased once the handle is gone.
// Callers must not modify the slice.
func (h *Handle) Bytes() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.data == nil {
		return nil, fmt.Errorf("%s (generation %d): %w", h.name, h.generation, ErrReleased)
	}
	return h.data, nil
}

// Released reports whether Release has run.
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.data == nil
}

// Release drops the bytes and unregisters the handle. Safe to call more than
// once.
func (h *Handle) Release() {
	h.mu.Lock()
	if h.data == nil {
		h.mu.Unlock()
		return
	}
	h.data = nil
	h.mu.Unlock()
	h.reg.forget(h)
}

// Registry creates handles and accounts for the live ones.
type Registry struct {
	mu         sync.Mutex
	generation uint64
	live       map[uint64]*Handle
	closed     bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{live: make(map[uint64]*Handle)}
}

// Ingest takes ownership of data under the next generation number. Unknown
// formats still get a handle; rejecting them is the dispatcher's job.
func (r *Registry) Ingest(name string, data []byte) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}

	r.generation++
	if data == nil {
		data = []byte{}
	}
	h := &Handle{
		reg:        r,
		name:       name,
		format:     Classify(name),
		generation: r.generation,
		size:       len(data),
		data:       data,
	}
	r.live[h.generation] = h
	return h, nil
}

// Generation returns the most recently issued generation.
func (r *Registry) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// Live returns the number of unreleased handles.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

func (r *Registry) forget(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, h.generation)
}

// ReleaseAll releases every live handle and refuses further ingestion. It
// reports handles that were still live as leaks.
func (r *Registry) ReleaseAll() error {
	r.mu.Lock()
	r.closed = true
	handles := make([]*Handle, 0, len(r.live))
	for _, h := range r.live {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	var errs error
	for _, h := range handles {
		h.Release()
		errs = multierr.Append(errs, fmt.Errorf("released leaked handle %s (generation %d)", h.name, h.generation))
	}
	return errs
}
