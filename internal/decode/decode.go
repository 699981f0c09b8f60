// Package decode dispatches uploaded assets to per-format decoders through an
// explicit table and converts their output into scene graphs.
package decode

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/Faultbox/meshview/internal/asset"
	"github.com/Faultbox/meshview/internal/scene"
)

// Decode errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrDecodeFailure     = errors.New("decode failure")
	ErrNoGeometry        = errors.New("no drawable geometry")
	ErrTooLarge          = errors.New("file exceeds size limit")
)

// Func converts the bytes of one file into a scene graph. It must not keep
// data after returning.
type Func func(ctx context.Context, name string, data []byte) (*scene.Graph, error)

// Result is the outcome of one decode. Exactly one of Graph and Err is set.
type Result struct {
	Generation uint64
	Name       string
	Format     asset.FormatTag
	Graph      *scene.Graph
	Err        error
	Elapsed    time.Duration
}

// Decoder produces a Result for a handle. Table is the production
// implementation.
type Decoder interface {
	Decode(ctx context.Context, h *asset.Handle) Result
}

// Options tune a Table.
type Options struct {
	// MaxBytes rejects larger uploads; zero disables the limit.
	MaxBytes int64
	// Sniff rejects content recognized as a different file type.
	Sniff bool
	// Latency delays every decode, for exercising out-of-order completion.
	Latency time.Duration
}

// Table maps each format tag to its decoder. Tags without an entry dispatch
// to the unsupported default and never reach a decoder.
type Table struct {
	funcs map[asset.FormatTag]Func
	opts  Options
}

// NewTable creates a table from explicit entries.
func NewTable(entries map[asset.FormatTag]Func, opts Options) *Table {
	funcs := make(map[asset.FormatTag]Func, len(entries))
	for tag, fn := range entries {
		funcs[tag] = fn
	}
	return &Table{funcs: funcs, opts: opts}
}

// DefaultTable wires every supported format with sniffing on and no size
// limit.
func DefaultTable() *Table {
	return NewTable(map[asset.FormatTag]Func{
		asset.GltfLike: GLTF,
		asset.ObjMesh:  OBJ,
		asset.StlMesh:  STL,
		asset.FbxScene: FBX,
		asset.RsmModel: RSM,
	}, Options{Sniff: true})
}

// WithOptions returns a copy of t using opts.
func (t *Table) WithOptions(opts Options) *Table {
	return NewTable(t.funcs, opts)
}

// WithLatency returns a copy of t that waits d before every decode.
func WithLatency(t *Table, d time.Duration) *Table {
	opts := t.opts
	opts.Latency = d
	return NewTable(t.funcs, opts)
}

// Options returns the table's options.
func (t *Table) Options() Options {
	return t.opts
}

// Lookup returns the decoder for tag, or the unsupported default.
func (t *Table) Lookup(tag asset.FormatTag) Func {
	if fn, ok := t.funcs[tag]; ok {
		return fn
	}
	return unsupported
}

func unsupported(_ context.Context, name string, _ []byte) (*scene.Graph, error) {
	ext := filepath.Ext(name)
	if ext == "" {
		return nil, fmt.Errorf("%w: %q has no extension", ErrUnsupportedFormat, name)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// Decode runs the decoder for h. Decoder panics are contained and reported
// as ErrDecodeFailure; a result never carries a partial graph.
func (t *Table) Decode(ctx context.Context, h *asset.Handle) (res Result) {
	start := time.Now()
	res = Result{Generation: h.Generation(), Name: h.Name(), Format: h.Format()}
	defer func() {
		if r := recover(); r != nil {
			res.Graph = nil
			res.Err = fmt.Errorf("%w: %s: decoder panic: %v\n%s", ErrDecodeFailure, h.Name(), r, debug.Stack())
		}
		res.Elapsed = time.Since(start)
	}()

	if t.opts.Latency > 0 {
		timer := time.NewTimer(t.opts.Latency)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			res.Err = fmt.Errorf("%w: %s: %w", ErrDecodeFailure, h.Name(), ctx.Err())
			return res
		}
	}

	graph, err := t.decode(ctx, h)
	if err != nil {
		res.Err = err
		return res
	}
	res.Graph = graph
	return res
}

func (t *Table) decode(ctx context.Context, h *asset.Handle) (*scene.Graph, error) {
	fn, ok := t.funcs[h.Format()]
	if !ok {
		return unsupported(ctx, h.Name(), nil)
	}

	data, err := h.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}
	if t.opts.MaxBytes > 0 && int64(len(data)) > t.opts.MaxBytes {
		return nil, fmt.Errorf("%w: %s: %w (%d > %d bytes)", ErrDecodeFailure, h.Name(), ErrTooLarge, len(data), t.opts.MaxBytes)
	}
	if t.opts.Sniff {
		if err := asset.Sniff(h.Format(), data); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailure, h.Name(), err)
		}
	}

	graph, err := fn(ctx, h.Name(), data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailure, h.Name(), err)
	}
	if err := graph.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailure, h.Name(), err)
	}
	if graph.TriangleCount() == 0 {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailure, h.Name(), ErrNoGeometry)
	}
	graph.Format = h.Format().String()
	return graph, nil
}

// graphName derives a display name from a file name.
func graphName(name string) string {
	base := filepath.Base(name)
	return base[:len(base)-len(filepath.Ext(base))]
}
