// Package inspect decodes model files without a window and reports what
// they contain.
package inspect

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/muesli/termenv"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/meshview/internal/asset"
	"github.com/Faultbox/meshview/internal/bounds"
	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/decode"
	"github.com/Faultbox/meshview/internal/material"
	"github.com/Faultbox/meshview/internal/scene"
	"github.com/Faultbox/meshview/internal/viewer"
)

// Report is the outcome of decoding one file.
type Report struct {
	Path     string
	Format   asset.FormatTag
	Bytes    int
	Stats    scene.Stats
	Animated bool
	Bounds   bounds.Box
	Elapsed  time.Duration
	Fault    *viewer.Fault
}

// Run decodes every path concurrently. Decode failures are part of the
// report; only a cancelled context aborts the run.
func Run(ctx context.Context, cfg *config.Config, paths []string) ([]Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	table := decode.DefaultTable().WithOptions(decode.Options{
		MaxBytes: cfg.Decode.MaxBytes(),
		Sniff:    cfg.Decode.Sniff,
		Latency:  cfg.Decode.InjectedLatency.Std(),
	})
	reg := asset.NewRegistry()
	params := cfg.Viewer.Parameters()

	reports := make([]Report, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		g.Go(func() error {
			reports[i] = one(ctx, table, reg, params, path)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, reg.ReleaseAll()
}

func one(ctx context.Context, table *decode.Table, reg *asset.Registry, params material.Parameters, path string) Report {
	name := filepath.Base(path)
	r := Report{Path: path, Format: asset.Classify(name)}
	fault := func(err error) Report {
		r.Fault = &viewer.Fault{Kind: viewer.Classify(err), File: name, Err: err}
		return r
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fault(fmt.Errorf("%w: %w", decode.ErrDecodeFailure, err))
	}
	r.Bytes = len(data)

	h, err := reg.Ingest(name, data)
	if err != nil {
		return fault(err)
	}
	defer h.Release()

	res := table.Decode(ctx, h)
	r.Elapsed = res.Elapsed
	if res.Err != nil {
		return fault(res.Err)
	}
	r.Stats = res.Graph.Stats()
	r.Animated = res.Graph.Animated

	rs, err := material.Normalize(res.Graph, params)
	if err != nil {
		return fault(err)
	}
	r.Bounds, _ = bounds.Compute(rs, nil)
	return r
}

// Write prints one block per report and returns the number of
// failures.
func Write(w io.Writer, out *termenv.Output, reports []Report) int {
	ok := out.Color("2")
	bad := out.Color("1")
	dim := out.Color("8")

	failed := 0
	for _, r := range reports {
		if r.Fault != nil {
			failed++
			fmt.Fprintf(w, "%s %s\n", out.String("FAIL").Foreground(bad).Bold(), r.Path)
			fmt.Fprintf(w, "  %-10s %s\n", "kind:", r.Fault.Kind)
			fmt.Fprintf(w, "  %-10s %v\n", "error:", r.Fault.Err)
			continue
		}

		fmt.Fprintf(w, "%s %s %s\n",
			out.String("OK").Foreground(ok).Bold(),
			r.Path,
			out.String(fmt.Sprintf("(%s, %d bytes, %s)", r.Format, r.Bytes, r.Elapsed.Round(time.Microsecond))).Foreground(dim))
		fmt.Fprintf(w, "  %-10s %d\n", "nodes:", r.Stats.Nodes)
		fmt.Fprintf(w, "  %-10s %d\n", "meshes:", r.Stats.Primitives)
		fmt.Fprintf(w, "  %-10s %d\n", "vertices:", r.Stats.Vertices)
		fmt.Fprintf(w, "  %-10s %d\n", "triangles:", r.Stats.Triangles)
		if r.Animated {
			fmt.Fprintf(w, "  %-10s %s\n", "animation:", "ignored, rest pose shown")
		}
		if !r.Bounds.IsEmpty() {
			size := r.Bounds.Size()
			fmt.Fprintf(w, "  %-10s (%.3f, %.3f, %.3f) .. (%.3f, %.3f, %.3f)\n", "bounds:",
				r.Bounds.Min.X, r.Bounds.Min.Y, r.Bounds.Min.Z,
				r.Bounds.Max.X, r.Bounds.Max.Y, r.Bounds.Max.Z)
			fmt.Fprintf(w, "  %-10s %.3f x %.3f x %.3f\n", "size:", size.X, size.Y, size.Z)
		}
	}
	return failed
}
