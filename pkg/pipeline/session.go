package pipeline

import (
	"context"
	"sync"

	"github.com/matzehuels/marketmap/pkg/dataset"
	"github.com/matzehuels/marketmap/pkg/errors"
	"github.com/matzehuels/marketmap/pkg/observability"
	"github.com/matzehuels/marketmap/pkg/render"
	"github.com/matzehuels/marketmap/pkg/treemap"
	"github.com/matzehuels/marketmap/pkg/viewport"
)

// ErrStale is returned to a request whose result was superseded by a newer
// one before it could be applied.
var ErrStale = errors.New(errors.ErrCodeStale, "result superseded by a newer request")

// Frame is what the presentation layer draws: the last successful result
// and the current viewport.
type Frame struct {
	Result   *Result
	Viewport viewport.Transform
}

// Artifact renders the frame's scene in format with the frame's viewport.
// It never recomputes the layout.
func (f Frame) Artifact(format string, opts Options) ([]byte, error) {
	if f.Result == nil {
		return nil, errors.New(errors.ErrCodeNotFound, "no frame rendered yet")
	}
	opts.Viewport = f.Viewport
	opts.Date, opts.Maturity = f.Result.Selection().Date, f.Result.Selection().Maturity
	return render.Artifact(f.Result.Scene, format, opts.RenderOptions())
}

// Session drives the pipeline for one interactive view.
//
// Select and Resize may be called concurrently. The latest request always
// wins: an older run still in flight is cancelled, and if it completes
// anyway its result is discarded with ErrStale. A failed run leaves the
// previous frame in place. The viewport is owned by the session and is never
// reset by a recompute.
type Session struct {
	runner *Runner
	src    Source
	opts   Options

	mu       sync.Mutex
	selGen   uint64
	selStop  context.CancelFunc
	drawGen  uint64
	drawStop context.CancelFunc

	tree     *Tree
	bounds   treemap.Bounds
	frame    *Result
	lastErr  error
	viewport viewport.Transform
}

// NewSession creates a session. opts supplies the initial bounds and the
// build, layout and render settings of every run.
func NewSession(runner *Runner, src Source, opts Options) *Session {
	opts.SetBuildDefaults()
	opts.SetLayoutDefaults()
	opts.SetRenderDefaults()
	return &Session{
		runner:   runner,
		src:      src,
		opts:     opts,
		bounds:   opts.Bounds(),
		viewport: opts.Viewport.Constrain(),
	}
}

// Select rebuilds the hierarchy for sel and redraws it. On success the new
// result is also the session's frame.
func (s *Session) Select(ctx context.Context, sel dataset.Selection) (*Result, error) {
	s.mu.Lock()
	s.selGen++
	gen := s.selGen
	if s.selStop != nil {
		s.selStop()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.selStop = cancel
	opts := s.opts
	s.mu.Unlock()
	defer cancel()

	opts.Date, opts.Maturity = sel.Date, sel.Maturity
	tree, err := s.runner.Build(ctx, s.src, opts)

	s.mu.Lock()
	if gen != s.selGen {
		s.mu.Unlock()
		return nil, ErrStale
	}
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		return nil, err
	}
	if ctx.Err() != nil {
		s.mu.Unlock()
		return nil, ErrStale
	}
	s.tree = tree
	job := s.claimDraw(ctx)
	s.mu.Unlock()

	return s.draw(job)
}

// Resize records new canvas bounds and redraws the current hierarchy. With
// no hierarchy yet, the bounds are stored for the next Select.
func (s *Session) Resize(ctx context.Context, width, height float64) (*Result, error) {
	s.mu.Lock()
	s.bounds = treemap.Bounds{Width: width, Height: height}
	if s.tree == nil {
		s.mu.Unlock()
		return nil, nil
	}
	job := s.claimDraw(ctx)
	s.mu.Unlock()

	return s.draw(job)
}

// drawJob is one claimed draw generation with its inputs captured.
type drawJob struct {
	ctx    context.Context
	cancel context.CancelFunc
	gen    uint64
	tree   *Tree
	opts   Options
}

// claimDraw takes the next draw generation, cancelling any draw in flight.
// s.mu must be held.
func (s *Session) claimDraw(ctx context.Context) drawJob {
	s.drawGen++
	if s.drawStop != nil {
		s.drawStop()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.drawStop = cancel
	opts := s.opts
	opts.Width, opts.Height = s.bounds.Width, s.bounds.Height
	opts.Viewport = s.viewport
	return drawJob{ctx: ctx, cancel: cancel, gen: s.drawGen, tree: s.tree, opts: opts}
}

// draw runs layout onward for job and applies the result if job is still
// the latest draw.
func (s *Session) draw(job drawJob) (*Result, error) {
	defer job.cancel()

	res, err := s.runner.Relayout(job.ctx, job.tree, job.opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	if job.gen != s.drawGen {
		if res != nil {
			observability.Pipeline().OnStale(job.ctx, res.RunID)
		}
		return nil, ErrStale
	}
	if err != nil {
		s.lastErr = err
		return nil, err
	}
	s.frame = res
	s.lastErr = nil
	return res, nil
}

// Frame returns the last successful result with the current viewport.
func (s *Session) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Frame{Result: s.frame, Viewport: s.viewport}
}

// LastError returns the error of the most recent failed run, or nil if the
// most recent run succeeded.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Tree returns the current hierarchy, or nil before the first successful
// build.
func (s *Session) Tree() *Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree
}

// Bounds returns the current canvas bounds.
func (s *Session) Bounds() treemap.Bounds {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bounds
}

// Viewport returns the current pan/zoom transform.
func (s *Session) Viewport() viewport.Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// SetViewport replaces the pan/zoom transform. The scale is clamped to the
// zoom extent.
func (s *Session) SetViewport(t viewport.Transform) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = t.Constrain()
}

// Pan translates the viewport by (dx, dy) screen pixels.
func (s *Session) Pan(dx, dy float64) viewport.Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = viewport.Transform{K: s.viewport.K, X: s.viewport.X + dx, Y: s.viewport.Y + dy}
	return s.viewport
}

// ZoomAt scales the viewport by factor around the screen point (x, y).
func (s *Session) ZoomAt(factor, x, y float64) viewport.Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = s.viewport.ScaleAt(factor, x, y)
	return s.viewport
}
