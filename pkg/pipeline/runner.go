package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/marketmap/pkg/aggregate"
	"github.com/matzehuels/marketmap/pkg/cache"
	"github.com/matzehuels/marketmap/pkg/encode"
	"github.com/matzehuels/marketmap/pkg/errors"
	"github.com/matzehuels/marketmap/pkg/hierarchy"
	"github.com/matzehuels/marketmap/pkg/observability"
	"github.com/matzehuels/marketmap/pkg/render"
	"github.com/matzehuels/marketmap/pkg/treemap"
)

// Runner executes pipeline stages with caching. It holds no per-run state,
// so one Runner can serve concurrent runs with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching; a nil keyer
// uses cache.DefaultKeyer.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// NewRunID returns a fresh identifier for one run.
func NewRunID() string { return uuid.New().String() }

// Execute runs build → layout → encode → render.
func (r *Runner) Execute(ctx context.Context, src Source, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	runID := NewRunID()

	tree, err := r.build(ctx, runID, src, opts)
	if err != nil {
		return nil, err
	}
	return r.relayout(ctx, runID, tree, opts)
}

// Build runs the build stage only.
func (r *Runner) Build(ctx context.Context, src Source, opts Options) (*Tree, error) {
	if err := opts.ValidateForBuild(); err != nil {
		return nil, err
	}
	return r.build(ctx, NewRunID(), src, opts)
}

// Relayout runs layout → encode → render on an existing tree. This is the
// resize path: the hierarchy is reused and opts' selection is ignored.
func (r *Runner) Relayout(ctx context.Context, tree *Tree, opts Options) (*Result, error) {
	if tree == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "relayout: no hierarchy")
	}
	opts.setLayoutOptionDefaults()
	if err := opts.ValidateForLayout(); err != nil {
		return nil, err
	}
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}
	return r.relayout(ctx, NewRunID(), tree, opts)
}

func (r *Runner) build(ctx context.Context, runID string, src Source, opts Options) (tree *Tree, err error) {
	start := time.Now()
	sel := opts.Selection()
	hooks := observability.Pipeline()
	hooks.OnAggregateStart(ctx, runID, sel.Date, string(sel.Maturity))

	var res aggregate.Result
	defer func() {
		hooks.OnAggregateComplete(ctx, runID, res.MemberCount(), len(res.Excluded), time.Since(start), err)
	}()

	rows, err := src.Constituents(ctx)
	if err != nil {
		return nil, fmt.Errorf("load constituents: %w", err)
	}
	table, err := src.Changes(ctx, sel.Maturity)
	if err != nil {
		return nil, fmt.Errorf("load %s changes: %w", sel.Maturity, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	changes, ok := table.Row(sel.Date)
	if !ok {
		return nil, &errors.EmptyHierarchyError{Date: sel.Date, Maturity: string(sel.Maturity)}
	}

	res, err = aggregate.Aggregate(rows, changes, opts.Caps)
	if err != nil {
		return nil, err
	}
	for _, ex := range res.Excluded {
		opts.Logger.Debug("excluded row", "row", ex.Row, "ticker", ex.Ticker, "reason", ex.Reason)
	}

	root, err := hierarchy.Build(res.Groups,
		hierarchy.WithRootName(opts.RootName),
		hierarchy.WithSelection(sel.Date, string(sel.Maturity)))
	if err != nil {
		return nil, err
	}

	tree = &Tree{
		Selection: sel,
		Root:      root,
		Hash:      hierarchy.Hash(root),
		Excluded:  res.Excluded,
		Truncated: res.Truncated,
		Summary:   aggregate.Summarize(res.Groups),
	}
	r.Logger.Info("built hierarchy",
		"date", sel.Date,
		"maturity", sel.Maturity,
		"sectors", len(root.Children),
		"members", res.MemberCount(),
		"excluded", len(res.Excluded),
		"duration", time.Since(start))
	return tree, nil
}

func (r *Runner) relayout(ctx context.Context, runID string, tree *Tree, opts Options) (*Result, error) {
	opts.Date, opts.Maturity = tree.Selection.Date, tree.Selection.Maturity
	result := &Result{RunID: runID, Tree: tree}
	result.Stats.Excluded = len(tree.Excluded)
	result.Stats.Truncated = tree.Truncated

	// Stage 2: Layout
	layoutStart := time.Now()
	observability.Pipeline().OnLayoutStart(ctx, runID, len(tree.Root.Leaves()))
	lay, layoutHit, err := r.LayoutWithCacheInfo(ctx, tree, opts)
	result.Stats.LayoutTime = time.Since(layoutStart)
	observability.Pipeline().OnLayoutComplete(ctx, runID, result.Stats.LayoutTime, err)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = lay
	result.CacheInfo.LayoutHit = layoutHit

	// Stage 3: Encode
	encodeStart := time.Now()
	result.Scene = encode.New(opts.EncodeOptions()).Scene(lay)
	result.Stats.EncodeTime = time.Since(encodeStart)
	result.Stats.Sectors = len(result.Scene.Sectors)
	result.Stats.Leaves = len(result.Scene.Leaves)
	result.Stats.Skipped = len(result.Scene.Skipped)
	for _, sk := range result.Scene.Skipped {
		r.Logger.Warn("skipped cell", "id", sk.ID, "reason", sk.Reason)
	}
	observability.Pipeline().OnEncodeComplete(ctx, runID, result.Stats.Leaves, result.Stats.Skipped, result.Stats.EncodeTime)

	r.Logger.Info("computed layout",
		"width", opts.Width,
		"height", opts.Height,
		"cells", result.Stats.Leaves,
		"cached", layoutHit,
		"duration", result.Stats.LayoutTime+result.Stats.EncodeTime)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 4: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, r.layoutKey(tree, opts), result.Scene, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Debug("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)
	return result, nil
}

// layoutKey returns the layout cache key, or "" when the tree has no hash.
func (r *Runner) layoutKey(tree *Tree, opts Options) string {
	if tree.Hash == "" {
		return ""
	}
	return r.Keyer.LayoutKey(tree.Hash, opts.LayoutKeyOpts())
}

// LayoutWithCacheInfo computes the treemap layout of tree, consulting the
// cache first, and reports whether it was a cache hit.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, tree *Tree, opts Options) (*treemap.Result, bool, error) {
	opts.setLayoutOptionDefaults()

	key := r.layoutKey(tree, opts)
	if key != "" && !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if lay, err := treemap.Restore(tree.Root, data); err == nil {
				observability.Cache().OnCacheHit(ctx, "layout")
				return lay, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "layout")
	}

	lay, err := treemap.Layout(tree.Root, opts.Bounds(), opts.Layout)
	if err != nil {
		return nil, false, err
	}

	if key != "" {
		if data, err := lay.Marshal(); err == nil {
			if err := r.Cache.Set(ctx, key, data, cache.TTLLayout); err == nil {
				observability.Cache().OnCacheSet(ctx, "layout", len(data))
			}
		}
	}
	return lay, false, nil
}

// RenderWithCacheInfo renders every requested format of scene. Formats are
// rendered concurrently. baseKey is the layout key the scene derives from;
// an empty baseKey disables artifact caching.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, baseKey string, scene encode.Scene, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	var (
		mu        sync.Mutex
		artifacts = make(map[string][]byte, len(opts.Formats))
		allHit    = true
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, format := range opts.Formats {
		g.Go(func() error {
			data, hit, err := r.renderFormat(gctx, baseKey, scene, format, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", format, err)
			}
			mu.Lock()
			defer mu.Unlock()
			artifacts[format] = data
			allHit = allHit && hit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, err
	}
	return artifacts, allHit, nil
}

func (r *Runner) renderFormat(ctx context.Context, baseKey string, scene encode.Scene, format string, opts Options) ([]byte, bool, error) {
	var key string
	if baseKey != "" {
		key = r.Keyer.ArtifactKey(baseKey, opts.ArtifactKeyOpts(format))
		if !opts.Refresh {
			if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
				observability.Cache().OnCacheHit(ctx, "artifact")
				return data, true, nil
			}
			observability.Cache().OnCacheMiss(ctx, "artifact")
		}
	}

	start := time.Now()
	data, err := render.Artifact(scene, format, opts.RenderOptions())
	observability.Pipeline().OnRenderComplete(ctx, format, len(data), time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	if key != "" {
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
			observability.Cache().OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return data, false, nil
}

// Close releases the runner's cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
