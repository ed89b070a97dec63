package server

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	chirender "github.com/go-chi/render"

	"github.com/matzehuels/marketmap/pkg/buildinfo"
	"github.com/matzehuels/marketmap/pkg/dataset"
	mmerrors "github.com/matzehuels/marketmap/pkg/errors"
	"github.com/matzehuels/marketmap/pkg/pipeline"
	"github.com/matzehuels/marketmap/pkg/render"
	"github.com/matzehuels/marketmap/pkg/viewport"
)

// Response headers.
const (
	headerCache = "X-Cache"
	headerRunID = "X-Run-ID"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	chirender.JSON(w, r, map[string]string{
		"status":  "healthy",
		"version": buildinfo.Version,
		"service": "marketmap",
	})
}

type datesResponse struct {
	Maturity string   `json:"maturity,omitempty"`
	Dates    []string `json:"dates"`
}

func (s *Server) handleDates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("maturity")
	if q == "" {
		dates, err := s.src.Dates(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		chirender.JSON(w, r, datesResponse{Dates: dates})
		return
	}

	m, err := dataset.ParseMaturity(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	table, err := s.src.Changes(r.Context(), m)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	chirender.JSON(w, r, datesResponse{Maturity: string(m), Dates: table.Dates()})
}

type sectorSummary struct {
	Name           string   `json:"name"`
	Members        int      `json:"members"`
	TotalWeight    float64  `json:"total_weight"`
	WeightedChange *float64 `json:"weighted_change"`
	Best           string   `json:"best,omitempty"`
	Worst          string   `json:"worst,omitempty"`
}

type summaryResponse struct {
	Date      string          `json:"date"`
	Maturity  string          `json:"maturity"`
	Sectors   []sectorSummary `json:"sectors"`
	Excluded  int             `json:"excluded"`
	Truncated int             `json:"truncated"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	opts, err := s.requestOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tree, err := s.runner.Build(r.Context(), s.src, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := summaryResponse{
		Date:      tree.Selection.Date,
		Maturity:  string(tree.Selection.Maturity),
		Sectors:   make([]sectorSummary, len(tree.Summary)),
		Excluded:  len(tree.Excluded),
		Truncated: tree.Truncated,
	}
	for i, sum := range tree.Summary {
		resp.Sectors[i] = sectorSummary{
			Name:        sum.Name,
			Members:     sum.Members,
			TotalWeight: sum.TotalWeight,
			Best:        sum.Best,
			Worst:       sum.Worst,
		}
		if !math.IsNaN(sum.WeightedChange) {
			v := sum.WeightedChange
			resp.Sectors[i].WeightedChange = &v
		}
	}
	chirender.JSON(w, r, resp)
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	opts, err := s.requestOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = render.FormatSVG
	}
	opts.Formats = []string{format}

	res, err := s.runner.Execute(r.Context(), s.src, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	cache := "miss"
	if res.CacheInfo.RenderHit {
		cache = "hit"
	}
	w.Header().Set("Content-Type", render.ContentType(format))
	w.Header().Set(headerCache, cache)
	w.Header().Set(headerRunID, res.RunID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Artifacts[format]); err != nil {
		s.log.Debug("write response", "err", err)
	}
}

// requestOptions builds run options from the server defaults and the query.
// A missing date selects the first available one.
func (s *Server) requestOptions(r *http.Request) (pipeline.Options, error) {
	q := r.URL.Query()
	opts := s.defaults
	opts.Logger = s.log

	if v := q.Get("maturity"); v != "" {
		m, err := dataset.ParseMaturity(v)
		if err != nil {
			return opts, err
		}
		opts.Maturity = m
	}

	opts.Date = q.Get("date")
	if opts.Date == "" {
		date, err := s.firstDate(r.Context())
		if err != nil {
			return opts, err
		}
		opts.Date = date
	}

	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"width", &opts.Width},
		{"height", &opts.Height},
		{"margin", &opts.Margin},
		{"scale", &opts.Scale},
	} {
		v := q.Get(f.key)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return opts, mmerrors.New(mmerrors.ErrCodeInvalidInput, "invalid %s: %q", f.key, v)
		}
		*f.dst = n
	}
	if _, ok := q["width"]; ok && opts.Width <= 0 {
		return opts, &mmerrors.LayoutError{Width: opts.Width, Height: opts.Height}
	}
	if _, ok := q["height"]; ok && opts.Height <= 0 {
		return opts, &mmerrors.LayoutError{Width: opts.Width, Height: opts.Height}
	}

	if v := q.Get("viewport"); v != "" {
		t, err := viewport.Parse(v)
		if err != nil {
			return opts, err
		}
		opts.Viewport = t
	}
	if v := q.Get("title"); v != "" {
		opts.Title = v
	}
	if v := q.Get("refresh"); v != "" {
		refresh, err := strconv.ParseBool(v)
		if err != nil {
			return opts, mmerrors.New(mmerrors.ErrCodeInvalidInput, "invalid refresh: %q", v)
		}
		opts.Refresh = refresh
	}
	return opts, nil
}

func (s *Server) firstDate(ctx context.Context) (string, error) {
	dates, err := s.src.Dates(ctx)
	if err != nil {
		return "", err
	}
	if len(dates) == 0 {
		return "", mmerrors.New(mmerrors.ErrCodeNotFound, "no dates available")
	}
	return dates[0], nil
}

// Problem is an RFC 7807 problem details object.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Trace  string `json:"trace_id,omitempty"`
}

// Render implements the chi render.Renderer interface.
func (p *Problem) Render(w http.ResponseWriter, r *http.Request) error {
	chirender.Status(r, p.Status)
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code := mmerrors.GetCode(err)
	if code == "" {
		code = mmerrors.ErrCodeInternal
	}
	p := &Problem{
		Type:   string(code),
		Title:  http.StatusText(status),
		Status: status,
		Detail: mmerrors.UserMessage(err),
		Trace:  middleware.GetReqID(r.Context()),
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "err", err)
		p.Detail = "internal error"
	}
	if rerr := chirender.Render(w, r, p); rerr != nil {
		s.log.Debug("write problem", "err", rerr)
	}
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch mmerrors.GetCode(err) {
	case mmerrors.ErrCodeEmptyHierarchy, mmerrors.ErrCodeNotFound, mmerrors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case mmerrors.ErrCodeInvalidInput, mmerrors.ErrCodeInvalidMaturity, mmerrors.ErrCodeInvalidFormat,
		mmerrors.ErrCodeInvalidLayout, mmerrors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case mmerrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
