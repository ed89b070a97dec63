package treemap

import (
	"encoding/json"

	"github.com/matzehuels/marketmap/pkg/errors"
	"github.com/matzehuels/marketmap/pkg/hierarchy"
)

// snapshot is the cached form of a Result: the rectangles in walk order.
// Restore rebuilds the tile tree from the hierarchy, so nodes are never
// serialized twice.
type snapshot struct {
	Bounds Bounds `json:"bounds"`
	Header Rect   `json:"header"`
	Rects  []Rect `json:"rects"`
}

// Marshal encodes r for caching.
func (r *Result) Marshal() ([]byte, error) {
	s := snapshot{Bounds: r.Bounds, Header: r.Header}
	r.Walk(func(t *Tile) bool {
		s.Rects = append(s.Rects, t.Rect)
		return true
	})
	return json.Marshal(s)
}

// Restore rebuilds a Result for root from data produced by Marshal on a
// layout of the same tree. It fails when the tile count does not match.
func Restore(root *hierarchy.Node, data []byte) (*Result, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode cached layout")
	}

	i := 0
	var build func(n *hierarchy.Node) *Tile
	build = func(n *hierarchy.Node) *Tile {
		t := &Tile{Node: n}
		if i < len(s.Rects) {
			t.Rect = s.Rects[i]
		}
		i++
		for _, c := range sortedByWeight(n.Children) {
			t.Children = append(t.Children, build(c))
		}
		return t
	}
	res := &Result{Bounds: s.Bounds, Header: s.Header, Root: build(root)}
	if i != len(s.Rects) {
		return nil, errors.New(errors.ErrCodeInternal, "cached layout has %d tiles, tree has %d", len(s.Rects), i)
	}
	return res, nil
}
