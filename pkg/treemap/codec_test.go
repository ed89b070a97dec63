package treemap

import (
	"reflect"
	"testing"
)

func TestMarshalRestore(t *testing.T) {
	root := randomTree(3)
	res, err := Layout(root, Bounds{640, 480}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	data, err := res.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got, err := Restore(root, data)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got.Bounds != res.Bounds || got.Header != res.Header {
		t.Errorf("bounds/header = %v %v", got.Bounds, got.Header)
	}
	if !reflect.DeepEqual(rects(got), rects(res)) {
		t.Error("restored rectangles differ")
	}
	for i, l := range got.Leaves() {
		if l.Node != res.Leaves()[i].Node {
			t.Fatalf("leaf %d bound to %s, want %s", i, l.Node.Name, res.Leaves()[i].Node.Name)
		}
	}
}

func TestRestoreMismatch(t *testing.T) {
	res, _ := Layout(tree([]float64{1, 2}), Bounds{100, 100}, DefaultOptions())
	data, _ := res.Marshal()
	if _, err := Restore(tree([]float64{1, 2, 3}), data); err == nil {
		t.Error("Restore accepted a layout of a different tree")
	}
	if _, err := Restore(tree([]float64{1}), []byte("{")); err == nil {
		t.Error("Restore accepted invalid JSON")
	}
}
