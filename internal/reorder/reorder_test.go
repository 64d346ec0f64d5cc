package reorder

import (
	"errors"
	"testing"
)

var five = []string{"a", "b", "c", "d", "e"}

func TestInsertAfter(t *testing.T) {
	wide := Rect{X: 10, Y: 4, Width: 20, Height: 5}
	tall := Rect{X: 10, Y: 4, Width: 4, Height: 10}
	square := Rect{X: 0, Y: 0, Width: 6, Height: 6}

	tests := []struct {
		name string
		rect Rect
		p    Point
		want bool
	}{
		{"wide left half", wide, Point{X: 19, Y: 100}, false},
		{"wide midpoint", wide, Point{X: 20, Y: 0}, true},
		{"wide right edge", wide, Point{X: 29, Y: 4}, true},
		{"tall top half", tall, Point{X: 13, Y: 8}, false},
		{"tall bottom half", tall, Point{X: 10, Y: 9}, true},
		{"square is horizontal", square, Point{X: 3, Y: 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InsertAfter(tt.rect, tt.p); got != tt.want {
				t.Errorf("InsertAfter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDropIndex(t *testing.T) {
	tests := []struct {
		name            string
		target, dragged int
		after           bool
		want            int
	}{
		{"after later tile is corrected", 2, 0, true, 2},
		{"after earlier tile", 1, 4, true, 2},
		{"before earlier tile", 1, 3, false, 1},
		{"before later tile keeps raw index", 3, 0, false, 3},
		{"after last tile", 4, 1, true, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DropIndex(tt.target, tt.dragged, tt.after); got != tt.want {
				t.Errorf("DropIndex(%d, %d, %v) = %d, want %d", tt.target, tt.dragged, tt.after, got, tt.want)
			}
		})
	}
}

func TestPlanDrop(t *testing.T) {
	tile := Rect{X: 0, Y: 0, Width: 10, Height: 4}
	right := Point{X: 8, Y: 1}

	index, err := PlanDrop(five, "a", "c", tile, right)
	if err != nil || index != 2 {
		t.Errorf("drag 0 after 2 = %d, %v; want 2", index, err)
	}
	if _, err := PlanDrop(five, "c", "c", tile, right); !errors.Is(err, ErrNoop) {
		t.Errorf("self drop err = %v, want ErrNoop", err)
	}
	if _, err := PlanDrop(five, "z", "c", tile, right); !errors.Is(err, ErrStale) {
		t.Errorf("unknown dragged err = %v, want ErrStale", err)
	}
	if _, err := PlanDrop(five, "a", "z", tile, right); !errors.Is(err, ErrStale) {
		t.Errorf("unknown target err = %v, want ErrStale", err)
	}
}

func TestPlanAppend(t *testing.T) {
	index, err := PlanAppend(five, "e")
	if err != nil || index != 5 {
		t.Errorf("append = %d, %v; want 5", index, err)
	}
	if _, err := PlanAppend(five, "z"); !errors.Is(err, ErrStale) {
		t.Errorf("err = %v, want ErrStale", err)
	}
}

func TestGestureClearsOnEveryPath(t *testing.T) {
	tile := Rect{Width: 10, Height: 4}
	var g Gesture

	if _, _, err := g.DropOnGrid(five); !errors.Is(err, ErrNoop) {
		t.Errorf("drop without drag err = %v", err)
	}

	g.Start("b")
	if id, ok := g.Dragging(); !ok || id != "b" {
		t.Fatalf("Dragging() = %q, %v", id, ok)
	}
	id, index, err := g.DropOnTile(five, "d", tile, Point{X: 1})
	if err != nil || id != "b" || index != 3 {
		t.Errorf("DropOnTile = %q, %d, %v", id, index, err)
	}
	if _, ok := g.Dragging(); ok {
		t.Error("drop left the gesture active")
	}

	g.Start("b")
	if _, _, err := g.DropOnTile(five, "b", tile, Point{}); !errors.Is(err, ErrNoop) {
		t.Errorf("self drop err = %v", err)
	}
	if _, ok := g.Dragging(); ok {
		t.Error("self drop left the gesture active")
	}

	g.Start("gone")
	if _, _, err := g.DropOnGrid(five); !errors.Is(err, ErrStale) {
		t.Errorf("stale drop err = %v", err)
	}
	if _, ok := g.Dragging(); ok {
		t.Error("stale drop left the gesture active")
	}

	g.Start("a")
	g.Cancel()
	if _, ok := g.Dragging(); ok {
		t.Error("Cancel left the gesture active")
	}
}
