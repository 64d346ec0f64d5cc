package ui

import (
	"errors"
	"reflect"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/dastanaron/dial/internal/models"
	"github.com/dastanaron/dial/internal/reorder"
)

func TestLayoutTiles(t *testing.T) {
	area := reorder.Rect{X: 2, Y: 1, Width: 57, Height: 12}
	rects, cols := layoutTiles(3, area, 18, 5, 0)
	if cols != 2 {
		t.Fatalf("cols = %d, want 2", cols)
	}
	want := []reorder.Rect{
		{X: 2, Y: 1, Width: 18, Height: 5},
		{X: 22, Y: 1, Width: 18, Height: 5},
		{X: 2, Y: 7, Width: 18, Height: 5},
		{X: 22, Y: 7, Width: 18, Height: 5},
	}
	if !reflect.DeepEqual(rects, want) {
		t.Errorf("rects = %v", rects)
	}

	rects, _ = layoutTiles(5, area, 18, 5, 1)
	if rects[0].Width != 0 || rects[1].Width != 0 {
		t.Errorf("first row should be scrolled away: %v", rects[:2])
	}
	if rects[2].Y != 1 {
		t.Errorf("second row Y = %d, want 1", rects[2].Y)
	}
	if rects[5].Y != 7 {
		t.Errorf("third row Y = %d, want 7", rects[5].Y)
	}

	rects, _ = layoutTiles(5, area, 18, 5, 0)
	if rects[4].Width != 0 {
		t.Errorf("third row does not fit but got %v", rects[4])
	}
}

func TestTileAt(t *testing.T) {
	rects := []reorder.Rect{{X: 0, Y: 0, Width: 4, Height: 2}, {}, {X: 6, Y: 0, Width: 4, Height: 2}}
	tests := []struct {
		p    reorder.Point
		want int
	}{
		{reorder.Point{X: 0, Y: 0}, 0},
		{reorder.Point{X: 3, Y: 1}, 0},
		{reorder.Point{X: 4, Y: 0}, -1},
		{reorder.Point{X: 7, Y: 1}, 2},
		{reorder.Point{X: 7, Y: 2}, -1},
	}
	for _, tt := range tests {
		if got := tileAt(rects, tt.p); got != tt.want {
			t.Errorf("tileAt(%v) = %d, want %d", tt.p, got, tt.want)
		}
	}
}

func TestScrollTo(t *testing.T) {
	tests := []struct {
		offset, row, rows, want int
	}{
		{0, 0, 3, 0},
		{0, 2, 3, 0},
		{0, 3, 3, 1},
		{4, 1, 3, 1},
	}
	for _, tt := range tests {
		if got := scrollTo(tt.offset, tt.row, tt.rows); got != tt.want {
			t.Errorf("scrollTo(%d, %d, %d) = %d, want %d", tt.offset, tt.row, tt.rows, got, tt.want)
		}
	}
}

func nodes(ids ...string) []models.TreeNode {
	out := make([]models.TreeNode, len(ids))
	for i, id := range ids {
		out[i] = models.TreeNode{ID: id, ParentID: "9", Title: "tile " + id, URL: "https://" + id + ".test/", Index: i}
	}
	return out
}

func TestSetBookmarksKeepsSelection(t *testing.T) {
	g := NewDialGrid(18, 5)
	g.SetBookmarks(nodes("a", "b", "c"))
	g.selected = 1

	g.SetBookmarks(nodes("c", "a", "b"))
	if n, _ := g.Selected(); n.ID != "b" {
		t.Errorf("selected = %s, want b", n.ID)
	}

	g.SetBookmarks(nodes("a"))
	if g.selected != 1 {
		t.Errorf("selected = %d, want the add tile", g.selected)
	}
}

func TestMoveLocal(t *testing.T) {
	g := NewDialGrid(18, 5)
	g.SetBookmarks(nodes("a", "b", "c", "d"))

	g.MoveLocal("a", 2)
	if got := g.IDs(); !reflect.DeepEqual(got, []string{"b", "c", "a", "d"}) {
		t.Errorf("ids = %v", got)
	}
	g.MoveLocal("d", 0)
	if got := g.IDs(); !reflect.DeepEqual(got, []string{"d", "b", "c", "a"}) {
		t.Errorf("ids = %v", got)
	}
	g.MoveLocal("b", 10)
	if got := g.IDs(); !reflect.DeepEqual(got, []string{"d", "c", "a", "b"}) {
		t.Errorf("ids = %v", got)
	}
}

type drop struct {
	id    string
	index int
	err   error
}

// drawnGrid lays out three tiles and the add tile in a 2x2 grid
func drawnGrid(t *testing.T) (*DialGrid, *[]drop) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(screen.Fini)
	screen.SetSize(60, 20)

	var drops []drop
	g := NewDialGrid(18, 5)
	g.SetBorder(true)
	g.SetRect(0, 0, 60, 20)
	g.SetBookmarks(nodes("a", "b", "c"))
	g.SetDropFunc(func(id string, index int, err error) {
		drops = append(drops, drop{id, index, err})
	})
	g.Draw(screen)
	return g, &drops
}

func mouse(g *DialGrid, action tview.MouseAction, x, y int) tview.Primitive {
	_, capture := g.MouseHandler()(action, tcell.NewEventMouse(x, y, tcell.Button1, 0), func(tview.Primitive) {})
	return capture
}

func TestDragAfterLaterTile(t *testing.T) {
	g, drops := drawnGrid(t)

	if capture := mouse(g, tview.MouseLeftDown, 3, 2); capture != g {
		t.Fatal("grid should capture the mouse while dragging")
	}
	mouse(g, tview.MouseMove, 15, 8)
	if g.hover != 2 || !g.hoverAfter {
		t.Errorf("hover = %d after = %v", g.hover, g.hoverAfter)
	}
	mouse(g, tview.MouseLeftUp, 15, 8)

	if len(*drops) != 1 || (*drops)[0] != (drop{"a", 2, nil}) {
		t.Fatalf("drops = %v", *drops)
	}
	if _, dragging := g.gesture.Dragging(); dragging {
		t.Error("gesture not cleared")
	}
}

func TestDragBeforeEarlierTile(t *testing.T) {
	g, drops := drawnGrid(t)
	mouse(g, tview.MouseLeftDown, 3, 8)
	mouse(g, tview.MouseLeftUp, 3, 2)
	if len(*drops) != 1 || (*drops)[0] != (drop{"c", 0, nil}) {
		t.Fatalf("drops = %v", *drops)
	}
}

func TestDragOntoAddTileAppends(t *testing.T) {
	g, drops := drawnGrid(t)
	mouse(g, tview.MouseLeftDown, 3, 2)
	mouse(g, tview.MouseLeftUp, 30, 9)
	if len(*drops) != 1 || (*drops)[0] != (drop{"a", 3, nil}) {
		t.Fatalf("drops = %v", *drops)
	}
}

func TestDropOnSelfOrOutside(t *testing.T) {
	g, drops := drawnGrid(t)

	mouse(g, tview.MouseLeftDown, 3, 2)
	mouse(g, tview.MouseLeftUp, 5, 3)
	mouse(g, tview.MouseLeftDown, 3, 2)
	mouse(g, tview.MouseLeftUp, 70, 30)

	if len(*drops) != 0 {
		t.Errorf("drops = %v", *drops)
	}
	if _, dragging := g.gesture.Dragging(); dragging {
		t.Error("gesture not cleared")
	}
}

func TestStaleDropIsReported(t *testing.T) {
	g, drops := drawnGrid(t)
	mouse(g, tview.MouseLeftDown, 3, 2)
	// the dragged tile disappears mid-gesture
	g.tiles = g.tiles[1:]
	mouse(g, tview.MouseLeftUp, 3, 2)

	if len(*drops) != 1 || !errors.Is((*drops)[0].err, reorder.ErrStale) {
		t.Fatalf("drops = %v", *drops)
	}
}

func TestDragDisabledWhileFiltering(t *testing.T) {
	g, drops := drawnGrid(t)
	g.SetDragEnabled(false)
	mouse(g, tview.MouseLeftDown, 3, 2)
	mouse(g, tview.MouseLeftUp, 3, 8)
	if len(*drops) != 0 {
		t.Errorf("drops = %v", *drops)
	}
}
