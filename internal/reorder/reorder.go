// Package reorder turns a drag-and-drop gesture over an ordered tile grid
// into the sibling index for a single move request.
package reorder

import "errors"

var (
	// ErrNoop is returned when a tile is dropped onto itself.
	ErrNoop = errors.New("drop onto the dragged tile")
	// ErrStale is returned when the dragged or target id has left the list.
	ErrStale = errors.New("dragged or target tile is no longer in the list")
)

// Rect is a tile's bounding box in screen cells
type Rect struct {
	X, Y, Width, Height int
}

// Point is a pointer position in screen cells
type Point struct {
	X, Y int
}

// Orientation reports whether drops on r are split left/right. Tiles at
// least as wide as they are tall are horizontal.
func Orientation(r Rect) (horizontal bool) {
	return r.Width >= r.Height
}

// InsertAfter reports whether p lies past the midpoint of r along the drop
// axis.
func InsertAfter(r Rect, p Point) bool {
	if Orientation(r) {
		return float64(p.X-r.X) >= float64(r.Width)/2
	}
	return float64(p.Y-r.Y) >= float64(r.Height)/2
}

// DropIndex computes the insertion index for a drop next to the tile at
// targetIndex. When inserting after a target that follows the dragged tile
// the index is shifted down by one, since the dragged tile leaves the list
// first.
func DropIndex(targetIndex, draggedIndex int, after bool) int {
	index := targetIndex
	if after {
		index++
	}
	if after && draggedIndex < index {
		index--
	}
	return index
}

// PlanDrop resolves a drop of draggedID onto the tile targetID, laid out at
// rect, with the pointer at p.
func PlanDrop(ids []string, draggedID, targetID string, rect Rect, p Point) (int, error) {
	if draggedID == targetID {
		return 0, ErrNoop
	}
	draggedIndex := indexOf(ids, draggedID)
	targetIndex := indexOf(ids, targetID)
	if draggedIndex < 0 || targetIndex < 0 {
		return 0, ErrStale
	}
	return DropIndex(targetIndex, draggedIndex, InsertAfter(rect, p)), nil
}

// PlanAppend resolves a drop onto empty grid space: move to the end.
func PlanAppend(ids []string, draggedID string) (int, error) {
	if indexOf(ids, draggedID) < 0 {
		return 0, ErrStale
	}
	return len(ids), nil
}

func indexOf(ids []string, id string) int {
	for i, existing := range ids {
		if existing == id {
			return i
		}
	}
	return -1
}
