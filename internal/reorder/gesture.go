package reorder

// Gesture holds the id of the tile being dragged. It belongs to the UI
// goroutine. Every drop path and Cancel clear it.
type Gesture struct {
	dragged string
}

// Start begins dragging id
func (g *Gesture) Start(id string) {
	g.dragged = id
}

// Dragging returns the dragged id, if any
func (g *Gesture) Dragging() (string, bool) {
	return g.dragged, g.dragged != ""
}

// Cancel abandons the gesture
func (g *Gesture) Cancel() {
	g.dragged = ""
}

// DropOnTile ends the gesture over the tile targetID and returns the dragged
// id with its new index.
func (g *Gesture) DropOnTile(ids []string, targetID string, rect Rect, p Point) (string, int, error) {
	dragged := g.take()
	if dragged == "" {
		return "", 0, ErrNoop
	}
	index, err := PlanDrop(ids, dragged, targetID, rect, p)
	return dragged, index, err
}

// DropOnGrid ends the gesture over empty grid space
func (g *Gesture) DropOnGrid(ids []string) (string, int, error) {
	dragged := g.take()
	if dragged == "" {
		return "", 0, ErrNoop
	}
	index, err := PlanAppend(ids, dragged)
	return dragged, index, err
}

func (g *Gesture) take() string {
	id := g.dragged
	g.dragged = ""
	return id
}
