package ui

import (
	"errors"

	"github.com/gdamore/tcell/v2"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"

	"github.com/dastanaron/dial/internal/models"
	"github.com/dastanaron/dial/internal/palette"
	"github.com/dastanaron/dial/internal/reorder"
)

const (
	tileGapX = 2
	tileGapY = 1
)

type tile struct {
	node     models.TreeNode
	palette  palette.Palette
	initials string
}

// DialGrid draws bookmark tiles left to right followed by an add tile, and
// turns mouse drags into reorder requests.
type DialGrid struct {
	*tview.Box

	tiles    []tile
	selected int // len(tiles) selects the add tile
	offset   int // first visible row
	cols     int
	tileW    int
	tileH    int
	rects    []reorder.Rect

	theme      palette.Theme
	accent     palette.AccentOption
	background *palette.Gradient // nil paints the plain theme background

	gesture     reorder.Gesture
	dragEnabled bool
	hover       int
	hoverAfter  bool

	onOpen func(models.TreeNode)
	onAdd  func()
	onDrop func(id string, index int, err error)
}

// NewDialGrid creates an empty grid with tiles of the given size
func NewDialGrid(tileW, tileH int) *DialGrid {
	if tileW < 6 {
		tileW = 6
	}
	if tileH < 3 {
		tileH = 3
	}
	return &DialGrid{
		Box:         tview.NewBox(),
		tileW:       tileW,
		tileH:       tileH,
		cols:        1,
		hover:       -1,
		dragEnabled: true,
	}
}

// SetBookmarks replaces the tiles, keeping the selection on the same
// bookmark when it is still present.
func (g *DialGrid) SetBookmarks(nodes []models.TreeNode) *DialGrid {
	selectedID := ""
	if n, ok := g.Selected(); ok {
		selectedID = n.ID
	}

	g.tiles = make([]tile, len(nodes))
	for i, n := range nodes {
		g.tiles[i] = tile{node: n, palette: palette.ForTitle(n.Title), initials: palette.Initials(n.Title)}
	}

	switch {
	case selectedID != "":
		g.selected = min(g.selected, len(g.tiles))
		for i, t := range g.tiles {
			if t.node.ID == selectedID {
				g.selected = i
				break
			}
		}
	case g.selected > len(g.tiles):
		g.selected = len(g.tiles)
	}
	g.hover = -1
	return g
}

// SetAppearance sets the theme and accent colours
func (g *DialGrid) SetAppearance(theme palette.Theme, accent palette.AccentOption) *DialGrid {
	g.theme = theme
	g.accent = accent
	g.SetBackgroundColor(tcellColor(theme.Background))
	return g
}

// SetBackground sets the gradient painted behind the tiles, or nil for the
// theme background.
func (g *DialGrid) SetBackground(background *palette.Gradient) *DialGrid {
	g.background = background
	return g
}

// backgroundAt returns the page colour under the cell x, y. Gradients run
// diagonally from the top left to the bottom right of the inner area.
func (g *DialGrid) backgroundAt(x, y int) colorful.Color {
	if g.background == nil {
		return g.theme.Background
	}
	ix, iy, width, height := g.GetInnerRect()
	t := (float64(x-ix)/float64(max(1, width-1)) + float64(y-iy)/float64(max(1, height-1))) / 2
	return g.background.At(g.theme.Dark, t)
}

func (g *DialGrid) drawBackground(screen tcell.Screen) {
	if g.background == nil {
		return
	}
	x, y, width, height := g.GetInnerRect()
	for row := y; row < y+height; row++ {
		for col := x; col < x+width; col++ {
			style := tcell.StyleDefault.Background(tcellColor(g.backgroundAt(col, row)))
			screen.SetContent(col, row, ' ', nil, style)
		}
	}
}

// SetDragEnabled turns drag-and-drop on or off. Reordering a filtered
// subset would compute the wrong index, so search disables it.
func (g *DialGrid) SetDragEnabled(enabled bool) *DialGrid {
	g.dragEnabled = enabled
	if !enabled {
		g.gesture.Cancel()
		g.hover = -1
	}
	return g
}

func (g *DialGrid) SetOpenFunc(fn func(models.TreeNode)) *DialGrid {
	g.onOpen = fn
	return g
}

func (g *DialGrid) SetAddFunc(fn func()) *DialGrid {
	g.onAdd = fn
	return g
}

// SetDropFunc sets the handler for a finished drag. err is reorder.ErrNoop
// or reorder.ErrStale when no move should be sent.
func (g *DialGrid) SetDropFunc(fn func(id string, index int, err error)) *DialGrid {
	g.onDrop = fn
	return g
}

// Selected returns the bookmark under the selection
func (g *DialGrid) Selected() (models.TreeNode, bool) {
	if g.selected < 0 || g.selected >= len(g.tiles) {
		return models.TreeNode{}, false
	}
	return g.tiles[g.selected].node, true
}

// IDs returns the tile ids in display order
func (g *DialGrid) IDs() []string {
	ids := make([]string, len(g.tiles))
	for i, t := range g.tiles {
		ids[i] = t.node.ID
	}
	return ids
}

// MoveLocal moves a tile to index the way the store will, so the grid does
// not jump back while the move request is in flight.
func (g *DialGrid) MoveLocal(id string, index int) {
	from := -1
	for i, t := range g.tiles {
		if t.node.ID == id {
			from = i
			break
		}
	}
	if from < 0 {
		return
	}
	moved := g.tiles[from]
	rest := append(append([]tile{}, g.tiles[:from]...), g.tiles[from+1:]...)
	index = max(0, min(index, len(rest)))
	g.tiles = append(append(append([]tile{}, rest[:index]...), moved), rest[index:]...)
	g.selected = index
}

// layoutTiles places count tiles plus the add tile in rows inside area,
// starting at row offset. Tiles outside area get an empty rect.
func layoutTiles(count int, area reorder.Rect, tileW, tileH, offset int) (rects []reorder.Rect, cols int) {
	cols = max(1, (area.Width+tileGapX)/(tileW+tileGapX))
	rects = make([]reorder.Rect, count+1)
	for i := range rects {
		row, col := i/cols-offset, i%cols
		r := reorder.Rect{
			X:      area.X + col*(tileW+tileGapX),
			Y:      area.Y + row*(tileH+tileGapY),
			Width:  tileW,
			Height: tileH,
		}
		if row < 0 || r.Y+r.Height > area.Y+area.Height {
			r = reorder.Rect{}
		}
		rects[i] = r
	}
	return rects, cols
}

// tileAt returns the index of the rect holding p, or -1
func tileAt(rects []reorder.Rect, p reorder.Point) int {
	for i, r := range rects {
		if r.Width == 0 {
			continue
		}
		if p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height {
			return i
		}
	}
	return -1
}

// visibleRows is how many tile rows fit into height cells
func visibleRows(height, tileH int) int {
	return max(1, (height+tileGapY)/(tileH+tileGapY))
}

// scrollTo returns the row offset that keeps row visible
func scrollTo(offset, row, rows int) int {
	if row < offset {
		return row
	}
	if row >= offset+rows {
		return row - rows + 1
	}
	return offset
}

func (g *DialGrid) Draw(screen tcell.Screen) {
	g.Box.DrawForSubclass(screen, g)
	g.drawBackground(screen)
	x, y, width, height := g.GetInnerRect()
	area := reorder.Rect{X: x + 1, Y: y, Width: width - 1, Height: height}

	_, cols := layoutTiles(0, area, g.tileW, g.tileH, 0)
	g.cols = cols
	g.offset = scrollTo(g.offset, g.selected/cols, visibleRows(height, g.tileH))
	g.rects, _ = layoutTiles(len(g.tiles), area, g.tileW, g.tileH, g.offset)

	dragged, dragging := g.gesture.Dragging()
	for i, t := range g.tiles {
		r := g.rects[i]
		if r.Width == 0 {
			continue
		}
		g.drawTile(screen, r, t, i == g.selected && g.HasFocus(), dragging && t.node.ID == dragged)
		if dragging && i == g.hover && t.node.ID != dragged {
			g.drawDropMarker(screen, r, g.hoverAfter)
		}
	}
	if r := g.rects[len(g.tiles)]; r.Width > 0 {
		g.drawAddTile(screen, r, g.selected == len(g.tiles) && g.HasFocus())
	}
}

func (g *DialGrid) drawTile(screen tcell.Screen, r reorder.Rect, t tile, selected, dragged bool) {
	text := tcellColor(t.palette.Text)
	for col := 0; col < r.Width; col++ {
		bg := blend(t.palette.Background, t.palette.Accent, float64(col)/float64(max(1, r.Width-1)))
		if dragged {
			bg = blend(bg, g.backgroundAt(r.X+col, r.Y), 0.6)
		}
		style := tcell.StyleDefault.Background(tcellColor(bg)).Foreground(text)
		for row := 0; row < r.Height; row++ {
			screen.SetContent(r.X+col, r.Y+row, ' ', nil, style)
		}
	}

	initialsRow, titleRow := r.Y+1, r.Y+r.Height-2
	if r.Height < 4 {
		initialsRow, titleRow = r.Y, r.Y+r.Height-1
	}
	g.printCentered(screen, r, initialsRow, t.initials, t.palette, true)
	title := t.node.Title
	if title == "" {
		title = t.node.URL
	}
	g.printCentered(screen, r, titleRow, runewidth.Truncate(title, r.Width-2, "…"), t.palette, false)

	if selected {
		g.drawFrame(screen, r, tcellColor(g.accent.Base))
	}
}

func (g *DialGrid) printCentered(screen tcell.Screen, r reorder.Rect, y int, text string, p palette.Palette, bold bool) {
	x := r.X + (r.Width-runewidth.StringWidth(text))/2
	for _, ch := range text {
		cw := runewidth.RuneWidth(ch)
		if cw == 0 {
			continue
		}
		if x+cw > r.X+r.Width {
			break
		}
		bg := blend(p.Background, p.Accent, float64(x-r.X)/float64(max(1, r.Width-1)))
		style := tcell.StyleDefault.Background(tcellColor(bg)).Foreground(tcellColor(p.Text)).Bold(bold)
		screen.SetContent(x, y, ch, nil, style)
		x += cw
	}
}

func (g *DialGrid) drawAddTile(screen tcell.Screen, r reorder.Rect, selected bool) {
	style := tcell.StyleDefault.Background(tcellColor(g.theme.Surface)).Foreground(tcellColor(g.theme.Muted))
	for row := 0; row < r.Height; row++ {
		for col := 0; col < r.Width; col++ {
			screen.SetContent(r.X+col, r.Y+row, ' ', nil, style)
		}
	}
	plus := palette.Palette{Background: g.theme.Surface, Accent: g.theme.Surface, Text: g.accent.Base}
	label := palette.Palette{Background: g.theme.Surface, Accent: g.theme.Surface, Text: g.theme.Muted}
	if r.Height < 4 {
		g.printCentered(screen, r, r.Y+r.Height/2, "+ Add", plus, true)
	} else {
		g.printCentered(screen, r, r.Y+1, "+", plus, true)
		g.printCentered(screen, r, r.Y+r.Height-2, runewidth.Truncate("Add shortcut", r.Width-2, "…"), label, false)
	}
	if selected {
		g.drawFrame(screen, r, tcellColor(g.accent.Base))
	}
}

func (g *DialGrid) drawFrame(screen tcell.Screen, r reorder.Rect, color tcell.Color) {
	right, bottom := r.X+r.Width-1, r.Y+r.Height-1
	put := func(x, y int, ch rune) {
		_, _, style, _ := screen.GetContent(x, y)
		screen.SetContent(x, y, ch, nil, style.Foreground(color))
	}
	for x := r.X + 1; x < right; x++ {
		put(x, r.Y, tview.BoxDrawingsLightHorizontal)
		put(x, bottom, tview.BoxDrawingsLightHorizontal)
	}
	for y := r.Y + 1; y < bottom; y++ {
		put(r.X, y, tview.BoxDrawingsLightVertical)
		put(right, y, tview.BoxDrawingsLightVertical)
	}
	put(r.X, r.Y, tview.BoxDrawingsLightDownAndRight)
	put(right, r.Y, tview.BoxDrawingsLightDownAndLeft)
	put(r.X, bottom, tview.BoxDrawingsLightUpAndRight)
	put(right, bottom, tview.BoxDrawingsLightUpAndLeft)
}

// drawDropMarker shows on which side of r the dragged tile will land
func (g *DialGrid) drawDropMarker(screen tcell.Screen, r reorder.Rect, after bool) {
	put := func(x, y int, ch rune) {
		style := tcell.StyleDefault.Background(tcellColor(g.backgroundAt(x, y))).Foreground(tcellColor(g.accent.Base))
		screen.SetContent(x, y, ch, nil, style)
	}
	if reorder.Orientation(r) {
		x := r.X - 1
		if after {
			x = r.X + r.Width
		}
		for y := r.Y; y < r.Y+r.Height; y++ {
			put(x, y, '┃')
		}
		return
	}
	y := r.Y - 1
	if after {
		y = r.Y + r.Height
	}
	for x := r.X; x < r.X+r.Width; x++ {
		put(x, y, '━')
	}
}

func (g *DialGrid) moveSelection(delta int) {
	g.selected = max(0, min(g.selected+delta, len(g.tiles)))
}

func (g *DialGrid) activate() {
	if n, ok := g.Selected(); ok {
		if g.onOpen != nil {
			g.onOpen(n)
		}
		return
	}
	if g.onAdd != nil {
		g.onAdd()
	}
}

func (g *DialGrid) InputHandler() func(event *tcell.EventKey, setFocus func(p tview.Primitive)) {
	return g.WrapInputHandler(func(event *tcell.EventKey, setFocus func(p tview.Primitive)) {
		switch event.Key() {
		case tcell.KeyLeft:
			g.moveSelection(-1)
		case tcell.KeyRight:
			g.moveSelection(1)
		case tcell.KeyUp:
			g.moveSelection(-g.cols)
		case tcell.KeyDown:
			g.moveSelection(g.cols)
		case tcell.KeyHome:
			g.selected = 0
		case tcell.KeyEnd:
			g.selected = len(g.tiles)
		case tcell.KeyEnter:
			g.activate()
		case tcell.KeyRune:
			switch event.Rune() {
			case 'h':
				g.moveSelection(-1)
			case 'l':
				g.moveSelection(1)
			case 'k':
				g.moveSelection(-g.cols)
			case 'j':
				g.moveSelection(g.cols)
			}
		}
	})
}

func (g *DialGrid) MouseHandler() func(action tview.MouseAction, event *tcell.EventMouse, setFocus func(p tview.Primitive)) (consumed bool, capture tview.Primitive) {
	return g.WrapMouseHandler(func(action tview.MouseAction, event *tcell.EventMouse, setFocus func(p tview.Primitive)) (consumed bool, capture tview.Primitive) {
		x, y := event.Position()
		p := reorder.Point{X: x, Y: y}
		_, dragging := g.gesture.Dragging()
		if !dragging && !g.InRect(x, y) {
			return false, nil
		}
		index := tileAt(g.rects, p)

		switch action {
		case tview.MouseLeftDown:
			setFocus(g)
			if index >= 0 {
				g.selected = index
			}
			if index >= 0 && index < len(g.tiles) && g.dragEnabled {
				g.gesture.Start(g.tiles[index].node.ID)
				return true, g
			}
			return true, nil

		case tview.MouseMove:
			if !dragging {
				return false, nil
			}
			g.hover = -1
			if index >= 0 && index < len(g.tiles) {
				g.hover = index
				g.hoverAfter = reorder.InsertAfter(g.rects[index], p)
			}
			return true, g

		case tview.MouseLeftUp:
			if !dragging {
				return g.InRect(x, y), nil
			}
			g.hover = -1
			ids := g.IDs()
			var (
				id  string
				to  int
				err error
			)
			switch {
			case index >= 0 && index < len(g.tiles):
				id, to, err = g.gesture.DropOnTile(ids, g.tiles[index].node.ID, g.rects[index], p)
			case g.InRect(x, y):
				id, to, err = g.gesture.DropOnGrid(ids)
			default:
				g.gesture.Cancel()
				return true, nil
			}
			if errors.Is(err, reorder.ErrNoop) {
				return true, nil
			}
			if g.onDrop != nil {
				g.onDrop(id, to, err)
			}
			return true, nil

		case tview.MouseLeftClick:
			if index == len(g.tiles) && g.onAdd != nil {
				g.onAdd()
			}
			return true, nil

		case tview.MouseLeftDoubleClick:
			if index >= 0 && index < len(g.tiles) && g.onOpen != nil {
				g.onOpen(g.tiles[index].node)
			}
			return true, nil

		case tview.MouseScrollUp:
			g.moveSelection(-g.cols)
			return true, nil

		case tview.MouseScrollDown:
			g.moveSelection(g.cols)
			return true, nil
		}
		return false, nil
	})
}
