package ui

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/dastanaron/dial/internal/cache"
	"github.com/dastanaron/dial/internal/models"
	"github.com/dastanaron/dial/internal/palette"
	"github.com/dastanaron/dial/internal/reconciler"
	"github.com/dastanaron/dial/internal/repository"
	"github.com/dastanaron/dial/internal/service"
	"github.com/dastanaron/dial/internal/settings"
)

const (
	ModeNormal = 1
	ModeSearch = 2
	ModeForm   = 3
	ModeModal  = 4
)

const (
	toastDuration    = 3 * time.Second
	msgReorderFailed = "Reorder failed. Try again."

	pageMain        = "main"
	pageForm        = "form"
	pageMove        = "move"
	pagePreferences = "preferences"
	pageConfirm     = "confirm"
	pageError       = "error"
)

// Deps are the components the dial screen drives
type Deps struct {
	Dial     *reconciler.Dial
	TreeSync *reconciler.TreeSync
	Tree     *cache.Cache
	Reader   repository.BookmarkReader
	Service  *service.DialService
	Settings *settings.Store
	Logger   *log.Logger

	TileWidth   int
	TileHeight  int
	ShowSidebar bool
}

// App represents the TUI application
type App struct {
	app     *tview.Application
	pages   *tview.Pages
	grid    *DialGrid
	sidebar *Sidebar
	search  *tview.InputField
	status  *tview.TextView
	mode    uint8

	focusOnSidebar bool
	showSidebar    bool

	deps   Deps
	logger *log.Logger
	ctx    context.Context

	// owned by the UI goroutine
	view     reconciler.View
	prefs    settings.Preferences
	theme    palette.Theme
	toast    string
	toastSeq int

	bg sync.WaitGroup
}

// NewApp creates a new application instance
func NewApp(deps Deps) *App {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	a := &App{
		app:         tview.NewApplication(),
		pages:       tview.NewPages(),
		grid:        NewDialGrid(deps.TileWidth, deps.TileHeight),
		search:      tview.NewInputField().SetLabel("Search: "),
		status:      tview.NewTextView().SetDynamicColors(true),
		mode:        ModeNormal,
		showSidebar: deps.ShowSidebar,
		deps:        deps,
		logger:      logger.With("component", "ui"),
		ctx:         context.Background(),
	}
	a.sidebar = NewSidebar(deps.Tree, a.loadFolder)
	return a
}

// Run starts the store-driven components and the event loop. It returns
// when the user quits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.ctx = ctx

	a.grid.SetBorder(true).SetTitle("Bookmark Dial")
	a.grid.SetOpenFunc(func(n models.TreeNode) { openURL(n.URL) }).
		SetAddFunc(a.showAddForm).
		SetDropFunc(a.onDrop)
	a.sidebar.SetOpenFunc(func(n models.BookmarkNode) { openURL(n.URL) }).
		SetToggleFunc(a.saveExpanded)
	// focus can also move by mouse
	a.grid.SetFocusFunc(func() { a.focused(false) })
	a.sidebar.view.SetFocusFunc(func() { a.focused(true) })

	cols := tview.NewFlex()
	if a.showSidebar {
		cols.AddItem(a.sidebar.view, 0, 1, false)
	}
	cols.AddItem(a.grid, 0, 3, true)

	main := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.search, 1, 0, false).
		AddItem(cols, 0, 1, true).
		AddItem(a.status, 1, 0, false)
	a.pages.AddPage(pageMain, main, true, true)

	a.search.SetChangedFunc(a.onSearchChange)
	a.search.SetDoneFunc(a.onSearchDone)

	if prefs, err := a.deps.Settings.LoadPreferences(); err != nil {
		a.logger.Warn("failed to load preferences", "err", err)
		a.prefs = settings.Preferences{Theme: settings.DefaultTheme, Accent: settings.DefaultAccent}
	} else {
		a.prefs = prefs
	}
	a.sidebar.SetExpanded(a.prefs.FolderSelection.ExpandedIDs)
	a.applyAppearance()

	unsubscribeDial := a.deps.Dial.Subscribe(func(v reconciler.View) {
		a.app.QueueUpdateDraw(func() { a.applyView(v) })
	})
	defer unsubscribeDial()
	unsubscribeTree := a.deps.Tree.Subscribe(func() {
		a.app.QueueUpdateDraw(a.sidebar.Rebuild)
	})
	defer unsubscribeTree()
	unsubscribePrefs := a.deps.Settings.Subscribe(a.onSettingsChange)
	defer unsubscribePrefs()

	a.applyView(a.deps.Dial.View())
	a.sidebar.Rebuild()
	a.background(func() {
		if err := a.deps.Dial.Start(ctx); err != nil {
			a.logger.Error("dial failed to start", "err", err)
		}
	})
	a.background(func() {
		if err := a.deps.TreeSync.Start(ctx); err != nil {
			a.logger.Error("failed to load bookmark tree", "err", err)
			a.app.QueueUpdateDraw(func() { a.showToast("Could not load folders.") })
		}
	})
	go func() {
		<-ctx.Done()
		a.app.Stop()
	}()

	a.app.SetRoot(a.pages, true).EnableMouse(true)
	a.app.SetInputCapture(a.globalInput)
	a.app.SetFocus(a.grid)
	err := a.app.Run()
	cancel()
	a.bg.Wait()
	return err
}

// background runs fn off the UI goroutine. Run waits for it before
// returning.
func (a *App) background(fn func()) {
	a.bg.Add(1)
	go func() {
		defer a.bg.Done()
		fn()
	}()
}

func (a *App) applyView(v reconciler.View) {
	a.view = v
	a.refreshGrid()
	a.updateStatus()
}

// refreshGrid shows the dial bookmarks, filtered by the search text
func (a *App) refreshGrid() {
	query := a.search.GetText()
	a.grid.SetBookmarks(service.Search(a.view.Bookmarks, query))
	a.grid.SetDragEnabled(query == "")
}

func (a *App) updateStatus() {
	message := a.view.Message
	if a.toast != "" {
		message = a.toast
	}
	if message == "" {
		message = fmt.Sprintf("%d shortcuts", len(a.view.Bookmarks))
	}

	keys := "[::b]a[::-] add  [::b]e[::-] rename  [::b]d[::-] del  [::b]y[::-] copy  [::b]m[::-] move  [::b]/[::-] search  [::b]p[::-] prefs  [::b]r[::-] refresh  [::b]q[::-] quit"
	if a.focusOnSidebar {
		keys = "[::b]Enter[::-] expand/open  [::b]Tab[::-] dial  [::b]q[::-] quit"
	}
	a.status.SetText(tview.Escape(message) + "  " + keys)
}

// showToast replaces the status message for a few seconds
func (a *App) showToast(message string) {
	a.toast = message
	a.toastSeq++
	seq := a.toastSeq
	a.updateStatus()
	time.AfterFunc(toastDuration, func() {
		a.app.QueueUpdateDraw(func() {
			if a.toastSeq == seq {
				a.toast = ""
				a.updateStatus()
			}
		})
	})
}

// onDrop sends the move for a finished drag. The tile moves locally right
// away; a failure restores the stored order.
func (a *App) onDrop(id string, index int, err error) {
	if err != nil {
		a.logger.Debug("drop rejected", "id", id, "err", err)
		a.reorderFailed()
		return
	}
	folderID := a.view.FolderID
	a.grid.MoveLocal(id, index)
	a.background(func() {
		if err := a.deps.Service.MoveShortcut(a.ctx, folderID, id, index); err != nil {
			a.logger.Warn("reorder failed", "id", id, "index", index, "err", err)
			a.app.QueueUpdateDraw(a.reorderFailed)
		}
	})
}

func (a *App) reorderFailed() {
	a.showToast(msgReorderFailed)
	a.background(func() {
		if err := a.deps.Dial.Refresh(a.ctx); err != nil {
			a.logger.Warn("refresh after failed reorder", "err", err)
		}
	})
}

// refresh re-reads the dial, or resolves the folder again when it was lost
func (a *App) refresh() {
	a.background(func() {
		var err error
		if a.deps.Dial.State() == reconciler.StateFailed {
			err = a.deps.Dial.Reset(a.ctx)
		} else {
			err = a.deps.Dial.Refresh(a.ctx)
		}
		if err != nil {
			a.logger.Warn("refresh failed", "err", err)
		}
	})
}

// loadFolder fetches children of a sidebar folder that is not cached yet
func (a *App) loadFolder(id string) {
	a.background(func() {
		if _, err := a.deps.Tree.EnsureChildrenLoaded(a.ctx, a.deps.Reader, id); err != nil {
			a.logger.Warn("failed to load folder", "id", id, "err", err)
		}
	})
}

func (a *App) saveExpanded(ids []string) {
	a.prefs.FolderSelection.ExpandedIDs = ids
	a.savePreferences(a.prefs)
}

func (a *App) savePreferences(p settings.Preferences) {
	a.background(func() {
		if err := a.deps.Settings.SavePreferences(p); err != nil {
			a.logger.Warn("failed to save preferences", "err", err)
		}
	})
}

// onSettingsChange picks up preferences written elsewhere
func (a *App) onSettingsChange(c settings.Change) {
	if c.Key != settings.LocalPrefsKey {
		return
	}
	prefs, err := a.deps.Settings.LoadPreferences()
	if err != nil {
		a.logger.Warn("failed to reload preferences", "err", err)
		return
	}
	a.app.QueueUpdateDraw(func() {
		a.prefs = prefs
		a.applyAppearance()
	})
}

func (a *App) applyAppearance() {
	a.theme = palette.ThemeFor(a.prefs.Theme, systemDark())
	accent := palette.Accent(a.prefs.Accent)

	bg, text := tcellColor(a.theme.Background), tcellColor(a.theme.Text)
	a.grid.SetAppearance(a.theme, accent)
	a.grid.SetBackground(backgroundFor(a.prefs))
	a.grid.SetBorderColor(tcellColor(accent.Base)).SetTitleColor(text)
	a.sidebar.SetAppearance(a.theme, accent)
	a.sidebar.Rebuild()
	a.status.SetBackgroundColor(tcellColor(a.theme.Surface))
	a.status.SetTextColor(text)
	a.search.SetBackgroundColor(bg)
	a.search.SetFieldBackgroundColor(tcellColor(a.theme.Surface))
	a.search.SetFieldTextColor(text)
	a.search.SetLabelColor(tcellColor(accent.Base))
}

// backgroundFor returns the chosen gradient. Custom images cannot be shown
// in a terminal, so they fall back to the plain theme background.
func backgroundFor(p settings.Preferences) *palette.Gradient {
	if p.Background == nil || p.Background.Mode != settings.BackgroundGradient {
		return nil
	}
	g := palette.GradientFor(p.Background.GradientID)
	return &g
}

// withGradient returns p with the gradient id as its background
func withGradient(p settings.Preferences, id string) settings.Preferences {
	p.Background = &settings.Background{Mode: settings.BackgroundGradient, GradientID: id}
	return p
}

func (a *App) setMode(m uint8) {
	a.mode = m
	switch m {
	case ModeSearch:
		a.app.SetFocus(a.search)
	case ModeNormal:
		a.restoreFocus()
	}
}

func (a *App) restoreFocus() {
	if a.focusOnSidebar {
		a.app.SetFocus(a.sidebar.view)
	} else {
		a.app.SetFocus(a.grid)
	}
}

func (a *App) focused(sidebar bool) {
	if a.mode == ModeSearch {
		a.mode = ModeNormal
	}
	if a.focusOnSidebar != sidebar {
		a.focusOnSidebar = sidebar
		a.updateStatus()
	}
}

func (a *App) toggleFocus() {
	if !a.showSidebar {
		return
	}
	a.focusOnSidebar = !a.focusOnSidebar
	a.restoreFocus()
	a.updateStatus()
}

func (a *App) onSearchChange(text string) {
	a.refreshGrid()
}

func (a *App) onSearchDone(key tcell.Key) {
	if key == tcell.KeyEscape {
		a.search.SetText("")
		a.refreshGrid()
	}
	a.setMode(ModeNormal)
}

func (a *App) globalInput(event *tcell.EventKey) *tcell.EventKey {
	if a.mode != ModeNormal {
		if a.mode == ModeForm && event.Key() == tcell.KeyEscape {
			a.closeDialog()
			return nil
		}
		return event
	}

	if event.Key() == tcell.KeyTab {
		a.toggleFocus()
		return nil
	}
	if event.Key() != tcell.KeyRune {
		return event
	}

	if a.focusOnSidebar {
		if event.Rune() == 'q' {
			a.app.Stop()
			return nil
		}
		return event
	}

	switch event.Rune() {
	case 'q':
		a.app.Stop()
	case '/':
		a.setMode(ModeSearch)
	case 'a':
		a.showAddForm()
	case 'e':
		if n, ok := a.grid.Selected(); ok {
			a.showRenameForm(n)
		}
	case 'd':
		if n, ok := a.grid.Selected(); ok {
			a.confirmRemove(n)
		}
	case 'y':
		if n, ok := a.grid.Selected(); ok {
			a.copyURL(n)
		}
	case 'm':
		if n, ok := a.grid.Selected(); ok {
			a.showMoveDialog(n)
		}
	case 'p':
		a.showPreferences()
	case 'r':
		a.refresh()
	default:
		return event
	}
	return nil
}

func (a *App) copyURL(n models.TreeNode) {
	if err := clipboard.WriteAll(n.URL); err != nil {
		a.logger.Warn("clipboard unavailable", "err", err)
		a.showToast("Could not copy the URL.")
		return
	}
	a.showToast("Copied " + n.URL)
}

// userMessage turns a service error into something to show
func userMessage(err error) string {
	var opErr *service.OperationError
	switch {
	case errors.Is(err, service.ErrInvalidURL):
		return "Enter a valid URL, for example example.com"
	case errors.As(err, &opErr) && errors.Is(err, repository.ErrNotFound):
		return fmt.Sprintf("Could not %s: the bookmark no longer exists.", opErr.Op)
	case errors.As(err, &opErr):
		return fmt.Sprintf("Could not %s: %v", opErr.Op, opErr.Err)
	default:
		return err.Error()
	}
}

func openURL(url string) {
	var cmd string
	var args []string
	switch runtime.GOOS {
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start"}
	case "darwin":
		cmd = "open"
	default:
		cmd = "xdg-open"
	}
	args = append(args, url)
	_ = exec.Command(cmd, args...).Start()
}
