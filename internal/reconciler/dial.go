// Package reconciler keeps derived bookmark views in step with store
// notifications.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dastanaron/dial/internal/models"
	"github.com/dastanaron/dial/internal/repository"
)

// DefaultDebounce is the quiet interval before a burst of events refreshes
// the dial.
const DefaultDebounce = 150 * time.Millisecond

var ErrFolderUnavailable = errors.New("dial folder is unavailable")

// Status is the coarse state shown next to the dial
type Status string

const (
	StatusReady   Status = ""
	StatusLoading Status = "loading"
	StatusEmpty   Status = "empty"
	StatusError   Status = "error"
)

// State tracks whether the watched folder still exists
type State string

const (
	StateWatching   State = "watching"
	StateMissing    State = "missing"
	StateRecovering State = "recovering"
	StateFailed     State = "failed"
)

const (
	MessageLoading    = "Loading Bookmark Dial…"
	MessageEmpty      = "No bookmarks yet. Press a to add a shortcut."
	MessageError      = "Bookmark Dial folder is unavailable. Press r to try again."
	MessageImporting  = "Importing bookmarks…"
	MessageRecovering = "Bookmark Dial folder was removed. Recreating…"
	MessageRestored   = "Bookmark Dial folder restored."
)

// Source is the part of the bookmark store the reconcilers read
type Source interface {
	repository.BookmarkReader
	repository.Notifier
}

// FolderResolver finds the watched folder, recreating it when it is gone
type FolderResolver interface {
	EnsureFolder(ctx context.Context) (string, error)
	ResetFolder(ctx context.Context) (string, error)
}

// View is what the dial shows at one moment
type View struct {
	FolderID  string
	Bookmarks []models.TreeNode
	Status    Status
	Message   string
	State     State
}

// Options tune a Dial
type Options struct {
	Debounce time.Duration
	Logger   *log.Logger
}

// Dial is the flat view of one watched folder's bookmarks
type Dial struct {
	source   Source
	resolver FolderResolver
	debounce time.Duration
	logger   *log.Logger

	mu          sync.Mutex
	ctx         context.Context
	folderID    string
	bookmarks   []models.TreeNode
	members     map[string]struct{}
	status      Status
	message     string
	state       State
	pending     *time.Timer
	refreshSeq  uint64
	closed      bool
	unsubscribe func()
	recovering  sync.WaitGroup

	subMu   sync.Mutex
	subs    map[int]func(View)
	nextSub int
}

// NewDial creates a dial that is idle until Start
func NewDial(source Source, resolver FolderResolver, opts Options) *Dial {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Dial{
		source:   source,
		resolver: resolver,
		debounce: opts.Debounce,
		logger:   opts.Logger.With("component", "dial"),
		ctx:      context.Background(),
		members:  make(map[string]struct{}),
		status:   StatusLoading,
		message:  MessageLoading,
		state:    StateWatching,
		subs:     make(map[int]func(View)),
	}
}

// Start resolves the watched folder, subscribes to store events and loads
// the first view. ctx bounds every later refresh as well.
func (d *Dial) Start(ctx context.Context) error {
	d.mu.Lock()
	d.ctx = ctx
	d.mu.Unlock()
	d.publish()

	folderID, err := d.resolver.EnsureFolder(ctx)
	if err != nil {
		d.mu.Lock()
		d.state = StateFailed
		d.status, d.message = StatusError, MessageError
		d.mu.Unlock()
		d.publish()
		return fmt.Errorf("%w: %v", ErrFolderUnavailable, err)
	}

	d.mu.Lock()
	d.folderID = folderID
	d.unsubscribe = d.source.Subscribe(d.Handle)
	d.mu.Unlock()
	d.logger.Debug("watching folder", "id", folderID)

	return d.Refresh(ctx)
}

// Handle reacts to one store notification
func (d *Dial) Handle(ev models.Event) {
	d.mu.Lock()
	notify := d.handleLocked(ev)
	d.mu.Unlock()
	if notify {
		d.publish()
	}
}

// handleLocked applies ev and reports whether the view changed right away
func (d *Dial) handleLocked(ev models.Event) bool {
	if d.closed || d.folderID == "" {
		return false
	}

	switch ev.Kind {
	case models.EventCreated:
		if ev.Node.ParentID == d.folderID || ev.ID == d.folderID {
			d.scheduleLocked()
		}
	case models.EventChanged:
		if d.isMemberLocked(ev.ID) || ev.ID == d.folderID {
			d.scheduleLocked()
		}
	case models.EventMoved:
		if ev.Move.ParentID == d.folderID || ev.Move.OldParentID == d.folderID ||
			ev.ID == d.folderID || d.isMemberLocked(ev.ID) {
			d.scheduleLocked()
		}
	case models.EventRemoved:
		switch {
		case ev.Remove.ParentID == d.folderID || d.isMemberLocked(ev.ID):
			delete(d.members, ev.ID)
			d.scheduleLocked()
		case ev.ID == d.folderID || containsNode(ev.Remove.Node, d.folderID):
			d.beginRecoveryLocked()
		}
	case models.EventImportBegan:
		d.message = MessageImporting
		return true
	case models.EventImportEnded:
		d.scheduleLocked()
	}
	return false
}

// Refresh reads the watched folder's children and publishes a new view. It
// does nothing while the dial is failed or closed.
func (d *Dial) Refresh(ctx context.Context) error {
	d.mu.Lock()
	folderID := d.folderID
	if d.closed || d.state == StateFailed || folderID == "" {
		d.mu.Unlock()
		return nil
	}
	d.refreshSeq++
	seq := d.refreshSeq
	d.mu.Unlock()

	children, err := d.source.GetChildren(ctx, folderID)

	d.mu.Lock()
	// a later refresh owns the view
	if d.closed || d.folderID != folderID || d.state == StateFailed || seq != d.refreshSeq {
		d.mu.Unlock()
		return nil
	}
	if err != nil {
		d.logger.Error("failed to load bookmarks", "folder", folderID, "err", err)
		d.status, d.message = StatusError, MessageError
		if repository.IsNotFound(err) {
			d.beginRecoveryLocked()
		}
		d.mu.Unlock()
		d.publish()
		return fmt.Errorf("%w: %v", ErrFolderUnavailable, err)
	}

	bookmarks := make([]models.TreeNode, 0, len(children))
	members := make(map[string]struct{}, len(children))
	for _, n := range children {
		if n.URL == "" {
			continue
		}
		bookmarks = append(bookmarks, n)
		members[n.ID] = struct{}{}
	}
	d.bookmarks = bookmarks
	d.members = members
	if len(bookmarks) == 0 {
		d.status, d.message = StatusEmpty, MessageEmpty
	} else {
		d.status, d.message = StatusReady, ""
	}
	d.mu.Unlock()
	d.publish()
	return nil
}

// Reset leaves the failed state by resolving the folder again
func (d *Dial) Reset(ctx context.Context) error {
	d.mu.Lock()
	if d.closed || d.state == StateRecovering || d.state == StateMissing {
		d.mu.Unlock()
		return nil
	}
	d.startRecoveringLocked()
	d.mu.Unlock()
	return d.recover(ctx)
}

// Close stops listening to the store and waits for a running recovery
func (d *Dial) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	if d.pending != nil {
		d.pending.Stop()
	}
	unsubscribe := d.unsubscribe
	d.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	d.recovering.Wait()
}

// scheduleLocked restarts the debounce timer
func (d *Dial) scheduleLocked() {
	if d.state == StateFailed {
		return
	}
	if d.pending != nil {
		d.pending.Stop()
	}
	ctx := d.ctx
	d.pending = time.AfterFunc(d.debounce, func() {
		if err := d.Refresh(ctx); err != nil {
			d.logger.Warn("debounced refresh failed", "err", err)
		}
	})
}

// beginRecoveryLocked moves a watching dial to missing and starts recovery
// in the background.
func (d *Dial) beginRecoveryLocked() {
	if d.state != StateWatching {
		return
	}
	d.state = StateMissing
	if d.pending != nil {
		d.pending.Stop()
	}
	d.logger.Warn("watched folder is missing", "id", d.folderID)

	ctx := d.ctx
	d.recovering.Add(1)
	go func() {
		defer d.recovering.Done()
		d.mu.Lock()
		if d.closed || d.state != StateMissing {
			d.mu.Unlock()
			return
		}
		d.startRecoveringLocked()
		d.mu.Unlock()
		d.recover(ctx)
	}()
}

func (d *Dial) startRecoveringLocked() {
	d.state = StateRecovering
	d.message = MessageRecovering
}

// recover runs with the state already set to recovering
func (d *Dial) recover(ctx context.Context) error {
	d.publish()

	folderID, err := d.resolver.ResetFolder(ctx)

	d.mu.Lock()
	if err != nil {
		d.state = StateFailed
		d.status, d.message = StatusError, MessageError
		d.mu.Unlock()
		d.logger.Error("folder recovery failed", "err", err)
		d.publish()
		return fmt.Errorf("%w: %v", ErrFolderUnavailable, err)
	}
	d.folderID = folderID
	d.members = make(map[string]struct{})
	d.state = StateWatching
	if d.unsubscribe == nil && !d.closed {
		// Start failed before subscribing
		d.unsubscribe = d.source.Subscribe(d.Handle)
	}
	d.mu.Unlock()
	d.logger.Info("folder restored", "id", folderID)

	if err := d.Refresh(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	if d.state == StateWatching && d.folderID == folderID {
		d.message = MessageRestored
	}
	d.mu.Unlock()
	d.publish()
	return nil
}

func (d *Dial) isMemberLocked(id string) bool {
	_, ok := d.members[id]
	return ok
}

// View returns a copy of the current view
func (d *Dial) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return View{
		FolderID:  d.folderID,
		Bookmarks: append([]models.TreeNode{}, d.bookmarks...),
		Status:    d.status,
		Message:   d.message,
		State:     d.state,
	}
}

// Bookmarks returns a copy of the bookmarks last read from the folder
func (d *Dial) Bookmarks() []models.TreeNode {
	return d.View().Bookmarks
}

// FolderID returns the watched folder, or "" before it is resolved
func (d *Dial) FolderID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.folderID
}

// State returns the recovery state
func (d *Dial) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Subscribe registers fn for every published view
func (d *Dial) Subscribe(fn func(View)) (unsubscribe func()) {
	d.subMu.Lock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	d.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.subMu.Lock()
			delete(d.subs, id)
			d.subMu.Unlock()
		})
	}
}

func (d *Dial) publish() {
	view := d.View()
	d.subMu.Lock()
	ids := make([]int, 0, len(d.subs))
	for id := range d.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(View), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, d.subs[id])
	}
	d.subMu.Unlock()

	for _, fn := range fns {
		fn(view)
	}
}

// containsNode reports whether id occurs in the removed subtree
func containsNode(root models.TreeNode, id string) bool {
	stack := []models.TreeNode{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.ID == id {
			return true
		}
		stack = append(stack, n.Children...)
	}
	return false
}
