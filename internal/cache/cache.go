// Package cache mirrors the bookmark store as an id-indexed tree that is
// patched incrementally from store notifications.
package cache

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/dastanaron/dial/internal/models"
	"github.com/dastanaron/dial/internal/repository"

	"golang.org/x/sync/singleflight"
)

// Snapshot is a point-in-time copy of the cache contents.
type Snapshot struct {
	NodesByID map[string]models.BookmarkNode
	RootIDs   []string
}

// SearchEntry is one folder of the flat folder directory.
type SearchEntry struct {
	ID    string
	Title string
	Path  []string
}

// Cache holds bookmark nodes by id plus the ordered list of root ids.
// Every patch tolerates unknown ids. Subscribers run after the cache lock
// has been released.
type Cache struct {
	mu      sync.RWMutex
	nodes   map[string]*models.BookmarkNode
	rootIDs []string

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int

	loads singleflight.Group
}

// New creates an empty cache
func New() *Cache {
	return &Cache{
		nodes: make(map[string]*models.BookmarkNode),
		subs:  make(map[int]func()),
	}
}

// Subscribe registers fn to be called after every change
func (c *Cache) Subscribe(fn func()) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
		})
	}
}

func (c *Cache) notify() {
	c.subMu.Lock()
	fns := make([]func(), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Snapshot returns a deep copy of the current state
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Snapshot{
		NodesByID: make(map[string]models.BookmarkNode, len(c.nodes)),
		RootIDs:   append([]string{}, c.rootIDs...),
	}
	for id, n := range c.nodes {
		s.NodesByID[id] = n.Clone()
	}
	return s
}

// Node returns a copy of the node with the given id
func (c *Cache) Node(id string) (models.BookmarkNode, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.nodes[id]
	if !ok {
		return models.BookmarkNode{}, false
	}
	return n.Clone(), true
}

// RootIDs returns the ids of the root nodes in index order
func (c *Cache) RootIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string{}, c.rootIDs...)
}

// Children returns the cached children of id in order
func (c *Cache) Children(id string) []models.BookmarkNode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.childrenLocked(id)
}

func (c *Cache) childrenLocked(id string) []models.BookmarkNode {
	n, ok := c.nodes[id]
	if !ok {
		return []models.BookmarkNode{}
	}
	children := make([]models.BookmarkNode, 0, len(n.ChildrenIDs))
	for _, childID := range n.ChildrenIDs {
		if child, ok := c.nodes[childID]; ok {
			children = append(children, child.Clone())
		}
	}
	return children
}

// Reset clears all cache state
func (c *Cache) Reset() {
	c.mu.Lock()
	c.nodes = make(map[string]*models.BookmarkNode)
	c.rootIDs = nil
	c.mu.Unlock()
	c.notify()
}

// Bootstrap replaces the cache with the given top-level nodes without
// descending into them and returns their ids.
func (c *Cache) Bootstrap(topLevel []models.TreeNode) []string {
	nodes := make(map[string]*models.BookmarkNode, len(topLevel))
	ids := make([]string, 0, len(topLevel))
	for _, raw := range topLevel {
		n := Normalize(raw, false)
		nodes[n.ID] = &n
		ids = append(ids, n.ID)
	}

	c.mu.Lock()
	c.nodes = nodes
	c.rootIDs = nil
	for _, id := range ids {
		if nodes[id].ParentID == "" {
			c.rootIDs = append(c.rootIDs, id)
		}
	}
	c.sortRootsLocked()
	c.mu.Unlock()
	c.notify()
	return ids
}

// BootstrapFromStore reads the tree once and bootstraps from its top level
func (c *Cache) BootstrapFromStore(ctx context.Context, r repository.BookmarkReader) ([]string, error) {
	tree, err := r.GetTree(ctx)
	if err != nil {
		return nil, err
	}
	return c.Bootstrap(tree.Children), nil
}

// LoadEntireTree replaces the cache with a full snapshot in one pass. Every
// folder is marked as loaded. It returns the ids of the nodes directly
// under the invisible super-root.
func (c *Cache) LoadEntireTree(root models.TreeNode) []string {
	nodes := make(map[string]*models.BookmarkNode)
	topLevel := sortedByIndex(root.Children)
	rootIDs := make([]string, 0, len(topLevel))

	stack := make([]models.TreeNode, 0, len(topLevel))
	for _, n := range topLevel {
		rootIDs = append(rootIDs, n.ID)
		stack = append(stack, n)
	}
	for len(stack) > 0 {
		raw := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := Normalize(raw, raw.IsFolder())
		if raw.ParentID == root.ID {
			n.ParentID = ""
		}
		nodes[n.ID] = &n
		stack = append(stack, raw.Children...)
	}

	c.mu.Lock()
	c.nodes = nodes
	c.rootIDs = rootIDs
	c.mu.Unlock()
	c.notify()
	return append([]string{}, rootIDs...)
}

// LoadEntireTreeFromStore fetches the whole tree and loads it
func (c *Cache) LoadEntireTreeFromStore(ctx context.Context, r repository.BookmarkReader) ([]string, error) {
	tree, err := r.GetTree(ctx)
	if err != nil {
		return nil, err
	}
	return c.LoadEntireTree(tree), nil
}

// EnsureChildrenLoaded returns the children of id, reading them from the
// store only the first time. Concurrent calls for the same id share one
// read.
func (c *Cache) EnsureChildrenLoaded(ctx context.Context, r repository.BookmarkReader, id string) ([]models.BookmarkNode, error) {
	if children, ok := c.knownChildren(id); ok {
		return children, nil
	}
	v, err, _ := c.loads.Do(id, func() (any, error) {
		if children, ok := c.knownChildren(id); ok {
			return children, nil
		}
		raw, err := r.GetChildren(ctx, id)
		if err != nil {
			return nil, err
		}
		sorted := sortedByIndex(raw)
		normalized := make([]models.BookmarkNode, 0, len(sorted))
		ids := make([]string, 0, len(sorted))
		for _, child := range sorted {
			n := Normalize(child, false)
			normalized = append(normalized, n)
			ids = append(ids, n.ID)
		}

		c.mu.Lock()
		c.setNodesLocked(normalized)
		c.setChildrenLocked(id, ids, true)
		children := c.childrenLocked(id)
		c.mu.Unlock()
		c.notify()
		return children, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.BookmarkNode), nil
}

// knownChildren answers without I/O when the node is unknown, is not a
// folder, or already has its children loaded.
func (c *Cache) knownChildren(id string) ([]models.BookmarkNode, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.nodes[id]
	if !ok || !n.IsFolder || n.ChildrenLoaded {
		return c.childrenLocked(id), true
	}
	return nil, false
}

// LoadSubtree reads the subtree rooted at id, merges it in one pass and
// returns the folder ids it contains.
func (c *Cache) LoadSubtree(ctx context.Context, r repository.BookmarkReader, id string) ([]string, error) {
	root, err := r.GetSubTree(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		processed []models.BookmarkNode
		folderIDs []string
	)
	queue := []models.TreeNode{root}
	for len(queue) > 0 {
		raw := queue[0]
		queue = queue[1:]
		includeChildren := raw.Children != nil
		processed = append(processed, Normalize(raw, includeChildren))
		if raw.IsFolder() {
			folderIDs = append(folderIDs, raw.ID)
		}
		if includeChildren {
			queue = append(queue, raw.Children...)
		}
	}

	c.mu.Lock()
	c.setNodesLocked(processed)
	for _, n := range processed {
		if n.IsFolder && n.ChildrenLoaded {
			c.setChildrenLocked(n.ID, n.ChildrenIDs, true)
		}
	}
	top := processed[0]
	if parent, ok := c.nodes[top.ParentID]; ok && !containsID(parent.ChildrenIDs, top.ID) {
		ids := insertAt(parent.ChildrenIDs, top.Index, top.ID)
		c.setChildrenLocked(parent.ID, ids, parent.ChildrenLoaded)
	}
	c.mu.Unlock()
	c.notify()
	return folderIDs, nil
}

// ApplyCreatedNode inserts a single new node and splices it into its
// parent's child list when the parent is cached.
func (c *Cache) ApplyCreatedNode(raw models.TreeNode) {
	n := Normalize(raw, false)

	c.mu.Lock()
	c.setNodesLocked([]models.BookmarkNode{n})
	if parent, ok := c.nodes[n.ParentID]; ok {
		ids := insertAt(removeID(parent.ChildrenIDs, n.ID), n.Index, n.ID)
		c.setChildrenLocked(parent.ID, ids, parent.ChildrenLoaded)
	}
	c.mu.Unlock()
	c.notify()
}

// ApplyChangedNode merges a title or URL change into a known node
func (c *Cache) ApplyChangedNode(id string, changes models.Changes) {
	c.mu.Lock()
	n, ok := c.nodes[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	if changes.Title != nil {
		n.Title = *changes.Title
	}
	if changes.URL != nil && *changes.URL != "" {
		n.URL = *changes.URL
		n.IsFolder = false
		n.HasChildren = false
	}
	c.mu.Unlock()
	c.notify()
}

// ApplyMovedNode relocates a known node between parents or root positions
func (c *Cache) ApplyMovedNode(id string, info models.MoveInfo) {
	parentID := normalizeParent(info.ParentID)
	oldParentID := normalizeParent(info.OldParentID)

	c.mu.Lock()
	n, ok := c.nodes[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	n.ParentID = parentID
	n.Index = info.Index

	if oldParentID == "" {
		c.rootIDs = removeID(c.rootIDs, id)
	} else if prev, ok := c.nodes[oldParentID]; ok {
		c.setChildrenLocked(prev.ID, removeID(prev.ChildrenIDs, id), prev.ChildrenLoaded)
	}

	if parentID == "" {
		if !containsID(c.rootIDs, id) {
			c.rootIDs = insertAt(c.rootIDs, info.Index, id)
		}
		c.sortRootsLocked()
	} else if next, ok := c.nodes[parentID]; ok {
		ids := next.ChildrenIDs
		if !containsID(ids, id) {
			ids = insertAt(ids, info.Index, id)
		}
		c.setChildrenLocked(next.ID, ids, next.ChildrenLoaded)
	}
	c.mu.Unlock()
	c.notify()
}

// ApplyRemovedNode drops a node with every cached descendant
func (c *Cache) ApplyRemovedNode(id string, info models.RemoveInfo) {
	parentID := normalizeParent(info.ParentID)

	c.mu.Lock()
	if n, ok := c.nodes[id]; ok && parentID == "" {
		parentID = n.ParentID
	}

	toRemove := map[string]struct{}{id: {}}
	stack := []string{id}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n, ok := c.nodes[current]
		if !ok {
			continue
		}
		for _, childID := range n.ChildrenIDs {
			if _, seen := toRemove[childID]; !seen {
				toRemove[childID] = struct{}{}
				stack = append(stack, childID)
			}
		}
	}
	for removed := range toRemove {
		delete(c.nodes, removed)
	}

	c.rootIDs = removeID(c.rootIDs, id)
	if parent, ok := c.nodes[parentID]; ok {
		c.setChildrenLocked(parent.ID, removeID(parent.ChildrenIDs, id), parent.ChildrenLoaded)
	}
	c.mu.Unlock()
	c.notify()
}

// GetDescendantFolderIDs returns id (when it is a cached folder) and all of
// its cached folder descendants, in no particular order.
func (c *Cache) GetDescendantFolderIDs(id string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.folderWalkLocked([]string{id})
}

// CollectLoadedFolderDescendants returns the cached folder descendants of
// id, optionally preceded by id itself.
func (c *Cache) CollectLoadedFolderDescendants(id string, includeSelf bool) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.nodes[id]
	if !ok || !n.IsFolder {
		return []string{}
	}
	var result []string
	if includeSelf {
		result = append(result, id)
	}
	return append(result, c.folderWalkLocked(c.folderChildrenLocked(n))...)
}

func (c *Cache) folderWalkLocked(stack []string) []string {
	result := []string{}
	seen := make(map[string]struct{})
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n, ok := c.nodes[current]
		if !ok || !n.IsFolder {
			continue
		}
		if _, dup := seen[current]; dup {
			continue
		}
		seen[current] = struct{}{}
		result = append(result, current)
		stack = append(stack, c.folderChildrenLocked(n)...)
	}
	return result
}

func (c *Cache) folderChildrenLocked(n *models.BookmarkNode) []string {
	var ids []string
	for _, childID := range n.ChildrenIDs {
		if child, ok := c.nodes[childID]; ok && child.IsFolder {
			ids = append(ids, childID)
		}
	}
	return ids
}

// GetFolderPath returns the non-empty titles from the outermost cached
// ancestor down to id itself.
func (c *Cache) GetFolderPath(id string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.folderPathLocked(id)
}

func (c *Cache) folderPathLocked(id string) []string {
	path := []string{}
	visited := make(map[string]struct{})
	current, ok := c.nodes[id]
	for ok {
		if _, loop := visited[current.ID]; loop {
			break
		}
		visited[current.ID] = struct{}{}
		if current.Title != "" {
			path = append(path, current.Title)
		}
		if current.ParentID == "" {
			break
		}
		current, ok = c.nodes[current.ParentID]
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// BuildSearchIndex lists every cached folder with its path, sorted by path
func (c *Cache) BuildSearchIndex() []SearchEntry {
	c.mu.RLock()
	entries := make([]SearchEntry, 0)
	for id, n := range c.nodes {
		if !n.IsFolder {
			continue
		}
		entries = append(entries, SearchEntry{ID: id, Title: n.Title, Path: c.folderPathLocked(id)})
	}
	c.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		pi, pj := strings.Join(entries[i].Path, "/"), strings.Join(entries[j].Path, "/")
		if pi != pj {
			return pi < pj
		}
		return entries[i].ID < entries[j].ID
	})
	return entries
}

// Filter keeps the entries whose title or path contains query, ignoring case
func Filter(entries []SearchEntry, query string) []SearchEntry {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return entries
	}
	var filtered []SearchEntry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Title), q) ||
			strings.Contains(strings.ToLower(strings.Join(e.Path, " / ")), q) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// setNodesLocked merges records into the cache. A shallow record does not
// wipe an already loaded child list.
func (c *Cache) setNodesLocked(nodes []models.BookmarkNode) {
	for _, incoming := range nodes {
		n := incoming.Clone()
		if existing, ok := c.nodes[n.ID]; ok && existing.ChildrenLoaded && !n.ChildrenLoaded && n.IsFolder {
			n.ChildrenIDs = existing.ChildrenIDs
			n.ChildrenLoaded = true
			n.HasChildren = existing.HasChildren
		}
		c.nodes[n.ID] = &n
		switch {
		case n.ParentID == "" && !containsID(c.rootIDs, n.ID):
			c.rootIDs = append(c.rootIDs, n.ID)
		case n.ParentID != "":
			c.rootIDs = removeID(c.rootIDs, n.ID)
		}
	}
	c.sortRootsLocked()
}

// setChildrenLocked replaces a parent's child list: unknown and duplicate
// ids are dropped, the rest ordered by index, and hasChildren recomputed.
// For loaded parents the children's indexes are renumbered to match.
func (c *Cache) setChildrenLocked(parentID string, childIDs []string, markLoaded bool) {
	parent, ok := c.nodes[parentID]
	if !ok {
		return
	}
	seen := make(map[string]struct{}, len(childIDs))
	ids := make([]string, 0, len(childIDs))
	for _, id := range childIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		if _, known := c.nodes[id]; !known {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return c.nodes[ids[i]].Index < c.nodes[ids[j]].Index
	})

	hasFolderChildren := false
	for i, id := range ids {
		child := c.nodes[id]
		if markLoaded || parent.ChildrenLoaded {
			child.Index = i
		}
		if child.IsFolder {
			hasFolderChildren = true
		}
	}

	parent.ChildrenIDs = ids
	parent.ChildrenLoaded = parent.ChildrenLoaded || markLoaded
	parent.HasChildren = parent.IsFolder && hasFolderChildren
}

func (c *Cache) sortRootsLocked() {
	sort.SliceStable(c.rootIDs, func(i, j int) bool {
		a, b := c.nodes[c.rootIDs[i]], c.nodes[c.rootIDs[j]]
		if a == nil || b == nil {
			return false
		}
		return a.Index < b.Index
	})
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

// insertAt returns a copy of ids with id inserted at index, clamped.
func insertAt(ids []string, index int, id string) []string {
	if index < 0 {
		index = 0
	}
	if index > len(ids) {
		index = len(ids)
	}
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:index]...)
	out = append(out, id)
	return append(out, ids[index:]...)
}
