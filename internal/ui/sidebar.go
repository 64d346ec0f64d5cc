package ui

import (
	"sort"

	"github.com/rivo/tview"

	"github.com/dastanaron/dial/internal/cache"
	"github.com/dastanaron/dial/internal/models"
	"github.com/dastanaron/dial/internal/palette"
)

const placeholderRef = "…"

// Sidebar shows the cached bookmark tree. Folders load their children the
// first time they are expanded.
type Sidebar struct {
	view     *tview.TreeView
	tree     *cache.Cache
	expanded map[string]bool

	accent palette.AccentOption
	theme  palette.Theme

	load     func(id string)
	onOpen   func(models.BookmarkNode)
	onToggle func(expandedIDs []string)
}

// NewSidebar creates a sidebar over the cache. load is called for folders
// whose children are not cached yet.
func NewSidebar(tree *cache.Cache, load func(id string)) *Sidebar {
	s := &Sidebar{
		view:     tview.NewTreeView(),
		tree:     tree,
		expanded: make(map[string]bool),
		load:     load,
	}
	s.view.SetBorder(true).SetTitle("Folders")
	s.view.SetSelectedFunc(s.onSelect)
	return s
}

func (s *Sidebar) SetOpenFunc(fn func(models.BookmarkNode)) *Sidebar {
	s.onOpen = fn
	return s
}

func (s *Sidebar) SetToggleFunc(fn func(expandedIDs []string)) *Sidebar {
	s.onToggle = fn
	return s
}

// SetExpanded replaces the set of expanded folders
func (s *Sidebar) SetExpanded(ids []string) {
	s.expanded = make(map[string]bool, len(ids))
	for _, id := range ids {
		s.expanded[id] = true
	}
}

// ExpandedIDs returns the expanded folders, sorted
func (s *Sidebar) ExpandedIDs() []string {
	ids := make([]string, 0, len(s.expanded))
	for id := range s.expanded {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Sidebar) SetAppearance(theme palette.Theme, accent palette.AccentOption) {
	s.theme, s.accent = theme, accent
	s.view.SetBackgroundColor(tcellColor(theme.Background))
	s.view.SetBorderColor(tcellColor(theme.Muted))
	s.view.SetTitleColor(tcellColor(theme.Text))
	s.view.SetGraphicsColor(tcellColor(theme.Muted))
}

// Rebuild redraws the tree from the cache, keeping the current node
func (s *Sidebar) Rebuild() {
	current := ""
	if n := s.view.GetCurrentNode(); n != nil {
		current, _ = n.GetReference().(string)
	}

	root := tview.NewTreeNode("Bookmarks").SetReference(models.RootID).SetSelectable(false)
	root.SetColor(tcellColor(s.theme.Text))
	var missing []string
	for _, id := range s.tree.RootIDs() {
		if n, ok := s.tree.Node(id); ok {
			missing = s.addNode(root, n, missing)
		}
	}
	s.view.SetRoot(root)

	if target := findNode(root, current); target != nil {
		s.view.SetCurrentNode(target)
	} else if children := root.GetChildren(); len(children) > 0 {
		s.view.SetCurrentNode(children[0])
	}

	for _, id := range missing {
		s.load(id)
	}
}

// addNode adds n below parent and returns folders that are expanded but
// not loaded yet.
func (s *Sidebar) addNode(parent *tview.TreeNode, n models.BookmarkNode, missing []string) []string {
	node := tview.NewTreeNode(nodeLabel(n)).SetReference(n.ID)
	parent.AddChild(node)
	if !n.IsFolder {
		node.SetColor(tcellColor(s.theme.Text))
		return missing
	}
	node.SetColor(tcellColor(s.accent.Base))

	if !s.expanded[n.ID] {
		node.SetExpanded(false)
		if !n.ChildrenLoaded || len(n.ChildrenIDs) > 0 {
			node.AddChild(tview.NewTreeNode(placeholderRef).SetSelectable(false))
		}
		return missing
	}
	node.SetExpanded(true)
	if !n.ChildrenLoaded {
		node.AddChild(tview.NewTreeNode(placeholderRef).SetSelectable(false).SetColor(tcellColor(s.theme.Muted)))
		return append(missing, n.ID)
	}
	for _, child := range s.tree.Children(n.ID) {
		missing = s.addNode(node, child, missing)
	}
	return missing
}

func (s *Sidebar) onSelect(node *tview.TreeNode) {
	id, ok := node.GetReference().(string)
	if !ok {
		return
	}
	n, ok := s.tree.Node(id)
	if !ok {
		return
	}
	if !n.IsFolder {
		if s.onOpen != nil {
			s.onOpen(n)
		}
		return
	}

	if s.expanded[id] {
		delete(s.expanded, id)
	} else {
		s.expanded[id] = true
	}
	if s.onToggle != nil {
		s.onToggle(s.ExpandedIDs())
	}
	s.Rebuild()
}

// CurrentID returns the id under the cursor
func (s *Sidebar) CurrentID() string {
	if n := s.view.GetCurrentNode(); n != nil {
		id, _ := n.GetReference().(string)
		return id
	}
	return ""
}

func findNode(root *tview.TreeNode, id string) *tview.TreeNode {
	if id == "" {
		return nil
	}
	var found *tview.TreeNode
	root.Walk(func(node, parent *tview.TreeNode) bool {
		if found != nil {
			return false
		}
		if ref, ok := node.GetReference().(string); ok && ref == id {
			found = node
			return false
		}
		return true
	})
	return found
}

func nodeLabel(n models.BookmarkNode) string {
	title := n.Title
	if title == "" {
		if n.IsFolder {
			title = "(untitled folder)"
		} else {
			title = n.URL
		}
	}
	return tview.Escape(title)
}
