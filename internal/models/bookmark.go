package models

import "time"

// RootID is the id of the invisible super-root above the top-level folders.
const RootID = "0"

// ItemType represents the type of a node (bookmark or folder)
type ItemType string

const (
	ItemTypeBookmark ItemType = "bookmark"
	ItemTypeFolder   ItemType = "folder"
)

// TreeNode is a raw node snapshot as returned by the bookmark store.
// Children is nil when the snapshot did not include children; an empty
// non-nil slice means the folder was read and has none.
type TreeNode struct {
	ID        string
	ParentID  string
	Title     string
	URL       string
	Index     int
	DateAdded time.Time
	Children  []TreeNode
}

// IsFolder reports whether the node is a folder (it has no URL).
func (n TreeNode) IsFolder() bool {
	return n.URL == ""
}

// Type returns the item type of the node
func (n TreeNode) Type() ItemType {
	if n.IsFolder() {
		return ItemTypeFolder
	}
	return ItemTypeBookmark
}

// BookmarkNode is the cached record of a node.
type BookmarkNode struct {
	ID       string
	ParentID string // "" for root nodes
	Title    string
	URL      string // "" for folders
	Index    int
	IsFolder bool

	// ChildrenIDs is ordered by the children's Index and only meaningful
	// when ChildrenLoaded is set.
	ChildrenIDs    []string
	ChildrenLoaded bool

	// HasChildren is true when at least one known child is a folder.
	// Folders whose children were never read report true so that an
	// expand affordance is offered.
	HasChildren bool
}

// Clone returns a copy that shares no slices with n.
func (n BookmarkNode) Clone() BookmarkNode {
	if n.ChildrenIDs != nil {
		n.ChildrenIDs = append([]string(nil), n.ChildrenIDs...)
	}
	return n
}

// Changes is a partial update of a node's title or URL.
type Changes struct {
	Title *string
	URL   *string
}

// MoveInfo describes where a node moved.
type MoveInfo struct {
	ParentID    string
	OldParentID string
	Index       int
	OldIndex    int
}

// RemoveInfo describes a removed node and its former place.
type RemoveInfo struct {
	ParentID string
	Index    int
	Node     TreeNode
}

// CreateDetails is the payload of a create request. A nil Index appends.
type CreateDetails struct {
	ParentID string
	Title    string
	URL      string
	Index    *int
}

// Destination is the payload of a move request. A nil Index appends.
type Destination struct {
	ParentID string
	Index    *int
}

// EventKind identifies a store notification
type EventKind string

const (
	EventCreated     EventKind = "created"
	EventChanged     EventKind = "changed"
	EventMoved       EventKind = "moved"
	EventRemoved     EventKind = "removed"
	EventImportBegan EventKind = "import-began"
	EventImportEnded EventKind = "import-ended"
)

// Event is a change notification emitted by the bookmark store.
// Only the field matching Kind is set.
type Event struct {
	Kind    EventKind
	ID      string
	Node    TreeNode
	Changes Changes
	Move    MoveInfo
	Remove  RemoveInfo
}
