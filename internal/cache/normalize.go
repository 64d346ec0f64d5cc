package cache

import (
	"sort"

	"github.com/dastanaron/dial/internal/models"
)

// Normalize converts a raw store snapshot into a cache record. With
// includeChildren the snapshot's children become the node's child list and
// the node is marked as loaded.
func Normalize(n models.TreeNode, includeChildren bool) models.BookmarkNode {
	isFolder := n.IsFolder()
	explicit := n.Children != nil

	hasFolderChildren := false
	for _, child := range n.Children {
		if child.IsFolder() {
			hasFolderChildren = true
			break
		}
	}

	node := models.BookmarkNode{
		ID:       n.ID,
		ParentID: normalizeParent(n.ParentID),
		Title:    n.Title,
		URL:      n.URL,
		Index:    n.Index,
		IsFolder: isFolder,
	}
	if node.Index < 0 {
		node.Index = 0
	}

	if includeChildren {
		sorted := sortedByIndex(n.Children)
		node.ChildrenIDs = make([]string, 0, len(sorted))
		for _, child := range sorted {
			node.ChildrenIDs = append(node.ChildrenIDs, child.ID)
		}
		node.ChildrenLoaded = true
	}

	switch {
	case !isFolder:
		node.HasChildren = false
	case includeChildren || explicit:
		node.HasChildren = hasFolderChildren
	default:
		// Unknown until the children are read.
		node.HasChildren = true
	}
	return node
}

// normalizeParent maps the virtual super-root to "no parent".
func normalizeParent(id string) string {
	if id == models.RootID {
		return ""
	}
	return id
}

func sortedByIndex(nodes []models.TreeNode) []models.TreeNode {
	sorted := append([]models.TreeNode(nil), nodes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Index < sorted[j].Index
	})
	return sorted
}
