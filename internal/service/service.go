package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dastanaron/dial/internal/models"
	"github.com/dastanaron/dial/internal/repository"
)

// OperationError reports a mutation the bookmark store rejected
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// DialService provides the dial's shortcut operations
type DialService struct {
	store repository.BookmarkStore
}

// NewDialService creates a new dial service
func NewDialService(store repository.BookmarkStore) *DialService {
	return &DialService{store: store}
}

// AddShortcut validates rawURL and appends a bookmark to folderID. An empty
// title falls back to the URL's host.
func (s *DialService) AddShortcut(ctx context.Context, folderID, rawURL, title string) (models.TreeNode, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return models.TreeNode{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = HostTitle(normalized)
	}
	node, err := s.store.Create(ctx, models.CreateDetails{ParentID: folderID, Title: title, URL: normalized})
	if err != nil {
		return models.TreeNode{}, &OperationError{Op: "add shortcut", Err: err}
	}
	return node, nil
}

// RemoveShortcut deletes a bookmark
func (s *DialService) RemoveShortcut(ctx context.Context, id string) error {
	if err := s.store.Remove(ctx, id); err != nil {
		return &OperationError{Op: "remove shortcut", Err: err}
	}
	return nil
}

// MoveShortcut places id at index within the dial list of folderID. The
// dial shows bookmarks only, so index is mapped onto the folder's children:
// index len(list) lands right after the last bookmark, any other index lands
// on the slot of the bookmark now at that list position.
func (s *DialService) MoveShortcut(ctx context.Context, folderID, id string, index int) error {
	children, err := s.store.GetChildren(ctx, folderID)
	if err != nil {
		return &OperationError{Op: "reorder", Err: err}
	}
	sibling := siblingIndex(children, id, index)
	if _, err := s.store.Move(ctx, id, models.Destination{ParentID: folderID, Index: &sibling}); err != nil {
		return &OperationError{Op: "reorder", Err: err}
	}
	return nil
}

// siblingIndex converts a position among the bookmarks of children (with id
// left out) into a position among all of children (with id left out).
func siblingIndex(children []models.TreeNode, id string, index int) int {
	var (
		slot int
		seen int
		last = -1
	)
	index = max(0, index)
	for _, n := range children {
		if n.ID == id {
			continue
		}
		if n.URL != "" {
			if seen == index {
				return slot
			}
			seen++
			last = slot
		}
		slot++
	}
	if last < 0 {
		return slot
	}
	return last + 1
}

// MoveToFolder appends id to another folder
func (s *DialService) MoveToFolder(ctx context.Context, id, folderID string) error {
	if _, err := s.store.Move(ctx, id, models.Destination{ParentID: folderID}); err != nil {
		return &OperationError{Op: "move to folder", Err: err}
	}
	return nil
}

// Rename changes the title of a shortcut
func (s *DialService) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if _, err := s.store.Update(ctx, id, models.Changes{Title: &title}); err != nil {
		return &OperationError{Op: "rename", Err: err}
	}
	return nil
}

// Search filters bookmarks by query string
func Search(bookmarks []models.TreeNode, query string) []models.TreeNode {
	if query == "" {
		return bookmarks
	}

	queryLower := strings.ToLower(query)
	var filtered []models.TreeNode
	for _, b := range bookmarks {
		if strings.Contains(strings.ToLower(b.Title), queryLower) ||
			strings.Contains(strings.ToLower(b.URL), queryLower) {
			filtered = append(filtered, b)
		}
	}
	return filtered
}
