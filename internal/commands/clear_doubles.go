package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/dastanaron/dial/internal/models"
	"github.com/dastanaron/dial/internal/repository"
	"github.com/dastanaron/dial/internal/service"
)

// ClearDoublesCommand handles removal of duplicate bookmarks
type ClearDoublesCommand struct {
	store  repository.BookmarkStore
	logger *log.Logger
	out    io.Writer
}

// NewClearDoublesCommand creates a new clear doubles command
func NewClearDoublesCommand(store repository.BookmarkStore, logger *log.Logger) *ClearDoublesCommand {
	if logger == nil {
		logger = log.Default()
	}
	return &ClearDoublesCommand{
		store:  store,
		logger: logger.With("component", "clear-doubles"),
		out:    os.Stdout,
	}
}

// Execute removes duplicate bookmarks, keeping the first one in tree order.
// URLs are compared after normalization, so "Example.com" and
// "https://example.com/" are the same bookmark.
func (c *ClearDoublesCommand) Execute(ctx context.Context) error {
	tree, err := c.store.GetTree(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bookmarks: %w", err)
	}

	seenURLs := make(map[string]string) // URL -> ID of bookmark to keep
	var duplicates []models.TreeNode

	var walk func(nodes []models.TreeNode)
	walk = func(nodes []models.TreeNode) {
		for _, n := range nodes {
			if n.IsFolder() {
				walk(n.Children)
				continue
			}
			key, err := service.NormalizeURL(n.URL)
			if err != nil {
				key = n.URL
			}
			if keep, exists := seenURLs[key]; exists {
				duplicates = append(duplicates, n)
				c.logger.Debug("found duplicate", "title", n.Title, "id", n.ID, "keep", keep)
				continue
			}
			seenURLs[key] = n.ID
		}
	}
	walk(tree.Children)

	if len(duplicates) == 0 {
		fmt.Fprintln(c.out, "No duplicate bookmarks found.")
		return nil
	}

	c.store.BeginImport()
	deleted := 0
	for _, n := range duplicates {
		if err := c.store.Remove(ctx, n.ID); err != nil {
			c.logger.Warn("failed to delete duplicate", "id", n.ID, "err", err)
			continue
		}
		deleted++
	}
	c.store.EndImport()

	fmt.Fprintf(c.out, "Deleted %d duplicate bookmark(s).\n", deleted)
	return nil
}
