package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/dastanaron/dial/internal/models"
	"github.com/dastanaron/dial/internal/parser"
	"github.com/dastanaron/dial/internal/repository"
)

// DefaultImportParent is "Other Bookmarks"
const DefaultImportParent = "2"

// ImportCommand handles bookmark import from HTML file
type ImportCommand struct {
	store    repository.BookmarkStore
	parentID string
	logger   *log.Logger
	out      io.Writer
}

// NewImportCommand creates a new import command writing below parentID
func NewImportCommand(store repository.BookmarkStore, parentID string, logger *log.Logger) *ImportCommand {
	if parentID == "" {
		parentID = DefaultImportParent
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ImportCommand{
		store:    store,
		parentID: parentID,
		logger:   logger.With("component", "import"),
		out:      os.Stdout,
	}
}

// Execute imports bookmarks from HTML file
func (c *ImportCommand) Execute(ctx context.Context, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("cannot open file: %w", err)
	}
	defer file.Close()

	entries, err := parser.ParseBookmarksHTML(file)
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}

	parent, err := c.store.Get(ctx, c.parentID)
	if err != nil {
		return fmt.Errorf("import target %s: %w", c.parentID, err)
	}
	if !parent.IsFolder() {
		return fmt.Errorf("import target %s: %w", c.parentID, repository.ErrNotFolder)
	}

	c.store.BeginImport()
	imported := c.importEntries(ctx, c.parentID, entries)
	c.store.EndImport()

	fmt.Fprintf(c.out, "Imported %d of %d bookmarks.\n", imported, parser.Count(entries))
	return nil
}

func (c *ImportCommand) importEntries(ctx context.Context, parentID string, entries []*parser.Entry) int {
	imported := 0
	for _, e := range entries {
		node, err := c.store.Create(ctx, models.CreateDetails{
			ParentID: parentID,
			Title:    e.Title,
			URL:      e.URL,
		})
		if err != nil {
			c.logger.Warn("failed to import", "title", e.Title, "err", err)
			continue
		}
		if e.Folder {
			imported += c.importEntries(ctx, node.ID, e.Children)
			continue
		}
		imported++
	}
	return imported
}
