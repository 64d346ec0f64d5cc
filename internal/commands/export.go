package commands

import (
	"bufio"
	"context"
	"fmt"
	"html"
	"io"
	"os"
	"strings"

	"github.com/dastanaron/dial/internal/models"
	"github.com/dastanaron/dial/internal/repository"
)

// ExportCommand handles bookmark export to HTML file
type ExportCommand struct {
	store repository.BookmarkReader
	out   io.Writer
}

// NewExportCommand creates a new export command
func NewExportCommand(store repository.BookmarkReader) *ExportCommand {
	return &ExportCommand{store: store, out: os.Stdout}
}

// Execute exports the whole tree to an HTML file
func (c *ExportCommand) Execute(ctx context.Context, filePath string) error {
	tree, err := c.store.GetTree(ctx)
	if err != nil {
		return fmt.Errorf("failed to read bookmarks: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("cannot create file: %w", err)
	}
	defer file.Close()

	count, err := WriteHTML(file, tree)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", filePath, err)
	}

	fmt.Fprintf(c.out, "Exported %d bookmarks to %s\n", count, filePath)
	return nil
}

// WriteHTML writes root's children as a Netscape bookmark file in store
// order and returns the number of bookmarks written.
func WriteHTML(w io.Writer, root models.TreeNode) (int, error) {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	fmt.Fprintf(bw, "<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	fmt.Fprintf(bw, "<TITLE>Bookmarks</TITLE>\n")
	fmt.Fprintf(bw, "<H1>Bookmarks</H1>\n")
	fmt.Fprintf(bw, "<DL><p>\n")
	count := writeChildren(bw, root.Children, 1)
	fmt.Fprintf(bw, "</DL><p>\n")

	return count, bw.Flush()
}

func writeChildren(w io.Writer, nodes []models.TreeNode, depth int) int {
	indent := strings.Repeat("    ", depth)
	count := 0
	for _, n := range nodes {
		if !n.IsFolder() {
			writeBookmark(w, n, indent)
			count++
			continue
		}
		fmt.Fprintf(w, "%s<DT><H3%s>%s</H3>\n", indent, addDate(n), html.EscapeString(n.Title))
		fmt.Fprintf(w, "%s<DL><p>\n", indent)
		count += writeChildren(w, n.Children, depth+1)
		fmt.Fprintf(w, "%s</DL><p>\n", indent)
	}
	return count
}

// writeBookmark writes a single bookmark
func writeBookmark(w io.Writer, n models.TreeNode, indent string) {
	fmt.Fprintf(w, "%s<DT><A HREF=\"%s\"%s>%s</A>\n",
		indent, html.EscapeString(n.URL), addDate(n), html.EscapeString(n.Title))
}

func addDate(n models.TreeNode) string {
	if n.DateAdded.IsZero() {
		return ""
	}
	return fmt.Sprintf(" ADD_DATE=\"%d\"", n.DateAdded.Unix())
}
