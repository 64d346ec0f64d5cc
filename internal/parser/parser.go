package parser

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Entry is a parsed bookmark or folder. Folders have no URL.
type Entry struct {
	Title    string
	URL      string
	Folder   bool
	Children []*Entry
}

// Count returns the number of bookmarks below the given entries
func Count(entries []*Entry) int {
	n := 0
	for _, e := range entries {
		if e.Folder {
			n += Count(e.Children)
		} else {
			n++
		}
	}
	return n
}

// ParseBookmarksHTML parses a Netscape bookmark file into a forest of
// entries, keeping document order.
func ParseBookmarksHTML(r io.Reader) ([]*Entry, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var roots []*Entry
	var folderStack []*Entry

	add := func(e *Entry) {
		if len(folderStack) > 0 {
			parent := folderStack[len(folderStack)-1]
			parent.Children = append(parent.Children, e)
			return
		}
		roots = append(roots, e)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		// Found folder header <H3 ...>
		if n.Type == html.ElementNode && n.Data == "h3" {
			folder := &Entry{Title: textOf(n), Folder: true}
			add(folder)
			folderStack = append(folderStack, folder)
		}

		// Found bookmark <A HREF=...>
		if n.Type == html.ElementNode && n.Data == "a" {
			e := &Entry{Title: textOf(n)}
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					e.URL = strings.TrimSpace(attr.Val)
				}
			}
			if e.URL != "" {
				add(e)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		// Leaving a DL closes the folder it belongs to
		if n.Type == html.ElementNode && n.Data == "dl" && len(folderStack) > 0 {
			folderStack = folderStack[:len(folderStack)-1]
		}
	}

	walk(doc)
	return roots, nil
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.TrimSpace(b.String())
}
