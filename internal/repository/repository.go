package repository

import (
	"context"
	"errors"

	"github.com/dastanaron/dial/internal/models"
)

var (
	ErrNotFound       = errors.New("bookmark node not found")
	ErrNotFolder      = errors.New("parent is not a folder")
	ErrNotBookmark    = errors.New("node is not a bookmark")
	ErrFolderNotEmpty = errors.New("folder is not empty")
	ErrInvalidMove    = errors.New("cannot move a folder into itself or its descendants")
	ErrPermission     = errors.New("top-level folders cannot be modified")
)

// BookmarkReader defines the read side of the bookmark store
type BookmarkReader interface {
	GetChildren(ctx context.Context, id string) ([]models.TreeNode, error)
	GetTree(ctx context.Context) (models.TreeNode, error)
	GetSubTree(ctx context.Context, id string) (models.TreeNode, error)
	Get(ctx context.Context, id string) (models.TreeNode, error)
}

// BookmarkWriter defines mutations of the bookmark store.
// Every successful mutation is announced to subscribers.
type BookmarkWriter interface {
	Create(ctx context.Context, d models.CreateDetails) (models.TreeNode, error)
	Update(ctx context.Context, id string, c models.Changes) (models.TreeNode, error)
	// Move places id at the given index of the destination's child list,
	// counted after id has been taken out of its old place.
	Move(ctx context.Context, id string, dest models.Destination) (models.TreeNode, error)
	// Remove deletes a bookmark or an empty folder.
	Remove(ctx context.Context, id string) error
	// RemoveTree deletes a node with its whole subtree.
	RemoveTree(ctx context.Context, id string) error
}

// Notifier delivers store change notifications.
type Notifier interface {
	Subscribe(fn func(models.Event)) (unsubscribe func())
}

// BookmarkStore combines the whole host bookmark API
type BookmarkStore interface {
	BookmarkReader
	BookmarkWriter
	Notifier
	// BeginImport and EndImport bracket bulk writes.
	BeginImport()
	EndImport()
	Close() error
}
