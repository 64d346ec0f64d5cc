package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dastanaron/dial/internal/models"
	"github.com/dastanaron/dial/internal/repository"
)

// DefaultFolderTitle names the folder the dial shows
const DefaultFolderTitle = "Bookmark Dial"

// BarFolderID is the preferred parent for a newly created dial folder
const BarFolderID = "1"

// FolderSettings persists the dial folder id and its preferences
type FolderSettings interface {
	FolderID() (string, error)
	SetFolderID(id string) error
	ClearFolderID() error
	SeedPreferences(folderID string) error
}

// FolderKeeper finds, and when needed recreates, the folder the dial watches
type FolderKeeper struct {
	store    repository.BookmarkStore
	settings FolderSettings
	title    string
	logger   *log.Logger

	mu sync.Mutex
}

// NewFolderKeeper creates a keeper for the folder with the given title
func NewFolderKeeper(store repository.BookmarkStore, settings FolderSettings, title string, logger *log.Logger) *FolderKeeper {
	if title == "" {
		title = DefaultFolderTitle
	}
	if logger == nil {
		logger = log.Default()
	}
	return &FolderKeeper{
		store:    store,
		settings: settings,
		title:    title,
		logger:   logger.With("component", "folder"),
	}
}

// EnsureFolder returns the id of the dial folder. It tries the stored id,
// then a folder with the right title anywhere in the tree, and finally
// creates a new folder.
func (k *FolderKeeper) EnsureFolder(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	storedID, err := k.settings.FolderID()
	if err != nil {
		return "", fmt.Errorf("failed to read folder id: %w", err)
	}
	if storedID != "" {
		if node, err := k.store.Get(ctx, storedID); err == nil && node.IsFolder() && node.Title == k.title {
			k.seed(node.ID)
			return node.ID, nil
		} else if err != nil && !repository.IsNotFound(err) {
			k.logger.Warn("stored folder lookup failed", "id", storedID, "err", err)
		}
	}

	existing, err := k.findByTitle(ctx)
	if err != nil {
		k.logger.Warn("searching folder failed", "err", err)
	}
	if existing != "" {
		if err := k.settings.SetFolderID(existing); err != nil {
			return "", fmt.Errorf("failed to store folder id: %w", err)
		}
		k.seed(existing)
		return existing, nil
	}

	created, err := k.create(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create dial folder: %w", err)
	}
	if err := k.settings.SetFolderID(created); err != nil {
		return "", fmt.Errorf("failed to store folder id: %w", err)
	}
	k.logger.Info("created dial folder", "id", created, "title", k.title)
	k.seed(created)
	return created, nil
}

// ResetFolder forgets the stored id and resolves the folder again
func (k *FolderKeeper) ResetFolder(ctx context.Context) (string, error) {
	if err := k.settings.ClearFolderID(); err != nil {
		return "", fmt.Errorf("failed to clear folder id: %w", err)
	}
	return k.EnsureFolder(ctx)
}

func (k *FolderKeeper) findByTitle(ctx context.Context) (string, error) {
	tree, err := k.store.GetTree(ctx)
	if err != nil {
		return "", err
	}
	stack := []models.TreeNode{tree}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.ID != models.RootID && n.IsFolder() && n.Title == k.title {
			return n.ID, nil
		}
		stack = append(stack, n.Children...)
	}
	return "", nil
}

func (k *FolderKeeper) create(ctx context.Context) (string, error) {
	node, err := k.store.Create(ctx, models.CreateDetails{ParentID: BarFolderID, Title: k.title})
	if err == nil {
		return node.ID, nil
	}
	if !repository.IsNotFound(err) {
		return "", err
	}

	top, lerr := k.store.GetChildren(ctx, models.RootID)
	if lerr != nil {
		return "", lerr
	}
	for _, n := range top {
		if n.IsFolder() {
			node, err := k.store.Create(ctx, models.CreateDetails{ParentID: n.ID, Title: k.title})
			if err != nil {
				return "", err
			}
			return node.ID, nil
		}
	}
	return "", err
}

func (k *FolderKeeper) seed(folderID string) {
	if err := k.settings.SeedPreferences(folderID); err != nil {
		k.logger.Warn("failed to seed dial preferences", "err", err)
	}
}
