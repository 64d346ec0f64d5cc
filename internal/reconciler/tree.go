package reconciler

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dastanaron/dial/internal/cache"
	"github.com/dastanaron/dial/internal/models"
)

// TreeSync patches a tree cache from store events instead of refetching.
// Node events during a bulk import are skipped and the whole tree is
// reloaded when the import ends.
type TreeSync struct {
	cache  *cache.Cache
	source Source
	logger *log.Logger

	mu          sync.Mutex
	ctx         context.Context
	importing   bool
	unsubscribe func()
}

// NewTreeSync creates a sync for c that is idle until Start
func NewTreeSync(c *cache.Cache, source Source, logger *log.Logger) *TreeSync {
	if logger == nil {
		logger = log.Default()
	}
	return &TreeSync{
		cache:  c,
		source: source,
		logger: logger.With("component", "tree"),
		ctx:    context.Background(),
	}
}

// Start loads the whole tree and begins applying events
func (s *TreeSync) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if _, err := s.cache.LoadEntireTreeFromStore(ctx, s.source); err != nil {
		return err
	}
	unsubscribe := s.source.Subscribe(s.Handle)
	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
	return nil
}

// Handle applies one store event to the cache
func (s *TreeSync) Handle(ev models.Event) {
	s.mu.Lock()
	importing := s.importing
	switch ev.Kind {
	case models.EventImportBegan:
		s.importing = true
	case models.EventImportEnded:
		s.importing = false
	}
	ctx := s.ctx
	s.mu.Unlock()

	switch ev.Kind {
	case models.EventImportEnded:
		if err := s.Reload(ctx); err != nil {
			s.logger.Error("failed to reload tree after import", "err", err)
		}
		return
	case models.EventImportBegan:
		return
	}
	if importing {
		return
	}

	switch ev.Kind {
	case models.EventCreated:
		s.cache.ApplyCreatedNode(ev.Node)
	case models.EventChanged:
		s.cache.ApplyChangedNode(ev.ID, ev.Changes)
	case models.EventMoved:
		s.cache.ApplyMovedNode(ev.ID, ev.Move)
	case models.EventRemoved:
		s.cache.ApplyRemovedNode(ev.ID, ev.Remove)
	}
}

// Reload replaces the cache with a fresh copy of the tree
func (s *TreeSync) Reload(ctx context.Context) error {
	_, err := s.cache.LoadEntireTreeFromStore(ctx, s.source)
	return err
}

// Close stops applying events
func (s *TreeSync) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}
