package repository

import (
	"sort"
	"sync"

	"github.com/dastanaron/dial/internal/models"
)

// notifier fans store events out to subscribers
type notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]func(models.Event)
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[int]func(models.Event))}
}

func (n *notifier) subscribe(fn func(models.Event)) func() {
	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

// emit calls subscribers in subscription order without holding the lock,
// so handlers may call back into the store.
func (n *notifier) emit(ev models.Event) {
	n.mu.Lock()
	ids := make([]int, 0, len(n.subs))
	for id := range n.subs {
		ids = append(ids, id)
	}
	n.mu.Unlock()

	sort.Ints(ids)
	for _, id := range ids {
		n.mu.Lock()
		fn, ok := n.subs[id]
		n.mu.Unlock()
		if ok {
			fn(ev)
		}
	}
}
