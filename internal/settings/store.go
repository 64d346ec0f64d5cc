// Package settings is a two-tier key-value store for dial settings kept in
// a bbolt file. Values are opaque JSON blobs.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Area names a storage tier
type Area string

const (
	// Local is the fast, machine-only tier.
	Local Area = "local"
	// Sync is the tier meant to follow the user across machines.
	Sync Area = "sync"
)

var ErrUnknownArea = errors.New("unknown settings area")

// Change describes one key update. A nil NewValue means the key was removed.
type Change struct {
	Area     Area
	Key      string
	OldValue json.RawMessage
	NewValue json.RawMessage
}

// Store wraps a bbolt database with one bucket per area
type Store struct {
	db *bolt.DB

	mu   sync.Mutex
	subs map[int]func(Change)
	next int
}

// Open opens or creates the settings file at path
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open settings db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, area := range []Area{Local, Sync} {
			if _, err := tx.CreateBucketIfNotExists([]byte(area)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create settings buckets: %w", err)
	}
	return &Store{db: db, subs: make(map[int]func(Change))}, nil
}

// Close closes the settings file
func (s *Store) Close() error {
	return s.db.Close()
}

// Get decodes the value stored under key into v. It reports false when the
// key is absent.
func (s *Store) Get(area Area, key string, v any) (bool, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(area))
		if b == nil {
			return ErrUnknownArea
		}
		if data := b.Get([]byte(key)); data != nil {
			raw = append([]byte(nil), data...)
		}
		return nil
	})
	if err != nil || raw == nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode %s/%s: %w", area, key, err)
	}
	return true, nil
}

// Set stores v under key and notifies subscribers when the value changed
func (s *Store) Set(area Area, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", area, key, err)
	}
	var old []byte
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(area))
		if b == nil {
			return ErrUnknownArea
		}
		if prev := b.Get([]byte(key)); prev != nil {
			old = append([]byte(nil), prev...)
		}
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return err
	}
	if !bytes.Equal(old, data) {
		s.emit(Change{Area: area, Key: key, OldValue: old, NewValue: data})
	}
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (s *Store) Remove(area Area, key string) error {
	var old []byte
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(area))
		if b == nil {
			return ErrUnknownArea
		}
		if prev := b.Get([]byte(key)); prev != nil {
			old = append([]byte(nil), prev...)
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return err
	}
	if old != nil {
		s.emit(Change{Area: area, Key: key, OldValue: old})
	}
	return nil
}

// Subscribe registers fn for every committed change
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) emit(c Change) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Change), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
