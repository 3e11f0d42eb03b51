package storage

import (
	"bytes"
	"sort"
	"sync"
)

// Overlay buffers writes on top of a base database so a whole call can be
// committed or discarded as one unit. Reads observe pending writes first.
type Overlay struct {
	mu      sync.RWMutex
	base    Database
	writes  map[string][]byte
	deletes map[string]struct{}
}

func NewOverlay(base Database) *Overlay {
	return &Overlay{
		base:    base,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

func (o *Overlay) Put(key []byte, value []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.deletes, string(key))
	o.writes[string(key)] = append([]byte(nil), value...)
	return nil
}

func (o *Overlay) Get(key []byte) ([]byte, error) {
	o.mu.RLock()
	if _, gone := o.deletes[string(key)]; gone {
		o.mu.RUnlock()
		return nil, ErrNotFound
	}
	if v, ok := o.writes[string(key)]; ok {
		o.mu.RUnlock()
		return append([]byte(nil), v...), nil
	}
	o.mu.RUnlock()
	return o.base.Get(key)
}

func (o *Overlay) Has(key []byte) (bool, error) {
	o.mu.RLock()
	if _, gone := o.deletes[string(key)]; gone {
		o.mu.RUnlock()
		return false, nil
	}
	if _, ok := o.writes[string(key)]; ok {
		o.mu.RUnlock()
		return true, nil
	}
	o.mu.RUnlock()
	return o.base.Has(key)
}

func (o *Overlay) Delete(key []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.writes, string(key))
	o.deletes[string(key)] = struct{}{}
	return nil
}

// Iterate merges pending writes with the base store in ascending key order.
func (o *Overlay) Iterate(prefix, startAfter []byte, limit int, fn func(key, value []byte) bool) error {
	merged := make(map[string][]byte)
	err := o.base.Iterate(prefix, nil, 0, func(key, value []byte) bool {
		merged[string(key)] = value
		return true
	})
	if err != nil {
		return err
	}

	o.mu.RLock()
	for k, v := range o.writes {
		if bytes.HasPrefix([]byte(k), prefix) {
			merged[k] = append([]byte(nil), v...)
		}
	}
	for k := range o.deletes {
		delete(merged, k)
	}
	o.mu.RUnlock()

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := 0
	for _, k := range keys {
		if startAfter != nil && bytes.Compare([]byte(k), startAfter) <= 0 {
			continue
		}
		if !fn([]byte(k), merged[k]) {
			return nil
		}
		seen++
		if limit > 0 && seen >= limit {
			return nil
		}
	}
	return nil
}

// Commit flushes all pending writes and deletes to the base database.
func (o *Overlay) Commit() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for k := range o.deletes {
		if err := o.base.Delete([]byte(k)); err != nil {
			return err
		}
	}
	for k, v := range o.writes {
		if err := o.base.Put([]byte(k), v); err != nil {
			return err
		}
	}
	o.writes = make(map[string][]byte)
	o.deletes = make(map[string]struct{})
	return nil
}

// Discard drops every pending write, leaving the base untouched.
func (o *Overlay) Discard() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.writes = make(map[string][]byte)
	o.deletes = make(map[string]struct{})
}

// Close satisfies the Database interface. The base store stays open.
func (o *Overlay) Close() {}
