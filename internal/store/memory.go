package store

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used for tests, the local dev session
// provider, and the bridge's demo mode. Snapshot order is insertion order,
// stable across deliveries.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]*memCollection
}

type memCollection struct {
	docs  map[string]Fields
	order []string
	subs  map[int]*memSub
	next  int
}

type memSub struct {
	onChange func([]Document)
	onError  func(error)
	dead     bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memCollection),
	}
}

func (s *MemoryStore) collection(name string) *memCollection {
	col, ok := s.collections[name]
	if !ok {
		col = &memCollection{
			docs: make(map[string]Fields),
			subs: make(map[int]*memSub),
		}
		s.collections[name] = col
	}
	return col
}

func (s *MemoryStore) Create(ctx context.Context, collection string, fields Fields) (string, error) {
	s.mu.Lock()
	col := s.collection(collection)
	id := uuid.New().String()
	col.docs[id] = cloneFields(fields)
	col.order = append(col.order, id)
	snap, subs := col.snapshotLocked()
	s.mu.Unlock()

	notify(subs, snap)
	return id, nil
}

func (s *MemoryStore) Read(ctx context.Context, collection, id string) (Fields, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.collection(collection)
	fields, ok := col.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneFields(fields), nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, fields Fields) error {
	s.mu.Lock()
	col := s.collection(collection)
	if _, ok := col.docs[id]; !ok {
		col.order = append(col.order, id)
	}
	col.docs[id] = cloneFields(fields)
	snap, subs := col.snapshotLocked()
	s.mu.Unlock()

	notify(subs, snap)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	s.mu.Lock()
	col := s.collection(collection)
	if _, ok := col.docs[id]; !ok {
		s.mu.Unlock()
		return storeErr("update", collection, id, ErrNotFound)
	}
	col.docs[id] = cloneFields(fields)
	snap, subs := col.snapshotLocked()
	s.mu.Unlock()

	notify(subs, snap)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	col := s.collection(collection)
	if _, ok := col.docs[id]; !ok {
		// Deleting an already-deleted document is not an error.
		s.mu.Unlock()
		return nil
	}
	delete(col.docs, id)
	for i, existing := range col.order {
		if existing == id {
			col.order = append(col.order[:i], col.order[i+1:]...)
			break
		}
	}
	snap, subs := col.snapshotLocked()
	s.mu.Unlock()

	notify(subs, snap)
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, collection string, onChange func([]Document), onError func(error)) (func(), error) {
	s.mu.Lock()
	col := s.collection(collection)
	key := col.next
	col.next++
	sub := &memSub{onChange: onChange, onError: onError}
	col.subs[key] = sub
	snap, _ := col.snapshotLocked()
	s.mu.Unlock()

	// Initial full snapshot, delivered synchronously.
	onChange(snap)

	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(col.subs, key)
			s.mu.Unlock()
		})
	}
	return stop, nil
}

// FailSubscriptions terminates every live subscription on the collection
// with err, as a dropped server connection would. Used by tests and nowhere
// else in production paths.
func (s *MemoryStore) FailSubscriptions(collection string, err error) {
	s.mu.Lock()
	col := s.collection(collection)
	var failed []*memSub
	for key, sub := range col.subs {
		if !sub.dead {
			sub.dead = true
			failed = append(failed, sub)
		}
		delete(col.subs, key)
	}
	s.mu.Unlock()

	for _, sub := range failed {
		if sub.onError != nil {
			sub.onError(err)
		}
	}
}

func (c *memCollection) snapshotLocked() ([]Document, []*memSub) {
	snap := make([]Document, 0, len(c.order))
	for _, id := range c.order {
		snap = append(snap, Document{ID: id, Fields: cloneFields(c.docs[id])})
	}
	subs := make([]*memSub, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	return snap, subs
}

func notify(subs []*memSub, snap []Document) {
	for _, sub := range subs {
		sub.onChange(snap)
	}
}

func cloneFields(fields Fields) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// SaveTo persists every collection to a JSON file, written to a temp file
// first and renamed into place. LoadFrom restores it. This keeps demo-mode
// data across restarts; the remote backends ignore it.
func (s *MemoryStore) SaveTo(path string) error {
	s.mu.Lock()
	dump := make(map[string]map[string]Fields, len(s.collections))
	orders := make(map[string][]string, len(s.collections))
	for name, col := range s.collections {
		docs := make(map[string]Fields, len(col.docs))
		for id, fields := range col.docs {
			docs[id] = cloneFields(fields)
		}
		dump[name] = docs
		orders[name] = append([]string(nil), col.order...)
	}
	s.mu.Unlock()

	payload := memorySnapshotFile{Collections: dump, Order: orders}

	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		file.Close()
		os.Remove(tempPath)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}
	return os.Rename(tempPath, path)
}

func (s *MemoryStore) LoadFrom(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Nothing persisted yet.
			return nil
		}
		return err
	}
	defer file.Close()

	var payload memorySnapshotFile
	if err := json.NewDecoder(file).Decode(&payload); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, docs := range payload.Collections {
		col := s.collection(name)
		col.docs = make(map[string]Fields, len(docs))
		for id, fields := range docs {
			col.docs[id] = fields
		}
		order := payload.Order[name]
		col.order = col.order[:0]
		for _, id := range order {
			if _, ok := col.docs[id]; ok {
				col.order = append(col.order, id)
			}
		}
	}
	return nil
}

type memorySnapshotFile struct {
	Collections map[string]map[string]Fields `json:"collections"`
	Order       map[string][]string          `json:"order"`
}
