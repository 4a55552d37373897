package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestMemoryStoreCRUD(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.Create(ctx, "events", Fields{"eventName": "Picnic"})
	assert.Equal(t, err, nil)
	assert.NotEqual(t, "", id)

	fields, err := s.Read(ctx, "events", id)
	assert.Equal(t, err, nil)
	assert.Equal(t, "Picnic", fields["eventName"])

	err = s.Update(ctx, "events", id, Fields{"eventName": "Brunch"})
	assert.Equal(t, err, nil)
	fields, _ = s.Read(ctx, "events", id)
	assert.Equal(t, "Brunch", fields["eventName"])
	// Full replace: the update payload is the whole document.
	_, hasOld := fields["capacity"]
	assert.Equal(t, hasOld, false)

	assert.Equal(t, s.Delete(ctx, "events", id), nil)
	_, err = s.Read(ctx, "events", id)
	assert.Equal(t, errors.Is(err, ErrNotFound), true)

	// Idempotent delete.
	assert.Equal(t, s.Delete(ctx, "events", id), nil)
}

func TestMemoryStoreReadMissing(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Read(context.Background(), "users", "nope")
	assert.Equal(t, errors.Is(err, ErrNotFound), true)
}

func TestMemoryStoreUpdateMissingFails(t *testing.T) {
	s := NewMemoryStore()
	err := s.Update(context.Background(), "events", "missing", Fields{"eventName": "x"})

	var storeErr *StoreError
	assert.Equal(t, errors.As(err, &storeErr), true)
	assert.Equal(t, errors.Is(err, ErrNotFound), true)
}

func TestMemoryStoreSetCreatesOrReplaces(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	assert.Equal(t, s.Set(ctx, "users", "uid-1", Fields{"name": "Ada"}), nil)
	fields, err := s.Read(ctx, "users", "uid-1")
	assert.Equal(t, err, nil)
	assert.Equal(t, "Ada", fields["name"])

	assert.Equal(t, s.Set(ctx, "users", "uid-1", Fields{"name": "Grace"}), nil)
	fields, _ = s.Read(ctx, "users", "uid-1")
	assert.Equal(t, "Grace", fields["name"])
}

func TestSubscribeDeliversInitialAndChanges(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var deliveries [][]Document
	stop, err := s.Subscribe(ctx, "events", func(docs []Document) {
		deliveries = append(deliveries, docs)
	}, func(err error) {
		t.Fatalf("unexpected subscription error: %v", err)
	})
	assert.Equal(t, err, nil)
	defer stop()

	// Initial empty snapshot arrives synchronously.
	assert.Equal(t, 1, len(deliveries))
	assert.Equal(t, 0, len(deliveries[0]))

	idA, _ := s.Create(ctx, "events", Fields{"eventName": "A"})
	idB, _ := s.Create(ctx, "events", Fields{"eventName": "B"})
	assert.Equal(t, 3, len(deliveries))

	// Snapshots keep insertion order, stable across deliveries.
	last := deliveries[2]
	assert.Equal(t, idA, last[0].ID)
	assert.Equal(t, idB, last[1].ID)

	_ = s.Delete(ctx, "events", idA)
	assert.Equal(t, 4, len(deliveries))
	assert.Equal(t, 1, len(deliveries[3]))
	assert.Equal(t, idB, deliveries[3][0].ID)
}

func TestUnsubscribeStopsDeliveries(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	count := 0
	stop, err := s.Subscribe(ctx, "events", func([]Document) { count++ }, nil)
	assert.Equal(t, err, nil)
	assert.Equal(t, 1, count)

	stop()
	_, _ = s.Create(ctx, "events", Fields{"eventName": "A"})
	assert.Equal(t, 1, count)

	// stop is safe to call twice.
	stop()
}

func TestFailSubscriptionsFiresOnErrorOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var errs []error
	_, err := s.Subscribe(ctx, "events", func([]Document) {}, func(err error) {
		errs = append(errs, err)
	})
	assert.Equal(t, err, nil)

	s.FailSubscriptions("events", errors.New("boom"))
	s.FailSubscriptions("events", errors.New("boom again"))
	assert.Equal(t, 1, len(errs))

	// A terminated subscription receives no further snapshots.
	_, _ = s.Create(ctx, "events", Fields{"eventName": "A"})
	assert.Equal(t, 1, len(errs))
}

func TestSaveToLoadFromRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	idA, _ := s.Create(ctx, "events", Fields{"eventName": "A"})
	idB, _ := s.Create(ctx, "events", Fields{"eventName": "B"})
	_ = s.Set(ctx, "users", "uid-1", Fields{"name": "Ada"})

	path := filepath.Join(t.TempDir(), "store.json")
	assert.Equal(t, s.SaveTo(path), nil)

	restored := NewMemoryStore()
	assert.Equal(t, restored.LoadFrom(path), nil)

	fields, err := restored.Read(ctx, "events", idA)
	assert.Equal(t, err, nil)
	assert.Equal(t, "A", fields["eventName"])

	var snapshot []Document
	stop, err := restored.Subscribe(ctx, "events", func(docs []Document) { snapshot = docs }, nil)
	assert.Equal(t, err, nil)
	defer stop()
	assert.Equal(t, 2, len(snapshot))
	assert.Equal(t, idA, snapshot[0].ID)
	assert.Equal(t, idB, snapshot[1].ID)
}

func TestLoadFromMissingFileIsNoop(t *testing.T) {
	s := NewMemoryStore()
	assert.Equal(t, s.LoadFrom(filepath.Join(t.TempDir(), "absent.json")), nil)
}
