package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound reports document absence. Callers that expect a document to be
// missing (a profile before sign-up completes) treat it as a normal outcome,
// not a failure.
var ErrNotFound = errors.New("document not found")

// StoreError wraps a transport or permission failure from the backing store.
type StoreError struct {
	Op         string
	Collection string
	ID         string
	Err        error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("store %s %s/%s: %v", e.Op, e.Collection, e.ID, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Fields is a schemaless document body. Values are JSON-ish: strings,
// numbers, nil.
type Fields = map[string]interface{}

// Document is one entry of a collection snapshot.
type Document struct {
	ID     string
	Fields Fields
}

// Store is a remote collection of schemaless documents with live change
// subscriptions. Every update is a full-document replace; there are no
// partial patches.
type Store interface {
	// Create inserts a document and returns the store-assigned id.
	Create(ctx context.Context, collection string, fields Fields) (string, error)

	// Read returns a document's fields, or ErrNotFound.
	Read(ctx context.Context, collection, id string) (Fields, error)

	// Set writes a document at a caller-chosen id, creating it if absent.
	Set(ctx context.Context, collection, id string, fields Fields) error

	// Update replaces an existing document. A missing id is a StoreError.
	Update(ctx context.Context, collection, id string, fields Fields) error

	// Delete removes a document. Deleting a missing id is a no-op.
	Delete(ctx context.Context, collection, id string) error

	// Subscribe delivers a full-collection snapshot immediately and again
	// after every server-visible change, in the order the store emits them.
	// onError fires at most once, after which the subscription is dead.
	// The returned stop func must be called exactly once on teardown.
	Subscribe(ctx context.Context, collection string, onChange func([]Document), onError func(error)) (func(), error)
}

func storeErr(op, collection, id string, err error) *StoreError {
	return &StoreError{Op: op, Collection: collection, ID: id, Err: err}
}
