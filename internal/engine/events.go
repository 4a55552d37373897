// Package engine holds the sync engines: they keep a live local view of the
// remote collections and mediate every mutation to them. The remote store is
// the single source of truth; the local view is derived from subscription
// deliveries and never written back.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/sozial/client/internal/assets"
	"github.com/sozial/client/internal/models"
	"github.com/sozial/client/internal/store"
)

const eventsCollection = "events"

// State tracks an engine instance's lifecycle. Error is recoverable by
// calling Start again; TornDown is terminal.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateLive
	StateError
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateLive:
		return "live"
	case StateError:
		return "error"
	case StateTornDown:
		return "torn down"
	default:
		return "unknown"
	}
}

// EventEngine maintains the live ordered view of the events collection and
// runs create/update/delete flows, uploading staged images first.
//
// Mutations are deliberately not serialized against each other: two
// concurrent updates race and the store's last write wins, matching the
// observed client behavior. Snapshots are applied strictly in delivery
// order under the engine mutex.
type EventEngine struct {
	store  store.Store
	assets *assets.Pipeline
	now    func() time.Time

	mu       sync.Mutex
	state    State
	view     []models.Event
	lastErr  error
	stop     func()
	watchers map[int]func([]models.Event)
	nextKey  int
}

func NewEventEngine(st store.Store, pipeline *assets.Pipeline) *EventEngine {
	return &EventEngine{
		store:    st,
		assets:   pipeline,
		now:      time.Now,
		watchers: make(map[int]func([]models.Event)),
	}
}

// Start opens the collection subscription. Restarting first releases the
// prior subscription, so at most one is live per engine.
func (e *EventEngine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateTornDown {
		e.mu.Unlock()
		return &store.StoreError{Op: "subscribe", Collection: eventsCollection, Err: context.Canceled}
	}
	if e.stop != nil {
		e.stop()
		e.stop = nil
	}
	e.state = StateLoading
	e.lastErr = nil
	e.mu.Unlock()

	stop, err := e.store.Subscribe(ctx, eventsCollection, e.applySnapshot, e.subscriptionFailed)
	if err != nil {
		e.mu.Lock()
		e.state = StateError
		e.lastErr = err
		e.mu.Unlock()
		return err
	}

	e.mu.Lock()
	if e.state == StateTornDown {
		// Torn down while subscribing; release immediately.
		e.mu.Unlock()
		stop()
		return nil
	}
	e.stop = stop
	e.mu.Unlock()
	return nil
}

// applySnapshot installs an authoritative snapshot in delivery order.
func (e *EventEngine) applySnapshot(docs []store.Document) {
	view := make([]models.Event, 0, len(docs))
	for _, doc := range docs {
		view = append(view, models.EventFromFields(doc.ID, doc.Fields))
	}

	e.mu.Lock()
	if e.state == StateTornDown {
		e.mu.Unlock()
		return
	}
	e.view = view
	e.state = StateLive
	watchers := make([]func([]models.Event), 0, len(e.watchers))
	for _, fn := range e.watchers {
		watchers = append(watchers, fn)
	}
	e.mu.Unlock()

	for _, fn := range watchers {
		fn(view)
	}
}

func (e *EventEngine) subscriptionFailed(err error) {
	e.mu.Lock()
	if e.state == StateTornDown {
		e.mu.Unlock()
		return
	}
	e.state = StateError
	e.lastErr = err
	e.stop = nil
	e.mu.Unlock()

	log.Printf("[events] subscription failed: %v", err)
}

// Create validates the draft, uploads a staged local image, then inserts the
// document. The new event reaches the view through the subscription, not an
// optimistic insert.
func (e *EventEngine) Create(ctx context.Context, draft models.EventDraft) error {
	if errs := draft.Validate(); len(errs) > 0 {
		return models.NewValidationError(errs)
	}

	imageURL, err := e.resolveImage(ctx, draft.Image, "")
	if err != nil {
		return err
	}

	if _, err := e.store.Create(ctx, eventsCollection, draft.Fields(imageURL)); err != nil {
		e.recordErr(err)
		return err
	}
	return nil
}

// Update validates and full-replaces an existing event. A local image is
// uploaded first; a remote one passes through unchanged; an absent one keeps
// whatever URL the view currently holds for the event.
func (e *EventEngine) Update(ctx context.Context, id string, draft models.EventDraft) error {
	if errs := draft.Validate(); len(errs) > 0 {
		return models.NewValidationError(errs)
	}

	imageURL, err := e.resolveImage(ctx, draft.Image, e.currentImage(id))
	if err != nil {
		return err
	}

	if err := e.store.Update(ctx, eventsCollection, id, draft.Fields(imageURL)); err != nil {
		e.recordErr(err)
		return err
	}
	return nil
}

// Delete removes the event. Deleting an already-gone event succeeds.
func (e *EventEngine) Delete(ctx context.Context, id string) error {
	if err := e.store.Delete(ctx, eventsCollection, id); err != nil {
		e.recordErr(err)
		return err
	}
	return nil
}

func (e *EventEngine) resolveImage(ctx context.Context, ref models.ImageRef, fallback string) (string, error) {
	switch ref.Kind() {
	case models.ImageLocal:
		url, err := e.assets.Upload(ctx, ref, assets.EventImageKey(e.now()))
		if err != nil {
			// The whole operation aborts; no document write happens.
			e.recordErr(err)
			return "", err
		}
		return url, nil
	case models.ImageRemote:
		return ref.URL(), nil
	default:
		return fallback, nil
	}
}

func (e *EventEngine) currentImage(id string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ev := range e.view {
		if ev.ID == id {
			return ev.Image
		}
	}
	return ""
}

// Events returns the live view in delivery order. The slice is a copy.
func (e *EventEngine) Events() []models.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.Event(nil), e.view...)
}

// Watch registers an observer called with each new view snapshot. The
// returned func unregisters it.
func (e *EventEngine) Watch(fn func([]models.Event)) func() {
	e.mu.Lock()
	key := e.nextKey
	e.nextKey++
	e.watchers[key] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.watchers, key)
		e.mu.Unlock()
	}
}

func (e *EventEngine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Err returns the last store, upload, or subscription failure for display.
func (e *EventEngine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Close tears the engine down. Subscription deliveries and mutation results
// arriving afterwards are dropped.
func (e *EventEngine) Close() {
	e.mu.Lock()
	stop := e.stop
	e.stop = nil
	e.state = StateTornDown
	e.watchers = make(map[int]func([]models.Event))
	e.mu.Unlock()

	if stop != nil {
		stop()
	}
}

func (e *EventEngine) recordErr(err error) {
	e.mu.Lock()
	if e.state != StateTornDown {
		e.lastErr = err
	}
	e.mu.Unlock()
}
