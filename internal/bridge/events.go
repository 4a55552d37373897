package bridge

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sozial/client/internal/models"
)

type eventsViewResponse struct {
	State  string         `json:"state"`
	Events []models.Event `json:"events"`
	Error  string         `json:"error,omitempty"`
}

func (b *Bridge) handleListEvents(w http.ResponseWriter, r *http.Request) {
	resp := eventsViewResponse{
		State:  b.events.State().String(),
		Events: b.events.Events(),
	}
	if err := b.events.Err(); err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(resp))
}

func (b *Bridge) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var draft models.EventDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if err := b.events.Create(r.Context(), draft); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(nil))
}

func (b *Bridge) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	var draft models.EventDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if err := b.events.Update(r.Context(), eventID, draft); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(nil))
}

func (b *Bridge) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	if err := b.events.Delete(r.Context(), eventID); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(nil))
}

// handleEventStream pushes every view snapshot to the client as a
// server-sent event, starting with the current one.
func (b *Bridge) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	snapshots := make(chan []models.Event, 8)
	unwatch := b.events.Watch(func(view []models.Event) {
		select {
		case snapshots <- view:
		default:
			// A slow consumer skips intermediate snapshots; the next
			// delivery carries the full state anyway.
		}
	})
	defer unwatch()

	send := func(view []models.Event) bool {
		payload, err := json.Marshal(view)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(b.events.Events()) {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case view := <-snapshots:
			if !send(view) {
				return
			}
		}
	}
}
