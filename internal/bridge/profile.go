package bridge

import (
	"encoding/json"
	"net/http"

	"github.com/sozial/client/internal/models"
)

func (b *Bridge) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ident := b.sessions.Current()
	if ident == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Not signed in"))
		return
	}

	profile, err := b.profile.Load(r.Context(), ident)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(profile))
}

func (b *Bridge) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	ident := b.sessions.Current()
	if ident == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Not signed in"))
		return
	}

	var draft models.ProfileDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if err := b.profile.Save(r.Context(), ident, draft); err != nil {
		respondError(w, err)
		return
	}

	profile, _ := b.profile.Profile()
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(profile))
}
