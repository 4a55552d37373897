package bridge

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sozial/client/internal/assets"
	"github.com/sozial/client/internal/models"
	"github.com/sozial/client/internal/session"
	"github.com/sozial/client/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError maps the error taxonomy onto HTTP statuses. Every failure is
// surfaced once, with the originating message.
func respondError(w http.ResponseWriter, err error) {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(validationErr.Fields))
		return
	}

	var authErr *session.AuthError
	if errors.As(err, &authErr) {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse(authErr.Reason))
		return
	}

	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Not found"))
		return
	}

	var uploadErr *assets.UploadError
	if errors.As(err, &uploadErr) {
		writeJSON(w, http.StatusBadGateway, models.NewErrorResponse(uploadErr.Error()))
		return
	}

	writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse(err.Error()))
}
