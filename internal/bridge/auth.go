package bridge

import (
	"encoding/json"
	"net/http"

	"github.com/sozial/client/internal/models"
	"github.com/sozial/client/internal/session"
)

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Age      string `json:"age"`
	City     string `json:"city"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (b *Bridge) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	ident, err := b.sessions.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}

	seed := models.ProfileSeed{Name: req.Name, Age: req.Age, City: req.City}
	if err := b.profile.Initialize(r.Context(), ident, seed); err != nil {
		// The account exists but its profile document does not; surface the
		// store failure so the UI can retry profile creation.
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(publicIdentity(ident)))
}

func (b *Bridge) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	ident, err := b.sessions.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(publicIdentity(ident)))
}

func (b *Bridge) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := b.sessions.SignOut(r.Context()); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(nil))
}

func (b *Bridge) handleSession(w http.ResponseWriter, r *http.Request) {
	ident := b.sessions.Current()
	if ident == nil {
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(nil))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(publicIdentity(ident)))
}

type identityResponse struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// publicIdentity strips the tokens; the UI process never needs them.
func publicIdentity(ident *session.Identity) identityResponse {
	return identityResponse{UID: ident.UID, Email: ident.Email}
}
