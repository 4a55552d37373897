package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func fakeAuthServer(t *testing.T) (*httptest.Server, *FirebaseProvider) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/accounts:signUp", func(w http.ResponseWriter, r *http.Request) {
		var req passwordAuthRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Email == "taken@example.com" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]interface{}{"message": "EMAIL_EXISTS"},
			})
			return
		}
		json.NewEncoder(w).Encode(passwordAuthResponse{
			LocalID:      "uid-500",
			Email:        req.Email,
			IDToken:      "opaque-id-token",
			RefreshToken: "refresh-1",
			ExpiresIn:    "3600",
		})
	})
	mux.HandleFunc("/accounts:signInWithPassword", func(w http.ResponseWriter, r *http.Request) {
		var req passwordAuthRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "hunter22" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]interface{}{"message": "INVALID_LOGIN_CREDENTIALS"},
			})
			return
		}
		json.NewEncoder(w).Encode(passwordAuthResponse{
			LocalID:      "uid-500",
			Email:        req.Email,
			IDToken:      "opaque-id-token",
			RefreshToken: "refresh-1",
			ExpiresIn:    "3600",
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") == "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]interface{}{"message": "INVALID_REFRESH_TOKEN"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"id_token":      "fresh-id-token",
			"refresh_token": "refresh-2",
			"user_id":       "uid-500",
			"expires_in":    "3600",
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := NewFirebaseProvider("test-api-key")
	p.Endpoint = srv.URL
	p.TokenEndpoint = srv.URL
	return srv, p
}

func TestFirebaseSignUp(t *testing.T) {
	_, p := fakeAuthServer(t)

	ident, err := p.SignUp(context.Background(), "ada@example.com", "hunter22")
	assert.Equal(t, err, nil)
	assert.Equal(t, "uid-500", ident.UID)
	assert.Equal(t, "ada@example.com", ident.Email)
	assert.Equal(t, "opaque-id-token", ident.IDToken)

	// The opaque token has no exp claim, so expiry falls back to expiresIn.
	leeway := time.Now().Unix() + 3600 - ident.ExpiresAt
	assert.Equal(t, leeway >= 0 && leeway < 5, true)

	current := p.Current()
	assert.NotEqual(t, current, nil)
	assert.Equal(t, "uid-500", current.UID)
}

func TestFirebaseAuthErrorSurfacedVerbatim(t *testing.T) {
	_, p := fakeAuthServer(t)

	_, err := p.SignUp(context.Background(), "taken@example.com", "hunter22")
	var authErr *AuthError
	assert.Equal(t, errors.As(err, &authErr), true)
	assert.Equal(t, "EMAIL_EXISTS", authErr.Reason)

	_, err = p.SignIn(context.Background(), "ada@example.com", "wrong")
	assert.Equal(t, errors.As(err, &authErr), true)
	assert.Equal(t, "INVALID_LOGIN_CREDENTIALS", authErr.Reason)
}

func TestFirebaseSignOutClearsSession(t *testing.T) {
	_, p := fakeAuthServer(t)

	_, err := p.SignIn(context.Background(), "ada@example.com", "hunter22")
	assert.Equal(t, err, nil)
	assert.NotEqual(t, p.Current(), nil)

	assert.Equal(t, p.SignOut(context.Background()), nil)
	assert.Equal(t, p.Current(), (*Identity)(nil))
}

func TestFirebaseRefreshStaleSession(t *testing.T) {
	_, p := fakeAuthServer(t)

	stale := &Identity{
		UID:          "uid-500",
		Email:        "ada@example.com",
		IDToken:      "opaque-id-token",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Unix() - 10,
	}
	assert.Equal(t, p.Restore(context.Background(), stale), nil)

	current := p.Current()
	assert.NotEqual(t, current, nil)
	assert.Equal(t, "fresh-id-token", current.IDToken)
	assert.Equal(t, "refresh-2", current.RefreshToken)
	assert.Equal(t, current.ExpiresAt > time.Now().Unix(), true)
}

func TestFirebaseRefreshSkippedWhenFresh(t *testing.T) {
	srv, p := fakeAuthServer(t)

	// Point the token endpoint somewhere unreachable; a fresh session must
	// not touch it.
	p.TokenEndpoint = strings.TrimSuffix(srv.URL, "/") + "/nowhere"

	fresh := &Identity{
		UID:          "uid-500",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Unix() + 3600,
	}
	assert.Equal(t, p.Restore(context.Background(), fresh), nil)
	assert.Equal(t, "uid-500", p.Current().UID)
}
