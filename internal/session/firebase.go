package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	identityToolkitEndpoint = "https://identitytoolkit.googleapis.com/v1"
	secureTokenEndpoint     = "https://securetoken.googleapis.com/v1"
)

// FirebaseProvider authenticates against the Firebase Auth REST API with the
// project's web API key, the same surface the mobile client used.
type FirebaseProvider struct {
	APIKey        string
	HTTPClient    *http.Client
	Endpoint      string
	TokenEndpoint string

	mu      sync.Mutex
	current *Identity
}

func NewFirebaseProvider(apiKey string) *FirebaseProvider {
	return &FirebaseProvider{
		APIKey:        apiKey,
		Endpoint:      identityToolkitEndpoint,
		TokenEndpoint: secureTokenEndpoint,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type passwordAuthRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type passwordAuthResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type firebaseErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *FirebaseProvider) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	return p.passwordAuth(ctx, "accounts:signUp", email, password)
}

func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	return p.passwordAuth(ctx, "accounts:signInWithPassword", email, password)
}

func (p *FirebaseProvider) passwordAuth(ctx context.Context, action, email, password string) (*Identity, error) {
	var out passwordAuthResponse
	err := p.post(ctx, fmt.Sprintf("%s/%s?key=%s", p.Endpoint, action, url.QueryEscape(p.APIKey)),
		passwordAuthRequest{Email: email, Password: password, ReturnSecureToken: true}, &out)
	if err != nil {
		return nil, err
	}

	ident := identityFromAuthResponse(out)
	p.mu.Lock()
	p.current = ident
	p.mu.Unlock()

	copied := *ident
	return &copied, nil
}

// SignOut invalidates the local session. Firebase password sessions are
// stateless on the server, so there is no transport call to fail.
func (p *FirebaseProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	return nil
}

func (p *FirebaseProvider) Current() *Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	copied := *p.current
	return &copied
}

// Restore installs a previously cached identity, refreshing it when the ID
// token is stale.
func (p *FirebaseProvider) Restore(ctx context.Context, ident *Identity) error {
	p.mu.Lock()
	copied := *ident
	p.current = &copied
	p.mu.Unlock()
	return p.RefreshIfNeeded(ctx)
}

// RefreshIfNeeded exchanges the refresh token for a new ID token when the
// current one expires within a minute. Mirrors the client SDK's silent
// refresh.
func (p *FirebaseProvider) RefreshIfNeeded(ctx context.Context) error {
	p.mu.Lock()
	ident := p.current
	p.mu.Unlock()
	if ident == nil {
		return &AuthError{Reason: "no active session"}
	}
	if !tokenStale(ident) {
		return nil
	}
	if ident.RefreshToken == "" {
		return &AuthError{Reason: "session expired"}
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", ident.RefreshToken)

	endpoint := fmt.Sprintf("%s/token?key=%s", p.TokenEndpoint, url.QueryEscape(p.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return &AuthError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	var out struct {
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		UserID       string `json:"user_id"`
		ExpiresIn    string `json:"expires_in"`
	}
	if resp.StatusCode != http.StatusOK {
		var fbErr firebaseErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&fbErr)
		return &AuthError{Reason: authReason(fbErr, resp.StatusCode)}
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return &AuthError{Reason: err.Error()}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		// Signed out while the refresh was in flight.
		return nil
	}
	p.current.IDToken = out.IDToken
	p.current.RefreshToken = out.RefreshToken
	if out.UserID != "" {
		p.current.UID = out.UserID
	}
	p.current.ExpiresAt = expiryFrom(out.IDToken, out.ExpiresIn)
	return nil
}

func (p *FirebaseProvider) post(ctx context.Context, endpoint string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return &AuthError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var fbErr firebaseErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&fbErr)
		return &AuthError{Reason: authReason(fbErr, resp.StatusCode)}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (p *FirebaseProvider) httpClient() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}

func authReason(fbErr firebaseErrorResponse, status int) string {
	if fbErr.Error.Message != "" {
		return fbErr.Error.Message
	}
	return fmt.Sprintf("auth endpoint returned http %d", status)
}

func identityFromAuthResponse(out passwordAuthResponse) *Identity {
	return &Identity{
		UID:          out.LocalID,
		Email:        out.Email,
		IDToken:      out.IDToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    expiryFrom(out.IDToken, out.ExpiresIn),
	}
}

// expiryFrom prefers the exp claim inside the ID token and falls back to the
// expiresIn duration from the auth response. The token arrived from the
// issuer over TLS, so an unverified parse is fine for reading expiry.
func expiryFrom(idToken, expiresIn string) int64 {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Unix()
		}
	}
	if secs, err := strconv.ParseInt(expiresIn, 10, 64); err == nil {
		return time.Now().Unix() + secs
	}
	return 0
}

func tokenStale(ident *Identity) bool {
	if ident.ExpiresAt == 0 {
		return false
	}
	return time.Now().Unix() >= ident.ExpiresAt-60
}
