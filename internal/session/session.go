// Package session wraps the identity provider. An Identity is an explicit
// value acquired at sign-in and handed to store and engine calls; nothing
// reads ambient global auth state.
package session

import "context"

// Identity is the authenticated session handle. UID scopes the profile
// document and object-store keys.
type Identity struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresAt    int64  `json:"expiresAt,omitempty"` // unix seconds
}

// AuthError carries the provider's rejection message verbatim; it is shown
// to the user as-is. No retries happen on top of it.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return "auth: " + e.Reason }

// Provider is the identity boundary: sign-up, sign-in, sign-out and a
// synchronous current-session lookup.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*Identity, error)
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	SignOut(ctx context.Context) error
	Current() *Identity
}
