package session

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestLocalSignUpAndSignIn(t *testing.T) {
	p := NewLocalProvider()
	ctx := context.Background()

	ident, err := p.SignUp(ctx, "ada@example.com", "hunter22")
	assert.Equal(t, err, nil)
	assert.NotEqual(t, "", ident.UID)
	assert.Equal(t, "ada@example.com", ident.Email)

	current := p.Current()
	assert.NotEqual(t, current, nil)
	assert.Equal(t, ident.UID, current.UID)

	assert.Equal(t, p.SignOut(ctx), nil)
	assert.Equal(t, p.Current(), (*Identity)(nil))

	again, err := p.SignIn(ctx, "ada@example.com", "hunter22")
	assert.Equal(t, err, nil)
	assert.Equal(t, ident.UID, again.UID)
}

func TestLocalDuplicateEmailRejected(t *testing.T) {
	p := NewLocalProvider()
	ctx := context.Background()

	_, err := p.SignUp(ctx, "ada@example.com", "hunter22")
	assert.Equal(t, err, nil)

	_, err = p.SignUp(ctx, "ada@example.com", "other")
	var authErr *AuthError
	assert.Equal(t, errors.As(err, &authErr), true)
	assert.Equal(t, "email already registered", authErr.Reason)
}

func TestLocalWrongPassword(t *testing.T) {
	p := NewLocalProvider()
	ctx := context.Background()

	_, err := p.SignUp(ctx, "ada@example.com", "hunter22")
	assert.Equal(t, err, nil)

	_, err = p.SignIn(ctx, "ada@example.com", "wrong")
	var authErr *AuthError
	assert.Equal(t, errors.As(err, &authErr), true)

	_, err = p.SignIn(ctx, "nobody@example.com", "hunter22")
	assert.Equal(t, errors.As(err, &authErr), true)
}
