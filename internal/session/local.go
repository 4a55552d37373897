package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// LocalProvider is an in-memory identity provider for dev and test runs
// without Firebase credentials. Accounts live for the process lifetime.
type LocalProvider struct {
	mu       sync.Mutex
	accounts map[string]*localAccount // email -> account
	current  *Identity
}

type localAccount struct {
	uid          string
	email        string
	passwordHash []byte
}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{
		accounts: make(map[string]*localAccount),
	}
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	if email == "" || password == "" {
		return nil, &AuthError{Reason: "email and password are required"}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.accounts[email]; exists {
		return nil, &AuthError{Reason: "email already registered"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	account := &localAccount{
		uid:          uuid.New().String(),
		email:        email,
		passwordHash: hash,
	}
	p.accounts[email] = account

	p.current = &Identity{UID: account.uid, Email: account.email}
	copied := *p.current
	return &copied, nil
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	account, exists := p.accounts[email]
	if !exists {
		return nil, &AuthError{Reason: "no account for that email"}
	}
	if err := bcrypt.CompareHashAndPassword(account.passwordHash, []byte(password)); err != nil {
		return nil, &AuthError{Reason: "invalid password"}
	}

	p.current = &Identity{UID: account.uid, Email: account.email}
	copied := *p.current
	return &copied, nil
}

func (p *LocalProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = nil
	return nil
}

func (p *LocalProvider) Current() *Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	copied := *p.current
	return &copied
}
