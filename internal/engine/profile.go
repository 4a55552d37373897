package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/sozial/client/internal/assets"
	"github.com/sozial/client/internal/models"
	"github.com/sozial/client/internal/session"
	"github.com/sozial/client/internal/store"
)

const usersCollection = "users"

// LoadState is the profile view's tri-state flag.
type LoadState int

const (
	ProfileNotLoaded LoadState = iota
	ProfileLoading
	ProfileLoaded
)

// ProfileEngine loads, edits, and persists one user's profile document
// (document id == identity id). A missing document is a valid empty profile,
// not an error: it just means account creation has not completed.
type ProfileEngine struct {
	store  store.Store
	assets *assets.Pipeline

	mu      sync.Mutex
	state   LoadState
	profile models.Profile
	lastErr error
}

func NewProfileEngine(st store.Store, pipeline *assets.Pipeline) *ProfileEngine {
	return &ProfileEngine{store: st, assets: pipeline}
}

// Initialize seeds the profile document at sign-up: name, age, city and the
// identity's email, empty bio, no image.
func (e *ProfileEngine) Initialize(ctx context.Context, ident *session.Identity, seed models.ProfileSeed) error {
	if err := e.store.Set(ctx, usersCollection, ident.UID, seed.Fields(ident.Email)); err != nil {
		e.recordErr(err)
		return err
	}

	e.mu.Lock()
	e.profile = models.Profile{
		UID:   ident.UID,
		Name:  seed.Name,
		Age:   seed.Age,
		City:  seed.City,
		Email: ident.Email,
	}
	e.state = ProfileLoaded
	e.mu.Unlock()
	return nil
}

// Load reads the profile. Absence renders as an empty profile with only the
// identity fields filled in.
func (e *ProfileEngine) Load(ctx context.Context, ident *session.Identity) (models.Profile, error) {
	e.mu.Lock()
	e.state = ProfileLoading
	e.mu.Unlock()

	fields, err := e.store.Read(ctx, usersCollection, ident.UID)
	if errors.Is(err, store.ErrNotFound) {
		empty := models.Profile{UID: ident.UID, Email: ident.Email}
		e.mu.Lock()
		e.profile = empty
		e.state = ProfileLoaded
		e.lastErr = nil
		e.mu.Unlock()
		return empty, nil
	}
	if err != nil {
		e.mu.Lock()
		e.state = ProfileNotLoaded
		e.lastErr = err
		e.mu.Unlock()
		return models.Profile{}, err
	}

	profile := models.ProfileFromFields(ident.UID, fields)
	e.mu.Lock()
	e.profile = profile
	e.state = ProfileLoaded
	e.lastErr = nil
	e.mu.Unlock()
	return profile, nil
}

// Save persists the draft as a full-document replace. The email field is
// round-tripped from the loaded profile because a replace would otherwise
// erase it; same for the image URL when the draft stages no new image. A
// local image is uploaded under the user's fixed key first, so repeated
// uploads overwrite rather than accumulate.
func (e *ProfileEngine) Save(ctx context.Context, ident *session.Identity, draft models.ProfileDraft) error {
	e.mu.Lock()
	loaded := e.state == ProfileLoaded
	current := e.profile
	e.mu.Unlock()

	if !loaded {
		var err error
		if current, err = e.Load(ctx, ident); err != nil {
			return err
		}
	}

	email := current.Email
	if email == "" {
		email = ident.Email
	}

	imageURL := current.ProfileImage
	switch draft.Image.Kind() {
	case models.ImageLocal:
		url, err := e.assets.Upload(ctx, draft.Image, assets.ProfileImageKey(ident.UID))
		if err != nil {
			e.recordErr(err)
			return err
		}
		imageURL = url
	case models.ImageRemote:
		imageURL = draft.Image.URL()
	}

	if err := e.store.Update(ctx, usersCollection, ident.UID, draft.Fields(email, imageURL)); err != nil {
		e.recordErr(err)
		return err
	}

	e.mu.Lock()
	e.profile = models.Profile{
		UID:          ident.UID,
		Name:         draft.Name,
		Age:          draft.Age,
		City:         draft.City,
		Bio:          draft.Bio,
		Email:        email,
		ProfileImage: imageURL,
	}
	e.state = ProfileLoaded
	e.lastErr = nil
	e.mu.Unlock()
	return nil
}

// Profile returns the last loaded profile and the load flag.
func (e *ProfileEngine) Profile() (models.Profile, LoadState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile, e.state
}

func (e *ProfileEngine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *ProfileEngine) recordErr(err error) {
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
}
