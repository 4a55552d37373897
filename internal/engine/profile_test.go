package engine

import (
	"context"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/sozial/client/internal/assets"
	"github.com/sozial/client/internal/models"
	"github.com/sozial/client/internal/session"
	"github.com/sozial/client/internal/store"
)

func newProfileEngine(t *testing.T) (*ProfileEngine, *countingStore, *fakeObjects) {
	t.Helper()
	counting := &countingStore{Store: store.NewMemoryStore()}
	objects := &fakeObjects{}
	return NewProfileEngine(counting, assets.NewPipeline(objects)), counting, objects
}

func testIdentity() *session.Identity {
	return &session.Identity{UID: "uid-123", Email: "ada@example.com"}
}

func TestLoadMissingProfileIsEmptyNotError(t *testing.T) {
	e, _, _ := newProfileEngine(t)

	profile, err := e.Load(context.Background(), testIdentity())
	assert.Equal(t, err, nil)
	assert.Equal(t, "uid-123", profile.UID)
	assert.Equal(t, "ada@example.com", profile.Email)
	assert.Equal(t, "", profile.Name)
	assert.Equal(t, "", profile.Bio)

	_, state := e.Profile()
	assert.Equal(t, ProfileLoaded, state)
}

func TestInitializeSeedsProfile(t *testing.T) {
	e, counting, _ := newProfileEngine(t)
	ident := testIdentity()

	seed := models.ProfileSeed{Name: "Ada", Age: "36", City: "London"}
	assert.Equal(t, e.Initialize(context.Background(), ident, seed), nil)

	_, _, _, sets := counting.calls()
	assert.Equal(t, 1, sets)

	profile, err := e.Load(context.Background(), ident)
	assert.Equal(t, err, nil)
	assert.Equal(t, "Ada", profile.Name)
	assert.Equal(t, "36", profile.Age)
	assert.Equal(t, "London", profile.City)
	assert.Equal(t, "", profile.Bio)
	assert.Equal(t, "ada@example.com", profile.Email)
	assert.Equal(t, "", profile.ProfileImage)
}

func TestSaveRoundTripsEveryField(t *testing.T) {
	e, _, _ := newProfileEngine(t)
	ident := testIdentity()

	seed := models.ProfileSeed{Name: "Ada", Age: "36", City: "London"}
	assert.Equal(t, e.Initialize(context.Background(), ident, seed), nil)

	draft := models.ProfileDraft{Name: "Ada L.", Age: "37", City: "Paris", Bio: "mathematician"}
	assert.Equal(t, e.Save(context.Background(), ident, draft), nil)

	profile, err := e.Load(context.Background(), ident)
	assert.Equal(t, err, nil)
	assert.Equal(t, "Ada L.", profile.Name)
	assert.Equal(t, "37", profile.Age)
	assert.Equal(t, "Paris", profile.City)
	assert.Equal(t, "mathematician", profile.Bio)
	// email survives the full-document replace untouched.
	assert.Equal(t, "ada@example.com", profile.Email)
}

func TestProfileImageUploadedUnderFixedKey(t *testing.T) {
	e, _, objects := newProfileEngine(t)
	ident := testIdentity()

	assert.Equal(t, e.Initialize(context.Background(), ident, models.ProfileSeed{Name: "Ada", Age: "36", City: "London"}), nil)

	draft := models.ProfileDraft{Name: "Ada", Age: "36", City: "London", Image: models.LocalImage(tempImage(t))}
	assert.Equal(t, e.Save(context.Background(), ident, draft), nil)

	keys := objects.putKeys()
	assert.Equal(t, 1, len(keys))
	assert.Equal(t, "profile_images/uid-123.jpg", keys[0])

	profile, _ := e.Profile()
	uploadedURL := profile.ProfileImage
	assert.Equal(t, "https://objects.test/profile_images/uid-123.jpg", uploadedURL)

	// Saving again without a new image neither re-uploads nor loses the URL.
	draft.Image = models.NoImage()
	draft.Bio = "updated"
	assert.Equal(t, e.Save(context.Background(), ident, draft), nil)
	assert.Equal(t, 1, len(objects.putKeys()))

	profile, err := e.Load(context.Background(), ident)
	assert.Equal(t, err, nil)
	assert.Equal(t, uploadedURL, profile.ProfileImage)
	assert.Equal(t, "updated", profile.Bio)

	// A second staged image overwrites the same key: still one unique key.
	draft.Image = models.LocalImage(tempImage(t))
	assert.Equal(t, e.Save(context.Background(), ident, draft), nil)
	keys = objects.putKeys()
	assert.Equal(t, 2, len(keys))
	assert.Equal(t, keys[0], keys[1])
}

func TestSaveWithoutExistingDocumentFails(t *testing.T) {
	e, _, _ := newProfileEngine(t)
	ident := testIdentity()

	// No Initialize: the update targets a missing document.
	err := e.Save(context.Background(), ident, models.ProfileDraft{Name: "Ada", Age: "36", City: "London"})
	assert.NotEqual(t, err, nil)
}
