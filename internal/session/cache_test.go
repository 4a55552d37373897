package session

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestCacheRoundTrip(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	assert.Equal(t, err, nil)

	none, err := cache.Load()
	assert.Equal(t, err, nil)
	assert.Equal(t, none, (*Identity)(nil))

	ident := &Identity{
		UID:          "uid-1",
		Email:        "ada@example.com",
		IDToken:      "token",
		RefreshToken: "refresh",
		ExpiresAt:    12345,
	}
	assert.Equal(t, cache.Save(ident), nil)

	loaded, err := cache.Load()
	assert.Equal(t, err, nil)
	assert.NotEqual(t, loaded, nil)
	assert.Equal(t, *ident, *loaded)

	assert.Equal(t, cache.Clear(), nil)
	none, err = cache.Load()
	assert.Equal(t, err, nil)
	assert.Equal(t, none, (*Identity)(nil))

	// Clearing twice is fine.
	assert.Equal(t, cache.Clear(), nil)
}
