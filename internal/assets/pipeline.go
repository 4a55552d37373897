// Package assets uploads locally picked images to the object store and
// resolves stable download URLs for them.
package assets

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/sozial/client/internal/models"
)

// UploadError wraps any object-store I/O failure. Partial uploads are not
// resumed; a retry starts over.
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// ObjectStore is the binary blob boundary: put bytes under a key and resolve
// a fetchable URL for that key.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	DownloadURL(ctx context.Context, key string) (string, error)
}

type Pipeline struct {
	objects ObjectStore
}

func NewPipeline(objects ObjectStore) *Pipeline {
	return &Pipeline{objects: objects}
}

// Upload reads a local image and writes it under key, returning the resolved
// URL. Only local refs go through here; a remote ref is a caller bug (it is
// already uploaded) and is rejected before any I/O.
func (p *Pipeline) Upload(ctx context.Context, img models.ImageRef, key string) (string, error) {
	if !img.IsLocal() {
		return "", &UploadError{Key: key, Err: fmt.Errorf("image ref is not local: %q", img.String())}
	}

	data, err := os.ReadFile(img.Path())
	if err != nil {
		return "", &UploadError{Key: key, Err: err}
	}

	if err := p.objects.Put(ctx, key, contentTypeFor(img.Path()), data); err != nil {
		return "", &UploadError{Key: key, Err: err}
	}

	url, err := p.objects.DownloadURL(ctx, key)
	if err != nil {
		return "", &UploadError{Key: key, Err: err}
	}
	return url, nil
}

// EventImageKey derives a key from the wall clock; event photos are never
// overwritten, they just accumulate under unique timestamps.
func EventImageKey(now time.Time) string {
	return fmt.Sprintf("event_images/%d", now.UnixMilli())
}

// ProfileImageKey is fixed per user: a second upload overwrites the first,
// so storage does not grow per user.
func ProfileImageKey(uid string) string {
	return "profile_images/" + uid + ".jpg"
}

// FromFile builds a local image ref for a picker result, verifying the file
// exists. Cancelling the pick is represented by never calling this.
func FromFile(path string) (models.ImageRef, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.NoImage(), err
	}
	if info.IsDir() {
		return models.NoImage(), fmt.Errorf("%s is a directory", path)
	}
	return models.LocalImage(path), nil
}

func contentTypeFor(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "image/jpeg"
}
