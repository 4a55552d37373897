package assets

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// LocalObjectStore keeps uploads on disk for dev/demo runs without a
// Firebase bucket. The serve command exposes the directory under /uploads/.
type LocalObjectStore struct {
	dir     string
	baseURL string
}

func NewLocalObjectStore(dir, baseURL string) (*LocalObjectStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &LocalObjectStore{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

func (s *LocalObjectStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	path := s.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return err
	}
	return nil
}

func (s *LocalObjectStore) DownloadURL(ctx context.Context, key string) (string, error) {
	if _, err := os.Stat(s.pathFor(key)); err != nil {
		return "", err
	}
	return s.baseURL + "/uploads/" + key, nil
}

// Dir is the directory to serve under /uploads/.
func (s *LocalObjectStore) Dir() string { return s.dir }

func (s *LocalObjectStore) pathFor(key string) string {
	// Keys are two-segment paths like event_images/169...; keep the layout.
	return filepath.Join(s.dir, filepath.FromSlash(key))
}
