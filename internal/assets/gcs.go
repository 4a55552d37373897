package assets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// GCSObjectStore writes to the Firebase Storage bucket and resolves the
// token-based download URLs the mobile client stored in documents.
type GCSObjectStore struct {
	client *storage.Client
	bucket string
}

func NewGCSObjectStore(ctx context.Context, bucket, credentialsJSON string) (*GCSObjectStore, error) {
	var opts []option.ClientOption
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &GCSObjectStore{client: client, bucket: bucket}, nil
}

func (s *GCSObjectStore) Close() error {
	return s.client.Close()
}

func (s *GCSObjectStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	// Firebase download token; an arbitrary per-object string.
	w.Metadata = map[string]string{
		"firebaseStorageDownloadTokens": uuid.New().String(),
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (s *GCSObjectStore) DownloadURL(ctx context.Context, key string) (string, error) {
	obj := s.client.Bucket(s.bucket).Object(key)
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return "", err
	}

	token := attrs.Metadata["firebaseStorageDownloadTokens"]
	if token == "" {
		// Objects uploaded through other paths may lack a token; mint one.
		token = uuid.New().String()
		md := map[string]string{}
		for k, v := range attrs.Metadata {
			md[k] = v
		}
		md["firebaseStorageDownloadTokens"] = token
		if _, err := obj.Update(ctx, storage.ObjectAttrsToUpdate{Metadata: md}); err != nil {
			return "", err
		}
	}

	return firebaseDownloadURL(s.bucket, key, token), nil
}

// firebaseDownloadURL matches the URL shape the Firebase client SDK returns
// from getDownloadURL.
func firebaseDownloadURL(bucket, objectName, token string) string {
	return fmt.Sprintf(
		"https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket,
		url.PathEscape(objectName),
		url.QueryEscape(token),
	)
}
