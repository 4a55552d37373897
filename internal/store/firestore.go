package store

import (
	"context"
	"log"
	"sync"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore is the production Store backend, talking to the same
// Firestore collections the mobile client wrote.
type FirestoreStore struct {
	client *firestore.Client
}

type FirestoreConfig struct {
	ProjectID       string
	CredentialsJSON string
}

func NewFirestoreStore(ctx context.Context, cfg FirestoreConfig) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, err
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, err
	}

	log.Printf("[store] Firestore connected: project=%s", cfg.ProjectID)
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) Create(ctx context.Context, collection string, fields Fields) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, fields)
	if err != nil {
		return "", storeErr("create", collection, "", err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) Read(ctx context.Context, collection, id string) (Fields, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeErr("read", collection, id, err)
	}
	return snap.Data(), nil
}

func (s *FirestoreStore) Set(ctx context.Context, collection, id string, fields Fields) error {
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, fields); err != nil {
		return storeErr("set", collection, id, err)
	}
	return nil
}

func (s *FirestoreStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	// Full-replace that must target an existing document. Firestore Set
	// would silently create, so check existence first.
	doc := s.client.Collection(collection).Doc(id)
	_, err := doc.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return storeErr("update", collection, id, ErrNotFound)
	}
	if err != nil {
		return storeErr("update", collection, id, err)
	}
	if _, err := doc.Set(ctx, fields); err != nil {
		return storeErr("update", collection, id, err)
	}
	return nil
}

func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	// Firestore's delete of a missing document is already a no-op.
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return storeErr("delete", collection, id, err)
	}
	return nil
}

func (s *FirestoreStore) Subscribe(ctx context.Context, collection string, onChange func([]Document), onError func(error)) (func(), error) {
	subCtx, cancel := context.WithCancel(ctx)
	it := s.client.Collection(collection).Snapshots(subCtx)

	go func() {
		for {
			snap, err := it.Next()
			if err != nil {
				if subCtx.Err() != nil {
					// Torn down locally; not a subscription failure.
					return
				}
				onError(storeErr("subscribe", collection, "", err))
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				if subCtx.Err() != nil {
					return
				}
				onError(storeErr("subscribe", collection, "", err))
				return
			}
			out := make([]Document, 0, len(docs))
			for _, d := range docs {
				out = append(out, Document{ID: d.Ref.ID, Fields: d.Data()})
			}
			onChange(out)
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			it.Stop()
		})
	}
	return stop, nil
}
