package store

import (
	"context"
	"crypto/tls"
	"log"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is an alternative Store backend for deployments that keep the
// document collections in MongoDB instead of Firestore. Subscriptions are
// driven by change streams, so the cluster must be a replica set.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(ctx context.Context, mongoURI, dbName string) (*MongoStore, error) {
	// Atlas occasionally fails TLS negotiation unless TLS 1.2 is forced.
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI).SetTLSConfig(tlsCfg))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	log.Printf("[store] MongoDB connected: db=%s", dbName)
	return &MongoStore{
		client: client,
		db:     client.Database(dbName),
	}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Create(ctx context.Context, collection string, fields Fields) (string, error) {
	res, err := s.db.Collection(collection).InsertOne(ctx, bson.M(fields))
	if err != nil {
		return "", storeErr("create", collection, "", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", storeErr("create", collection, "", ErrNotFound)
	}
	return oid.Hex(), nil
}

func (s *MongoStore) Read(ctx context.Context, collection, id string) (Fields, error) {
	var doc bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": mongoID(id)}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeErr("read", collection, id, err)
	}
	delete(doc, "_id")
	return Fields(doc), nil
}

func (s *MongoStore) Set(ctx context.Context, collection, id string, fields Fields) error {
	_, err := s.db.Collection(collection).ReplaceOne(
		ctx,
		bson.M{"_id": mongoID(id)},
		bson.M(fields),
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return storeErr("set", collection, id, err)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	res, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": mongoID(id)}, bson.M(fields))
	if err != nil {
		return storeErr("update", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return storeErr("update", collection, id, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	// DeleteOne of a missing document matches nothing, which is the
	// idempotent no-op callers expect.
	if _, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": mongoID(id)}); err != nil {
		return storeErr("delete", collection, id, err)
	}
	return nil
}

func (s *MongoStore) Subscribe(ctx context.Context, collection string, onChange func([]Document), onError func(error)) (func(), error) {
	col := s.db.Collection(collection)

	subCtx, cancel := context.WithCancel(ctx)
	stream, err := col.Watch(subCtx, mongo.Pipeline{})
	if err != nil {
		cancel()
		return nil, storeErr("subscribe", collection, "", err)
	}

	snap, err := s.fullSnapshot(subCtx, collection)
	if err != nil {
		stream.Close(subCtx)
		cancel()
		return nil, err
	}
	onChange(snap)

	go func() {
		defer stream.Close(context.Background())
		for stream.Next(subCtx) {
			// Any change event triggers a fresh full-collection snapshot;
			// the engine never sees partial deltas.
			snap, err := s.fullSnapshot(subCtx, collection)
			if err != nil {
				if subCtx.Err() != nil {
					return
				}
				onError(err)
				return
			}
			onChange(snap)
		}
		if err := stream.Err(); err != nil && subCtx.Err() == nil {
			onError(storeErr("subscribe", collection, "", err))
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(cancel)
	}
	return stop, nil
}

func (s *MongoStore) fullSnapshot(ctx context.Context, collection string) ([]Document, error) {
	cur, err := s.db.Collection(collection).Find(ctx, bson.M{})
	if err != nil {
		return nil, storeErr("subscribe", collection, "", err)
	}
	defer cur.Close(ctx)

	var out []Document
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, storeErr("subscribe", collection, "", err)
		}
		id := mongoIDString(doc["_id"])
		delete(doc, "_id")
		out = append(out, Document{ID: id, Fields: Fields(doc)})
	}
	if err := cur.Err(); err != nil {
		return nil, storeErr("subscribe", collection, "", err)
	}
	return out, nil
}

// mongoID maps the opaque string ids used everywhere else onto Mongo _id
// values: hex ObjectIDs for store-assigned ids, raw strings for
// caller-chosen ones (profile documents keyed by identity id).
func mongoID(id string) interface{} {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

func mongoIDString(raw interface{}) string {
	switch v := raw.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	default:
		return ""
	}
}
