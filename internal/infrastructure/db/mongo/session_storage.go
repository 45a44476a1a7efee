package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sessionCollection = "client_sessions"

// SessionStorage keeps one document per profile; each session key is a field
// of the document's values map.
type SessionStorage struct {
	coll    *mongo.Collection
	profile string
}

func NewSessionStorage(db *mongo.Database, profile string) *SessionStorage {
	return &SessionStorage{coll: db.Collection(sessionCollection), profile: profile}
}

type sessionDocument struct {
	Profile   string            `bson:"_id"`
	Values    map[string]string `bson:"values"`
	UpdatedAt int64             `bson:"updated_at"`
}

func (s *SessionStorage) Read(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc sessionDocument
	if err := s.coll.FindOne(ctx, bson.M{"_id": s.profile}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("find session: %w", err)
	}
	v, ok := doc.Values[key]
	return v, ok, nil
}

func (s *SessionStorage) Write(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"values." + key: value,
		"updated_at":    time.Now().UTC().Unix(),
	}}
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": s.profile}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (s *SessionStorage) Clear(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	unset := bson.M{}
	for _, k := range keys {
		unset["values."+k] = ""
	}
	update := bson.M{
		"$unset": unset,
		"$set":   bson.M{"updated_at": time.Now().UTC().Unix()},
	}
	if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": s.profile}, update); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
