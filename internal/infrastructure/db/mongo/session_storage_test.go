package mongo

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

// Runs against the driver's mock deployment; no server is needed.
func TestSessionStorage(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("read without a document is absent", func(mt *mtest.T) {
		s := NewSessionStorage(mt.DB, "desk")
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		v, ok, err := s.Read(ctx, "authToken")
		if err != nil {
			mt.Fatalf("expected no error for a missing document, got %v", err)
		}
		if ok || v != "" {
			mt.Fatalf("expected absent value, got %q (present=%v)", v, ok)
		}
	})

	mt.Run("read returns the stored field", func(mt *mtest.T) {
		s := NewSessionStorage(mt.DB, "desk")
		doc := bson.D{
			{Key: "_id", Value: "desk"},
			{Key: "values", Value: bson.D{{Key: "authToken", Value: "tok-1"}}},
			{Key: "updated_at", Value: int64(1700000000)},
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, doc))

		v, ok, err := s.Read(ctx, "authToken")
		if err != nil || !ok || v != "tok-1" {
			mt.Fatalf("expected tok-1, got %q present=%v err=%v", v, ok, err)
		}

		find := mt.GetStartedEvent()
		if find == nil || find.CommandName != "find" {
			mt.Fatalf("expected a find command, got %+v", find)
		}
		if id := find.Command.Lookup("filter", "_id").StringValue(); id != "desk" {
			mt.Fatalf("expected lookup by profile, got %q", id)
		}
	})

	mt.Run("read of a missing field in an existing document is absent", func(mt *mtest.T) {
		s := NewSessionStorage(mt.DB, "desk")
		doc := bson.D{
			{Key: "_id", Value: "desk"},
			{Key: "values", Value: bson.D{{Key: "authToken", Value: "tok-1"}}},
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, doc))

		if _, ok, err := s.Read(ctx, "authUser"); err != nil || ok {
			mt.Fatalf("expected absent authUser, got present=%v err=%v", ok, err)
		}
	})

	mt.Run("write upserts the profile document", func(mt *mtest.T) {
		s := NewSessionStorage(mt.DB, "desk")
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		if err := s.Write(ctx, "authToken", "tok-1"); err != nil {
			mt.Fatalf("write: %v", err)
		}

		update := firstUpdate(mt)
		if id := update.Lookup("q", "_id").StringValue(); id != "desk" {
			mt.Fatalf("expected filter on profile, got %q", id)
		}
		if up, ok := update.Lookup("upsert").BooleanOK(); !ok || !up {
			mt.Fatalf("expected upsert=true, got %s", update)
		}
		if v := update.Lookup("u", "$set", "values.authToken").StringValue(); v != "tok-1" {
			mt.Fatalf("expected $set of values.authToken, got %s", update)
		}
	})

	mt.Run("clear unsets fields without upserting", func(mt *mtest.T) {
		s := NewSessionStorage(mt.DB, "desk")
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		if err := s.Clear(ctx, "authToken", "authUser"); err != nil {
			mt.Fatalf("clear: %v", err)
		}

		update := firstUpdate(mt)
		unset, ok := update.Lookup("u", "$unset").DocumentOK()
		if !ok {
			mt.Fatalf("expected $unset in update, got %s", update)
		}
		for _, k := range []string{"values.authToken", "values.authUser"} {
			if _, err := unset.LookupErr(k); err != nil {
				mt.Fatalf("expected %s in $unset, got %s", k, unset)
			}
		}
		if up, _ := update.Lookup("upsert").BooleanOK(); up {
			mt.Fatalf("clear must not create a document, got %s", update)
		}
	})

	mt.Run("clear with no keys sends nothing", func(mt *mtest.T) {
		s := NewSessionStorage(mt.DB, "desk")

		if err := s.Clear(ctx); err != nil {
			mt.Fatalf("clear: %v", err)
		}
		if evt := mt.GetStartedEvent(); evt != nil {
			mt.Fatalf("expected no command, got %s", evt.CommandName)
		}
	})

	mt.Run("write failure is reported", func(mt *mtest.T) {
		s := NewSessionStorage(mt.DB, "desk")
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "bad update",
		}))

		if err := s.Write(ctx, "authToken", "tok-1"); err == nil {
			mt.Fatalf("expected write error")
		}
	})
}

func namespace(mt *mtest.T) string {
	return mt.DB.Name() + "." + sessionCollection
}

func firstUpdate(mt *mtest.T) bson.Raw {
	mt.Helper()
	evt := mt.GetStartedEvent()
	if evt == nil || evt.CommandName != "update" {
		mt.Fatalf("expected an update command, got %+v", evt)
	}
	if coll := evt.Command.Lookup("update").StringValue(); coll != sessionCollection {
		mt.Fatalf("expected update on %s, got %s", sessionCollection, coll)
	}
	return evt.Command.Lookup("updates").Array().Index(0).Value().Document()
}
