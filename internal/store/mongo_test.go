package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/starford/meetbook/internal/models"
)

// Set MEETBOOK_TEST_MONGO_URI to run these against a live server.
func testMongo(t *testing.T) *Mongo {
	t.Helper()
	uri := os.Getenv("MEETBOOK_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("MEETBOOK_TEST_MONGO_URI not set")
	}
	db := "meetbook_test_" + primitive.NewObjectID().Hex()
	s, err := OpenMongo(context.Background(), uri, db, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.db.Drop(context.Background())
		s.Close()
	})
	return s
}

func TestMongoMeetingLifecycle(t *testing.T) {
	s := testMongo(t)
	ctx := context.Background()
	owner := primitive.NewObjectID()

	m := newMeeting(owner, "Mongo kickoff", time.Now().UTC().Truncate(time.Millisecond))
	require.NoError(t, s.InsertMeeting(ctx, m))

	got, err := s.FindMeetings(ctx, Filter{CreateBy: OwnedBy(owner), Status: models.StatusActive})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Mongo kickoff", got[0].Agenda)

	n, err := s.SoftDelete(ctx, Filter{IDs: []primitive.ObjectID{m.ID}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.SoftDelete(ctx, Filter{IDs: []primitive.ObjectID{m.ID}})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMongoDirectory(t *testing.T) {
	s := testMongo(t)
	ctx := context.Background()
	u := models.User{ID: primitive.NewObjectID(), FirstName: "Grace", LastName: "Hopper"}
	require.NoError(t, s.UpsertUser(ctx, u))
	require.NoError(t, s.UpsertUser(ctx, u))

	users, err := s.FindUsers(ctx, []primitive.ObjectID{u.ID})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Grace", users[0].FirstName)

	contacts := s.db.Collection(contactsCollection)
	cid := primitive.NewObjectID()
	_, err = contacts.InsertOne(ctx, bson.M{"_id": cid, "email": "old@example.com", "phoneNumber": "555-0100"})
	require.NoError(t, err)
	require.NoError(t, s.UpsertContact(ctx, models.Contact{ID: cid, Email: "new@example.com"}))

	var raw bson.M
	require.NoError(t, contacts.FindOne(ctx, bson.M{"_id": cid}).Decode(&raw))
	assert.Equal(t, "new@example.com", raw["email"])
	assert.Equal(t, "555-0100", raw["phoneNumber"], "fields outside the model survive")

	lid := primitive.NewObjectID()
	require.NoError(t, s.UpsertLead(ctx, models.Lead{ID: lid}))
	leads, err := s.FindLeads(ctx, []primitive.ObjectID{lid})
	require.NoError(t, err)
	assert.Len(t, leads, 1)
}
