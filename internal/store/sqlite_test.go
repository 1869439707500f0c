package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/starford/meetbook/internal/models"
)

func testSQLite(t *testing.T) *SQLite {
	t.Helper()
	f, err := os.CreateTemp("", "meetbook-test-*.db")
	require.NoError(t, err)
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	s, err := OpenSQLite(f.Name())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newMeeting(owner primitive.ObjectID, agenda string, at time.Time) *models.Meeting {
	return &models.Meeting{
		ID:           primitive.NewObjectID(),
		Agenda:       agenda,
		Attendes:     []primitive.ObjectID{},
		AttendesLead: []primitive.ObjectID{},
		Related:      models.RelatedContact,
		DateTime:     "2026-11-01T10:00",
		CreateBy:     owner,
		Timestamp:    at,
	}
}

func TestSQLiteSchemaCreation(t *testing.T) {
	s := testSQLite(t)
	for _, table := range []string{"meetings", "users", "contacts", "leads"} {
		var n int
		require.NoError(t, s.conn.QueryRow(`SELECT count(*) FROM `+table).Scan(&n), table)
	}
}

func TestSQLiteInsertAndFind(t *testing.T) {
	s := testSQLite(t)
	ctx := context.Background()
	owner := primitive.NewObjectID()
	contact := primitive.NewObjectID()

	m := newMeeting(owner, "Kickoff", time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC))
	m.Attendes = []primitive.ObjectID{contact}
	m.Location = "Room 4"
	m.Notes = "bring slides"
	require.NoError(t, s.InsertMeeting(ctx, m))

	got, err := s.FindMeetings(ctx, Filter{IDs: []primitive.ObjectID{m.ID}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, m.ID, got[0].ID)
	assert.Equal(t, "Kickoff", got[0].Agenda)
	assert.Equal(t, []primitive.ObjectID{contact}, got[0].Attendes)
	assert.Empty(t, got[0].AttendesLead)
	assert.Equal(t, "Room 4", got[0].Location)
	assert.Equal(t, owner, got[0].CreateBy)
	assert.True(t, m.Timestamp.Equal(got[0].Timestamp))
	assert.Equal(t, models.StatusActive, got[0].Status())
}

func TestSQLiteFilterByOwnerAndStatus(t *testing.T) {
	s := testSQLite(t)
	ctx := context.Background()
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
	now := time.Now()

	a1 := newMeeting(alice, "a1", now)
	a2 := newMeeting(alice, "a2", now)
	b1 := newMeeting(bob, "b1", now)
	for _, m := range []*models.Meeting{a1, a2, b1} {
		require.NoError(t, s.InsertMeeting(ctx, m))
	}

	n, err := s.SoftDelete(ctx, Filter{IDs: []primitive.ObjectID{a2.ID}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	active, err := s.FindMeetings(ctx, Filter{CreateBy: OwnedBy(alice), Status: models.StatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, a1.ID, active[0].ID)

	all, err := s.FindMeetings(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	deleted, err := s.FindMeetings(ctx, Filter{Status: models.StatusDeleted})
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, a2.ID, deleted[0].ID)
}

func TestSQLiteSoftDeleteCountsOnlyTransitions(t *testing.T) {
	s := testSQLite(t)
	ctx := context.Background()
	owner := primitive.NewObjectID()
	m1 := newMeeting(owner, "one", time.Now())
	m2 := newMeeting(owner, "two", time.Now())
	require.NoError(t, s.InsertMeeting(ctx, m1))
	require.NoError(t, s.InsertMeeting(ctx, m2))

	n, err := s.SoftDelete(ctx, Filter{IDs: []primitive.ObjectID{m1.ID}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.SoftDelete(ctx, Filter{IDs: []primitive.ObjectID{m1.ID, m2.ID, primitive.NewObjectID()}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "already deleted and unknown ids do not count")

	n, err = s.SoftDelete(ctx, Filter{IDs: []primitive.ObjectID{m1.ID}})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteSoftDeleteScopedByOwner(t *testing.T) {
	s := testSQLite(t)
	ctx := context.Background()
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
	m := newMeeting(alice, "private", time.Now())
	require.NoError(t, s.InsertMeeting(ctx, m))

	n, err := s.SoftDelete(ctx, Filter{IDs: []primitive.ObjectID{m.ID}, CreateBy: OwnedBy(bob)})
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := s.FindMeetings(ctx, Filter{IDs: []primitive.ObjectID{m.ID}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Deleted)
}

func TestSQLiteZeroOwnerMatchesNothing(t *testing.T) {
	s := testSQLite(t)
	ctx := context.Background()
	m := newMeeting(primitive.NewObjectID(), "private", time.Now())
	require.NoError(t, s.InsertMeeting(ctx, m))

	got, err := s.FindMeetings(ctx, Filter{CreateBy: OwnedBy(primitive.NilObjectID)})
	require.NoError(t, err)
	assert.Empty(t, got)

	n, err := s.SoftDelete(ctx, Filter{IDs: []primitive.ObjectID{m.ID}, CreateBy: OwnedBy(primitive.NilObjectID)})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteDirectoryUpsertAndFind(t *testing.T) {
	s := testSQLite(t)
	ctx := context.Background()

	u := models.User{ID: primitive.NewObjectID(), FirstName: "Ada", LastName: "Lovelace", Role: "user"}
	c := models.Contact{ID: primitive.NewObjectID(), Email: "c@example.com"}
	l := models.Lead{ID: primitive.NewObjectID(), LeadName: "Acme"}
	require.NoError(t, s.UpsertUser(ctx, u))
	require.NoError(t, s.UpsertContact(ctx, c))
	require.NoError(t, s.UpsertLead(ctx, l))

	u.LastName = "King"
	require.NoError(t, s.UpsertUser(ctx, u))

	users, err := s.FindUsers(ctx, []primitive.ObjectID{u.ID, primitive.NewObjectID()})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "King", users[0].LastName)

	contacts, err := s.FindContacts(ctx, []primitive.ObjectID{c.ID})
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "c@example.com", contacts[0].Email)

	leads, err := s.FindLeads(ctx, []primitive.ObjectID{l.ID})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "Acme", leads[0].LeadName)

	none, err := s.FindLeads(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
