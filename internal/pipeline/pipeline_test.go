package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/starford/meetbook/internal/models"
	"github.com/starford/meetbook/internal/store"
)

type fakeSource struct {
	meetings []models.Meeting
	users    []models.User
	contacts []models.Contact
	leads    []models.Lead

	contactsErr error
	lastFilter  store.Filter
	lookups     atomic.Int32
}

func (f *fakeSource) FindMeetings(_ context.Context, flt store.Filter) ([]models.Meeting, error) {
	f.lastFilter = flt
	return f.meetings, nil
}

func (f *fakeSource) FindUsers(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	f.lookups.Add(1)
	return pick(f.users, ids, func(u models.User) primitive.ObjectID { return u.ID }), nil
}

func (f *fakeSource) FindContacts(_ context.Context, ids []primitive.ObjectID) ([]models.Contact, error) {
	f.lookups.Add(1)
	if f.contactsErr != nil {
		return nil, f.contactsErr
	}
	return pick(f.contacts, ids, func(c models.Contact) primitive.ObjectID { return c.ID }), nil
}

func (f *fakeSource) FindLeads(_ context.Context, ids []primitive.ObjectID) ([]models.Lead, error) {
	f.lookups.Add(1)
	return pick(f.leads, ids, func(l models.Lead) primitive.ObjectID { return l.ID }), nil
}

func pick[T any](rows []T, ids []primitive.ObjectID, key func(T) primitive.ObjectID) []T {
	want := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []T
	for _, r := range rows {
		if want[key(r)] {
			out = append(out, r)
		}
	}
	return out
}

func TestRunJoinsCreatorAndAttendees(t *testing.T) {
	creator := models.User{ID: primitive.NewObjectID(), FirstName: "Ada", LastName: "Lovelace"}
	c1 := models.Contact{ID: primitive.NewObjectID(), Email: "one@example.com"}
	c2 := models.Contact{ID: primitive.NewObjectID(), Email: "two@example.com"}
	lead := models.Lead{ID: primitive.NewObjectID(), LeadName: "Acme"}
	missing := primitive.NewObjectID()

	m := models.Meeting{
		ID:           primitive.NewObjectID(),
		Agenda:       "Quarterly review",
		Attendes:     []primitive.ObjectID{c2.ID, missing, c1.ID, c2.ID},
		AttendesLead: []primitive.ObjectID{lead.ID},
		Location:     "HQ",
		Related:      models.RelatedContact,
		DateTime:     "2026-11-02T09:30",
		Notes:        "agenda attached",
		CreateBy:     creator.ID,
		Timestamp:    time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	}
	src := &fakeSource{
		meetings: []models.Meeting{m},
		users:    []models.User{creator},
		contacts: []models.Contact{c1, c2},
		leads:    []models.Lead{lead},
	}

	views, err := Run(context.Background(), src, store.Filter{IDs: []primitive.ObjectID{m.ID}})
	require.NoError(t, err)
	require.Len(t, views, 1)

	v := views[0]
	assert.Equal(t, m.ID, v.ID)
	assert.Equal(t, "Ada Lovelace", v.CreatedByName)
	assert.Equal(t, "Quarterly review", v.Agenda)
	assert.Equal(t, "HQ", v.Location)
	assert.Equal(t, "agenda attached", v.Notes)
	assert.Equal(t, []models.ContactRef{
		{ID: c2.ID, Email: "two@example.com"},
		{ID: c1.ID, Email: "one@example.com"},
	}, v.Attendes, "missing ids dropped, order kept, duplicates collapsed")
	assert.Equal(t, []models.LeadRef{{ID: lead.ID, LeadName: "Acme"}}, v.AttendesLead)
	assert.Equal(t, []primitive.ObjectID{m.ID}, src.lastFilter.IDs)
}

func TestRunUnknownCreator(t *testing.T) {
	src := &fakeSource{meetings: []models.Meeting{{
		ID:       primitive.NewObjectID(),
		Agenda:   "Orphan",
		Related:  models.RelatedLead,
		CreateBy: primitive.NewObjectID(),
	}}}

	views, err := Run(context.Background(), src, store.Filter{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, UnknownCreator, views[0].CreatedByName)
	assert.NotNil(t, views[0].Attendes)
	assert.Empty(t, views[0].Attendes)
	assert.NotNil(t, views[0].AttendesLead)
}

func TestRunCreatorWithMissingNameParts(t *testing.T) {
	u := models.User{ID: primitive.NewObjectID(), FirstName: "Solo"}
	src := &fakeSource{
		meetings: []models.Meeting{{ID: primitive.NewObjectID(), CreateBy: u.ID}},
		users:    []models.User{u},
	}
	views, err := Run(context.Background(), src, store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, "Solo ", views[0].CreatedByName)
}

func TestRunBatchesLookups(t *testing.T) {
	owner := models.User{ID: primitive.NewObjectID(), FirstName: "A", LastName: "B"}
	var meetings []models.Meeting
	for i := 0; i < 10; i++ {
		meetings = append(meetings, models.Meeting{ID: primitive.NewObjectID(), CreateBy: owner.ID})
	}
	src := &fakeSource{meetings: meetings, users: []models.User{owner}}

	views, err := Run(context.Background(), src, store.Filter{})
	require.NoError(t, err)
	assert.Len(t, views, 10)
	assert.EqualValues(t, 3, src.lookups.Load(), "one lookup per directory collection")
	for _, v := range views {
		assert.Equal(t, "A B", v.CreatedByName)
	}
}

func TestRunFailsWhole(t *testing.T) {
	src := &fakeSource{
		meetings:    []models.Meeting{{ID: primitive.NewObjectID(), CreateBy: primitive.NewObjectID()}},
		contactsErr: errors.New("contacts offline"),
	}
	views, err := Run(context.Background(), src, store.Filter{})
	require.Error(t, err)
	assert.Nil(t, views)
	assert.Contains(t, err.Error(), "contacts offline")
}

func TestRunEmpty(t *testing.T) {
	views, err := Run(context.Background(), &fakeSource{}, store.Filter{})
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}
