// Package pipeline denormalizes stored meetings into the views returned to clients.
package pipeline

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"github.com/starford/meetbook/internal/models"
	"github.com/starford/meetbook/internal/store"
)

// UnknownCreator is the display name used when the creating user is missing.
const UnknownCreator = "Unknown"

// Source is the read side of the store the pipeline joins over.
type Source interface {
	FindMeetings(ctx context.Context, f store.Filter) ([]models.Meeting, error)
	FindUsers(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	FindContacts(ctx context.Context, ids []primitive.ObjectID) ([]models.Contact, error)
	FindLeads(ctx context.Context, ids []primitive.ObjectID) ([]models.Lead, error)
}

// Run selects meetings matching f and joins each with its creator,
// contact attendees and lead attendees. Output order follows the source.
// Any lookup failure fails the whole run.
func Run(ctx context.Context, src Source, f store.Filter) ([]models.MeetingView, error) {
	meetings, err := src.FindMeetings(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("pipeline: select meetings: %w", err)
	}
	if len(meetings) == 0 {
		return []models.MeetingView{}, nil
	}

	var creatorIDs, contactIDs, leadIDs idSet
	for i := range meetings {
		creatorIDs.add(meetings[i].CreateBy)
		contactIDs.add(meetings[i].Attendes...)
		leadIDs.add(meetings[i].AttendesLead...)
	}

	var (
		users    map[primitive.ObjectID]models.User
		contacts map[primitive.ObjectID]models.Contact
		leads    map[primitive.ObjectID]models.Lead
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := src.FindUsers(gctx, creatorIDs.ids)
		if err != nil {
			return fmt.Errorf("pipeline: lookup users: %w", err)
		}
		users = index(rows, func(u models.User) primitive.ObjectID { return u.ID })
		return nil
	})
	g.Go(func() error {
		rows, err := src.FindContacts(gctx, contactIDs.ids)
		if err != nil {
			return fmt.Errorf("pipeline: lookup contacts: %w", err)
		}
		contacts = index(rows, func(c models.Contact) primitive.ObjectID { return c.ID })
		return nil
	})
	g.Go(func() error {
		rows, err := src.FindLeads(gctx, leadIDs.ids)
		if err != nil {
			return fmt.Errorf("pipeline: lookup leads: %w", err)
		}
		leads = index(rows, func(l models.Lead) primitive.ObjectID { return l.ID })
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]models.MeetingView, len(meetings))
	for i := range meetings {
		out[i] = project(&meetings[i], users, contacts, leads)
	}
	return out, nil
}

func project(
	m *models.Meeting,
	users map[primitive.ObjectID]models.User,
	contacts map[primitive.ObjectID]models.Contact,
	leads map[primitive.ObjectID]models.Lead,
) models.MeetingView {
	v := models.MeetingView{
		ID:            m.ID,
		Agenda:        m.Agenda,
		Location:      m.Location,
		Related:       m.Related,
		DateTime:      m.DateTime,
		Notes:         m.Notes,
		Timestamp:     m.Timestamp,
		CreatedByName: CreatorName(users, m.CreateBy),
		Attendes:      []models.ContactRef{},
		AttendesLead:  []models.LeadRef{},
	}

	var seen idSet
	for _, id := range m.Attendes {
		c, ok := contacts[id]
		if !ok || !seen.add(id) {
			continue
		}
		v.Attendes = append(v.Attendes, models.ContactRef{ID: c.ID, Email: c.Email})
	}
	seen = idSet{}
	for _, id := range m.AttendesLead {
		l, ok := leads[id]
		if !ok || !seen.add(id) {
			continue
		}
		v.AttendesLead = append(v.AttendesLead, models.LeadRef{ID: l.ID, LeadName: l.LeadName})
	}
	return v
}

// CreatorName renders the creator of a meeting.
func CreatorName(users map[primitive.ObjectID]models.User, id primitive.ObjectID) string {
	u, ok := users[id]
	if !ok {
		return UnknownCreator
	}
	return u.FirstName + " " + u.LastName
}

// idSet collects distinct ids in first-seen order.
type idSet struct {
	seen map[primitive.ObjectID]struct{}
	ids  []primitive.ObjectID
}

// add records ids and reports whether the last one was new.
func (s *idSet) add(ids ...primitive.ObjectID) bool {
	if s.seen == nil {
		s.seen = make(map[primitive.ObjectID]struct{})
	}
	added := false
	for _, id := range ids {
		if _, ok := s.seen[id]; ok {
			added = false
			continue
		}
		s.seen[id] = struct{}{}
		s.ids = append(s.ids, id)
		added = true
	}
	return added
}

func index[T any](rows []T, key func(T) primitive.ObjectID) map[primitive.ObjectID]T {
	out := make(map[primitive.ObjectID]T, len(rows))
	for _, r := range rows {
		out[key(r)] = r
	}
	return out
}
