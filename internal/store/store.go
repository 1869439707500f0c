// Package store persists meetings and the CRM directory records they reference.
package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/starford/meetbook/internal/models"
)

// Filter selects meetings. Empty IDs, a nil CreateBy and an empty Status do
// not constrain the match.
type Filter struct {
	IDs      []primitive.ObjectID
	CreateBy *primitive.ObjectID
	Status   models.Status
}

// OwnedBy returns a CreateBy value matching meetings created by id.
func OwnedBy(id primitive.ObjectID) *primitive.ObjectID {
	return &id
}

// Store is the persistence contract used by the meeting service and the
// aggregation pipeline. Consumers should depend on this interface rather
// than a concrete backend.
type Store interface {
	InsertMeeting(ctx context.Context, m *models.Meeting) error
	FindMeetings(ctx context.Context, f Filter) ([]models.Meeting, error)
	// SoftDelete flags every active meeting matching f as deleted and
	// returns how many records changed state.
	SoftDelete(ctx context.Context, f Filter) (int64, error)

	FindUsers(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	FindContacts(ctx context.Context, ids []primitive.ObjectID) ([]models.Contact, error)
	FindLeads(ctx context.Context, ids []primitive.ObjectID) ([]models.Lead, error)

	UpsertUser(ctx context.Context, u models.User) error
	UpsertContact(ctx context.Context, c models.Contact) error
	UpsertLead(ctx context.Context, l models.Lead) error

	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*SQLite)(nil)
	_ Store = (*Mongo)(nil)
	_ Store = (*Breaker)(nil)
)
