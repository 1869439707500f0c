package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/starford/meetbook/internal/models"
)

// Collection names shared with the rest of the CRM.
const (
	meetingsCollection = "meetings"
	usersCollection    = "users"
	contactsCollection = "contacts"
	leadsCollection    = "leads"
)

// Mongo is a Store backed by a MongoDB database.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// OpenMongo connects to uri and verifies the primary is reachable.
func OpenMongo(ctx context.Context, uri, database string, timeout time.Duration) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("store: connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("store: ping mongo: %w", err)
	}
	return &Mongo{client: client, db: client.Database(database)}, nil
}

// Ping checks the primary.
func (s *Mongo) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// InsertMeeting stores a new meeting document.
func (s *Mongo) InsertMeeting(ctx context.Context, m *models.Meeting) error {
	if _, err := s.db.Collection(meetingsCollection).InsertOne(ctx, m); err != nil {
		return fmt.Errorf("store: insert meeting: %w", err)
	}
	return nil
}

// FindMeetings returns meetings matching f in no particular order.
func (s *Mongo) FindMeetings(ctx context.Context, f Filter) ([]models.Meeting, error) {
	cur, err := s.db.Collection(meetingsCollection).Find(ctx, meetingQuery(f))
	if err != nil {
		return nil, fmt.Errorf("store: find meetings: %w", err)
	}
	var out []models.Meeting
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("store: decode meetings: %w", err)
	}
	return out, nil
}

// SoftDelete flags active meetings matching f as deleted.
func (s *Mongo) SoftDelete(ctx context.Context, f Filter) (int64, error) {
	f.Status = models.StatusActive
	res, err := s.db.Collection(meetingsCollection).UpdateMany(ctx, meetingQuery(f),
		bson.M{"$set": bson.M{"deleted": true}})
	if err != nil {
		return 0, fmt.Errorf("store: soft delete: %w", err)
	}
	return res.ModifiedCount, nil
}

// FindUsers returns the users whose id is in ids.
func (s *Mongo) FindUsers(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	var out []models.User
	if err := s.findByIDs(ctx, usersCollection, ids, &out); err != nil {
		return nil, fmt.Errorf("store: find users: %w", err)
	}
	return out, nil
}

// FindContacts returns the contacts whose id is in ids.
func (s *Mongo) FindContacts(ctx context.Context, ids []primitive.ObjectID) ([]models.Contact, error) {
	var out []models.Contact
	if err := s.findByIDs(ctx, contactsCollection, ids, &out); err != nil {
		return nil, fmt.Errorf("store: find contacts: %w", err)
	}
	return out, nil
}

// FindLeads returns the leads whose id is in ids.
func (s *Mongo) FindLeads(ctx context.Context, ids []primitive.ObjectID) ([]models.Lead, error) {
	var out []models.Lead
	if err := s.findByIDs(ctx, leadsCollection, ids, &out); err != nil {
		return nil, fmt.Errorf("store: find leads: %w", err)
	}
	return out, nil
}

// UpsertUser inserts a user document or sets the fields it carries.
func (s *Mongo) UpsertUser(ctx context.Context, u models.User) error {
	set := bson.M{"firstName": u.FirstName, "lastName": u.LastName, "username": u.Email, "role": u.Role}
	if err := s.upsert(ctx, usersCollection, u.ID, set); err != nil {
		return fmt.Errorf("store: upsert user: %w", err)
	}
	return nil
}

// UpsertContact inserts a contact document or sets the fields it carries.
func (s *Mongo) UpsertContact(ctx context.Context, c models.Contact) error {
	set := bson.M{"email": c.Email, "firstName": c.FirstName, "lastName": c.LastName}
	if err := s.upsert(ctx, contactsCollection, c.ID, set); err != nil {
		return fmt.Errorf("store: upsert contact: %w", err)
	}
	return nil
}

// UpsertLead inserts a lead document or sets the fields it carries.
func (s *Mongo) UpsertLead(ctx context.Context, l models.Lead) error {
	set := bson.M{"leadName": l.LeadName, "leadEmail": l.Email}
	if err := s.upsert(ctx, leadsCollection, l.ID, set); err != nil {
		return fmt.Errorf("store: upsert lead: %w", err)
	}
	return nil
}

func (s *Mongo) findByIDs(ctx context.Context, coll string, ids []primitive.ObjectID, out any) error {
	if len(ids) == 0 {
		return nil
	}
	cur, err := s.db.Collection(coll).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

// upsert sets the non-empty fields of set on document id, creating it if
// needed. Fields owned by the rest of the CRM are left untouched.
func (s *Mongo) upsert(ctx context.Context, coll string, id primitive.ObjectID, set bson.M) error {
	for k, v := range set {
		if v == "" {
			delete(set, k)
		}
	}
	update := bson.M{"$setOnInsert": bson.M{"_id": id}}
	if len(set) > 0 {
		update = bson.M{"$set": set}
	}
	_, err := s.db.Collection(coll).UpdateOne(ctx, bson.M{"_id": id}, update, options.Update().SetUpsert(true))
	return err
}

func meetingQuery(f Filter) bson.M {
	q := bson.M{}
	if len(f.IDs) > 0 {
		q["_id"] = bson.M{"$in": f.IDs}
	}
	if f.CreateBy != nil {
		q["createBy"] = *f.CreateBy
	}
	switch f.Status {
	case models.StatusActive:
		q["deleted"] = false
	case models.StatusDeleted:
		q["deleted"] = true
	}
	return q
}
