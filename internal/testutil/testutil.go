// Package testutil provides shared test helpers for stores and identities.
package testutil

import (
	"context"
	"os"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/starford/meetbook/internal/auth"
	"github.com/starford/meetbook/internal/models"
	"github.com/starford/meetbook/internal/store"
)

// AdminRole matches the service default.
const AdminRole = "superAdmin"

// TestStore creates a temporary SQLite store that is automatically cleaned up.
func TestStore(t *testing.T) *store.SQLite {
	t.Helper()
	dbFile, err := os.CreateTemp("", "meetbook-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	s, err := store.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// NewUser stores a user with the given role and returns its identity.
func NewUser(t *testing.T, s store.Store, first, last, role string) auth.Identity {
	t.Helper()
	u := models.User{ID: primitive.NewObjectID(), FirstName: first, LastName: last, Role: role}
	if err := s.UpsertUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return auth.Identity{UserID: u.ID, Role: role}
}

// NewContact stores a contact and returns it.
func NewContact(t *testing.T, s store.Store, email string) models.Contact {
	t.Helper()
	c := models.Contact{ID: primitive.NewObjectID(), Email: email}
	if err := s.UpsertContact(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	return c
}

// NewLead stores a lead and returns it.
func NewLead(t *testing.T, s store.Store, name string) models.Lead {
	t.Helper()
	l := models.Lead{ID: primitive.NewObjectID(), LeadName: name}
	if err := s.UpsertLead(context.Background(), l); err != nil {
		t.Fatal(err)
	}
	return l
}
