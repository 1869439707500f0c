// Package seed loads CRM directory fixtures (users, contacts, leads) into a
// store so meetings have creators and attendees to resolve against.
package seed

import (
	"context"
	"fmt"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gopkg.in/yaml.v3"

	"github.com/starford/meetbook/internal/models"
)

// Target receives directory records.
type Target interface {
	UpsertUser(ctx context.Context, u models.User) error
	UpsertContact(ctx context.Context, c models.Contact) error
	UpsertLead(ctx context.Context, l models.Lead) error
}

// Fixture is the on-disk directory format.
type Fixture struct {
	Users    []UserRecord    `yaml:"users"`
	Contacts []ContactRecord `yaml:"contacts"`
	Leads    []LeadRecord    `yaml:"leads"`
}

type UserRecord struct {
	ID        string `yaml:"id"`
	FirstName string `yaml:"firstName"`
	LastName  string `yaml:"lastName"`
	Email     string `yaml:"email"`
	Role      string `yaml:"role"`
}

func (r UserRecord) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required, is.MongoID),
		validation.Field(&r.Email, is.EmailFormat),
	)
}

type ContactRecord struct {
	ID        string `yaml:"id"`
	Email     string `yaml:"email"`
	FirstName string `yaml:"firstName"`
	LastName  string `yaml:"lastName"`
}

func (r ContactRecord) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required, is.MongoID),
		validation.Field(&r.Email, is.EmailFormat),
	)
}

type LeadRecord struct {
	ID       string `yaml:"id"`
	LeadName string `yaml:"leadName"`
	Email    string `yaml:"email"`
}

func (r LeadRecord) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required, is.MongoID),
		validation.Field(&r.Email, is.EmailFormat),
	)
}

// Validate checks every record of the fixture.
func (f *Fixture) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.Users),
		validation.Field(&f.Contacts),
		validation.Field(&f.Leads),
	)
}

// Summary counts the records applied by one run.
type Summary struct {
	Users    int
	Contacts int
	Leads    int
}

// Load reads and validates a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("seed: parse %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("seed: validate %s: %w", path, err)
	}
	return &f, nil
}

// Apply upserts every record of f into t.
func Apply(ctx context.Context, t Target, f *Fixture) (Summary, error) {
	var s Summary
	for _, r := range f.Users {
		u := models.User{ID: mustID(r.ID), FirstName: r.FirstName, LastName: r.LastName, Email: r.Email, Role: r.Role}
		if err := t.UpsertUser(ctx, u); err != nil {
			return s, fmt.Errorf("seed: user %s: %w", r.ID, err)
		}
		s.Users++
	}
	for _, r := range f.Contacts {
		c := models.Contact{ID: mustID(r.ID), Email: r.Email, FirstName: r.FirstName, LastName: r.LastName}
		if err := t.UpsertContact(ctx, c); err != nil {
			return s, fmt.Errorf("seed: contact %s: %w", r.ID, err)
		}
		s.Contacts++
	}
	for _, r := range f.Leads {
		l := models.Lead{ID: mustID(r.ID), LeadName: r.LeadName, Email: r.Email}
		if err := t.UpsertLead(ctx, l); err != nil {
			return s, fmt.Errorf("seed: lead %s: %w", r.ID, err)
		}
		s.Leads++
	}
	return s, nil
}

// LoadAndApply is Load followed by Apply.
func LoadAndApply(ctx context.Context, t Target, path string) (Summary, error) {
	f, err := Load(path)
	if err != nil {
		return Summary{}, err
	}
	return Apply(ctx, t, f)
}

// mustID converts an id already checked by Validate.
func mustID(hex string) primitive.ObjectID {
	id, _ := primitive.ObjectIDFromHex(hex)
	return id
}
