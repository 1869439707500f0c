// Package models defines the domain types for meetbook.
package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Related selects which attendee set of a meeting applies.
type Related string

const (
	RelatedContact Related = "Contact"
	RelatedLead    Related = "Lead"
)

// IsValid reports whether r is a known relation.
func (r Related) IsValid() bool {
	return r == RelatedContact || r == RelatedLead
}

// Status is the tombstone state of a meeting. It is persisted as the
// boolean "deleted" so documents stay compatible with the rest of the CRM.
type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// StatusFromDeleted maps the persisted flag to a Status.
func StatusFromDeleted(deleted bool) Status {
	if deleted {
		return StatusDeleted
	}
	return StatusActive
}

// Meeting is a persisted meeting record.
type Meeting struct {
	ID           primitive.ObjectID   `bson:"_id"`
	Agenda       string               `bson:"agenda"`
	Attendes     []primitive.ObjectID `bson:"attendes"`
	AttendesLead []primitive.ObjectID `bson:"attendesLead"`
	Location     string               `bson:"location,omitempty"`
	Related      Related              `bson:"related"`
	DateTime     string               `bson:"dateTime"`
	Notes        string               `bson:"notes,omitempty"`
	CreateBy     primitive.ObjectID   `bson:"createBy"`
	Timestamp    time.Time            `bson:"timestamp"`
	Deleted      bool                 `bson:"deleted"`
}

// Status returns the tombstone state of m.
func (m *Meeting) Status() Status {
	return StatusFromDeleted(m.Deleted)
}

// ContactRef is a resolved contact attendee.
type ContactRef struct {
	ID    primitive.ObjectID `json:"_id"`
	Email string             `json:"email"`
}

// LeadRef is a resolved lead attendee.
type LeadRef struct {
	ID       primitive.ObjectID `json:"_id"`
	LeadName string             `json:"leadName"`
}

// MeetingView is the denormalized shape returned to clients.
type MeetingView struct {
	ID            primitive.ObjectID `json:"_id"`
	Agenda        string             `json:"agenda"`
	Location      string             `json:"location"`
	Related       Related            `json:"related"`
	DateTime      string             `json:"dateTime"`
	Notes         string             `json:"notes"`
	Timestamp     time.Time          `json:"timestamp"`
	CreatedByName string             `json:"createdByName"`
	Attendes      []ContactRef       `json:"attendes"`
	AttendesLead  []LeadRef          `json:"attendesLead"`
}

// User is a CRM user as seen by the meeting join.
type User struct {
	ID        primitive.ObjectID `bson:"_id"`
	FirstName string             `bson:"firstName,omitempty"`
	LastName  string             `bson:"lastName,omitempty"`
	Email     string             `bson:"username,omitempty"`
	Role      string             `bson:"role,omitempty"`
}

// Contact is a CRM contact.
type Contact struct {
	ID        primitive.ObjectID `bson:"_id"`
	Email     string             `bson:"email,omitempty"`
	FirstName string             `bson:"firstName,omitempty"`
	LastName  string             `bson:"lastName,omitempty"`
}

// Lead is a CRM lead.
type Lead struct {
	ID       primitive.ObjectID `bson:"_id"`
	LeadName string             `bson:"leadName,omitempty"`
	Email    string             `bson:"leadEmail,omitempty"`
}

// dateTimeLayouts are the accepted encodings of Meeting.DateTime, most
// specific first. Zoneless values are interpreted in loc.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseDateTime parses a meeting dateTime as entered by the form, ignoring
// surrounding whitespace.
func ParseDateTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid meeting date time %q", s)
}
