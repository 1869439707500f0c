// Package meetingservice implements the meeting use cases on top of the
// record store and the denormalization pipeline.
package meetingservice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/starford/meetbook/internal/apperr"
	"github.com/starford/meetbook/internal/auth"
	"github.com/starford/meetbook/internal/models"
	"github.com/starford/meetbook/internal/pipeline"
	"github.com/starford/meetbook/internal/store"
)

// DefaultAdminRole sees every meeting.
const DefaultAdminRole = "superAdmin"

// CreateInput is the payload of a new meeting.
type CreateInput struct {
	Agenda       string   `json:"agenda"`
	Attendes     []string `json:"attendes"`
	AttendesLead []string `json:"attendesLead"`
	Location     string   `json:"location"`
	Related      string   `json:"related"`
	DateTime     string   `json:"dateTime"`
	Notes        string   `json:"notes"`
}

var attendeeIDs = validation.Each(
	validation.Required.Error("must be a valid id"),
	is.MongoID.Error("must be a valid id"),
)

// Validate checks required fields and attendee id syntax.
func (in CreateInput) Validate() error {
	err := validation.Errors{
		"agenda": validation.Validate(strings.TrimSpace(in.Agenda),
			validation.Required.Error("Agenda is required")),
		"dateTime": validation.Validate(strings.TrimSpace(in.DateTime),
			validation.Required.Error("Date Time is required")),
		"related": validation.Validate(in.Related,
			validation.Required.Error("Related field is required"),
			validation.In(string(models.RelatedContact), string(models.RelatedLead)).
				Error("Related must be Contact or Lead")),
		"attendes":     validation.Validate(in.Attendes, attendeeIDs),
		"attendesLead": validation.Validate(in.AttendesLead, attendeeIDs),
	}.Filter()
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for k, v := range verrs {
		fields[k] = v.Error()
	}
	return &apperr.ValidationError{Fields: fields}
}

// CalendarEntry is a meeting with its parsed start time.
type CalendarEntry struct {
	View  models.MeetingView
	Start time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithAdminRole overrides the role that sees every meeting.
func WithAdminRole(role string) Option {
	return func(s *Service) { s.adminRole = role }
}

// WithClock overrides the time source used to stamp new meetings.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone used for dateTime values without an offset.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// Service coordinates meeting persistence and read-side joins.
type Service struct {
	store     store.Store
	adminRole string
	now       func() time.Time
	loc       *time.Location
}

// NewService creates a meeting service over st.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:     st,
		adminRole: DefaultAdminRole,
		now:       time.Now,
		loc:       time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsAdmin reports whether caller is unrestricted.
func (s *Service) IsAdmin(caller auth.Identity) bool {
	return caller.Role == s.adminRole
}

// List returns active meetings visible to caller, newest first. Admins may
// narrow the result to one creator with owner; other callers always see
// only their own meetings and owner is ignored.
func (s *Service) List(ctx context.Context, caller auth.Identity, owner string) ([]models.MeetingView, error) {
	f, err := s.scope(caller, store.Filter{Status: models.StatusActive})
	if err != nil {
		return nil, err
	}
	if s.IsAdmin(caller) && owner != "" {
		id, err := primitive.ObjectIDFromHex(owner)
		if err != nil {
			return nil, fmt.Errorf("createBy %q: %w", owner, apperr.ErrInvalidInput)
		}
		f.CreateBy = store.OwnedBy(id)
	}

	views, err := pipeline.Run(ctx, s.store, f)
	if err != nil {
		return nil, apperr.Store("list meetings", err)
	}
	slices.SortStableFunc(views, func(a, b models.MeetingView) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return bytes.Compare(b.ID[:], a.ID[:])
	})
	return views, nil
}

// Get returns one active meeting.
func (s *Service) Get(ctx context.Context, id string) (*models.MeetingView, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	views, err := pipeline.Run(ctx, s.store, store.Filter{
		IDs:    []primitive.ObjectID{oid},
		Status: models.StatusActive,
	})
	if err != nil {
		return nil, apperr.Store("get meeting", err)
	}
	if len(views) == 0 {
		return nil, apperr.ErrNotFound
	}
	return &views[0], nil
}

// Create validates in, persists a meeting owned by caller and returns its view.
func (s *Service) Create(ctx context.Context, caller auth.Identity, in CreateInput) (*models.MeetingView, error) {
	if caller.UserID.IsZero() {
		return nil, errNoCaller
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	m := &models.Meeting{
		ID:           primitive.NewObjectID(),
		Agenda:       in.Agenda,
		Attendes:     mustIDs(in.Attendes),
		AttendesLead: mustIDs(in.AttendesLead),
		Location:     in.Location,
		Related:      models.Related(in.Related),
		DateTime:     in.DateTime,
		Notes:        in.Notes,
		CreateBy:     caller.UserID,
		Timestamp:    s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.store.InsertMeeting(ctx, m); err != nil {
		return nil, apperr.Store("create meeting", err)
	}

	views, err := pipeline.Run(ctx, s.store, store.Filter{IDs: []primitive.ObjectID{m.ID}})
	if err != nil {
		return nil, apperr.Store("create meeting", err)
	}
	if len(views) == 0 {
		return nil, apperr.Store("create meeting", fmt.Errorf("meeting %s missing after insert", m.ID.Hex()))
	}
	return &views[0], nil
}

// SoftDelete marks one active meeting in caller's scope as deleted.
func (s *Service) SoftDelete(ctx context.Context, caller auth.Identity, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	f, err := s.scope(caller, store.Filter{IDs: []primitive.ObjectID{oid}})
	if err != nil {
		return err
	}
	n, err := s.store.SoftDelete(ctx, f)
	if err != nil {
		return apperr.Store("delete meeting", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// SoftDeleteMany marks every active meeting among ids in caller's scope as
// deleted and returns how many changed state.
func (s *Service) SoftDeleteMany(ctx context.Context, caller auth.Identity, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("empty id list: %w", apperr.ErrInvalidInput)
	}
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := parseID(id)
		if err != nil {
			return 0, err
		}
		oids = append(oids, oid)
	}
	f, err := s.scope(caller, store.Filter{IDs: oids})
	if err != nil {
		return 0, err
	}
	n, err := s.store.SoftDelete(ctx, f)
	if err != nil {
		return 0, apperr.Store("delete meetings", err)
	}
	return n, nil
}

// Calendar returns an active meeting together with its parsed start time.
func (s *Service) Calendar(ctx context.Context, id string) (*CalendarEntry, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	start, err := models.ParseDateTime(v.DateTime, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
	}
	return &CalendarEntry{View: *v, Start: start}, nil
}

var errNoCaller = fmt.Errorf("caller has no user id: %w", apperr.ErrUnauthorized)

// scope restricts f to caller's own meetings unless caller is an admin.
func (s *Service) scope(caller auth.Identity, f store.Filter) (store.Filter, error) {
	if caller.UserID.IsZero() {
		return f, errNoCaller
	}
	if !s.IsAdmin(caller) {
		f.CreateBy = store.OwnedBy(caller.UserID)
	}
	return f, nil
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("meeting id %q: %w", id, apperr.ErrInvalidInput)
	}
	return oid, nil
}

// mustIDs converts ids already checked by CreateInput.Validate.
func mustIDs(hex []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(hex))
	for _, h := range hex {
		id, _ := primitive.ObjectIDFromHex(h)
		out = append(out, id)
	}
	return out
}
