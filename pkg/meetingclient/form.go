package meetingclient

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/meetbook/internal/models"
)

// ErrSubmitInProgress is returned by Submit while an earlier submit is running.
var ErrSubmitInProgress = errors.New("meetingclient: submit already in progress")

// Origin is the screen the create form was opened from.
type Origin string

const (
	OriginNone        Origin = ""
	OriginContactView Origin = "contactView"
	OriginLeadView    Origin = "leadView"
)

// Form holds the create-meeting input.
type Form struct {
	Agenda       string
	Attendes     []string
	AttendesLead []string
	Location     string
	Related      string
	DateTime     string
	Notes        string

	initial    prefill
	submitting atomic.Bool
}

type prefill struct {
	Related      string
	Attendes     []string
	AttendesLead []string
}

// NewForm prefills the form from the record it was opened on.
func NewForm(origin Origin, recordID string) *Form {
	def := prefill{Related: "Contact"}
	switch origin {
	case OriginContactView:
		if recordID != "" {
			def.Attendes = []string{recordID}
		}
	case OriginLeadView:
		def.Related = "Lead"
		if recordID != "" {
			def.AttendesLead = []string{recordID}
		}
	}
	f := &Form{initial: def}
	f.Reset()
	return f
}

// Reset restores the prefilled values and clears everything else.
func (f *Form) Reset() {
	f.Agenda, f.Location, f.DateTime, f.Notes = "", "", "", ""
	f.Related = f.initial.Related
	f.Attendes = append([]string{}, f.initial.Attendes...)
	f.AttendesLead = append([]string{}, f.initial.AttendesLead...)
}

// Validate checks the input against now. The meeting time may not be in the past.
func (f *Form) Validate(now time.Time) error {
	return validation.Errors{
		"agenda": validation.Validate(strings.TrimSpace(f.Agenda),
			validation.Required.Error("Agenda is required")),
		"related": validation.Validate(f.Related,
			validation.Required.Error("Related To is required"),
			validation.In("Contact", "Lead").Error("Related must be Contact or Lead")),
		"dateTime": validation.Validate(f.DateTime,
			validation.Required.Error("Date Time is required"),
			notBefore(now)),
	}.Filter()
}

func notBefore(now time.Time) validation.Rule {
	return validation.By(func(v any) error {
		s, _ := v.(string)
		if s == "" {
			return nil
		}
		t, err := models.ParseDateTime(s, now.Location())
		if err != nil {
			return errors.New("Date Time is invalid")
		}
		if t.Before(now.Truncate(time.Minute)) {
			return errors.New("Date Time cannot be in the past")
		}
		return nil
	})
}

// Request builds the create payload.
func (f *Form) Request() CreateRequest {
	return CreateRequest{
		Agenda:       strings.TrimSpace(f.Agenda),
		Attendes:     append([]string{}, f.Attendes...),
		AttendesLead: append([]string{}, f.AttendesLead...),
		Location:     f.Location,
		Related:      f.Related,
		DateTime:     f.DateTime,
		Notes:        f.Notes,
	}
}

// Submit validates and creates the meeting through c. Only one submit may
// run at a time; the form is reset after a successful create.
func (f *Form) Submit(ctx context.Context, c *Container, now time.Time) (*Meeting, error) {
	if !f.submitting.CompareAndSwap(false, true) {
		return nil, ErrSubmitInProgress
	}
	defer f.submitting.Store(false)

	if err := f.Validate(now); err != nil {
		return nil, err
	}
	m, err := c.Create(ctx, f.Request())
	if err != nil {
		return nil, err
	}
	f.Reset()
	return m, nil
}

// Submitting reports whether a submit is running.
func (f *Form) Submitting() bool { return f.submitting.Load() }
