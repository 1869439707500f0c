package meetingclient

import (
	"context"
	"errors"
)

// ErrNotPermitted is returned when the caller's access flags forbid an action.
var ErrNotPermitted = errors.New("meetingclient: not permitted")

// Access holds the caller's permission flags for meetings.
type Access struct {
	View   bool
	Create bool
	Update bool
	Delete bool
}

// DetailView backs the single-meeting screen.
type DetailView struct {
	c      *Container
	id     string
	access Access
}

// NewDetailView returns the view of meeting id.
func NewDetailView(c *Container, id string, access Access) *DetailView {
	return &DetailView{c: c, id: id, access: access}
}

// Open fetches the meeting and returns it.
func (v *DetailView) Open(ctx context.Context) (*Meeting, error) {
	if !v.access.View {
		return nil, ErrNotPermitted
	}
	return v.c.FetchOne(ctx, v.id)
}

// CanDelete reports whether the delete action is offered.
func (v *DetailView) CanDelete() bool { return v.access.Delete }

// Delete soft deletes the meeting.
func (v *DetailView) Delete(ctx context.Context) error {
	if !v.access.Delete {
		return ErrNotPermitted
	}
	return v.c.Delete(ctx, v.id)
}

// Close clears the current meeting.
func (v *DetailView) Close() { v.c.ClearCurrent() }
