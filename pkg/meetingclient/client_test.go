package meetingclient_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/starford/meetbook/internal/api"
	"github.com/starford/meetbook/internal/auth"
	"github.com/starford/meetbook/internal/meetingservice"
	"github.com/starford/meetbook/internal/testutil"
	"github.com/starford/meetbook/pkg/meetingclient"
)

const secret = "client-test-secret"

type env struct {
	url     string
	contact string
	lead    string
	alice   string
	bob     string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := testutil.TestStore(t)
	srv := httptest.NewServer(api.NewRouter(meetingservice.NewService(st), auth.NewJWT(secret)))
	t.Cleanup(srv.Close)

	issue := func(id auth.Identity) string {
		tok, err := auth.Issue(secret, id, time.Hour)
		require.NoError(t, err)
		return tok
	}
	return &env{
		url:     srv.URL,
		contact: testutil.NewContact(t, st, "guest@example.com").ID.Hex(),
		lead:    testutil.NewLead(t, st, "Acme Corp").ID.Hex(),
		alice:   issue(testutil.NewUser(t, st, "Alice", "Smith", "user")),
		bob:     issue(testutil.NewUser(t, st, "Bob", "Jones", "user")),
	}
}

func (e *env) client(token string) *meetingclient.Client {
	return meetingclient.NewClient(e.url, meetingclient.WithToken(token))
}

func TestClientRoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.client(e.alice)

	m, err := c.Create(ctx, meetingclient.CreateRequest{
		Agenda:       "Kickoff",
		Related:      "Lead",
		DateTime:     "2026-11-02T09:30",
		AttendesLead: []string{e.lead},
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", m.CreatedByName)
	require.Len(t, m.AttendesLead, 1)
	assert.Equal(t, "Acme Corp", m.AttendesLead[0].LeadName)

	got, err := c.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kickoff", got.Agenda)

	list, err := c.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1)

	ics, err := c.Calendar(ctx, m.ID)
	require.NoError(t, err)
	assert.Contains(t, string(ics), "SUMMARY:Kickoff")

	require.NoError(t, c.Delete(ctx, m.ID))
	_, err = c.Get(ctx, m.ID)
	var apiErr *meetingclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Meeting not found", apiErr.Message)
}

func TestClientDeleteMany(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.client(e.alice)

	req := meetingclient.CreateRequest{Agenda: "x", Related: "Contact", DateTime: "2026-11-02T09:30"}
	a, err := c.Create(ctx, req)
	require.NoError(t, err)
	b, err := c.Create(ctx, req)
	require.NoError(t, err)

	n, err := c.DeleteMany(ctx, []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = c.DeleteMany(ctx, []string{"nope"})
	var apiErr *meetingclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestClientUnauthorized(t *testing.T) {
	e := newEnv(t)
	_, err := e.client("").List(context.Background(), "")
	var apiErr *meetingclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestContainerLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := meetingclient.NewContainer(e.client(e.alice))

	var seen []meetingclient.State
	unsubscribe := c.Subscribe(func(s meetingclient.State) { seen = append(seen, s) })

	require.NoError(t, c.FetchAll(ctx, ""))
	assert.Empty(t, c.State().List)
	require.Len(t, seen, 2)
	assert.True(t, seen[0].IsLoading)
	assert.False(t, seen[1].IsLoading)
	unsubscribe()

	m, err := c.Create(ctx, meetingclient.CreateRequest{Agenda: "One", Related: "Contact", DateTime: "2026-11-02T09:30"})
	require.NoError(t, err)
	assert.Len(t, seen, 2, "unsubscribed")

	s := c.State()
	require.Len(t, s.List, 1)
	assert.Equal(t, m.ID, s.List[0].ID)
	assert.Contains(t, s.Cache, m.ID)

	got, err := c.FetchOne(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	require.NotNil(t, c.State().Current)

	require.NoError(t, c.Delete(ctx, m.ID))
	s = c.State()
	assert.Empty(t, s.List)
	assert.Nil(t, s.Current)
	assert.NotContains(t, s.Cache, m.ID)
}

func TestContainerKeepsServerPayload(t *testing.T) {
	e := newEnv(t)
	c := meetingclient.NewContainer(e.client(e.alice))

	_, err := c.Create(context.Background(), meetingclient.CreateRequest{})
	require.Error(t, err)
	s := c.State()
	require.NotNil(t, s.Error)
	assert.Equal(t, "Validation failed", s.Error.Message)
	assert.Equal(t, "Agenda is required", s.Error.Errors["agenda"])
	assert.Equal(t, meetingclient.StatusFailed, s.Status(meetingclient.OpCreate))

	c.ClearError()
	assert.Nil(t, c.State().Error)
}

func TestContainerTransportFailure(t *testing.T) {
	c := meetingclient.NewContainer(meetingclient.NewClient("http://127.0.0.1:1"))
	err := c.FetchAll(context.Background(), "")
	require.Error(t, err)
	s := c.State()
	require.NotNil(t, s.Error)
	assert.Equal(t, "Failed to fetch meetings", s.Error.Message)
	assert.NotEmpty(t, s.Error.Detail)
}

func TestNewFormPrefill(t *testing.T) {
	id := primitive.NewObjectID().Hex()

	f := meetingclient.NewForm(meetingclient.OriginContactView, id)
	assert.Equal(t, "Contact", f.Related)
	assert.Equal(t, []string{id}, f.Attendes)
	assert.Empty(t, f.AttendesLead)

	f = meetingclient.NewForm(meetingclient.OriginLeadView, id)
	assert.Equal(t, "Lead", f.Related)
	assert.Equal(t, []string{id}, f.AttendesLead)
	assert.Empty(t, f.Attendes)

	f = meetingclient.NewForm(meetingclient.OriginNone, "")
	assert.Equal(t, "Contact", f.Related)
	assert.Empty(t, f.Attendes)
}

func TestFormValidate(t *testing.T) {
	now := time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)
	f := meetingclient.NewForm(meetingclient.OriginNone, "")
	f.Related = ""

	err := f.Validate(now)
	var verrs validation.Errors
	require.True(t, errors.As(err, &verrs))
	assert.Contains(t, verrs, "agenda")
	assert.Contains(t, verrs, "related")
	assert.Contains(t, verrs, "dateTime")

	f.Agenda, f.Related = "Plan", "Lead"
	f.DateTime = "2026-10-31T09:00"
	err = f.Validate(now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be in the past")

	f.DateTime = "2026-11-01T12:00"
	assert.NoError(t, f.Validate(now))

	f.DateTime = "2026-11-03 08:45"
	assert.NoError(t, f.Validate(now), "space-separated layout accepted like the server")
}

func TestFormSubmit(t *testing.T) {
	e := newEnv(t)
	c := meetingclient.NewContainer(e.client(e.alice))
	now := time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)

	f := meetingclient.NewForm(meetingclient.OriginContactView, e.contact)
	f.Agenda = "Demo"
	f.DateTime = "2026-11-05T10:00"

	m, err := f.Submit(context.Background(), c, now)
	require.NoError(t, err)
	require.Len(t, m.Attendes, 1)
	assert.Equal(t, "guest@example.com", m.Attendes[0].Email)
	assert.Empty(t, f.Agenda, "reset after submit")
	assert.Equal(t, []string{e.contact}, f.Attendes)
	assert.False(t, f.Submitting())

	_, err = f.Submit(context.Background(), c, now)
	require.Error(t, err)
	assert.Len(t, c.State().List, 1)
}

type blockingAPI struct {
	meetingclient.API
	entered chan struct{}
	release chan struct{}
}

func (b *blockingAPI) Create(ctx context.Context, req meetingclient.CreateRequest) (*meetingclient.Meeting, error) {
	close(b.entered)
	<-b.release
	return &meetingclient.Meeting{ID: "m1", Agenda: req.Agenda}, nil
}

func TestFormSubmitInProgress(t *testing.T) {
	blk := &blockingAPI{entered: make(chan struct{}), release: make(chan struct{})}
	c := meetingclient.NewContainer(blk)
	now := time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)

	f := meetingclient.NewForm(meetingclient.OriginNone, "")
	f.Agenda, f.DateTime = "Demo", "2026-11-05T10:00"

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background(), c, now)
		done <- err
	}()
	<-blk.entered
	assert.True(t, f.Submitting())
	assert.True(t, c.State().IsLoading)

	_, err := f.Submit(context.Background(), c, now)
	assert.ErrorIs(t, err, meetingclient.ErrSubmitInProgress)

	close(blk.release)
	require.NoError(t, <-done)
	assert.False(t, c.State().IsLoading)
}

type echoGetAPI struct{ meetingclient.API }

func (echoGetAPI) Get(_ context.Context, id string) (*meetingclient.Meeting, error) {
	return &meetingclient.Meeting{ID: id}, nil
}

func TestDetailViewOpenReturnsOwnMeeting(t *testing.T) {
	c := meetingclient.NewContainer(echoGetAPI{})
	ctx := context.Background()

	// Another screen loads a different meeting as soon as "first" lands.
	fired := false
	c.Subscribe(func(s meetingclient.State) {
		if !fired && s.Current != nil && s.Current.ID == "first" {
			fired = true
			_, err := c.FetchOne(ctx, "second")
			assert.NoError(t, err)
		}
	})

	m, err := meetingclient.NewDetailView(c, "first", meetingclient.Access{View: true}).Open(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", m.ID)
	assert.Equal(t, "second", c.State().Current.ID)
}

func TestDetailView(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := meetingclient.NewContainer(e.client(e.alice))
	m, err := c.Create(ctx, meetingclient.CreateRequest{Agenda: "Review", Related: "Contact", DateTime: "2026-11-02T09:30"})
	require.NoError(t, err)

	ro := meetingclient.NewDetailView(c, m.ID, meetingclient.Access{View: true})
	got, err := ro.Open(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Review", got.Agenda)
	assert.False(t, ro.CanDelete())
	assert.ErrorIs(t, ro.Delete(ctx), meetingclient.ErrNotPermitted)

	_, err = meetingclient.NewDetailView(c, m.ID, meetingclient.Access{}).Open(ctx)
	assert.ErrorIs(t, err, meetingclient.ErrNotPermitted)

	// Bob cannot delete Alice's meeting even with the delete flag.
	other := meetingclient.NewContainer(e.client(e.bob))
	dv := meetingclient.NewDetailView(other, m.ID, meetingclient.Access{View: true, Delete: true})
	err = dv.Delete(ctx)
	var apiErr *meetingclient.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.True(t, strings.HasPrefix(other.State().Error.Message, "Meeting not found"))

	rw := meetingclient.NewDetailView(c, m.ID, meetingclient.Access{View: true, Delete: true})
	_, err = rw.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, rw.Delete(ctx))
	assert.Nil(t, c.State().Current)
	rw.Close()
}
