package meetingclient

import (
	"context"
	"errors"
	"sync"
	"time"
)

// API is the subset of Client the container drives.
type API interface {
	List(ctx context.Context, createBy string) ([]Meeting, error)
	Get(ctx context.Context, id string) (*Meeting, error)
	Create(ctx context.Context, req CreateRequest) (*Meeting, error)
	Delete(ctx context.Context, id string) error
}

var _ API = (*Client)(nil)

// Container owns a State and serializes transitions on it. Subscribers
// are called with every new state after the lock is released.
type Container struct {
	api API
	now func() time.Time

	mu     sync.Mutex
	state  State
	subs   map[int]func(State)
	nextID int
}

// NewContainer returns a container driving api.
func NewContainer(api API) *Container {
	return &Container{
		api:   api,
		now:   time.Now,
		state: NewState(),
		subs:  map[int]func(State){},
	}
}

// State returns a snapshot of the current state.
func (c *Container) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe registers fn and returns a function that removes it.
func (c *Container) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Container) dispatch(e Event) {
	c.mu.Lock()
	c.state = Reduce(c.state, e)
	snap := c.state.clone()
	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (c *Container) fail(op Operation, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		c.dispatch(Failed{Op: op, Err: apiErr})
		return err
	}
	c.dispatch(Failed{Op: op, Err: &APIError{Message: genericErrors[op], Detail: err.Error()}})
	return err
}

// FetchAll loads the meeting list.
func (c *Container) FetchAll(ctx context.Context, createBy string) error {
	c.dispatch(Pending{Op: OpList})
	list, err := c.api.List(ctx, createBy)
	if err != nil {
		return c.fail(OpList, err)
	}
	c.dispatch(ListLoaded{Meetings: list, At: c.now()})
	return nil
}

// FetchOne loads one meeting into Current and returns it.
func (c *Container) FetchOne(ctx context.Context, id string) (*Meeting, error) {
	c.dispatch(Pending{Op: OpGet})
	m, err := c.api.Get(ctx, id)
	if err != nil {
		return nil, c.fail(OpGet, err)
	}
	c.dispatch(MeetingLoaded{Meeting: *m, At: c.now()})
	return m, nil
}

// Create adds a meeting and prepends it to the list.
func (c *Container) Create(ctx context.Context, req CreateRequest) (*Meeting, error) {
	c.dispatch(Pending{Op: OpCreate})
	m, err := c.api.Create(ctx, req)
	if err != nil {
		return nil, c.fail(OpCreate, err)
	}
	c.dispatch(MeetingCreated{Meeting: *m, At: c.now()})
	return m, nil
}

// Delete soft deletes a meeting and drops it locally.
func (c *Container) Delete(ctx context.Context, id string) error {
	c.dispatch(Pending{Op: OpDelete})
	if err := c.api.Delete(ctx, id); err != nil {
		return c.fail(OpDelete, err)
	}
	c.dispatch(MeetingDeleted{ID: id})
	return nil
}

func (c *Container) ClearError()   { c.dispatch(ClearError{}) }
func (c *Container) ClearCurrent() { c.dispatch(ClearCurrent{}) }

// UpdateInList replaces the list entry for m.ID without a server call.
func (c *Container) UpdateInList(m Meeting) { c.dispatch(UpdateInList{Meeting: m}) }
