package meetingclient

import (
	"maps"
	"slices"
	"time"
)

// Operation names one of the asynchronous client operations.
type Operation string

const (
	OpList   Operation = "list"
	OpGet    Operation = "get"
	OpCreate Operation = "create"
	OpDelete Operation = "delete"
)

// OpStatus is the lifecycle of an Operation.
type OpStatus string

const (
	StatusIdle      OpStatus = "idle"
	StatusPending   OpStatus = "pending"
	StatusSucceeded OpStatus = "succeeded"
	StatusFailed    OpStatus = "failed"
)

var genericErrors = map[Operation]string{
	OpList:   "Failed to fetch meetings",
	OpGet:    "Failed to fetch meeting",
	OpCreate: "Failed to create meeting",
	OpDelete: "Failed to delete meeting",
}

// CacheEntry is a fetched meeting and when it was fetched.
type CacheEntry struct {
	Data      Meeting
	Timestamp time.Time
}

// State is the client-side view of meetings.
type State struct {
	List        []Meeting
	Current     *Meeting
	IsLoading   bool
	Error       *APIError
	LastFetched time.Time
	Cache       map[string]CacheEntry
	Ops         map[Operation]OpStatus
}

// NewState returns the empty state.
func NewState() State {
	return State{
		List:  []Meeting{},
		Cache: map[string]CacheEntry{},
		Ops:   map[Operation]OpStatus{},
	}
}

// Event is a state transition.
type Event interface {
	apply(s *State)
}

// Reduce applies e to a copy of s and returns the copy. s is not modified.
func Reduce(s State, e Event) State {
	next := s.clone()
	e.apply(&next)
	return next
}

func (s State) clone() State {
	out := s
	out.List = slices.Clone(s.List)
	if out.List == nil {
		out.List = []Meeting{}
	}
	out.Cache = maps.Clone(s.Cache)
	if out.Cache == nil {
		out.Cache = map[string]CacheEntry{}
	}
	out.Ops = maps.Clone(s.Ops)
	if out.Ops == nil {
		out.Ops = map[Operation]OpStatus{}
	}
	if s.Current != nil {
		cur := *s.Current
		out.Current = &cur
	}
	return out
}

// Status reports the lifecycle of op.
func (s State) Status(op Operation) OpStatus {
	if st, ok := s.Ops[op]; ok {
		return st
	}
	return StatusIdle
}

func (s *State) settle(op Operation, status OpStatus) {
	s.Ops[op] = status
	s.IsLoading = false
	for _, st := range s.Ops {
		if st == StatusPending {
			s.IsLoading = true
			return
		}
	}
}

// Pending marks Op as started and clears the last error.
type Pending struct{ Op Operation }

func (e Pending) apply(s *State) {
	s.Ops[e.Op] = StatusPending
	s.IsLoading = true
	s.Error = nil
}

// Failed records a failed Op. A nil Err becomes the generic message for Op.
type Failed struct {
	Op  Operation
	Err *APIError
}

func (e Failed) apply(s *State) {
	s.settle(e.Op, StatusFailed)
	if e.Err != nil {
		cp := *e.Err
		s.Error = &cp
		return
	}
	s.Error = &APIError{Message: genericErrors[e.Op]}
}

// ListLoaded replaces the list.
type ListLoaded struct {
	Meetings []Meeting
	At       time.Time
}

func (e ListLoaded) apply(s *State) {
	s.settle(OpList, StatusSucceeded)
	s.List = slices.Clone(e.Meetings)
	if s.List == nil {
		s.List = []Meeting{}
	}
	s.LastFetched = e.At
}

// MeetingLoaded sets the current meeting and caches it.
type MeetingLoaded struct {
	Meeting Meeting
	At      time.Time
}

func (e MeetingLoaded) apply(s *State) {
	s.settle(OpGet, StatusSucceeded)
	m := e.Meeting
	s.Current = &m
	s.Cache[m.ID] = CacheEntry{Data: m, Timestamp: e.At}
}

// MeetingCreated prepends the new meeting and caches it.
type MeetingCreated struct {
	Meeting Meeting
	At      time.Time
}

func (e MeetingCreated) apply(s *State) {
	s.settle(OpCreate, StatusSucceeded)
	s.List = slices.Insert(s.List, 0, e.Meeting)
	s.Cache[e.Meeting.ID] = CacheEntry{Data: e.Meeting, Timestamp: e.At}
}

// MeetingDeleted drops ID from the list, the cache and Current.
type MeetingDeleted struct{ ID string }

func (e MeetingDeleted) apply(s *State) {
	s.settle(OpDelete, StatusSucceeded)
	s.List = slices.DeleteFunc(s.List, func(m Meeting) bool { return m.ID == e.ID })
	delete(s.Cache, e.ID)
	if s.Current != nil && s.Current.ID == e.ID {
		s.Current = nil
	}
}

// ClearError resets the error.
type ClearError struct{}

func (ClearError) apply(s *State) { s.Error = nil }

// ClearCurrent resets the current meeting.
type ClearCurrent struct{}

func (ClearCurrent) apply(s *State) { s.Current = nil }

// UpdateInList replaces the list entry with the same ID, if any.
type UpdateInList struct{ Meeting Meeting }

func (e UpdateInList) apply(s *State) {
	if i := slices.IndexFunc(s.List, func(m Meeting) bool { return m.ID == e.Meeting.ID }); i >= 0 {
		s.List[i] = e.Meeting
	}
}
