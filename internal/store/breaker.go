package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/starford/meetbook/internal/models"
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("store: backend unavailable")

// BreakerSettings tunes the circuit breaker around a Store.
type BreakerSettings struct {
	FailureThreshold uint32
	OpenTimeout      time.Duration
	MaxRequests      uint32
}

// Breaker decorates a Store with a circuit breaker so a failing backend
// fails fast instead of stalling every request.
type Breaker struct {
	next Store
	cb   *gobreaker.CircuitBreaker[any]
}

// NewBreaker wraps next.
func NewBreaker(next Store, s BreakerSettings, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	if s.MaxRequests == 0 {
		s.MaxRequests = 1
	}
	settings := gobreaker.Settings{
		Name:        "store",
		MaxRequests: s.MaxRequests,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// Caller cancellations say nothing about backend health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

// State reports the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func run[T any](b *Breaker, fn func() (T, error)) (T, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return zero, err
	}
	return res.(T), nil
}

func (b *Breaker) InsertMeeting(ctx context.Context, m *models.Meeting) error {
	_, err := run(b, func() (struct{}, error) {
		return struct{}{}, b.next.InsertMeeting(ctx, m)
	})
	return err
}

func (b *Breaker) FindMeetings(ctx context.Context, f Filter) ([]models.Meeting, error) {
	return run(b, func() ([]models.Meeting, error) {
		return b.next.FindMeetings(ctx, f)
	})
}

func (b *Breaker) SoftDelete(ctx context.Context, f Filter) (int64, error) {
	return run(b, func() (int64, error) {
		return b.next.SoftDelete(ctx, f)
	})
}

func (b *Breaker) FindUsers(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	return run(b, func() ([]models.User, error) {
		return b.next.FindUsers(ctx, ids)
	})
}

func (b *Breaker) FindContacts(ctx context.Context, ids []primitive.ObjectID) ([]models.Contact, error) {
	return run(b, func() ([]models.Contact, error) {
		return b.next.FindContacts(ctx, ids)
	})
}

func (b *Breaker) FindLeads(ctx context.Context, ids []primitive.ObjectID) ([]models.Lead, error) {
	return run(b, func() ([]models.Lead, error) {
		return b.next.FindLeads(ctx, ids)
	})
}

func (b *Breaker) UpsertUser(ctx context.Context, u models.User) error {
	_, err := run(b, func() (struct{}, error) {
		return struct{}{}, b.next.UpsertUser(ctx, u)
	})
	return err
}

func (b *Breaker) UpsertContact(ctx context.Context, c models.Contact) error {
	_, err := run(b, func() (struct{}, error) {
		return struct{}{}, b.next.UpsertContact(ctx, c)
	})
	return err
}

func (b *Breaker) UpsertLead(ctx context.Context, l models.Lead) error {
	_, err := run(b, func() (struct{}, error) {
		return struct{}{}, b.next.UpsertLead(ctx, l)
	})
	return err
}

// Ping bypasses the breaker so health checks see the real backend state.
func (b *Breaker) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}

func (b *Breaker) Close() error {
	return b.next.Close()
}
