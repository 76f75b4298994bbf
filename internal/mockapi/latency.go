// Package mockapi is the API Facade over the Mock Store. Every call waits
// an artificial network delay before touching the repositories, so the
// state containers above it behave as they would against a remote backend.
package mockapi

import (
	"context"
	"time"
)

// Default delays per endpoint.
const (
	DefaultDelay      = 500 * time.Millisecond
	LogoutDelay       = 300 * time.Millisecond
	ListItemsDelay    = 1000 * time.Millisecond
	CreateItemDelay   = 1500 * time.Millisecond
	UpdateItemDelay   = 1000 * time.Millisecond
	ConversationDelay = 800 * time.Millisecond
	SendMessageDelay  = 1000 * time.Millisecond
)

// Delayer simulates network latency.
type Delayer interface {
	Delay(ctx context.Context, d time.Duration) error
}

// Latency waits d scaled by Scale. A zero Scale disables waiting, which is
// what tests and the postgres-backed server use.
type Latency struct {
	Scale float64
}

func (l Latency) Delay(ctx context.Context, d time.Duration) error {
	wait := time.Duration(float64(d) * l.Scale)
	if wait <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NoDelay is a Delayer that never waits.
var NoDelay Delayer = Latency{}

// Call resolves to v after the delay.
func Call[T any](ctx context.Context, dl Delayer, v T, d time.Duration) (T, error) {
	if err := dl.Delay(ctx, d); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}
