package storage

import (
	"context"
	"io"

	"github.com/vicent00/swap-facade/internal/models"
)

// EventSink receives swap events from the facade. Emission is best-effort:
// implementations should never make a sink failure fail the swap.
type EventSink interface {
	Emit(ctx context.Context, event *models.SwapEvent) error
}

// EventCache defines the interface for the hot event path: a bounded
// recent-events list plus pub/sub fanout.
type EventCache interface {
	// AddRecentSwap adds an event to the recent swaps list
	AddRecentSwap(ctx context.Context, event *models.SwapEvent) error

	// GetRecentSwaps retrieves the most recent events, newest first
	GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapEvent, error)

	// PublishSwap publishes an event to the pub/sub channels
	PublishSwap(ctx context.Context, event *models.SwapEvent) error

	// SubscribeSwaps subscribes to real-time swap events
	SubscribeSwaps(ctx context.Context) (<-chan *models.SwapEvent, error)

	// Ping checks if the cache is reachable
	Ping(ctx context.Context) error

	// Close closes the cache connection
	io.Closer
}

// EventStore defines the interface for durable event storage.
type EventStore interface {
	// InsertSwap inserts an event into the store
	InsertSwap(ctx context.Context, event *models.SwapEvent) error

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	// Close closes the store connection
	io.Closer
}

// EventHandler is a function that processes swap events.
type EventHandler func(*models.SwapEvent)
