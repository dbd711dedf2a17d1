// Package requests delivers search requests to the worker.
package requests

import (
	"context"

	"github.com/dealmungchi/bestdeal/internal/finder"
)

// Message is one delivered request and the id needed to acknowledge it
type Message struct {
	ID      string
	Request finder.Request
}

// Source represents a queue of pending search requests
type Source interface {
	// Next blocks until requests are available or the block time elapses.
	// An empty batch is not an error.
	Next(ctx context.Context) ([]Message, error)

	// Ack marks a message as handled
	Ack(ctx context.Context, id string) error

	// Close closes the source connection
	Close() error
}
