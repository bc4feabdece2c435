// Package delivery ships generated export files to schedule destinations.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/erp/interchange/internal/domain/export"
)

// ErrNoDeliverer is returned when no adapter is registered for a kind
var ErrNoDeliverer = errors.New("no deliverer registered for destination kind")

// Artifact is a generated export file ready for delivery
type Artifact struct {
	FileName    string
	ContentType string
	Body        []byte
	RowCount    int
}

// Deliverer sends an artifact to one kind of destination and returns where
// it ended up
type Deliverer interface {
	Deliver(ctx context.Context, dest export.Destination, artifact Artifact) (string, error)
}

// DelivererFunc adapts a function to Deliverer
type DelivererFunc func(ctx context.Context, dest export.Destination, artifact Artifact) (string, error)

// Deliver calls f
func (f DelivererFunc) Deliver(ctx context.Context, dest export.Destination, artifact Artifact) (string, error) {
	return f(ctx, dest, artifact)
}

// Router dispatches to the deliverer registered for the destination kind
type Router struct {
	mu         sync.RWMutex
	deliverers map[export.DestinationKind]Deliverer
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{deliverers: make(map[export.DestinationKind]Deliverer)}
}

// Register binds a deliverer to a destination kind, replacing any previous one
func (r *Router) Register(kind export.DestinationKind, d Deliverer) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliverers[kind] = d
	return r
}

// Supports reports whether a deliverer is registered for kind
func (r *Router) Supports(kind export.DestinationKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.deliverers[kind]
	return ok
}

// Deliver implements Deliverer
func (r *Router) Deliver(ctx context.Context, dest export.Destination, artifact Artifact) (string, error) {
	r.mu.RLock()
	d, ok := r.deliverers[dest.Kind]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoDeliverer, dest.Kind)
	}
	return d.Deliver(ctx, dest, artifact)
}

var _ Deliverer = (*Router)(nil)
