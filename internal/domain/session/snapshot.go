// Package session holds the persisted form of a navigation session.
package session

import (
	"context"
	"time"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/tracking"
)

// Snapshot is what survives the courier switching to the navigation app and back.
type Snapshot struct {
	SessionID string          `json:"session_id"`
	Route     *route.Document `json:"route,omitempty"`
	State     tracking.State  `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store persists session snapshots.
type Store interface {
	// Save writes the snapshot, replacing any previous one for the session.
	Save(ctx context.Context, snap *Snapshot) error

	// Find returns the snapshot for a session, or a NotFoundError.
	Find(ctx context.Context, sessionID string) (*Snapshot, error)

	// Delete removes a session's snapshot.
	Delete(ctx context.Context, sessionID string) error
}
