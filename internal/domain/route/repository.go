package route

import (
	"context"

	"github.com/google/uuid"
)

// SavedRouteRepository defines the persistence contract for saved routes.
type SavedRouteRepository interface {
	// FindByID retrieves a saved route with its stops.
	FindByID(ctx context.Context, id uuid.UUID) (*SavedRoute, error)

	// List retrieves saved routes, newest first, with pagination.
	List(ctx context.Context, page, limit int) ([]*SavedRoute, int64, error)

	// Save persists a new saved route and its stops.
	Save(ctx context.Context, route *SavedRoute) error

	// Delete removes a saved route and its stops.
	Delete(ctx context.Context, id uuid.UUID) error
}
