package route

import (
	"strings"
	"time"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/domain"
	"github.com/google/uuid"
)

// defaultStopDurationMinutes is the service time assumed when a stop does not say.
const defaultStopDurationMinutes = 10

// SavedStop is one persisted stop of a saved route.
type SavedStop struct {
	Position          int
	Address           string
	Street            string
	Number            string
	City              string
	Latitude          float64
	Longitude         float64
	Category          Category
	TimeWindowStart   string
	TimeWindowEnd     string
	EstimatedDuration int
}

// TimeWindow formats the window as "start - end", or "" unless both ends are set.
func (s SavedStop) TimeWindow() string {
	if s.TimeWindowStart == "" || s.TimeWindowEnd == "" {
		return ""
	}
	return s.TimeWindowStart + " - " + s.TimeWindowEnd
}

// SavedRoute is the aggregate root for a route kept for later reuse.
type SavedRoute struct {
	id              uuid.UUID
	name            string
	totalDistanceKm float64
	totalTime       string
	document        Document
	stops           []SavedStop
	createdAt       time.Time
}

// NewSavedRoute creates a SavedRoute from a route. The closing stop is not stored
// as a stop of its own.
func NewSavedRoute(name string, r *Route) (*SavedRoute, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("route name is required")
	}
	if r == nil || r.Empty() {
		return nil, domain.NewValidationError("no route data available to save")
	}

	targets := r.TargetStops()
	stops := make([]SavedStop, 0, len(targets))
	for _, s := range targets {
		stops = append(stops, toSavedStop(s))
	}

	return &SavedRoute{
		id:              uuid.New(),
		name:            name,
		totalDistanceKm: r.Totals().DistanceKm,
		totalTime:       r.Totals().DisplayTime,
		document:        r.Document(),
		stops:           stops,
		createdAt:       time.Now().UTC(),
	}, nil
}

// ReconstructSavedRoute rebuilds a SavedRoute from persistence data (no validation).
func ReconstructSavedRoute(
	id uuid.UUID,
	name string,
	totalDistanceKm float64,
	totalTime string,
	document Document,
	stops []SavedStop,
	createdAt time.Time,
) *SavedRoute {
	return &SavedRoute{
		id:              id,
		name:            name,
		totalDistanceKm: totalDistanceKm,
		totalTime:       totalTime,
		document:        document,
		stops:           stops,
		createdAt:       createdAt,
	}
}

func toSavedStop(s Stop) SavedStop {
	out := SavedStop{
		Position:          s.Index,
		Address:           s.Address,
		Latitude:          s.Position.Lat,
		Longitude:         s.Position.Lng,
		Category:          s.Category(),
		EstimatedDuration: defaultStopDurationMinutes,
	}
	if d := s.Details; d != nil {
		out.Street = d.Street
		out.Number = d.Number
		out.City = d.City
		out.TimeWindowStart = validClock(d.TimeWindowStart)
		out.TimeWindowEnd = validClock(d.TimeWindowEnd)
		if d.EstimatedDuration > 0 {
			out.EstimatedDuration = int(d.EstimatedDuration)
		}
		if out.Address == "" {
			out.Address = d.FormattedAddress
		}
	}
	return out
}

// validClock keeps "HH:MM" values and drops anything else.
func validClock(s string) string {
	if _, err := time.Parse("15:04", s); err != nil {
		return ""
	}
	return s
}

// --- Getters ---

// ID returns the saved route's unique identifier.
func (s *SavedRoute) ID() uuid.UUID { return s.id }

// Name returns the name the route was saved under.
func (s *SavedRoute) Name() string { return s.name }

// TotalDistanceKm returns the route length reported when it was saved.
func (s *SavedRoute) TotalDistanceKm() float64 { return s.totalDistanceKm }

// TotalTime returns the display travel time reported when it was saved.
func (s *SavedRoute) TotalTime() string { return s.totalTime }

// Document returns the stored route document.
func (s *SavedRoute) Document() Document { return s.document }

// Stops returns the stored stops in route order.
func (s *SavedRoute) Stops() []SavedStop { return append([]SavedStop(nil), s.stops...) }

// CreatedAt returns when the route was saved.
func (s *SavedRoute) CreatedAt() time.Time { return s.createdAt }
