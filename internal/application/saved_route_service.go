package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/geo"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/domain"
	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Export formats.
const (
	ExportCSV  = "csv"
	ExportJSON = "json"
)

// SavedRouteDTO is the response representation of a saved route.
type SavedRouteDTO struct {
	ID              uuid.UUID      `json:"id"`
	Name            string         `json:"name"`
	TotalDistanceKm float64        `json:"total_distance_km"`
	TotalTime       string         `json:"total_time"`
	Stops           []SavedStopDTO `json:"stops"`
	CreatedAt       time.Time      `json:"created_at"`
}

// SavedStopDTO is one stop of a saved route.
type SavedStopDTO struct {
	Position          int        `json:"position"`
	Address           string     `json:"address"`
	Street            string     `json:"street,omitempty"`
	Number            string     `json:"number,omitempty"`
	City              string     `json:"city,omitempty"`
	Location          geo.LatLng `json:"location"`
	Category          string     `json:"category"`
	TimeWindow        string     `json:"time_window,omitempty"`
	EstimatedDuration int        `json:"estimated_duration"`
}

// SaveRouteRequest names the session whose current route is saved.
type SaveRouteRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Name      string `json:"name" binding:"required"`
}

// Export is a rendered export file.
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}

// exportRow is one CSV row of a route export.
type exportRow struct {
	Position   int     `csv:"Position"`
	Address    string  `csv:"Address"`
	Latitude   float64 `csv:"Latitude"`
	Longitude  float64 `csv:"Longitude"`
	Category   string  `csv:"Category"`
	TimeWindow string  `csv:"Time Window"`
}

// SavedRouteService handles saved routes and route exports.
type SavedRouteService struct {
	repo     route.SavedRouteRepository
	sessions *SessionService
	logger   *zap.Logger
}

// NewSavedRouteService creates a new SavedRouteService.
func NewSavedRouteService(repo route.SavedRouteRepository, sessions *SessionService, logger *zap.Logger) *SavedRouteService {
	return &SavedRouteService{repo: repo, sessions: sessions, logger: logger}
}

// SaveFromSession stores the session's current route under a name.
func (s *SavedRouteService) SaveFromSession(ctx context.Context, req SaveRouteRequest) (*SavedRouteDTO, error) {
	r, err := s.sessions.CurrentRoute(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	saved, err := route.NewSavedRoute(req.Name, r)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, saved); err != nil {
		return nil, fmt.Errorf("failed to save route: %w", err)
	}

	s.logger.Info("route saved",
		zap.String("route_id", saved.ID().String()),
		zap.String("name", saved.Name()),
		zap.Int("stops", len(saved.Stops())),
	)
	return toSavedRouteDTO(saved), nil
}

// GetRoute returns a saved route.
func (s *SavedRouteService) GetRoute(ctx context.Context, id uuid.UUID) (*SavedRouteDTO, error) {
	saved, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toSavedRouteDTO(saved), nil
}

// ListRoutes returns saved routes, newest first.
func (s *SavedRouteService) ListRoutes(ctx context.Context, page, limit int) (*domain.PaginatedResult[SavedRouteDTO], error) {
	routes, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved routes: %w", err)
	}

	items := make([]SavedRouteDTO, 0, len(routes))
	for _, r := range routes {
		items = append(items, *toSavedRouteDTO(r))
	}
	result := domain.NewPaginatedResult(items, total, page, limit)
	return &result, nil
}

// LoadIntoSession installs a saved route as the session's current route.
func (s *SavedRouteService) LoadIntoSession(ctx context.Context, id uuid.UUID, sessionID string) (*SessionDTO, error) {
	saved, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.sessions.ReceiveRoute(ctx, sessionID, saved.Document())
}

// DeleteRoute removes a saved route.
func (s *SavedRouteService) DeleteRoute(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete saved route: %w", err)
	}
	s.logger.Info("saved route deleted", zap.String("route_id", id.String()))
	return nil
}

// ExportSavedRoute renders a saved route in the given format.
func (s *SavedRouteService) ExportSavedRoute(ctx context.Context, id uuid.UUID, format string) (*Export, error) {
	saved, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ExportDocument(saved.Document(), format)
}

// ExportSession renders the session's current route in the given format.
func (s *SavedRouteService) ExportSession(ctx context.Context, sessionID, format string) (*Export, error) {
	r, err := s.sessions.CurrentRoute(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return ExportDocument(r.Document(), format)
}

// ExportDocument renders a route document as CSV (one row per address) or as
// indented JSON.
func ExportDocument(doc route.Document, format string) (*Export, error) {
	switch strings.ToLower(format) {
	case "", ExportCSV:
		body, err := exportCSV(doc)
		if err != nil {
			return nil, err
		}
		return &Export{Filename: "route_export.csv", ContentType: "text/csv", Body: body}, nil
	case ExportJSON:
		body, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode route: %w", err)
		}
		return &Export{Filename: "route_export.json", ContentType: "application/json", Body: body}, nil
	default:
		return nil, domain.NewValidationError(fmt.Sprintf("unsupported export format: %s", format))
	}
}

func exportCSV(doc route.Document) ([]byte, error) {
	if len(doc.Addresses) == 0 {
		return nil, domain.NewValidationError("no route data available to export")
	}
	if len(doc.Coordinates) < len(doc.Addresses) {
		return nil, domain.NewValidationError("route has fewer coordinates than addresses")
	}
	r, err := route.FromDocument(doc)
	if err != nil {
		return nil, err
	}

	stops := r.Stops()[:len(doc.Addresses)]
	rows := make([]*exportRow, 0, len(stops))
	for _, st := range stops {
		row := &exportRow{
			Position:  st.Index + 1,
			Address:   st.Address,
			Latitude:  st.Position.Lat,
			Longitude: st.Position.Lng,
			Category:  string(st.Category()),
		}
		if d := st.Details; d != nil && d.TimeWindowStart != "" && d.TimeWindowEnd != "" {
			row.TimeWindow = d.TimeWindowStart + " - " + d.TimeWindowEnd
		}
		rows = append(rows, row)
	}

	var buf bytes.Buffer
	if err := gocsv.Marshal(rows, &buf); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func toSavedRouteDTO(r *route.SavedRoute) *SavedRouteDTO {
	stops := r.Stops()
	out := make([]SavedStopDTO, len(stops))
	for i, st := range stops {
		out[i] = SavedStopDTO{
			Position:          st.Position,
			Address:           st.Address,
			Street:            st.Street,
			Number:            st.Number,
			City:              st.City,
			Location:          geo.LatLng{Lat: st.Latitude, Lng: st.Longitude},
			Category:          string(st.Category),
			TimeWindow:        st.TimeWindow(),
			EstimatedDuration: st.EstimatedDuration,
		}
	}
	return &SavedRouteDTO{
		ID:              r.ID(),
		Name:            r.Name(),
		TotalDistanceKm: r.TotalDistanceKm(),
		TotalTime:       r.TotalTime(),
		Stops:           out,
		CreatedAt:       r.CreatedAt(),
	}
}
