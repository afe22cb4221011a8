package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SavedRouteModel is the GORM model for the saved_routes table.
type SavedRouteModel struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Name            string           `gorm:"not null;size:100"`
	TotalDistanceKm float64          `gorm:"not null;default:0"`
	TotalTime       string           `gorm:"size:50"`
	Document        json.RawMessage  `gorm:"type:jsonb;not null"`
	Stops           []SavedStopModel `gorm:"foreignKey:RouteID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time        `gorm:"not null;index"`
}

// TableName returns the table name for the GORM model.
func (SavedRouteModel) TableName() string {
	return "saved_routes"
}

// SavedStopModel is the GORM model for the saved_route_stops table.
type SavedStopModel struct {
	ID                uint      `gorm:"primaryKey"`
	RouteID           uuid.UUID `gorm:"type:uuid;index;not null"`
	Position          int       `gorm:"not null"`
	Address           string    `gorm:"not null;size:200"`
	Street            string    `gorm:"size:100"`
	Number            string    `gorm:"size:20"`
	City              string    `gorm:"size:100"`
	Latitude          float64   `gorm:"not null"`
	Longitude         float64   `gorm:"not null"`
	Category          string    `gorm:"size:20;default:'home'"`
	TimeWindowStart   string    `gorm:"size:5"`
	TimeWindowEnd     string    `gorm:"size:5"`
	EstimatedDuration int       `gorm:"default:10"`
}

// TableName returns the table name for the GORM model.
func (SavedStopModel) TableName() string {
	return "saved_route_stops"
}

// GormSavedRouteRepository is the GORM-based implementation of SavedRouteRepository.
type GormSavedRouteRepository struct {
	db *gorm.DB
}

// NewGormSavedRouteRepository creates a new GormSavedRouteRepository.
func NewGormSavedRouteRepository(db *gorm.DB) *GormSavedRouteRepository {
	return &GormSavedRouteRepository{db: db}
}

// FindByID retrieves a saved route with its stops in position order.
func (r *GormSavedRouteRepository) FindByID(ctx context.Context, id uuid.UUID) (*route.SavedRoute, error) {
	var model SavedRouteModel
	if err := r.db.WithContext(ctx).
		Preload("Stops", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("SavedRoute", id.String())
		}
		return nil, fmt.Errorf("failed to find saved route by ID: %w", err)
	}
	return toDomainSavedRoute(&model)
}

// List retrieves saved routes, newest first, with pagination.
func (r *GormSavedRouteRepository) List(ctx context.Context, page, limit int) ([]*route.SavedRoute, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&SavedRouteModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count saved routes: %w", err)
	}

	var models []SavedRouteModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Preload("Stops", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list saved routes: %w", err)
	}

	routes := make([]*route.SavedRoute, len(models))
	for i := range models {
		sr, err := toDomainSavedRoute(&models[i])
		if err != nil {
			return nil, 0, err
		}
		routes[i] = sr
	}
	return routes, total, nil
}

// Save persists a new saved route together with its stops.
func (r *GormSavedRouteRepository) Save(ctx context.Context, sr *route.SavedRoute) error {
	model, err := toSavedRouteModel(sr)
	if err != nil {
		return fmt.Errorf("failed to convert saved route to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save route: %w", err)
	}
	return nil
}

// Delete removes a saved route and its stops.
func (r *GormSavedRouteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("route_id = ?", id).Delete(&SavedStopModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete saved route stops: %w", err)
		}
		result := tx.Where("id = ?", id).Delete(&SavedRouteModel{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete saved route: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.NewNotFoundError("SavedRoute", id.String())
		}
		return nil
	})
}

// --- Mapping helpers ---

func toSavedRouteModel(sr *route.SavedRoute) (*SavedRouteModel, error) {
	document, err := json.Marshal(sr.Document())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal route document: %w", err)
	}

	stops := sr.Stops()
	stopModels := make([]SavedStopModel, len(stops))
	for i, s := range stops {
		stopModels[i] = SavedStopModel{
			RouteID:           sr.ID(),
			Position:          s.Position,
			Address:           s.Address,
			Street:            s.Street,
			Number:            s.Number,
			City:              s.City,
			Latitude:          s.Latitude,
			Longitude:         s.Longitude,
			Category:          string(s.Category),
			TimeWindowStart:   s.TimeWindowStart,
			TimeWindowEnd:     s.TimeWindowEnd,
			EstimatedDuration: s.EstimatedDuration,
		}
	}

	return &SavedRouteModel{
		ID:              sr.ID(),
		Name:            sr.Name(),
		TotalDistanceKm: sr.TotalDistanceKm(),
		TotalTime:       sr.TotalTime(),
		Document:        document,
		Stops:           stopModels,
		CreatedAt:       sr.CreatedAt(),
	}, nil
}

func toDomainSavedRoute(m *SavedRouteModel) (*route.SavedRoute, error) {
	var document route.Document
	if err := json.Unmarshal(m.Document, &document); err != nil {
		return nil, fmt.Errorf("failed to unmarshal route document: %w", err)
	}

	stops := make([]route.SavedStop, len(m.Stops))
	for i, s := range m.Stops {
		stops[i] = route.SavedStop{
			Position:          s.Position,
			Address:           s.Address,
			Street:            s.Street,
			Number:            s.Number,
			City:              s.City,
			Latitude:          s.Latitude,
			Longitude:         s.Longitude,
			Category:          route.ParseCategory(s.Category),
			TimeWindowStart:   s.TimeWindowStart,
			TimeWindowEnd:     s.TimeWindowEnd,
			EstimatedDuration: s.EstimatedDuration,
		}
	}

	return route.ReconstructSavedRoute(
		m.ID,
		m.Name,
		m.TotalDistanceKm,
		m.TotalTime,
		document,
		stops,
		m.CreatedAt,
	), nil
}
