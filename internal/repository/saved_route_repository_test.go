package repository

import (
	"testing"
	"time"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSavedRouteModelRoundTrip(t *testing.T) {
	doc := route.Document{
		Coordinates: [][]float64{{4.9, 52.37}, {4.95, 52.36}, {4.9, 52.37}},
		Addresses:   []string{"Depot", "Office park", "Depot"},
		LocationDetails: []route.LocationDetails{
			{Category: "business"},
			{Category: "office", Street: "Keizersgracht", Number: "12", City: "Amsterdam", TimeWindowStart: "09:00", TimeWindowEnd: "11:30"},
		},
		TotalDistance: 8.4,
		TotalTime:     "22 min",
	}
	r, err := route.FromDocument(doc)
	require.NoError(t, err)
	sr, err := route.NewSavedRoute("Tuesday", r)
	require.NoError(t, err)

	model, err := toSavedRouteModel(sr)
	require.NoError(t, err)
	assert.Equal(t, "Tuesday", model.Name)
	require.Len(t, model.Stops, 2)
	assert.Equal(t, sr.ID(), model.Stops[1].RouteID)
	assert.Equal(t, "office", model.Stops[1].Category)
	assert.Equal(t, "11:30", model.Stops[1].TimeWindowEnd)

	back, err := toDomainSavedRoute(model)
	require.NoError(t, err)
	assert.Equal(t, sr.ID(), back.ID())
	assert.InDelta(t, 8.4, back.TotalDistanceKm(), 1e-9)
	assert.Equal(t, doc.Addresses, back.Document().Addresses)
	assert.Equal(t, route.CategoryOffice, back.Stops()[1].Category)
	assert.Equal(t, "09:00 - 11:30", back.Stops()[1].TimeWindow())
	assert.WithinDuration(t, sr.CreatedAt(), back.CreatedAt(), time.Second)
}

func TestToDomainSavedRouteRejectsBadDocument(t *testing.T) {
	_, err := toDomainSavedRoute(&SavedRouteModel{Document: []byte("{")})
	assert.Error(t, err)
}
