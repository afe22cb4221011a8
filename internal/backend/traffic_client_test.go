package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCheckTrafficDecodesUpdate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/check_traffic", r.URL.Path)

		var doc route.Document
		require.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
		assert.Len(t, doc.Coordinates, 2)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"has_traffic_update": true,
			"traffic_update_reason": "Accident on A10",
			"coordinates": [[4.9, 52.3], [4.95, 52.35]],
			"addresses": ["A", "B"],
			"total_distance": "7.5"
		}`))
	}))
	defer srv.Close()

	client := NewTrafficClient(Config{BaseURL: srv.URL + "/"}, zap.NewNop())
	doc := route.Document{Coordinates: [][]float64{{4.9, 52.3}, {4.95, 52.35}}}

	update, err := client.CheckTraffic(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, update.HasTrafficUpdate)
	assert.Equal(t, "Accident on A10", update.TrafficUpdateReason)
	assert.Equal(t, []string{"A", "B"}, update.Addresses)
	assert.InDelta(t, 7.5, update.TotalDistance.Float64(), 1e-9)
}

func TestCheckTrafficRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"has_traffic_update": false}`))
	}))
	defer srv.Close()

	client := NewTrafficClient(Config{BaseURL: srv.URL, MaxRetries: 2}, zap.NewNop())
	update, err := client.CheckTraffic(context.Background(), route.Document{})
	require.NoError(t, err)
	assert.False(t, update.HasTrafficUpdate)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCheckTrafficDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewTrafficClient(Config{BaseURL: srv.URL, MaxRetries: 3}, zap.NewNop())
	_, err := client.CheckTraffic(context.Background(), route.Document{})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
