package route

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Document is the route description produced by the routing backend.
// Coordinates arrive as [longitude, latitude] pairs.
type Document struct {
	Coordinates          [][]float64        `json:"coordinates"`
	Addresses            []string           `json:"addresses,omitempty"`
	LocationDetails      []LocationDetails  `json:"location_details,omitempty"`
	Segments             []SegmentDocument  `json:"segments,omitempty"`
	RouteDetails         *RouteDetails      `json:"route_details,omitempty"`
	TotalDistance        Number             `json:"total_distance,omitempty"`
	TotalTime            string             `json:"total_time,omitempty"`
	TotalDurationSeconds Number             `json:"total_duration_seconds,omitempty"`
	TrafficDelayText     string             `json:"traffic_delay_text,omitempty"`
	HasTrafficData       bool               `json:"has_traffic_data,omitempty"`
	TrafficConditions    []TrafficCondition `json:"traffic_conditions,omitempty"`
	UseCurrentLocation   bool               `json:"use_current_location,omitempty"`
}

// RouteDetails is the legacy nesting some backends still use for segments.
type RouteDetails struct {
	Segments      []SegmentDocument `json:"segments,omitempty"`
	TotalDistance Number            `json:"total_distance,omitempty"`
}

// LocationDetails describes one stop as entered by the planner.
type LocationDetails struct {
	Street            string `json:"street,omitempty"`
	Number            string `json:"number,omitempty"`
	City              string `json:"city,omitempty"`
	Category          string `json:"category,omitempty"`
	TimeWindowStart   string `json:"time_window_start,omitempty"`
	TimeWindowEnd     string `json:"time_window_end,omitempty"`
	EstimatedArrival  string `json:"estimated_arrival,omitempty"`
	FormattedAddress  string `json:"formatted_address,omitempty"`
	EstimatedDuration Number `json:"estimated_duration,omitempty"`
}

// SegmentDocument is one leg between two consecutive stops.
type SegmentDocument struct {
	StartIdx     int         `json:"start_idx"`
	EndIdx       int         `json:"end_idx"`
	Geometry     [][]float64 `json:"geometry,omitempty"`
	TrafficColor string      `json:"traffic_color,omitempty"`
	TrafficLevel *int        `json:"traffic_level,omitempty"`
	TrafficDelay Number      `json:"traffic_delay,omitempty"`
}

// TrafficCondition is a per-segment traffic level reported in the summary.
type TrafficCondition struct {
	Segment int  `json:"segment"`
	Level   *int `json:"level,omitempty"`
}

// TrafficUpdate is the response of a traffic re-check.
type TrafficUpdate struct {
	HasTrafficUpdate    bool   `json:"has_traffic_update"`
	TrafficUpdateReason string `json:"traffic_update_reason,omitempty"`
	Document
}

// SegmentDocuments returns the top-level segments, falling back to route_details.
func (d Document) SegmentDocuments() []SegmentDocument {
	if len(d.Segments) > 0 {
		return d.Segments
	}
	if d.RouteDetails != nil {
		return d.RouteDetails.Segments
	}
	return nil
}

// Number is a float that also accepts numeric strings, as backends are not
// consistent about quoting distances and durations.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", s, err)
		}
		*n = Number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Number(v)
	return nil
}

// Float64 returns the value as float64.
func (n Number) Float64() float64 { return float64(n) }
