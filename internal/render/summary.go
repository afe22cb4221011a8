package render

import (
	"sort"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/route"
)

// StopSummary is one row of the route order list.
type StopSummary struct {
	Index            int    `json:"index"`
	Label            string `json:"label"`
	Address          string `json:"address,omitempty"`
	Category         string `json:"category"`
	CategoryName     string `json:"category_name"`
	EstimatedArrival string `json:"estimated_arrival,omitempty"`
	TimeWindow       string `json:"time_window,omitempty"`
	Completed        bool   `json:"completed"`
}

// TrafficShare is the percentage of segments at one traffic level.
type TrafficShare struct {
	Level   int    `json:"level"`
	Status  string `json:"status"`
	Color   string `json:"color"`
	Percent int    `json:"percent"`
}

// Summary is the textual overview shown next to the map.
type Summary struct {
	TotalDistanceKm  float64        `json:"total_distance_km"`
	TotalTime        string         `json:"total_time,omitempty"`
	TrafficDelayText string         `json:"traffic_delay_text,omitempty"`
	Traffic          []TrafficShare `json:"traffic,omitempty"`
	Stops            []StopSummary  `json:"stops"`
}

// Summarize builds the overview of r. completed lists the stops already reached.
func Summarize(r *route.Route, completed []int) Summary {
	done := make(map[int]bool, len(completed))
	for _, c := range completed {
		done[c] = true
	}

	totals := r.Totals()
	traffic := r.Traffic()
	sum := Summary{
		TotalDistanceKm: totals.DistanceKm,
		TotalTime:       totals.DisplayTime,
		Stops:           []StopSummary{},
	}
	if traffic.HasTrafficData {
		sum.TrafficDelayText = traffic.DelayText
	}

	for level, pct := range traffic.Percentages() {
		sum.Traffic = append(sum.Traffic, TrafficShare{
			Level:   int(level),
			Status:  level.StatusText(),
			Color:   trafficColors[level],
			Percent: pct,
		})
	}
	sort.Slice(sum.Traffic, func(i, j int) bool { return sum.Traffic[i].Level < sum.Traffic[j].Level })

	for _, s := range r.TargetStops() {
		category := s.Category()
		row := StopSummary{
			Index:        s.Index,
			Label:        s.Label(),
			Address:      s.Address,
			Category:     string(category),
			CategoryName: category.DisplayName(),
			Completed:    done[s.Index],
		}
		if d := s.Details; d != nil {
			row.EstimatedArrival = d.EstimatedArrival
			if d.TimeWindowStart != "" && d.TimeWindowEnd != "" {
				row.TimeWindow = d.TimeWindowStart + " - " + d.TimeWindowEnd
			}
			if row.Address == "" {
				row.Address = d.FormattedAddress
			}
		}
		sum.Stops = append(sum.Stops, row)
	}
	return sum
}
