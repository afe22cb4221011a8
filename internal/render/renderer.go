// Package render turns a route into map layers and keeps per-stop distance
// annotations current while the user moves.
package render

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/geo"
	"github.com/paulmach/orb"
)

// ErrEmptyRoute is returned when asked to render a route without stops.
var ErrEmptyRoute = errors.New("route has no stops")

const (
	defaultLineColor  = "#0d6efd"
	defaultLineWeight = 5
	heavyLineWeight   = 6
	segmentOpacity    = 0.8
	implicitOpacity   = 0.7

	userMarkerID = "user-position"
)

var trafficColors = map[route.TrafficLevel]string{
	route.TrafficFree:     "#198754",
	route.TrafficLight:    "#ffc107",
	route.TrafficModerate: "#fd7e14",
	route.TrafficHeavy:    "#dc3545",
}

// Config tunes presentation.
type Config struct {
	// DetailedGeometryMinPoints is the point count from which segment geometry
	// is drawn as-is instead of as a straight line.
	DetailedGeometryMinPoints int
	FitPadding                int
}

// DefaultConfig draws geometry with more than two points and pads the view by 50.
func DefaultConfig() Config {
	return Config{DetailedGeometryMinPoints: 3, FitPadding: 50}
}

// Result describes what one Render call drew.
type Result struct {
	Markers int       `json:"markers"`
	Lines   int       `json:"lines"`
	Bounds  orb.Bound `json:"-"`
}

// Renderer owns the layers it placed on a surface.
type Renderer struct {
	mu      sync.Mutex
	surface Surface
	cfg     Config
	layers  []string
	markers map[int]Marker
	hasUser bool
}

// NewRenderer creates a Renderer drawing on surface.
func NewRenderer(surface Surface, cfg Config) *Renderer {
	if cfg.DetailedGeometryMinPoints < 2 {
		cfg.DetailedGeometryMinPoints = DefaultConfig().DetailedGeometryMinPoints
	}
	if cfg.FitPadding < 0 {
		cfg.FitPadding = 0
	}
	return &Renderer{surface: surface, cfg: cfg, markers: make(map[int]Marker)}
}

// Render replaces everything previously drawn with r.
func (rd *Renderer) Render(r *route.Route) (Result, error) {
	if r == nil || r.Empty() {
		return Result{}, ErrEmptyRoute
	}

	rd.mu.Lock()
	defer rd.mu.Unlock()

	rd.clearLocked()

	res := Result{}
	for _, stop := range r.TargetStops() {
		m := stopMarker(stop)
		rd.surface.AddMarker(m)
		rd.layers = append(rd.layers, m.ID)
		rd.markers[stop.Index] = m
		res.Markers++
	}

	var lines []Line
	if r.Implicit() {
		lines = []Line{{
			ID:      "route-line",
			Points:  r.Positions(),
			Color:   defaultLineColor,
			Weight:  defaultLineWeight,
			Opacity: implicitOpacity,
		}}
	} else {
		for i, seg := range r.Segments() {
			lines = append(lines, rd.segmentLine(i, seg, r))
		}
	}

	var bound orb.Bound
	for i, l := range lines {
		rd.surface.AddLine(l)
		rd.layers = append(rd.layers, l.ID)
		lb := lineBound(l.Points)
		if i == 0 {
			bound = lb
		} else {
			bound = bound.Union(lb)
		}
		res.Lines++
	}

	rd.surface.FitBounds(bound, rd.cfg.FitPadding)
	res.Bounds = bound
	return res, nil
}

// Clear removes every layer this renderer placed.
func (rd *Renderer) Clear() {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	rd.clearLocked()
}

func (rd *Renderer) clearLocked() {
	for _, id := range rd.layers {
		rd.surface.RemoveLayer(id)
	}
	if rd.hasUser {
		rd.surface.RemoveLayer(userMarkerID)
		rd.hasUser = false
	}
	rd.layers = nil
	rd.markers = make(map[int]Marker)
}

// UpdateDistances replaces each stop marker's distance annotation.
func (rd *Renderer) UpdateDistances(pos geo.LatLng) {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	for idx, m := range rd.markers {
		m.Annotation = DistanceText(geo.Distance(pos, m.Position))
		rd.markers[idx] = m
		rd.surface.UpdateMarker(m)
	}
}

// MarkCompleted restyles the stop marker as visited.
func (rd *Renderer) MarkCompleted(index int) {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	m, ok := rd.markers[index]
	if !ok {
		return
	}
	m.Style = MarkerCompleted
	rd.markers[index] = m
	rd.surface.UpdateMarker(m)
}

// ShowUserPosition places or moves the user's own marker.
func (rd *Renderer) ShowUserPosition(pos geo.LatLng) {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	m := Marker{
		ID:       userMarkerID,
		Position: pos,
		Title:    "Your current location",
		Icon:     route.CategoryCurrentLocation.Icon(),
		Style:    MarkerUser,
	}
	if rd.hasUser {
		rd.surface.UpdateMarker(m)
		return
	}
	rd.surface.AddMarker(m)
	rd.hasUser = true
}

// DistanceText formats a distance annotation.
func DistanceText(km float64) string {
	return fmt.Sprintf("Distance: %.1f km", km)
}

func (rd *Renderer) segmentLine(i int, seg route.Segment, r *route.Route) Line {
	l := Line{
		ID:      fmt.Sprintf("segment-%d", i),
		Color:   defaultLineColor,
		Weight:  defaultLineWeight,
		Opacity: segmentOpacity,
	}

	if len(seg.Geometry) >= rd.cfg.DetailedGeometryMinPoints {
		l.Points = append([]geo.LatLng(nil), seg.Geometry...)
	} else {
		start, _ := r.Stop(seg.StartIndex)
		end, _ := r.Stop(seg.EndIndex)
		l.Points = []geo.LatLng{start.Position, end.Position}
	}

	if t := seg.Traffic; t != nil {
		l.Color = trafficColors[t.Level]
		if t.Level == route.TrafficHeavy {
			l.Weight = heavyLineWeight
		}
		l.Popup = &Popup{Heading: t.Level.StatusText()}
		if d := t.DelayText(); d != "" {
			l.Popup.Lines = []string{d}
		}
	}
	return l
}

func stopMarker(s route.Stop) Marker {
	m := Marker{
		ID:       fmt.Sprintf("stop-%d", s.Index),
		Position: s.Position,
		Label:    s.Label(),
		Title:    fmt.Sprintf("Stop %d", s.Index+1),
		Icon:     "map-marker",
		Style:    MarkerDefault,
	}

	switch {
	case s.Details != nil:
		d := s.Details
		category := s.Category()
		m.Icon = category.Icon()
		p := &Popup{Heading: strings.TrimSpace(fmt.Sprintf("%d. %s %s", s.Index+1, d.Street, d.Number))}
		if d.City != "" {
			p.Lines = append(p.Lines, d.City)
		}
		p.Lines = append(p.Lines, category.DisplayName())
		if d.EstimatedArrival != "" {
			p.Lines = append(p.Lines, "Estimated arrival: "+d.EstimatedArrival)
		}
		if d.TimeWindowStart != "" && d.TimeWindowEnd != "" {
			p.Lines = append(p.Lines, fmt.Sprintf("Window: %s - %s", d.TimeWindowStart, d.TimeWindowEnd))
		}
		m.Popup = p
	case s.Address != "":
		m.Popup = &Popup{Lines: []string{s.Address}}
	}
	return m
}

func lineBound(points []geo.LatLng) orb.Bound {
	mp := make(orb.MultiPoint, len(points))
	for i, p := range points {
		mp[i] = p.Point()
	}
	return mp.Bound()
}
