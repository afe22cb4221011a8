package render

import (
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// GeoJSONSurface keeps the drawn layers as GeoJSON features that a browser
// map can draw verbatim.
type GeoJSONSurface struct {
	mu      sync.RWMutex
	order   []string
	markers map[string]Marker
	lines   map[string]Line
	bounds  *orb.Bound
	padding int
}

// NewGeoJSONSurface creates an empty surface.
func NewGeoJSONSurface() *GeoJSONSurface {
	return &GeoJSONSurface{
		markers: make(map[string]Marker),
		lines:   make(map[string]Line),
	}
}

// AddMarker implements Surface. Adding an existing ID replaces the layer.
func (s *GeoJSONSurface) AddMarker(m Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(m.ID)
	s.markers[m.ID] = m
	s.order = append(s.order, m.ID)
}

// UpdateMarker implements Surface. Unknown IDs are ignored.
func (s *GeoJSONSurface) UpdateMarker(m Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markers[m.ID]; ok {
		s.markers[m.ID] = m
	}
}

// AddLine implements Surface.
func (s *GeoJSONSurface) AddLine(l Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(l.ID)
	s.lines[l.ID] = l
	s.order = append(s.order, l.ID)
}

// RemoveLayer implements Surface.
func (s *GeoJSONSurface) RemoveLayer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

// FitBounds implements Surface.
func (s *GeoJSONSurface) FitBounds(bounds orb.Bound, padding int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := bounds
	s.bounds = &b
	s.padding = padding
}

func (s *GeoJSONSurface) removeLocked(id string) {
	_, isMarker := s.markers[id]
	_, isLine := s.lines[id]
	if !isMarker && !isLine {
		return
	}
	delete(s.markers, id)
	delete(s.lines, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// MarkerCount returns the number of marker layers.
func (s *GeoJSONSurface) MarkerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.markers)
}

// LineCount returns the number of line layers.
func (s *GeoJSONSurface) LineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines)
}

// Marker returns the marker layer with the given ID.
func (s *GeoJSONSurface) Marker(id string) (Marker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markers[id]
	return m, ok
}

// Lines returns the line layers in drawing order.
func (s *GeoJSONSurface) Lines() []Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Line
	for _, id := range s.order {
		if l, ok := s.lines[id]; ok {
			out = append(out, l)
		}
	}
	return out
}

// View is the serialized map state.
type View struct {
	Features *geojson.FeatureCollection `json:"features"`
	Bounds   *[4]float64                `json:"bounds,omitempty"` // [west, south, east, north]
	Padding  int                        `json:"padding,omitempty"`
}

// View returns the layers as a GeoJSON feature collection in drawing order.
func (s *GeoJSONSurface) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fc := geojson.NewFeatureCollection()
	for _, id := range s.order {
		if m, ok := s.markers[id]; ok {
			fc.Append(markerFeature(m))
			continue
		}
		if l, ok := s.lines[id]; ok {
			fc.Append(lineFeature(l))
		}
	}

	v := View{Features: fc, Padding: s.padding}
	if s.bounds != nil {
		v.Bounds = &[4]float64{s.bounds.Left(), s.bounds.Bottom(), s.bounds.Right(), s.bounds.Top()}
	}
	return v
}

func markerFeature(m Marker) *geojson.Feature {
	f := geojson.NewFeature(m.Position.Point())
	f.ID = m.ID
	f.Properties["layer"] = "marker"
	f.Properties["label"] = m.Label
	f.Properties["title"] = m.Title
	f.Properties["icon"] = m.Icon
	f.Properties["style"] = string(m.Style)
	if m.Popup != nil {
		f.Properties["popup"] = m.Popup
	}
	if m.Annotation != "" {
		f.Properties["annotation"] = m.Annotation
	}
	return f
}

func lineFeature(l Line) *geojson.Feature {
	ls := make(orb.LineString, len(l.Points))
	for i, p := range l.Points {
		ls[i] = p.Point()
	}
	f := geojson.NewFeature(ls)
	f.ID = l.ID
	f.Properties["layer"] = "line"
	f.Properties["color"] = l.Color
	f.Properties["weight"] = l.Weight
	f.Properties["opacity"] = l.Opacity
	if l.Popup != nil {
		f.Properties["popup"] = l.Popup
	}
	return f
}
