package render

import (
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/geo"
	"github.com/paulmach/orb"
)

// MarkerStyle selects how a stop marker is drawn.
type MarkerStyle string

const (
	MarkerDefault   MarkerStyle = "default"
	MarkerCompleted MarkerStyle = "completed"
	MarkerUser      MarkerStyle = "user"
)

// Popup is the rich content attached to a marker or line.
type Popup struct {
	Heading string   `json:"heading,omitempty"`
	Lines   []string `json:"lines,omitempty"`
}

// Marker is a point layer.
type Marker struct {
	ID       string
	Position geo.LatLng
	Label    string
	Title    string
	Icon     string
	Style    MarkerStyle
	Popup    *Popup
	// Annotation is the live distance text, replaced on each position update.
	Annotation string
}

// Line is a polyline layer.
type Line struct {
	ID      string
	Points  []geo.LatLng
	Color   string
	Weight  int
	Opacity float64
	Popup   *Popup
}

// Surface is the map the renderer draws on.
type Surface interface {
	AddMarker(m Marker)
	UpdateMarker(m Marker)
	AddLine(l Line)
	RemoveLayer(id string)
	FitBounds(bounds orb.Bound, padding int)
}
