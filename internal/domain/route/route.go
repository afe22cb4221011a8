package route

import (
	"fmt"
	"math"
	"strings"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/geo"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/domain"
)

// Stop is one planned location on a route.
type Stop struct {
	Index    int
	Position geo.LatLng
	Address  string
	Details  *LocationDetails
	Closing  bool
}

// Category returns the stop's display category.
func (s Stop) Category() Category {
	if s.Details == nil {
		return CategoryHome
	}
	return ParseCategory(s.Details.Category)
}

// Label is the short marker label: "Start" for the origin, else the 1-based ordinal.
func (s Stop) Label() string {
	if s.Index == 0 {
		return "Start"
	}
	return fmt.Sprintf("%d", s.Index+1)
}

// Description names the stop for notices: "street number, locality" when
// details are known, where the locality is the formatted address or else the
// city. Without details it is the address, else "Stop N".
func (s Stop) Description() string {
	if d := s.Details; d != nil {
		locality := d.FormattedAddress
		if locality == "" {
			locality = d.City
		}
		name := strings.TrimSpace(d.Street + " " + d.Number)
		switch {
		case name != "" && locality != "":
			return name + ", " + locality
		case name != "":
			return name
		case locality != "":
			return locality
		}
	}
	if s.Address != "" {
		return s.Address
	}
	return fmt.Sprintf("Stop %d", s.Index+1)
}

// Segment connects Stops[StartIndex] to Stops[EndIndex].
type Segment struct {
	StartIndex int
	EndIndex   int
	Geometry   []geo.LatLng
	Traffic    *Traffic
}

// Totals are the aggregate figures reported by the backend.
type Totals struct {
	DistanceKm      float64
	DisplayTime     string
	DurationSeconds float64
}

// TrafficSummary is the route-wide traffic information.
type TrafficSummary struct {
	DelayText      string
	HasTrafficData bool
	Levels         []TrafficLevel
}

// Percentages returns the share of each level among the reported conditions,
// rounded to whole percent. Levels with no segments are omitted.
func (t TrafficSummary) Percentages() map[TrafficLevel]int {
	out := make(map[TrafficLevel]int)
	if len(t.Levels) == 0 {
		return out
	}
	counts := make(map[TrafficLevel]int)
	for _, l := range t.Levels {
		counts[l]++
	}
	for l, n := range counts {
		out[l] = int(math.Round(float64(n) / float64(len(t.Levels)) * 100))
	}
	return out
}

// Route is an immutable view of a planned route. A new route replaces the old one wholesale.
type Route struct {
	stops                   []Stop
	segments                []Segment
	totals                  Totals
	traffic                 TrafficSummary
	originIsCurrentLocation bool
	document                Document
}

// FromDocument converts a backend document into a Route. This is the only place
// where [longitude, latitude] pairs are turned into geo.LatLng.
func FromDocument(doc Document) (*Route, error) {
	stops := make([]Stop, 0, len(doc.Coordinates))
	for i, pair := range doc.Coordinates {
		pos, err := toLatLng(pair)
		if err != nil {
			return nil, domain.NewValidationError(fmt.Sprintf("stop %d: %v", i, err))
		}
		stop := Stop{Index: i, Position: pos}
		if i < len(doc.Addresses) {
			stop.Address = doc.Addresses[i]
		}
		if i < len(doc.LocationDetails) {
			details := doc.LocationDetails[i]
			stop.Details = &details
		}
		stops = append(stops, stop)
	}

	if n := len(stops); n > 1 && stops[n-1].Position.Equal(stops[0].Position) {
		stops[n-1].Closing = true
	}

	r := &Route{
		stops: stops,
		totals: Totals{
			DistanceKm:      doc.TotalDistance.Float64(),
			DisplayTime:     doc.TotalTime,
			DurationSeconds: doc.TotalDurationSeconds.Float64(),
		},
		traffic: TrafficSummary{
			DelayText:      doc.TrafficDelayText,
			HasTrafficData: doc.HasTrafficData,
		},
		document: doc,
	}
	if r.totals.DistanceKm == 0 && doc.RouteDetails != nil {
		r.totals.DistanceKm = doc.RouteDetails.TotalDistance.Float64()
	}
	for _, c := range doc.TrafficConditions {
		if c.Level != nil && TrafficLevel(*c.Level).Valid() {
			r.traffic.Levels = append(r.traffic.Levels, TrafficLevel(*c.Level))
		}
	}

	r.originIsCurrentLocation = doc.UseCurrentLocation ||
		(len(stops) > 0 && stops[0].Category() == CategoryCurrentLocation)

	r.segments = buildSegments(doc.SegmentDocuments(), stops)

	return r, nil
}

// buildSegments returns len(stops)-1 segments, filling any gap with a straight
// segment. No segment documents at all means the route is one implicit segment.
func buildSegments(docs []SegmentDocument, stops []Stop) []Segment {
	if len(docs) == 0 || len(stops) < 2 {
		return nil
	}

	segments := make([]Segment, len(stops)-1)
	for i := range segments {
		segments[i] = Segment{StartIndex: i, EndIndex: i + 1}
	}

	for _, sd := range docs {
		if sd.StartIdx < 0 || sd.StartIdx >= len(segments) {
			continue
		}
		seg := &segments[sd.StartIdx]
		for _, pair := range sd.Geometry {
			p, err := toLatLng(pair)
			if err != nil {
				// A broken geometry degrades to the straight line.
				seg.Geometry = nil
				break
			}
			seg.Geometry = append(seg.Geometry, p)
		}
		seg.Traffic = trafficFromDocument(sd)
	}
	return segments
}

func toLatLng(pair []float64) (geo.LatLng, error) {
	if len(pair) < 2 {
		return geo.LatLng{}, fmt.Errorf("coordinate must be a [longitude, latitude] pair, got %d values", len(pair))
	}
	p := geo.FromLonLat([2]float64{pair[0], pair[1]})
	if !p.Valid() {
		return geo.LatLng{}, fmt.Errorf("coordinate %v is out of range", pair)
	}
	return p, nil
}

// --- Getters ---

// Stops returns a copy of the ordered stops.
func (r *Route) Stops() []Stop { return append([]Stop(nil), r.stops...) }

// StopCount returns the number of stops, including a closing stop.
func (r *Route) StopCount() int { return len(r.stops) }

// Segments returns a copy of the segments. Empty for an implicit route.
func (r *Route) Segments() []Segment { return append([]Segment(nil), r.segments...) }

// Totals returns the backend's aggregate distance and time.
func (r *Route) Totals() Totals { return r.totals }

// Traffic returns the route-wide traffic summary.
func (r *Route) Traffic() TrafficSummary { return r.traffic }

// OriginIsCurrentLocation reports whether stop 0 is the user's own position.
func (r *Route) OriginIsCurrentLocation() bool { return r.originIsCurrentLocation }

// Document returns the document the route was built from.
func (r *Route) Document() Document { return r.document }

// Stop returns the stop at index i.
func (r *Route) Stop(i int) (Stop, bool) {
	if i < 0 || i >= len(r.stops) {
		return Stop{}, false
	}
	return r.stops[i], true
}

// Empty reports whether the route has no stops.
func (r *Route) Empty() bool { return len(r.stops) == 0 }

// Implicit reports whether the backend supplied no segmentation, in which case
// the route is drawn as one line through all stops.
func (r *Route) Implicit() bool { return len(r.segments) == 0 }

// HasClosingStop reports whether the last stop returns to the origin.
func (r *Route) HasClosingStop() bool {
	return len(r.stops) > 1 && r.stops[len(r.stops)-1].Closing
}

// TargetStops returns the stops that are real destinations: every stop except
// a trailing closing stop.
func (r *Route) TargetStops() []Stop {
	if r.HasClosingStop() {
		return append([]Stop(nil), r.stops[:len(r.stops)-1]...)
	}
	return r.Stops()
}

// FirstTarget is the index navigation starts towards: 1 when stop 0 is the
// user's own position, else 0.
func (r *Route) FirstTarget() int {
	if r.originIsCurrentLocation && len(r.stops) > 1 {
		return 1
	}
	return 0
}

// Positions returns all stop positions in order.
func (r *Route) Positions() []geo.LatLng {
	out := make([]geo.LatLng, len(r.stops))
	for i, s := range r.stops {
		out[i] = s.Position
	}
	return out
}
