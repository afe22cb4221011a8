package route

import (
	"fmt"
	"math"
	"strings"
)

// TrafficLevel is the ordinal severity of a segment's traffic.
type TrafficLevel int

const (
	TrafficFree     TrafficLevel = 0
	TrafficLight    TrafficLevel = 1
	TrafficModerate TrafficLevel = 2
	TrafficHeavy    TrafficLevel = 3
)

var trafficColorNames = map[string]TrafficLevel{
	"green":  TrafficFree,
	"yellow": TrafficLight,
	"orange": TrafficModerate,
	"red":    TrafficHeavy,
}

// Valid reports whether the level is one of the four known severities.
func (l TrafficLevel) Valid() bool {
	return l >= TrafficFree && l <= TrafficHeavy
}

// ColorName returns the backend color name for the level.
func (l TrafficLevel) ColorName() string {
	switch l {
	case TrafficFree:
		return "green"
	case TrafficLight:
		return "yellow"
	case TrafficModerate:
		return "orange"
	case TrafficHeavy:
		return "red"
	default:
		return ""
	}
}

// StatusText returns the human readable traffic description.
func (l TrafficLevel) StatusText() string {
	switch l {
	case TrafficFree:
		return "Free flowing traffic"
	case TrafficLight:
		return "Light traffic"
	case TrafficModerate:
		return "Moderate traffic"
	case TrafficHeavy:
		return "Heavy traffic"
	default:
		return ""
	}
}

// ParseTrafficColor maps a backend color name to a level.
func ParseTrafficColor(color string) (TrafficLevel, bool) {
	l, ok := trafficColorNames[strings.ToLower(strings.TrimSpace(color))]
	return l, ok
}

// Traffic is the classification attached to a segment.
type Traffic struct {
	Level        TrafficLevel
	DelaySeconds float64
}

// DelayMinutes returns the delay rounded to whole minutes.
func (t Traffic) DelayMinutes() int {
	return int(math.Round(t.DelaySeconds / 60))
}

// DelayText returns "+N min delay", or "" when there is no delay.
func (t Traffic) DelayText() string {
	if t.DelaySeconds <= 0 {
		return ""
	}
	return fmt.Sprintf("+%d min delay", t.DelayMinutes())
}

// trafficFromDocument derives the classification from level or color.
// Out-of-range levels and unknown colors count as absent.
func trafficFromDocument(seg SegmentDocument) *Traffic {
	var (
		level TrafficLevel
		found bool
	)
	if seg.TrafficLevel != nil && TrafficLevel(*seg.TrafficLevel).Valid() {
		level, found = TrafficLevel(*seg.TrafficLevel), true
	} else if seg.TrafficColor != "" {
		level, found = ParseTrafficColor(seg.TrafficColor)
	}
	if !found {
		return nil
	}
	delay := seg.TrafficDelay.Float64()
	if delay < 0 || math.IsNaN(delay) {
		delay = 0
	}
	return &Traffic{Level: level, DelaySeconds: delay}
}
