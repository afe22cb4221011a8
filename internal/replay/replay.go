// Package replay drives the tracking machine with a recorded or simulated
// sequence of position fixes, without any of the service's I/O.
package replay

import (
	"fmt"
	"io"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/tracking"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/geo"
	"github.com/gocarina/gocsv"
)

// Fix is one recorded position row.
type Fix struct {
	Latitude  float64 `csv:"latitude"`
	Longitude float64 `csv:"longitude"`
}

// Step records what one fix did to the session.
type Step struct {
	Fix     int
	At      geo.LatLng
	Status  tracking.Status
	Target  int
	Arrived []int
}

// Report summarizes a replay.
type Report struct {
	Steps    []Step
	Arrivals []int
	Final    tracking.State
}

// Complete reports whether the replay ended with the route complete.
func (r Report) Complete() bool {
	return r.Final.Status == tracking.StatusRouteComplete
}

// ReadFixes parses a CSV with latitude and longitude columns.
func ReadFixes(in io.Reader) ([]geo.LatLng, error) {
	var rows []*Fix
	if err := gocsv.Unmarshal(in, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse position fixes: %w", err)
	}
	out := make([]geo.LatLng, 0, len(rows))
	for i, row := range rows {
		p := geo.LatLng{Lat: row.Latitude, Lng: row.Longitude}
		if !p.Valid() {
			return nil, fmt.Errorf("fix %d: coordinate out of range", i+1)
		}
		out = append(out, p)
	}
	return out, nil
}

// Simulate walks straight lines between consecutive stops in steps hops,
// ending exactly on every stop.
func Simulate(r *route.Route, steps int) []geo.LatLng {
	if steps < 1 {
		steps = 1
	}
	positions := r.Positions()
	if len(positions) == 0 {
		return nil
	}
	out := []geo.LatLng{positions[0]}
	for i := 1; i < len(positions); i++ {
		from, to := positions[i-1], positions[i]
		for s := 1; s <= steps; s++ {
			f := float64(s) / float64(steps)
			out = append(out, geo.LatLng{
				Lat: from.Lat + (to.Lat-from.Lat)*f,
				Lng: from.Lng + (to.Lng-from.Lng)*f,
			})
		}
	}
	return out
}

// Run installs the route, starts navigation from the first fix and samples
// the remaining fixes until the route completes or the fixes run out.
func Run(machine *tracking.Machine, r *route.Route, fixes []geo.LatLng) (Report, error) {
	var report Report

	tr, err := machine.Receive(tracking.NewState(), r)
	if err != nil {
		return report, err
	}
	state := tr.State

	var live *geo.LatLng
	if len(fixes) > 0 {
		live = &fixes[0]
	}
	tr, err = machine.Start(state, r, live)
	if err != nil {
		return report, err
	}
	state = tr.State

	for i, fix := range fixes {
		tr = machine.Sample(state, r, fix)
		state = tr.State

		step := Step{Fix: i, At: fix, Status: state.Status, Target: state.Target}
		for _, e := range tr.Effects {
			if done, ok := e.(tracking.MarkStopCompleted); ok {
				step.Arrived = append(step.Arrived, done.Index)
				report.Arrivals = append(report.Arrivals, done.Index)
			}
		}
		report.Steps = append(report.Steps, step)

		if state.Status.IsTerminal() {
			break
		}
	}

	report.Final = state
	return report, nil
}
