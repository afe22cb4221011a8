package tracking

import (
	"testing"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/geo"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildRoute(t *testing.T, useCurrentLocation bool, coords ...[]float64) *route.Route {
	t.Helper()
	r, err := route.FromDocument(route.Document{Coordinates: coords, UseCurrentLocation: useCurrentLocation})
	require.NoError(t, err)
	return r
}

func startedState(t *testing.T, m *Machine, r *route.Route) State {
	t.Helper()
	tr, err := m.Receive(NewState(), r)
	require.NoError(t, err)
	tr, err = m.Start(tr.State, r, nil)
	require.NoError(t, err)
	return tr.State
}

func effectsOf[T Effect](effects []Effect) []T {
	var out []T
	for _, e := range effects {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func TestReceiveMovesToAwaitingStart(t *testing.T) {
	m := NewMachine(DefaultPolicy())
	r := buildRoute(t, true, []float64{101.0, 3.0}, []float64{101.1, 3.1})

	tr, err := m.Receive(NewState(), r)
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingStart, tr.State.Status)
	assert.Equal(t, 1, tr.State.Target)
	assert.Empty(t, tr.Effects)
}

func TestReceiveRejectsEmptyRoute(t *testing.T) {
	m := NewMachine(DefaultPolicy())
	r := buildRoute(t, false)

	_, err := m.Receive(NewState(), r)
	assert.True(t, domain.IsValidation(err))
}

func TestReceiveDuringNavigationStopsMonitoringKeepsTracking(t *testing.T) {
	m := NewMachine(DefaultPolicy())
	r := buildRoute(t, true, []float64{101.0, 3.0}, []float64{101.1, 3.1}, []float64{101.2, 3.2})
	s := startedState(t, m, r)
	s = m.SetTracking(s, true).State

	tr, err := m.Receive(s, r)
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingStart, tr.State.Status)
	assert.Len(t, effectsOf[StopMonitoring](tr.Effects), 1)
	assert.Empty(t, effectsOf[StopTracking](tr.Effects))
	assert.Len(t, effectsOf[StartTracking](tr.Effects), 1)
	assert.False(t, tr.State.MonitoringEnabled)
	assert.True(t, tr.State.TrackingEnabled)
}

func TestStartRequiresAwaitingStart(t *testing.T) {
	m := NewMachine(DefaultPolicy())
	r := buildRoute(t, false, []float64{101.0, 3.0}, []float64{101.1, 3.1})

	_, err := m.Start(NewState(), r, nil)
	assert.True(t, domain.IsInvalidState(err))

	s := startedState(t, m, r)
	_, err = m.Start(s, r, nil)
	assert.True(t, domain.IsInvalidState(err))
}

func TestStartDispatchesFirstLeg(t *testing.T) {
	m := NewMachine(DefaultPolicy())
	r := buildRoute(t, false, []float64{101.0, 3.0}, []float64{101.1, 3.1})

	tr, err := m.Receive(NewState(), r)
	require.NoError(t, err)

	live := geo.LatLng{Lat: 2.9, Lng: 100.9}
	tr, err = m.Start(tr.State, r, &live)
	require.NoError(t, err)

	assert.Equal(t, StatusNavigating, tr.State.Status)
	assert.Equal(t, 0, tr.State.Target)
	assert.True(t, tr.State.MonitoringEnabled)
	require.Len(t, tr.Effects, 2)
	assert.Equal(t, StartMonitoring{}, tr.Effects[0])

	leg, ok := tr.Effects[1].(DispatchLeg)
	require.True(t, ok)
	assert.Equal(t, live, leg.Origin)
	assert.Equal(t, geo.LatLng{Lat: 3.0, Lng: 101.0}, leg.Destination)
	assert.False(t, leg.FromRouteStart)
}

func TestStartFallsBackToRouteStart(t *testing.T) {
	m := NewMachine(DefaultPolicy())
	r := buildRoute(t, true, []float64{101.0, 3.0}, []float64{101.1, 3.1})

	tr, err := m.Receive(NewState(), r)
	require.NoError(t, err)
	tr, err = m.Start(tr.State, r, nil)
	require.NoError(t, err)

	leg := effectsOf[DispatchLeg](tr.Effects)
	require.Len(t, leg, 1)
	assert.True(t, leg[0].FromRouteStart)
	assert.Equal(t, geo.LatLng{Lat: 3.0, Lng: 101.0}, leg[0].Origin)
	assert.Equal(t, 1, leg[0].TargetIndex)
}

func TestWalkingTheRouteReachesEveryStopInOrder(t *testing.T) {
	tests := []struct {
		name     string
		coords   [][]float64
		arrivals int
	}{
		{"two stops", [][]float64{{101.0, 3.0}, {101.1, 3.1}}, 1},
		{"five stops", [][]float64{{101.0, 3.0}, {101.1, 3.1}, {101.2, 3.2}, {101.3, 3.3}, {101.4, 3.4}}, 4},
		{"closing stop", [][]float64{{101.0, 3.0}, {101.1, 3.1}, {101.2, 3.2}, {101.0, 3.0}}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine(DefaultPolicy())
			r := buildRoute(t, true, tt.coords...)
			s := startedState(t, m, r)
			require.Equal(t, 1, s.Target)

			var arrivals []int
			for i := 1; i < len(tt.coords) && s.Status == StatusNavigating; i++ {
				stop, _ := r.Stop(i)
				tr := m.Sample(s, r, stop.Position)
				for _, a := range effectsOf[ArrivalNotice](tr.Effects) {
					arrivals = append(arrivals, a.Index)
				}
				if tr.State.Status == StatusNavigating {
					assert.Equal(t, s.Target+1, tr.State.Target, "target must advance by exactly one")
				}
				s = tr.State
			}

			assert.Equal(t, StatusRouteComplete, s.Status)
			assert.Len(t, arrivals, tt.arrivals)
			for i, idx := range arrivals {
				assert.Equal(t, i+1, idx)
			}
			assert.Equal(t, arrivals, s.Completed)
			assert.False(t, s.MonitoringEnabled)
		})
	}
}

func TestArrivalEffects(t *testing.T) {
	m := NewMachine(DefaultPolicy())
	r := buildRoute(t, true, []float64{101.0, 3.0}, []float64{101.1, 3.1}, []float64{101.2, 3.2})
	s := startedState(t, m, r)

	stop1, _ := r.Stop(1)
	tr := m.Sample(s, r, stop1.Position)

	require.Len(t, tr.Effects, 3)
	assert.Equal(t, MarkStopCompleted{Index: 1}, tr.Effects[0])
	notice, ok := tr.Effects[1].(ArrivalNotice)
	require.True(t, ok)
	assert.Equal(t, "2", notice.Label)
	leg, ok := tr.Effects[2].(DispatchLeg)
	require.True(t, ok)
	assert.Equal(t, stop1.Position, leg.Origin)
	assert.Equal(t, 2, leg.TargetIndex)

	stop2, _ := r.Stop(2)
	tr = m.Sample(tr.State, r, stop2.Position)
	assert.Equal(t, StatusRouteComplete, tr.State.Status)
	assert.Empty(t, effectsOf[DispatchLeg](tr.Effects), "no dispatch on completion")
	assert.Len(t, effectsOf[StopMonitoring](tr.Effects), 1)
	assert.Equal(t, []RouteCompleteNotice{{Arrivals: 2}}, effectsOf[RouteCompleteNotice](tr.Effects))
}

func TestArrivalThresholdBoundary(t *testing.T) {
	r := buildRoute(t, true, []float64{101.0, 3.0}, []float64{101.1, 3.1}, []float64{101.2, 3.2})

	at := func(d float64) func(a, b geo.LatLng) float64 {
		return func(a, b geo.LatLng) float64 { return d }
	}

	m := NewMachine(Policy{ArrivalThresholdKm: 0.05, Distance: at(0.05)})
	tr := m.Sample(startedState(t, m, r), r, geo.LatLng{})
	assert.Len(t, effectsOf[ArrivalNotice](tr.Effects), 1, "0.05 km counts as arrived")

	m = NewMachine(Policy{ArrivalThresholdKm: 0.05, Distance: at(0.0501)})
	tr = m.Sample(startedState(t, m, r), r, geo.LatLng{})
	assert.Empty(t, tr.Effects, "0.0501 km does not")
	assert.Equal(t, 1, tr.State.Target)
}

func TestArrivalThresholdWithHaversine(t *testing.T) {
	m := NewMachine(DefaultPolicy())
	r := buildRoute(t, true, []float64{101.0, 3.0}, []float64{101.1, 3.1}, []float64{101.2, 3.2})
	s := startedState(t, m, r)

	// 0.0004 degrees of latitude is about 44 m, 0.0005 about 56 m.
	near := m.Sample(s, r, geo.LatLng{Lat: 3.1004, Lng: 101.1})
	assert.Equal(t, 2, near.State.Target)

	far := m.Sample(s, r, geo.LatLng{Lat: 3.1005, Lng: 101.1})
	assert.Equal(t, 1, far.State.Target)
	assert.Equal(t, geo.LatLng{Lat: 3.1005, Lng: 101.1}, *far.State.LastPosition)
}

func TestOneAdvancePerSample(t *testing.T) {
	// Stops 1 and 2 share a position; one sample only reaches stop 1.
	m := NewMachine(DefaultPolicy())
	r := buildRoute(t, true, []float64{101.0, 3.0}, []float64{101.1, 3.1}, []float64{101.1, 3.1}, []float64{101.2, 3.2})
	s := startedState(t, m, r)

	pos := geo.LatLng{Lat: 3.1, Lng: 101.1}
	tr := m.Sample(s, r, pos)
	assert.Equal(t, 2, tr.State.Target)

	tr = m.Sample(tr.State, r, pos)
	assert.Equal(t, 3, tr.State.Target)
	assert.Equal(t, []int{1, 2}, tr.State.Completed)
}

func TestSampleOutsideNavigationOnlyRecordsPosition(t *testing.T) {
	m := NewMachine(DefaultPolicy())
	r := buildRoute(t, false, []float64{101.0, 3.0}, []float64{101.1, 3.1})
	tr, err := m.Receive(NewState(), r)
	require.NoError(t, err)

	stop0, _ := r.Stop(0)
	tr = m.Sample(tr.State, r, stop0.Position)
	assert.Equal(t, StatusAwaitingStart, tr.State.Status)
	assert.Empty(t, tr.Effects)
	require.NotNil(t, tr.State.LastPosition)
}

func TestSampleFailedChangesNothing(t *testing.T) {
	m := NewMachine(DefaultPolicy())
	r := buildRoute(t, true, []float64{101.0, 3.0}, []float64{101.1, 3.1})
	s := startedState(t, m, r)

	tr := m.SampleFailed(s)
	assert.Equal(t, s, tr.State)
	assert.Empty(t, tr.Effects)
}

func TestStopFromAnyState(t *testing.T) {
	m := NewMachine(DefaultPolicy())
	r := buildRoute(t, true, []float64{101.0, 3.0}, []float64{101.1, 3.1})
	s := startedState(t, m, r)

	tr := m.Stop(s)
	assert.Equal(t, StatusIdle, tr.State.Status)
	assert.Equal(t, []Effect{StopMonitoring{}}, tr.Effects)

	tr = m.Stop(tr.State)
	assert.Equal(t, StatusIdle, tr.State.Status)
	assert.Empty(t, tr.Effects)
}

func TestSetTracking(t *testing.T) {
	m := NewMachine(DefaultPolicy())

	tr := m.SetTracking(NewState(), true)
	assert.True(t, tr.State.TrackingEnabled)
	assert.Equal(t, []Effect{StartTracking{}}, tr.Effects)

	tr = m.SetTracking(tr.State, true)
	assert.Empty(t, tr.Effects)

	tr = m.SetTracking(tr.State, false)
	assert.Equal(t, []Effect{StopTracking{}}, tr.Effects)
}

func TestMachineDoesNotMutateInput(t *testing.T) {
	m := NewMachine(DefaultPolicy())
	r := buildRoute(t, true, []float64{101.0, 3.0}, []float64{101.1, 3.1}, []float64{101.2, 3.2})
	s := startedState(t, m, r)

	stop1, _ := r.Stop(1)
	_ = m.Sample(s, r, stop1.Position)

	assert.Equal(t, 1, s.Target)
	assert.Empty(t, s.Completed)
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusAwaitingStart.CanTransitionTo(StatusNavigating))
	assert.False(t, StatusIdle.CanTransitionTo(StatusNavigating))
	assert.True(t, StatusRouteComplete.IsTerminal())

	_, err := ParseStatus("flying")
	assert.Error(t, err)
	st, err := ParseStatus("navigating")
	require.NoError(t, err)
	assert.Equal(t, StatusNavigating, st)
}

func TestObserveNeverAdvances(t *testing.T) {
	m := NewMachine(DefaultPolicy())
	r := buildRoute(t, true, []float64{101.0, 3.0}, []float64{101.1, 3.1}, []float64{101.2, 3.2})
	s := startedState(t, m, r)

	stop1, _ := r.Stop(1)
	tr := m.Observe(s, stop1.Position)
	assert.Equal(t, 1, tr.State.Target)
	assert.Empty(t, tr.Effects)
	assert.Equal(t, stop1.Position, *tr.State.LastPosition)
}
