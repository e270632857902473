package monitor

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/luma/internal/recorder"
	"github.com/banshee-data/luma/internal/testutil"
)

type fakeEvents struct {
	events    []recorder.Event
	err       error
	lastLimit int
}

func (f *fakeEvents) Events(limit int) ([]recorder.Event, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func rideEvents() []recorder.Event {
	return []recorder.Event{
		{ID: 3, RideID: "ride-1", DeviceMs: 8020, Source: "fast_path", Class: "crash", Outcome: "accepted", Confidence: 1},
		{ID: 2, RideID: "ride-1", DeviceMs: 4100, Source: "classifier", Class: "brake", Outcome: "extended", Confidence: 0.7},
		{ID: 1, RideID: "ride-1", DeviceMs: 4000, Source: "fast_path", Class: "brake", Outcome: "accepted", Confidence: 0.45},
	}
}

func TestRideChart_SeriesPerClass(t *testing.T) {
	rc := NewRideChart(&fakeEvents{events: rideEvents()})
	scatter, err := rc.Chart(10)
	require.NoError(t, err)
	require.NotNil(t, scatter)

	require.Len(t, scatter.MultiSeries, 2)
	assert.Equal(t, "brake", scatter.MultiSeries[0].Name)
	assert.Equal(t, "crash", scatter.MultiSeries[1].Name)
}

func TestRideChart_Route(t *testing.T) {
	src := &fakeEvents{events: rideEvents()}
	mux := http.NewServeMux()
	NewRideChart(src).AttachAdminRoutes(mux)

	rec := testutil.ServeDebug(mux, testutil.LocalRequest(http.MethodGet, "/debug/ride?limit=50", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, 50, src.lastLimit)

	body := rec.Body.String()
	assert.Contains(t, body, "echarts.min.js")
	assert.Contains(t, body, "ride=ride-1 events=3")
	assert.Contains(t, body, `"crash"`)
	assert.Contains(t, body, `"brake"`)
}

func TestRideChart_RouteErrors(t *testing.T) {
	tests := []struct {
		name string
		src  *fakeEvents
		path string
		want int
	}{
		{"no events", &fakeEvents{}, "/debug/ride", http.StatusNotFound},
		{"journal failure", &fakeEvents{err: errors.New("disk gone")}, "/debug/ride", http.StatusInternalServerError},
		{"bad limit", &fakeEvents{events: rideEvents()}, "/debug/ride?limit=-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			NewRideChart(tt.src).AttachAdminRoutes(mux)
			rec := testutil.ServeDebug(mux, testutil.LocalRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
