package monitor

import (
	"bytes"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"tailscale.com/tsweb"

	"github.com/banshee-data/luma/internal/httputil"
	"github.com/banshee-data/luma/internal/recorder"
)

const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// EventSource supplies journaled events, newest first.
type EventSource interface {
	Events(limit int) ([]recorder.Event, error)
}

// RideChart renders recorded event confidences against device uptime as an
// interactive HTML scatter, one series per event class.
type RideChart struct {
	src EventSource
}

func NewRideChart(src EventSource) *RideChart {
	return &RideChart{src: src}
}

// Chart builds the scatter for up to limit recent events. It returns a nil
// chart when nothing has been recorded.
func (rc *RideChart) Chart(limit int) (*charts.Scatter, error) {
	events, err := rc.src.Events(limit)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	byClass := make(map[string][]opts.ScatterData)
	for _, e := range events {
		byClass[e.Class] = append(byClass[e.Class], opts.ScatterData{
			Name:  e.Outcome,
			Value: []any{e.DeviceMs, e.Confidence},
		})
	}
	classes := make([]string, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	slices.Sort(classes)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Helmet ride events", Width: "100%", Height: "600px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Ride events", Subtitle: fmt.Sprintf("ride=%s events=%d", events[0].RideID, len(events))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "device ms", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: 0, Max: 1, Name: "confidence", NameLocation: "middle", NameGap: 30}),
	)
	for _, c := range classes {
		scatter.AddSeries(c, byClass[c], charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	}
	return scatter, nil
}

func (rc *RideChart) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("ride", "Recorded events chart (HTML, ?limit=N)", func(w http.ResponseWriter, r *http.Request) {
		limit := 500
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				httputil.BadRequest(w, "invalid limit")
				return
			}
			limit = n
		}

		scatter, err := rc.Chart(limit)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to load events: %v", err))
			return
		}
		if scatter == nil {
			httputil.NotFound(w, "no events recorded")
			return
		}

		var buf bytes.Buffer
		if err := scatter.Render(&buf); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	})
}
