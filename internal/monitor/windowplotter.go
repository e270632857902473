// Package monitor renders debug views of the detection pipeline.
package monitor

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"net/http"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"tailscale.com/tsweb"

	"github.com/banshee-data/luma/internal/detect"
	"github.com/banshee-data/luma/internal/httputil"
	"github.com/banshee-data/luma/internal/imu"
)

// ErrNoWindow is returned before any window has been classified.
var ErrNoWindow = errors.New("no window classified yet")

var (
	accelColor = color.RGBA{R: 200, G: 30, B: 30, A: 255}
	gyroColor  = color.RGBA{R: 30, G: 90, B: 200, A: 255}
)

// gyroScale brings gyro magnitude (dps) onto the same axis as accel (g).
const gyroScale = 100.0

// WindowPlotter keeps the most recently classified window and renders it as
// a PNG: accel magnitude and scaled gyro magnitude against sample index.
type WindowPlotter struct {
	mu     sync.Mutex
	frame  imu.Frame
	n      int
	result detect.Detection
	have   bool
}

func NewWindowPlotter() *WindowPlotter {
	return &WindowPlotter{}
}

// Observe copies the first n samples of frame along with its classification.
func (wp *WindowPlotter) Observe(frame *imu.Frame, n int, result detect.Detection) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.frame = *frame
	wp.n = min(n, imu.WindowSize)
	wp.result = result
	wp.have = true
}

// Plot builds the plot of the last observed window.
func (wp *WindowPlotter) Plot() (*plot.Plot, error) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if !wp.have {
		return nil, ErrNoWindow
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s %s conf=%.2f @%dms",
		wp.result.Source, wp.result.Class, wp.result.Confidence, wp.result.Timestamp)
	p.X.Label.Text = "sample"
	p.Y.Label.Text = "g"

	accelPts := make(plotter.XYs, wp.n)
	gyroPts := make(plotter.XYs, wp.n)
	for i := 0; i < wp.n; i++ {
		s := wp.frame[i]
		accelPts[i] = plotter.XY{X: float64(i), Y: float64(s.AccelMag)}
		gyroPts[i] = plotter.XY{X: float64(i), Y: float64(s.GyroMag()) / gyroScale}
	}

	accelLine, err := plotter.NewLine(accelPts)
	if err != nil {
		return nil, err
	}
	accelLine.Color = accelColor
	accelLine.Width = vg.Points(1)
	p.Add(accelLine)
	p.Legend.Add("accel_mag", accelLine)

	gyroLine, err := plotter.NewLine(gyroPts)
	if err != nil {
		return nil, err
	}
	gyroLine.Color = gyroColor
	gyroLine.Width = vg.Points(1)
	p.Add(gyroLine)
	p.Legend.Add(fmt.Sprintf("gyro_mag/%.0f", gyroScale), gyroLine)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WritePNG renders the last window to w.
func (wp *WindowPlotter) WritePNG(w io.Writer) error {
	p, err := wp.Plot()
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePNG renders the last window to a file.
func (wp *WindowPlotter) SavePNG(path string) error {
	p, err := wp.Plot()
	if err != nil {
		return err
	}
	return p.Save(10*vg.Inch, 4*vg.Inch, path)
}

func (wp *WindowPlotter) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.Handle("window.png", "Last classified IMU window", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := wp.WritePNG(w); err != nil {
			if errors.Is(err, ErrNoWindow) {
				httputil.NotFound(w, err.Error())
				return
			}
			httputil.InternalServerError(w, fmt.Sprintf("failed to render window: %v", err))
		}
	}))
}
