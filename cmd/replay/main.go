// Command replay runs a recorded ride through the detection pipeline as fast
// as it can and prints every arbitration outcome. It is used to check a
// parameter set against known rides before flashing it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/luma/internal/arbiter"
	"github.com/banshee-data/luma/internal/classifier"
	"github.com/banshee-data/luma/internal/command"
	"github.com/banshee-data/luma/internal/config"
	"github.com/banshee-data/luma/internal/controller"
	"github.com/banshee-data/luma/internal/imu"
	"github.com/banshee-data/luma/internal/led"
	"github.com/banshee-data/luma/internal/link"
	"github.com/banshee-data/luma/internal/monitor"
	"github.com/banshee-data/luma/internal/monitoring"
)

var (
	fixture    = flag.String("fixture", "cmd/replay/testdata/ride.csv", "Recorded ride CSV")
	configPath = flag.String("config", "", "Helmet config JSON; built-in profile values when empty")
	profile    = flag.String("profile", "", "Parameter profile (luma or esp32), overrides the config file")
	plotPath   = flag.String("plot", "", "Write the last classified window to this PNG")
	quiet      = flag.Bool("quiet", false, "Only print the summary")
	debug      = flag.Bool("debug", false, "Enable debug logging")
)

// replay feeds every sample of src through a controller built from cfg, with
// the device clock following the sample timestamps. Decisions are written to
// w unless it is nil.
func replay(ctx context.Context, src imu.Source, cfg *config.HelmetConfig, obs controller.Observer, w io.Writer) (controller.Stats, *led.Animator, error) {
	clf, err := classifier.ForName(cfg.GetClassifierModel())
	if err != nil {
		return controller.Stats{}, nil, err
	}
	anim := led.NewAnimator(led.NewMemoryStrip(cfg.GetLEDCount()), cfg.GetConnectGrace())
	router, err := command.NewRouter(cfg.GetCommandScheme(), anim)
	if err != nil {
		return controller.Stats{}, nil, err
	}

	guarded, err := imu.NewGuardedSource(ctx, src)
	if err != nil {
		return controller.Stats{}, nil, err
	}

	var now uint32
	deps := controller.Deps{
		Classifier: clf,
		Animator:   anim,
		Router:     router,
		Link:       link.NewDisabledLink(),
		Now:        func() uint32 { return now },
		Observer:   obs,
	}
	if w != nil {
		deps.OnDecision = func(dec arbiter.Decision) {
			d := dec.Detection
			fmt.Fprintf(w, "%9dms  %-10s %-6s %.2f  %-13s led=%s\n",
				now, d.Source, d.Class, d.Confidence, dec.Outcome, anim.Current().Pattern)
		}
	}
	ctrl := controller.New(controller.ConfigFrom(cfg), deps)

	for {
		s, err := guarded.Read(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ctrl.Stats(), anim, err
		}
		now = s.Timestamp
		ctrl.Step(s)
		ctrl.Tick()
	}
	if n := guarded.Substituted(); n > 0 {
		log.Printf("%d implausible rows substituted", n)
	}
	return ctrl.Stats(), anim, nil
}

func main() {
	flag.Parse()
	monitoring.SetDebug(*debug)

	cfg := config.EmptyHelmetConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	if *profile != "" {
		cfg.Profile = profile
		if err := cfg.Validate(); err != nil {
			log.Fatalf("invalid configuration: %v", err)
		}
	}

	src, err := imu.OpenReplayFile(*fixture, imu.ReplayOptions{})
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer src.Close()

	var out io.Writer = os.Stdout
	if *quiet {
		out = nil
	}
	plotter := monitor.NewWindowPlotter()

	st, anim, err := replay(context.Background(), src, cfg, plotter, out)
	if err != nil {
		log.Fatalf("replay failed after %d samples: %v", st.Samples, err)
	}

	fmt.Printf("\nprofile %s, classifier %s\n", cfg.GetProfile(), cfg.GetClassifierModel())
	fmt.Printf("samples %d, fast path %d, classified %d\n", st.Samples, st.FastPath, st.Classified)
	for o, n := range st.Outcomes {
		fmt.Printf("  %-13s %d\n", arbiter.Outcome(o), n)
	}
	fmt.Printf("final pattern %s\n", anim.Current().Pattern)

	if *plotPath != "" {
		if err := plotter.SavePNG(*plotPath); err != nil {
			log.Fatalf("failed to write plot: %v", err)
		}
		log.Printf("wrote %s", *plotPath)
	}
}
