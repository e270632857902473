package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/luma/internal/classifier"
	"github.com/banshee-data/luma/internal/command"
	"github.com/banshee-data/luma/internal/config"
	"github.com/banshee-data/luma/internal/controller"
	"github.com/banshee-data/luma/internal/imu"
	"github.com/banshee-data/luma/internal/led"
	"github.com/banshee-data/luma/internal/link"
	"github.com/banshee-data/luma/internal/monitor"
	"github.com/banshee-data/luma/internal/monitoring"
	"github.com/banshee-data/luma/internal/recorder"
	"github.com/banshee-data/luma/internal/serialport"
	"github.com/banshee-data/luma/internal/timeutil"
	"github.com/banshee-data/luma/internal/version"
)

var (
	configPath = flag.String("config", "", "Helmet config JSON; built-in profile values when empty")
	profile    = flag.String("profile", "", "Parameter profile (luma or esp32), overrides the config file")
	imuPort    = flag.String("imu-port", "/dev/ttyUSB0", "Serial port of the IMU bridge")
	devFixture = flag.String("dev-fixture", "", "Loop a recorded CSV ride instead of reading the IMU")
	linkKind   = flag.String("link", "serial", "Remote transport: serial, mqtt, websocket or none")
	linkPort   = flag.String("link-port", "/dev/ttyAMA0", "Serial port of the BLE-UART module (-link serial)")
	mqttBroker = flag.String("mqtt-broker", "tcp://localhost:1883", "MQTT broker URL (-link mqtt)")
	mqttPrefix = flag.String("mqtt-prefix", "luma/helmet", "MQTT topic prefix (-link mqtt)")
	ledPort    = flag.String("led-port", "", "Serial port of the Adalight LED controller; in-memory strip when empty")
	dbPath     = flag.String("db", "helmet.db", "Ride journal database; recording disabled when empty")
	listen     = flag.String("listen", "localhost:8080", "Debug HTTP listen address")
	debug      = flag.Bool("debug", false, "Log ignored commands, substituted samples and dropped packets")
)

// loadConfig reads the config file, if any, and applies a profile override.
func loadConfig(path, profile string) (*config.HelmetConfig, error) {
	cfg := config.EmptyHelmetConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	if profile != "" {
		cfg.Profile = &profile
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, nil
}

// openLink builds the remote transport named by kind.
func openLink(kind string) (link.Link, error) {
	switch kind {
	case "serial":
		return link.OpenSerialLink(*linkPort, serialport.PortOptions{})
	case "mqtt":
		return link.NewMQTTLink(link.MQTTOptions{Broker: *mqttBroker, Prefix: *mqttPrefix}), nil
	case "websocket":
		return link.NewWebSocketLink(), nil
	case "none":
		return link.NewDisabledLink(), nil
	default:
		return nil, fmt.Errorf("unknown link %q", kind)
	}
}

// openStrip returns the LED output and the port to close on exit, if any.
func openStrip(path string, cfg *config.HelmetConfig) (led.Strip, io.Closer, error) {
	if path == "" {
		return led.NewMemoryStrip(cfg.GetLEDCount()), nil, nil
	}
	strip, port, err := led.OpenAdalightStrip(path, serialport.PortOptions{}, cfg.GetLEDCount(), uint8(cfg.GetLEDBrightness()))
	if err != nil {
		return nil, nil, err
	}
	return strip, port, nil
}

// openSource returns the sample source: the IMU bridge, or a looping
// fixture paced in real time in dev mode.
func openSource(up *timeutil.Uptime) (imu.Source, io.Closer, error) {
	if *devFixture != "" {
		rs, err := imu.OpenReplayFile(*devFixture, imu.ReplayOptions{
			Loop:  true,
			Clock: timeutil.RealClock{},
			Stamp: up.Millis,
		})
		if err != nil {
			return nil, nil, err
		}
		return rs, rs, nil
	}
	ls, err := imu.OpenLineSource(*imuPort, serialport.PortOptions{}, up.Millis)
	if err != nil {
		return nil, nil, err
	}
	return ls, ls, nil
}

func main() {
	flag.Parse()
	monitoring.SetDebug(*debug)

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg, err := loadConfig(*configPath, *profile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	log.Printf("helmetd %s", version.String())
	log.Printf("profile %s, classifier %s, %d LEDs", cfg.GetProfile(), cfg.GetClassifierModel(), cfg.GetLEDCount())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := timeutil.RealClock{}
	up := timeutil.NewUptime(clock)

	strip, ledCloser, err := openStrip(*ledPort, cfg)
	if err != nil {
		log.Fatalf("failed to open LED strip: %v", err)
	}
	if ledCloser != nil {
		defer ledCloser.Close()
	}

	src, srcCloser, err := openSource(up)
	if err != nil {
		log.Fatalf("failed to open sample source: %v", err)
	}
	defer srcCloser.Close()

	// A sensor that does not answer at boot is not retried: flash red until
	// someone power cycles the helmet.
	initCtx, cancelInit := context.WithTimeout(ctx, 2*time.Second)
	guarded, err := imu.NewGuardedSource(initCtx, src)
	cancelInit()
	if err != nil {
		log.Printf("sensor init failed: %v", err)
		if err := led.ErrorFlash(ctx, strip, clock); err != nil {
			log.Printf("error flash: %v", err)
		}
		os.Exit(1)
	}

	clf, err := classifier.ForName(cfg.GetClassifierModel())
	if err != nil {
		log.Fatalf("failed to load classifier: %v", err)
	}

	lnk, err := openLink(*linkKind)
	if err != nil {
		log.Fatalf("failed to open link: %v", err)
	}
	defer lnk.Close()

	anim := led.NewAnimator(strip, cfg.GetConnectGrace())
	router, err := command.NewRouter(cfg.GetCommandScheme(), anim)
	if err != nil {
		log.Fatalf("failed to create command router: %v", err)
	}

	plotter := monitor.NewWindowPlotter()
	deps := controller.Deps{
		Classifier: clf,
		Animator:   anim,
		Router:     router,
		Link:       lnk,
		Now:        up.Millis,
		Observer:   plotter,
	}

	var rec *recorder.Recorder
	if *dbPath != "" {
		rec, err = recorder.Open(*dbPath, clock)
		if err != nil {
			log.Fatalf("failed to open ride journal: %v", err)
		}
		defer rec.Close()
		if _, err := rec.StartRide(cfg.GetProfile(), cfg.GetClassifierModel()); err != nil {
			log.Fatalf("failed to start ride: %v", err)
		}
		deps.Journal = rec
	}

	ctrl := controller.New(controller.ConfigFrom(cfg), deps)

	var wg sync.WaitGroup

	// run the link's transport loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := lnk.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("link monitor stopped: %v", err)
		}
		log.Print("link routine terminated")
	}()

	// read the sensor and feed the controller
	samples := make(chan imu.Sample, imu.SampleRateHz)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(samples)
		if err := imu.Pump(ctx, guarded, samples); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("sensor stopped: %v", err)
		}
		log.Printf("sensor routine terminated (%d samples substituted)", guarded.Substituted())
	}()

	// the control loop owns the window, detectors and LEDs
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer stop()

		id, inbound := lnk.Subscribe()
		defer lnk.Unsubscribe(id)

		ticker := time.NewTicker(controller.TickInterval)
		defer ticker.Stop()

		if err := ctrl.Run(ctx, samples, inbound, ticker.C); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("control loop stopped: %v", err)
		}
		if err := anim.Blank(up.Millis()); err != nil {
			log.Printf("failed to blank LEDs: %v", err)
		}
		if rec != nil {
			if err := rec.EndRide(); err != nil {
				log.Printf("failed to end ride: %v", err)
			}
		}
		st := ctrl.Stats()
		log.Printf("control loop terminated: %d samples, %d fast path, %d classified", st.Samples, st.FastPath, st.Classified)
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()
		lnk.AttachAdminRoutes(mux)
		plotter.AttachAdminRoutes(mux)
		if rec != nil {
			rec.AttachAdminRoutes(mux)
			monitor.NewRideChart(rec).AttachAdminRoutes(mux)
		}
		if ws, ok := lnk.(*link.WebSocketLink); ok {
			mux.Handle("/link", ws)
		}

		server := &http.Server{
			Addr:    *listen,
			Handler: mux,
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
