// Package recorder keeps a SQLite journal of the events the helmet sent to
// the rider, grouped into rides. Each row stores the exact event packet that
// went over the air.
package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/luma/internal/arbiter"
	"github.com/banshee-data/luma/internal/httputil"
	"github.com/banshee-data/luma/internal/protocol"
	"github.com/banshee-data/luma/internal/timeutil"
)

// ErrNoRide is returned by Record before StartRide.
var ErrNoRide = errors.New("no ride in progress")

// Recorder is the ride journal.
type Recorder struct {
	*sql.DB
	path  string
	clock timeutil.Clock

	mu   sync.Mutex
	ride string
}

// Open opens (or creates) the journal at path and migrates it to the latest
// schema.
func Open(path string, clock timeutil.Clock) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	r := &Recorder{DB: db, path: path, clock: clock}
	if err := r.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func applyPragmas(db *sql.DB) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return nil
}

func (r *Recorder) nowMs() int64 {
	return r.clock.Now().UnixMilli()
}

// StartRide opens a new ride and makes it the target of Record.
func (r *Recorder) StartRide(profile, model string) (string, error) {
	id := uuid.NewString()
	_, err := r.Exec(
		`INSERT INTO rides (ride_id, profile, model, started_unix_ms) VALUES (?, ?, ?, ?)`,
		id, profile, model, r.nowMs(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start ride: %w", err)
	}

	r.mu.Lock()
	r.ride = id
	r.mu.Unlock()
	log.Printf("ride %s started (profile=%s model=%s)", id, profile, model)
	return id, nil
}

// Ride returns the current ride id, or "" before StartRide.
func (r *Recorder) Ride() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ride
}

// EndRide stamps the current ride's end time.
func (r *Recorder) EndRide() error {
	r.mu.Lock()
	id := r.ride
	r.ride = ""
	r.mu.Unlock()
	if id == "" {
		return ErrNoRide
	}

	_, err := r.Exec(`UPDATE rides SET ended_unix_ms = ? WHERE ride_id = ?`, r.nowMs(), id)
	if err != nil {
		return fmt.Errorf("failed to end ride %s: %w", id, err)
	}
	return nil
}

// Record journals one arbitration decision against the current ride.
func (r *Recorder) Record(dec arbiter.Decision) error {
	ride := r.Ride()
	if ride == "" {
		return ErrNoRide
	}
	_, err := r.Exec(
		`INSERT INTO events (ride_id, device_ms, source, class, outcome, packet, recorded_unix_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ride, int64(dec.Detection.Timestamp), dec.Detection.Source.String(),
		dec.Detection.Class.String(), dec.Outcome.String(), dec.Packet[:], r.nowMs(),
	)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// Event is one journal row, with the packet decoded.
type Event struct {
	ID         int64     `json:"id"`
	RideID     string    `json:"ride_id"`
	DeviceMs   uint32    `json:"device_ms"`
	Source     string    `json:"source"`
	Class      string    `json:"class"`
	Outcome    string    `json:"outcome"`
	Confidence float32   `json:"confidence"`
	Packet     []byte    `json:"packet"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Events returns up to limit of the most recent events, newest first.
func (r *Recorder) Events(limit int) ([]Event, error) {
	rows, err := r.Query(
		`SELECT event_id, ride_id, device_ms, source, class, outcome, packet, recorded_unix_ms
		FROM events ORDER BY event_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e          Event
			deviceMs   int64
			recordedMs int64
		)
		if err := rows.Scan(&e.ID, &e.RideID, &deviceMs, &e.Source, &e.Class, &e.Outcome, &e.Packet, &recordedMs); err != nil {
			return nil, err
		}
		e.DeviceMs = uint32(deviceMs)
		e.RecordedAt = time.UnixMilli(recordedMs).UTC()
		if _, conf, err := protocol.DecodeEvent(e.Packet); err == nil {
			e.Confidence = conf
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *Recorder) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	// create a tailSQL instance and point it to the journal
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://"+r.path, r.DB, &tailsql.DBOptions{
		Label: "Ride journal",
	})

	// mount the tailSQL server on the debug /tailsql path
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.HandleFunc("events", "Recent helmet events (JSON, ?limit=N)", func(w http.ResponseWriter, req *http.Request) {
		limit := 100
		if s := req.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				httputil.BadRequest(w, "invalid limit")
				return
			}
			limit = n
		}
		events, err := r.Events(limit)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to load events: %v", err))
			return
		}
		httputil.WriteJSONOK(w, events)
	})
}
