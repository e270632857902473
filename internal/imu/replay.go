package imu

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/luma/internal/timeutil"
)

// ReplayOptions configures a ReplaySource.
type ReplayOptions struct {
	// Loop restarts from the first row at end of file. Timestamps keep
	// advancing across the restart.
	Loop bool

	// Clock paces reads at SampleRateHz when set; nil replays as fast as the
	// reader consumes.
	Clock timeutil.Clock

	// Stamp overrides the file's timestamps when set.
	Stamp func() uint32
}

var replayColumns = [...]string{"accel_x", "accel_y", "accel_z", "gyro_x", "gyro_y", "gyro_z"}

// ReplaySource plays back a recorded ride from CSV. The header names the
// columns (timestamp_ms, accel_x..gyro_z); without a timestamp column samples
// are spaced SampleInterval apart.
type ReplaySource struct {
	r    io.ReadSeeker
	opts ReplayOptions

	csv    *csv.Reader
	cols   [len(replayColumns)]int
	tsCol  int
	row    int
	offset uint32
	first  uint32
	last   uint32
	ticker timeutil.Ticker
	closer io.Closer
}

// NewReplaySource reads CSV rows from r. The header is read immediately.
func NewReplaySource(r io.ReadSeeker, opts ReplayOptions) (*ReplaySource, error) {
	rs := &ReplaySource{r: r, opts: opts}
	if err := rs.rewind(); err != nil {
		return nil, err
	}
	if opts.Clock != nil {
		rs.ticker = opts.Clock.NewTicker(SampleInterval)
	}
	return rs, nil
}

// OpenReplayFile opens a CSV fixture from disk.
func OpenReplayFile(path string, opts ReplayOptions) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}
	rs, err := NewReplaySource(f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	rs.closer = f
	return rs, nil
}

func (rs *ReplaySource) rewind() error {
	if _, err := rs.r.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind replay: %w", err)
	}
	rs.csv = csv.NewReader(rs.r)
	rs.csv.ReuseRecord = true
	rs.csv.TrimLeadingSpace = true
	rs.csv.Comment = '#'

	header, err := rs.csv.Read()
	if err != nil {
		return fmt.Errorf("failed to read replay header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for i, name := range replayColumns {
		col, ok := index[name]
		if !ok {
			return fmt.Errorf("replay header missing column %q", name)
		}
		rs.cols[i] = col
	}
	rs.tsCol = -1
	for _, name := range []string{"timestamp_ms", "timestamp"} {
		if col, ok := index[name]; ok {
			rs.tsCol = col
			break
		}
	}
	rs.row = 0
	return nil
}

// Read returns the next row as a Sample.
func (rs *ReplaySource) Read(ctx context.Context) (Sample, error) {
	if rs.ticker != nil {
		select {
		case <-ctx.Done():
			return Sample{}, ctx.Err()
		case <-rs.ticker.C():
		}
	} else if err := ctx.Err(); err != nil {
		return Sample{}, err
	}

	record, err := rs.csv.Read()
	if errors.Is(err, io.EOF) && rs.opts.Loop && rs.row > 0 {
		rs.offset = rs.last + uint32(SampleInterval.Milliseconds()) - rs.first
		if err := rs.rewind(); err != nil {
			return Sample{}, err
		}
		record, err = rs.csv.Read()
	}
	if err != nil {
		return Sample{}, err
	}

	var v [len(replayColumns)]float32
	for i, col := range rs.cols {
		if col >= len(record) {
			return Sample{}, fmt.Errorf("replay row %d: missing %s", rs.row+1, replayColumns[i])
		}
		f, err := strconv.ParseFloat(record[col], 32)
		if err != nil {
			return Sample{}, fmt.Errorf("replay row %d: %s: %w", rs.row+1, replayColumns[i], err)
		}
		v[i] = float32(f)
	}

	var ts uint32
	if rs.tsCol >= 0 && rs.tsCol < len(record) {
		// Sensor loggers write fractional milliseconds.
		f, err := strconv.ParseFloat(record[rs.tsCol], 64)
		if err != nil {
			return Sample{}, fmt.Errorf("replay row %d: timestamp: %w", rs.row+1, err)
		}
		ts = uint32(f)
	} else {
		ts = uint32(rs.row) * uint32(SampleInterval.Milliseconds())
	}
	if rs.row == 0 && rs.offset == 0 {
		rs.first = ts
	}
	ts += rs.offset
	rs.last = ts
	rs.row++

	if rs.opts.Stamp != nil {
		ts = rs.opts.Stamp()
	}
	return NewSample(v[0], v[1], v[2], v[3], v[4], v[5], ts), nil
}

// Close stops pacing and closes the file opened by OpenReplayFile.
func (rs *ReplaySource) Close() error {
	if rs.ticker != nil {
		rs.ticker.Stop()
	}
	if rs.closer != nil {
		return rs.closer.Close()
	}
	return nil
}
