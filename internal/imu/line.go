package imu

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/banshee-data/luma/internal/serialport"
)

var errSkipLine = errors.New("imu: not a sample line")

// LineSource reads samples from a text stream, one per line, as written by
// the IMU bridge on its UART. Two line shapes are accepted:
//
//	ax,ay,az,gx,gy,gz[,timestamp_ms]
//	MPU:<28 hex digits>   raw register burst, see FromRegisters
type LineSource struct {
	r     io.Reader
	stamp func() uint32

	once  sync.Once
	lines chan string
	errc  chan error
	done  chan struct{}
	stop  sync.Once
}

// NewLineSource reads lines from r. When stamp is non-nil every sample is
// stamped with it; otherwise lines must carry their own timestamp.
func NewLineSource(r io.Reader, stamp func() uint32) *LineSource {
	return &LineSource{
		r:     r,
		stamp: stamp,
		lines: make(chan string),
		errc:  make(chan error, 1),
		done:  make(chan struct{}),
	}
}

// OpenLineSource opens the serial port at path and reads samples from it.
func OpenLineSource(path string, opts serialport.PortOptions, stamp func() uint32) (*LineSource, error) {
	port, err := serialport.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open IMU port %s: %w", path, err)
	}
	return NewLineSource(port, stamp), nil
}

func (l *LineSource) scan() {
	defer close(l.lines)
	scan := bufio.NewScanner(l.r)
	for scan.Scan() {
		select {
		case l.lines <- scan.Text():
		case <-l.done:
			return
		}
	}
	err := scan.Err()
	if err == nil {
		err = io.EOF
	}
	l.errc <- err
}

// Read blocks until the next sample line arrives. Malformed lines return an
// error so a GuardedSource can substitute them.
func (l *LineSource) Read(ctx context.Context) (Sample, error) {
	l.once.Do(func() { go l.scan() })

	for {
		var line string
		select {
		case <-ctx.Done():
			return Sample{}, ctx.Err()
		case ln, ok := <-l.lines:
			if !ok {
				if err := l.Err(); err != nil {
					return Sample{}, err
				}
				return Sample{}, io.EOF
			}
			line = ln
		}

		s, stamped, err := ParseLine(line)
		if errors.Is(err, errSkipLine) {
			continue
		}
		if err != nil {
			return Sample{}, err
		}
		switch {
		case l.stamp != nil:
			s = s.Restamped(l.stamp())
		case !stamped:
			return Sample{}, fmt.Errorf("imu: line %q has no timestamp", line)
		}
		return s, nil
	}
}

// Err returns the scanner's terminal error once the stream has ended.
func (l *LineSource) Err() error {
	select {
	case err := <-l.errc:
		l.errc <- err
		return err
	default:
		return nil
	}
}

// Close stops the reader goroutine and closes the underlying reader when it
// is closable.
func (l *LineSource) Close() error {
	l.stop.Do(func() { close(l.done) })
	if c, ok := l.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ParseLine decodes one bridge line. stamped reports whether the line carried
// a timestamp.
func ParseLine(line string) (s Sample, stamped bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Sample{}, false, errSkipLine
	}

	if hexRegs, ok := strings.CutPrefix(line, "MPU:"); ok {
		var regs [14]byte
		if len(hexRegs) != hex.EncodedLen(len(regs)) {
			return Sample{}, false, fmt.Errorf("imu: register frame has %d hex digits, want %d", len(hexRegs), hex.EncodedLen(len(regs)))
		}
		if _, err := hex.Decode(regs[:], []byte(hexRegs)); err != nil {
			return Sample{}, false, fmt.Errorf("imu: bad register frame: %w", err)
		}
		return FromRegisters(regs, 0), false, nil
	}

	fields := strings.Split(line, ",")
	if len(fields) != 6 && len(fields) != 7 {
		return Sample{}, false, fmt.Errorf("imu: expected 6 or 7 fields, got %d", len(fields))
	}
	var v [6]float32
	for i := range v {
		f, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 32)
		if err != nil {
			return Sample{}, false, fmt.Errorf("imu: field %d: %w", i, err)
		}
		v[i] = float32(f)
	}
	var ts uint64
	if len(fields) == 7 {
		ts, err = strconv.ParseUint(strings.TrimSpace(fields[6]), 10, 32)
		if err != nil {
			return Sample{}, false, fmt.Errorf("imu: timestamp: %w", err)
		}
		stamped = true
	}
	return NewSample(v[0], v[1], v[2], v[3], v[4], v[5], uint32(ts)), stamped, nil
}
