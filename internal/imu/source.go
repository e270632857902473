package imu

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/luma/internal/monitoring"
)

var (
	// ErrSensorInit means the sensor did not answer at startup. It is not
	// retried; the helmet shows the error flash instead.
	ErrSensorInit = errors.New("imu: sensor not responding")

	// ErrSensorLost means reads kept failing for longer than the guard tolerates.
	ErrSensorLost = errors.New("imu: sensor lost")
)

// Source produces one sample per call, blocking until it is available.
// io.EOF ends a finite source such as a replay.
type Source interface {
	Read(ctx context.Context) (Sample, error)
}

// maxConsecutiveFailures is one second of missed samples at 50 Hz.
const maxConsecutiveFailures = SampleRateHz

// GuardedSource substitutes the last known-good sample for failed or
// implausible reads so glitches never reach the detectors.
type GuardedSource struct {
	src         Source
	last        Sample
	primed      bool
	failures    int
	substituted int
}

// NewGuardedSource reads src once to check the sensor. A failure is fatal and
// wraps ErrSensorInit. The initial sample is returned by the first Read.
func NewGuardedSource(ctx context.Context, src Source) (*GuardedSource, error) {
	s, err := src.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSensorInit, err)
	}
	if !s.Plausible() {
		return nil, fmt.Errorf("%w: implausible first reading %+v", ErrSensorInit, s)
	}
	return &GuardedSource{src: src, last: s, primed: true}, nil
}

// Read returns the next sample, or a substitute when the underlying read
// fails or is out of range. Context cancellation and io.EOF pass through.
func (g *GuardedSource) Read(ctx context.Context) (Sample, error) {
	if g.primed {
		g.primed = false
		return g.last, nil
	}
	s, err := g.src.Read(ctx)
	switch {
	case err != nil && (errors.Is(err, io.EOF) || ctx.Err() != nil):
		return Sample{}, err
	case err != nil:
		monitoring.Debugf("imu: read failed, substituting last sample: %v", err)
		s = g.last.Restamped(g.last.Timestamp + uint32(SampleInterval.Milliseconds()))
	case !s.Plausible():
		monitoring.Debugf("imu: implausible reading at %dms, substituting last sample", s.Timestamp)
		s = g.last.Restamped(s.Timestamp)
	default:
		g.failures = 0
		g.last = s
		return s, nil
	}

	g.substituted++
	g.failures++
	if g.failures > maxConsecutiveFailures {
		return Sample{}, fmt.Errorf("%w: %d consecutive bad reads", ErrSensorLost, g.failures)
	}
	g.last = s
	return s, nil
}

// Substituted returns how many samples were replaced since creation.
func (g *GuardedSource) Substituted() int {
	return g.substituted
}

// Pump reads from src and delivers samples on out until ctx is cancelled or
// src fails. It returns nil when src is exhausted.
func Pump(ctx context.Context, src Source, out chan<- Sample) error {
	for {
		s, err := src.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		select {
		case out <- s:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
