package link

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/banshee-data/luma/internal/monitoring"
	"github.com/banshee-data/luma/internal/protocol"
	"github.com/banshee-data/luma/internal/serialport"
)

// Status lines printed by the BLE-UART bridge module.
const (
	bridgeConnected = "OK+CONN"
	bridgeLost      = "OK+LOST"
)

// SerialLink talks to a BLE-UART bridge over a serial port. The bridge
// reports the remote with OK+CONN / OK+LOST lines; any other line is a
// command. Outbound frames are the channel id byte followed by the fixed
// size packet.
type SerialLink struct {
	*hub
	port  serialport.Porter
	queue chan []byte
	done  chan struct{}
	once  sync.Once
}

// NewSerialLink wraps an open port.
func NewSerialLink(port serialport.Porter) *SerialLink {
	return &SerialLink{
		hub:   newHub(),
		port:  port,
		queue: make(chan []byte, queueSize),
		done:  make(chan struct{}),
	}
}

// OpenSerialLink opens path with opts and wraps it.
func OpenSerialLink(path string, opts serialport.PortOptions) (*SerialLink, error) {
	port, err := serialport.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open link port %s: %w", path, err)
	}
	return NewSerialLink(port), nil
}

func (s *SerialLink) Send(ch protocol.Channel, payload []byte) error {
	return s.enqueue(s.queue, ch, payload)
}

func (s *SerialLink) inject(payload []byte) {
	s.publish(Inbound{Kind: Command, Payload: payload})
}

// Monitor reads bridge lines and writes queued frames until ctx is done or
// the port fails.
func (s *SerialLink) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(s.port)

	lineChan := make(chan []byte)
	scanErrChan := make(chan error, 1)

	// the blocking scan.Scan must not interfere with the outer loop awaiting
	// lines, frames & context cancellation.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			line := append([]byte(nil), scan.Bytes()...)
			select {
			case lineChan <- line:
			case <-ctx.Done():
				return
			case <-s.done:
				return
			}
		}
		if err := scan.Err(); err != nil {
			scanErrChan <- err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-s.done:
			return nil

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					return err
				default:
					return nil
				}
			}
			s.handleLine(line)

		case frame := <-s.queue:
			if _, err := s.port.Write(frame); err != nil {
				s.dropped.Add(1)
				monitoring.Debugf("link write failed: %v", err)
			}
		}
	}
}

func (s *SerialLink) handleLine(line []byte) {
	line = bytes.TrimRight(line, "\r")
	switch string(bytes.TrimSpace(line)) {
	case bridgeConnected:
		s.setAttached(true)
	case bridgeLost:
		s.setAttached(false)
	case "":
	default:
		s.publish(Inbound{Kind: Command, Payload: line})
	}
}

func (s *SerialLink) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.shutdown()
		err = s.port.Close()
	})
	return err
}

func (s *SerialLink) AttachAdminRoutes(mux *http.ServeMux) {
	attachAdminRoutes(mux, "serial", s.hub, s)
}
