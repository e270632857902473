// Package link carries the helmet's three channels (telemetry, events and
// commands) to a remote rider app. Each transport reports the remote
// attaching and detaching and delivers its commands to subscribers; outbound
// packets are queued without blocking and dropped when nobody listens.
package link

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/banshee-data/luma/internal/protocol"
)

var (
	// ErrQueueFull is returned by Send when the outbound queue is saturated.
	ErrQueueFull = errors.New("link queue full")
	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("link closed")
)

// Kind classifies an inbound message.
type Kind uint8

const (
	Attach Kind = iota + 1
	Detach
	Command
)

func (k Kind) String() string {
	switch k {
	case Attach:
		return "attach"
	case Detach:
		return "detach"
	case Command:
		return "command"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Inbound is a lifecycle change or a command written by the remote.
type Inbound struct {
	Kind    Kind
	Payload []byte
}

// Link is a transport to the remote.
type Link interface {
	// Send queues payload on channel ch. It is a no-op when no remote is
	// attached and never blocks.
	Send(ch protocol.Channel, payload []byte) error
	// Subscribe returns a channel of inbound messages and its id.
	Subscribe() (string, chan Inbound)
	// Unsubscribe closes and removes a subscription.
	Unsubscribe(id string)
	// Monitor runs the transport until ctx is done or it fails.
	Monitor(ctx context.Context) error
	// Attached reports whether a remote is currently attached.
	Attached() bool
	// Dropped counts packets that could not be queued.
	Dropped() uint64
	// Close stops the transport and closes all subscriptions.
	Close() error
	// AttachAdminRoutes registers debug endpoints under /debug/.
	AttachAdminRoutes(mux *http.ServeMux)
}

// subscriberBuffer is the per-subscriber inbound backlog; the controller
// drains it every loop iteration.
const subscriberBuffer = 16

// queueSize bounds each transport's outbound packet queue.
const queueSize = 64

// randomID generates a random subscription ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// hub is the subscription bookkeeping shared by all transports.
type hub struct {
	mu          sync.Mutex
	subscribers map[string]chan Inbound
	tails       map[string]chan string
	closing     bool

	attached atomic.Bool
	dropped  atomic.Uint64
}

func newHub() *hub {
	return &hub{
		subscribers: make(map[string]chan Inbound),
		tails:       make(map[string]chan string),
	}
}

func (h *hub) Subscribe() (string, chan Inbound) {
	id := randomID()
	ch := make(chan Inbound, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		// Already closing: hand back a closed channel so callers don't block.
		close(ch)
		return id, ch
	}
	h.subscribers[id] = ch
	return id, ch
}

func (h *hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
	}
}

func (h *hub) Attached() bool  { return h.attached.Load() }
func (h *hub) Dropped() uint64 { return h.dropped.Load() }

// publish fans msg out to subscribers, skipping any that are full so the
// transport's reader never stalls.
func (h *hub) publish(msg Inbound) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return
	}
	for _, ch := range h.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
	h.mirrorLocked(fmt.Sprintf("rx %s %x", msg.Kind, msg.Payload))
}

// setAttached records a lifecycle change and publishes it once.
func (h *hub) setAttached(v bool) {
	if h.attached.Swap(v) == v {
		return
	}
	kind := Detach
	if v {
		kind = Attach
	}
	h.publish(Inbound{Kind: kind})
}

func (h *hub) tail() (string, chan string) {
	id := randomID()
	ch := make(chan string, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		close(ch)
		return id, ch
	}
	h.tails[id] = ch
	return id, ch
}

func (h *hub) untail(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.tails[id]; ok {
		close(ch)
		delete(h.tails, id)
	}
}

// mirrorSend copies an outbound packet to any debug tails.
func (h *hub) mirrorSend(ch protocol.Channel, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.tails) == 0 {
		return
	}
	h.mirrorLocked(fmt.Sprintf("tx %s %x", ch, payload))
}

func (h *hub) mirrorLocked(line string) {
	for _, t := range h.tails {
		select {
		case t <- line:
		default:
		}
	}
}

// shutdown closes every subscription. It reports false if already closed.
func (h *hub) shutdown() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.closing = true
	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
	for id, ch := range h.tails {
		close(ch)
		delete(h.tails, id)
	}
	h.attached.Store(false)
	return true
}

func (h *hub) closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closing
}

// enqueue frames payload behind its channel id and queues it without
// blocking.
func (h *hub) enqueue(q chan []byte, ch protocol.Channel, payload []byte) error {
	if h.closed() {
		return ErrClosed
	}
	h.mirrorSend(ch, payload)
	if !h.Attached() {
		return nil
	}
	frame := make([]byte, 1+len(payload))
	frame[0] = byte(ch)
	copy(frame[1:], payload)
	select {
	case q <- frame:
		return nil
	default:
		h.dropped.Add(1)
		return ErrQueueFull
	}
}
