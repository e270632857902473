package link

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/luma/internal/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketLink accepts one rider app at a time over a websocket. Opening the
// socket attaches and closing it detaches. Outbound packets go out as binary
// frames (channel id + payload); every message received is a command.
type WebSocketLink struct {
	*hub
	queue chan []byte
	done  chan struct{}
	once  sync.Once

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWebSocketLink() *WebSocketLink {
	return &WebSocketLink{
		hub:   newHub(),
		queue: make(chan []byte, queueSize),
		done:  make(chan struct{}),
	}
}

func (l *WebSocketLink) Send(ch protocol.Channel, payload []byte) error {
	return l.enqueue(l.queue, ch, payload)
}

func (l *WebSocketLink) inject(payload []byte) {
	l.publish(Inbound{Kind: Command, Payload: payload})
}

// ServeHTTP upgrades the request and serves the remote until it goes away.
// A second concurrent remote is refused.
func (l *WebSocketLink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if l.closed() {
		http.Error(w, "link closed", http.StatusServiceUnavailable)
		return
	}
	l.mu.Lock()
	busy := l.conn != nil
	l.mu.Unlock()
	if busy {
		http.Error(w, "a remote is already attached", http.StatusConflict)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	l.mu.Lock()
	if l.conn != nil {
		l.mu.Unlock()
		conn.Close()
		return
	}
	l.conn = conn
	l.mu.Unlock()

	l.drain()
	l.setAttached(true)

	stop := make(chan struct{})
	go l.writePump(conn, stop)
	l.readPump(conn)
	close(stop)

	l.mu.Lock()
	l.conn = nil
	l.mu.Unlock()
	l.setAttached(false)
}

// drain discards packets queued for a previous remote.
func (l *WebSocketLink) drain() {
	for {
		select {
		case <-l.queue:
		default:
			return
		}
	}
}

func (l *WebSocketLink) readPump(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}
		l.publish(Inbound{Kind: Command, Payload: msg})
	}
}

func (l *WebSocketLink) writePump(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-l.queue:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				l.dropped.Add(1)
				conn.Close()
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}

		case <-l.done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "helmet shutting down"),
				time.Now().Add(writeWait))
			conn.Close()
			return

		case <-stop:
			return
		}
	}
}

// Monitor waits for ctx; connections are served by ServeHTTP.
func (l *WebSocketLink) Monitor(ctx context.Context) error {
	select {
	case <-ctx.Done():
		l.Close()
		return ctx.Err()
	case <-l.done:
		return nil
	}
}

func (l *WebSocketLink) Close() error {
	l.once.Do(func() {
		close(l.done)
		l.shutdown()
	})
	return nil
}

func (l *WebSocketLink) AttachAdminRoutes(mux *http.ServeMux) {
	attachAdminRoutes(mux, "websocket", l.hub, l)
}
