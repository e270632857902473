package link

import (
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"

	"tailscale.com/tsweb"

	"github.com/banshee-data/luma/internal/httputil"
)

// injector lets the admin routes feed a command in as if the remote had
// written it.
type injector interface {
	inject(payload []byte)
}

type linkStatus struct {
	Transport string `json:"transport"`
	Attached  bool   `json:"attached"`
	Dropped   uint64 `json:"dropped"`
}

// attachAdminRoutes registers the shared debug endpoints for a transport.
func attachAdminRoutes(mux *http.ServeMux, transport string, h *hub, in injector) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("link", "link transport status", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSONOK(w, linkStatus{
			Transport: transport,
			Attached:  h.Attached(),
			Dropped:   h.Dropped(),
		})
	})

	// API endpoint to inject a command as if the remote had written it. Send
	// hex=1 to pass raw opcode bytes.
	debug.HandleSilentFunc("send-command-api", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httputil.MethodNotAllowed(w)
			return
		}
		command := strings.TrimSpace(r.FormValue("command"))
		if command == "" {
			httputil.BadRequest(w, "missing command")
			return
		}
		payload := []byte(command)
		if r.FormValue("hex") == "1" {
			b, err := hex.DecodeString(command)
			if err != nil {
				httputil.BadRequest(w, "invalid hex command")
				return
			}
			payload = b
		}
		in.inject(payload)
		io.WriteString(w, fmt.Sprintf("Injected command %q", command))
	})

	// API endpoint to issue Server-Side Events (SSE) for every packet sent and
	// every message received.
	debug.HandleSilentFunc("tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

		id, c := h.tail()
		defer h.untail(id)

		// Send initial ping to establish connection
		w.Write([]byte(": ping\n\n"))
		w.(http.Flusher).Flush()

		for {
			select {
			case line, ok := <-c:
				if !ok {
					return
				}
				if _, err := w.Write([]byte(fmt.Sprintf("data: %s\n\n", line))); err != nil {
					return
				}
				w.(http.Flusher).Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
}
