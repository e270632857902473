package testutil

import (
	"net/http"
	"testing"

	"tailscale.com/tsweb"
)

func TestLocalRequestPassesDebugAccess(t *testing.T) {
	mux := http.NewServeMux()
	tsweb.Debugger(mux).HandleFunc("ping", "ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})

	rec := ServeDebug(mux, LocalRequest(http.MethodGet, "/debug/ping", nil))
	AssertStatusCode(t, rec, http.StatusOK)
	if rec.Body.String() != "pong" {
		t.Errorf("body = %q, want pong", rec.Body.String())
	}
}
