package link

import (
	"context"
	"net/http"

	"github.com/banshee-data/luma/internal/protocol"
)

// DisabledLink is a no-op Link used when the helmet runs without a remote
// (-link none). Admin-injected commands are still delivered so the LEDs can
// be exercised from the debug page.
type DisabledLink struct {
	*hub
}

func NewDisabledLink() *DisabledLink {
	return &DisabledLink{hub: newHub()}
}

func (d *DisabledLink) Send(protocol.Channel, []byte) error {
	if d.closed() {
		return ErrClosed
	}
	return nil
}

func (d *DisabledLink) Monitor(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }

func (d *DisabledLink) inject(payload []byte) {
	d.publish(Inbound{Kind: Command, Payload: payload})
}

func (d *DisabledLink) Close() error {
	d.shutdown()
	return nil
}

func (d *DisabledLink) AttachAdminRoutes(mux *http.ServeMux) {
	attachAdminRoutes(mux, "none", d.hub, d)
}
