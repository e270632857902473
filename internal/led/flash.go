package led

import (
	"context"
	"time"

	"github.com/banshee-data/luma/internal/timeutil"
)

// ErrorFlashInterval is the on and off time of the startup failure flash.
const ErrorFlashInterval = 300 * time.Millisecond

// ErrorFlash alternates the whole strip between full red and off until ctx is
// cancelled, then leaves it dark. It is what the helmet shows when the
// sensor cannot be brought up.
func ErrorFlash(ctx context.Context, strip Strip, clock timeutil.Clock) error {
	pixels := make([]Color, strip.Len())
	ticker := clock.NewTicker(ErrorFlashInterval)
	defer ticker.Stop()

	on := true
	for {
		if on {
			fill(pixels, Red)
		} else {
			fill(pixels, Black)
		}
		if err := strip.Show(pixels); err != nil {
			return err
		}
		on = !on

		select {
		case <-ctx.Done():
			fill(pixels, Black)
			return strip.Show(pixels)
		case <-ticker.C():
		}
	}
}
