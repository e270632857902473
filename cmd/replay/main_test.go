package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/luma/internal/arbiter"
	"github.com/banshee-data/luma/internal/config"
	"github.com/banshee-data/luma/internal/imu"
	"github.com/banshee-data/luma/internal/led"
	"github.com/banshee-data/luma/internal/monitor"
)

func TestReplay_RideFixture(t *testing.T) {
	src, err := imu.OpenReplayFile("testdata/ride.csv", imu.ReplayOptions{})
	require.NoError(t, err)
	defer src.Close()

	var out bytes.Buffer
	plotter := monitor.NewWindowPlotter()
	st, anim, err := replay(context.Background(), src, config.EmptyHelmetConfig(), plotter, &out)
	require.NoError(t, err)

	assert.Equal(t, 500, st.Samples)
	assert.Equal(t, 4, st.FastPath, "brake dip and recovery, impact and recovery")
	assert.Equal(t, 2, st.Classified)
	assert.Equal(t, 2, st.Outcomes[arbiter.Accepted])
	assert.Equal(t, 1, st.Outcomes[arbiter.Extended])
	assert.Equal(t, 1, st.Outcomes[arbiter.Informational])
	assert.Equal(t, 2, st.Outcomes[arbiter.Suppressed])

	// Nobody dismissed the crash.
	assert.Equal(t, led.Crash, anim.Current().Pattern)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[0], "brake")
	assert.Contains(t, lines[0], "accepted")
	assert.Contains(t, lines[5], "crash")
	assert.Contains(t, lines[5], "suppressed")

	img, err := plotter.Plot()
	require.NoError(t, err)
	assert.NotNil(t, img)
}

func TestReplay_QuietWriter(t *testing.T) {
	src, err := imu.OpenReplayFile("testdata/ride.csv", imu.ReplayOptions{})
	require.NoError(t, err)
	defer src.Close()

	st, _, err := replay(context.Background(), src, config.ForProfile(config.ProfileESP32), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 500, st.Samples)
}
