package link

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/luma/internal/protocol"
	"github.com/banshee-data/luma/internal/serialport"
)

func startSerialLink(t *testing.T) (*SerialLink, *serialport.TestablePort, chan Inbound) {
	t.Helper()
	port := serialport.NewTestablePort()
	l := NewSerialLink(port)
	_, ch := l.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Monitor(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		l.Close()
	})
	return l, port, ch
}

func TestSerialLink_BridgeLifecycle(t *testing.T) {
	l, port, ch := startSerialLink(t)

	port.AddReadData([]byte("OK+CONN\r\nLEFT_ON\r\n\r\nOK+LOST\r\n"))

	assert.Equal(t, Attach, recv(t, ch).Kind)
	cmd := recv(t, ch)
	assert.Equal(t, Command, cmd.Kind)
	assert.Equal(t, []byte("LEFT_ON"), cmd.Payload)
	assert.Equal(t, Detach, recv(t, ch).Kind)
	assert.False(t, l.Attached())
}

func TestSerialLink_Send(t *testing.T) {
	l, port, ch := startSerialLink(t)

	pkt := protocol.EncodeEvent(0, 1.0)
	require.NoError(t, l.Send(protocol.Events, pkt[:]))
	assert.Zero(t, port.WriteCalls(), "no remote, nothing written")

	port.AddReadData([]byte("OK+CONN\n"))
	require.Equal(t, Attach, recv(t, ch).Kind)

	require.NoError(t, l.Send(protocol.Events, pkt[:]))
	want := append([]byte{byte(protocol.Events)}, pkt[:]...)
	require.Eventually(t, func() bool {
		return bytes.Equal(want, port.Written())
	}, 2*time.Second, time.Millisecond)
}

func TestSerialLink_WriteFailureCounted(t *testing.T) {
	l, port, ch := startSerialLink(t)
	port.AddReadData([]byte("OK+CONN\n"))
	require.Equal(t, Attach, recv(t, ch).Kind)

	port.WriteError = errors.New("bridge reset")
	require.NoError(t, l.Send(protocol.Telemetry, make([]byte, protocol.SamplePacketSize)))
	require.Eventually(t, func() bool { return l.Dropped() == 1 }, 2*time.Second, time.Millisecond)
}

func TestSerialLink_PortFailureEndsMonitor(t *testing.T) {
	port := serialport.NewTestablePort()
	l := NewSerialLink(port)

	done := make(chan error, 1)
	go func() { done <- l.Monitor(context.Background()) }()

	port.Close()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, serialport.ErrPortClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return")
	}
}

func TestSerialLink_Close(t *testing.T) {
	port := serialport.NewTestablePort()
	l := NewSerialLink(port)
	_, ch := l.Subscribe()

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.True(t, port.Closed())
	_, ok := <-ch
	assert.False(t, ok)
}
