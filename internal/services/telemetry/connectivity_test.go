package telemetry

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlwaysOnline(t *testing.T) {
	assert.True(t, AlwaysOnline{}.Online())
}

func TestDialGate_ReachableEndpoint(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	g := NewDialGate("tcp://"+ln.Addr().String(), 200*time.Millisecond)
	assert.True(t, g.Online())
}

func TestDialGate_UnreachableEndpointTripsBreaker(t *testing.T) {
	// grab a port and close it so dials are refused
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	g := NewDialGate("tcp://"+addr, 100*time.Millisecond)
	for i := 0; i < 3; i++ {
		assert.False(t, g.Online())
	}

	// breaker is open now: still offline, answered without dialing
	start := time.Now()
	assert.False(t, g.Online())
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestDialGate_ParsesBrokerURI(t *testing.T) {
	g := NewDialGate("tcp://broker.example.com:1883", 0)
	assert.Equal(t, "broker.example.com:1883", g.addr)
}
