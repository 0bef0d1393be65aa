package mqttclient

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateClientID_UniquePerCall(t *testing.T) {
	a := GenerateClientID("weatherstation")
	b := GenerateClientID("weatherstation")

	assert.True(t, strings.HasPrefix(a, "weatherstation-"))
	assert.NotEqual(t, a, b)
}

func TestNewClientOptions_PersistentSessionWithReconnect(t *testing.T) {
	opts := newClientOptions(&Config{
		BrokerURI: "tcp://localhost:1883",
		AppName:   "weatherstation",
	})

	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "localhost:1883", opts.Servers[0].Host)
	assert.False(t, opts.CleanSession, "undelivered state must survive a reconnect")
	assert.True(t, opts.AutoReconnect)
	assert.True(t, strings.HasPrefix(opts.ClientID, "weatherstation-"))
}

func TestNewClientOptions_KeepsExplicitClientID(t *testing.T) {
	opts := newClientOptions(&Config{
		BrokerURI: "tcp://localhost:1883",
		ClientID:  "fixed-id",
	})
	assert.Equal(t, "fixed-id", opts.ClientID)
}
