package telemetry

import (
	"net"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

// ConnectivityGate answers whether outbound network is currently usable. It
// is consulted before every publish attempt; the publish cycle skips (and
// still reschedules) when it reports false.
type ConnectivityGate interface {
	Online() bool
}

// AlwaysOnline reports the network as usable unconditionally. Useful on
// trusted links and in tests.
type AlwaysOnline struct{}

func (AlwaysOnline) Online() bool { return true }

// DialGate probes the broker endpoint with a short TCP dial. A circuit
// breaker keeps a dead network from costing a full dial timeout on every
// publish cycle: after a few consecutive failures the gate answers false
// immediately until the breaker half-opens.
type DialGate struct {
	addr    string
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
}

// NewDialGate builds a gate probing the host of the given broker URI.
func NewDialGate(brokerURI string, timeout time.Duration) *DialGate {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	addr := brokerURI
	if u, err := url.Parse(brokerURI); err == nil && u.Host != "" {
		addr = u.Host
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "connectivity-probe",
		Timeout: 5 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
	})
	return &DialGate{addr: addr, timeout: timeout, cb: cb}
}

func (g *DialGate) Online() bool {
	_, err := g.cb.Execute(func() (any, error) {
		conn, err := net.DialTimeout("tcp", g.addr, g.timeout)
		if err != nil {
			return nil, err
		}
		_ = conn.Close()
		return nil, nil
	})
	return err == nil
}
