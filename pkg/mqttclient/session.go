package mqttclient

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// SessionState tracks the broker connection lifecycle. Transitions are driven
// by connect attempts and paho callbacks; callers observe it for diagnostics
// only and never gate publishes on it.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnected
	StateReconnectPending
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnectPending:
		return "reconnect-pending"
	default:
		return "unknown"
	}
}

// DefaultBufferSize bounds the disconnected-message buffer.
const DefaultBufferSize = 100

var (
	// ErrBufferFull is returned when a publish arrives while disconnected and
	// the buffer already holds DefaultBufferSize messages. Oldest messages are
	// kept: the backlog is worth more than the freshest reading, which will be
	// republished on the next cycle anyway.
	ErrBufferFull = errors.New("mqttclient: disconnected buffer full, message dropped")

	// ErrClosed is returned on publish after Disconnect.
	ErrClosed = errors.New("mqttclient: session closed")
)

type outgoing struct {
	topic   string
	qos     byte
	payload []byte
}

// Session owns one persistent broker connection: connect with auto-reconnect,
// a bounded in-memory buffer for messages produced while disconnected, QoS
// publishing and graceful disconnect. All methods are safe for concurrent use,
// though the telemetry worker is expected to be the only caller after setup.
type Session struct {
	client mqtt.Client

	mu     sync.Mutex
	state  SessionState
	buf    []outgoing
	bufCap int
	closed bool

	// Diagnostics hooks, optional; set before Connect. Invoked from paho's
	// callback goroutines.
	OnUp   func(reconnect bool)
	OnDown func(err error)
}

// NewSession validates the endpoint and prepares the client. The connection
// itself is issued by Connect and recovers on its own afterwards.
func NewSession(cfg *Config) (*Session, error) {
	if cfg.BrokerURI == "" {
		return nil, errors.New("mqttclient: empty broker URI")
	}
	if _, err := url.Parse(cfg.BrokerURI); err != nil {
		return nil, fmt.Errorf("mqttclient: invalid broker URI %q: %w", cfg.BrokerURI, err)
	}

	s := &Session{
		state:  StateDisconnected,
		bufCap: DefaultBufferSize,
	}

	opts := newClientOptions(cfg)
	// Keep retrying the initial connect too, so a broker that is down at
	// startup does not kill the session.
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetOnConnectHandler(s.handleConnect)
	opts.SetConnectionLostHandler(s.handleConnectionLost)
	opts.SetReconnectingHandler(s.handleReconnecting)

	s.client = mqtt.NewClient(opts)
	return s, nil
}

// Connect issues the initial connect without blocking on the broker. The
// outcome is observed asynchronously; auto-reconnect governs recovery.
func (s *Session) Connect() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.state = StateConnecting
	s.mu.Unlock()

	token := s.client.Connect()
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			log.Printf("mqtt: connect failure: %v", err)
			s.mu.Lock()
			if s.state == StateConnecting {
				s.state = StateDisconnected
			}
			s.mu.Unlock()
		}
	}()
	return nil
}

// Publish sends a message at the given QoS, or buffers it while disconnected.
// It never waits for the broker acknowledgment; QoS1 redelivery is the
// client's job.
func (s *Session) Publish(topic string, qos byte, payload []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state != StateConnected {
		if len(s.buf) >= s.bufCap {
			s.mu.Unlock()
			return ErrBufferFull
		}
		s.buf = append(s.buf, outgoing{topic: topic, qos: qos, payload: payload})
		n := len(s.buf)
		s.mu.Unlock()
		log.Printf("mqtt: disconnected, buffered message %d/%d", n, s.bufCap)
		return nil
	}
	s.mu.Unlock()

	s.send(outgoing{topic: topic, qos: qos, payload: payload})
	return nil
}

// send fires the publish and logs the outcome off the caller's goroutine.
func (s *Session) send(m outgoing) {
	token := s.client.Publish(m.topic, m.qos, false, m.payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			log.Printf("mqtt: publish to %s failed: %v", m.topic, err)
		}
	}()
}

// BufferedCount reports how many messages are waiting for a reconnect.
func (s *Session) BufferedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

// State returns the current connection state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Disconnect flushes nothing: whatever is still buffered is lost, per the
// best-effort delivery contract. The session is not reusable afterwards.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	dropped := len(s.buf)
	s.buf = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	if dropped > 0 {
		log.Printf("mqtt: disconnecting with %d undelivered buffered messages", dropped)
	}
	s.client.Disconnect(250)
}

func (s *Session) handleConnect(_ mqtt.Client) {
	s.mu.Lock()
	reconnect := s.state == StateReconnectPending
	s.state = StateConnected
	pending := s.buf
	s.buf = nil
	s.mu.Unlock()

	if reconnect {
		log.Printf("mqtt: reconnected, flushing %d buffered messages", len(pending))
	} else {
		log.Println("mqtt: connection complete")
	}
	if s.OnUp != nil {
		s.OnUp(reconnect)
	}

	// FIFO flush: oldest first, in arrival order.
	for _, m := range pending {
		s.send(m)
	}
}

func (s *Session) handleConnectionLost(_ mqtt.Client, err error) {
	s.mu.Lock()
	s.state = StateDisconnected
	s.mu.Unlock()

	log.Printf("mqtt: connection lost: %v", err)
	if s.OnDown != nil {
		s.OnDown(err)
	}
}

func (s *Session) handleReconnecting(_ mqtt.Client, _ *mqtt.ClientOptions) {
	s.mu.Lock()
	s.state = StateReconnectPending
	s.mu.Unlock()
}
