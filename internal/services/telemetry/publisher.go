package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/edgelab-iot/weathermq/pkg/mqttclient"
)

const (
	// BrokerURI is the fixed endpoint telemetry is published to.
	BrokerURI = "tcp://iot.eclipse.org:1883"

	publishInterval = time.Second
	publishQoS      = 1
)

// broker is the slice of the session the publish cycle uses. Publish errors
// never stop the cadence; the session's buffering and reconnect policy papers
// over disconnected periods.
type broker interface {
	Publish(topic string, qos byte, payload []byte) error
	BufferedCount() int
	State() mqttclient.SessionState
	Disconnect()
}

// Publisher bridges the latest sensor readings to an MQTT topic once per
// second. Sensor updates arrive through OnTemperature/OnPressure from the
// platform's delivery goroutines at their own pace; the publish loop
// snapshots whatever is current.
type Publisher struct {
	topic    string
	deviceID string

	cache   *LatestValueCache
	gate    ConnectivityGate
	session broker
	worker  *serialWorker
	sched   *publishScheduler

	closeOnce sync.Once
}

// NewPublisher creates the broker session against the fixed endpoint with a
// generated client identity and issues the initial connect. Only a session
// that cannot be created at all (e.g. malformed endpoint) fails construction;
// a broker that is down is handled by connect retry and auto-reconnect.
func NewPublisher(appName, topic, deviceID string) (*Publisher, error) {
	session, err := mqttclient.NewSession(&mqttclient.Config{
		BrokerURI: BrokerURI,
		AppName:   appName,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: session init: %w", err)
	}
	session.OnUp = func(reconnect bool) {
		if reconnect {
			reconnects.Inc()
		}
	}

	p := newPublisher(session, NewDialGate(BrokerURI, 0), topic, deviceID, publishInterval)
	p.worker.post(func() {
		if err := session.Connect(); err != nil {
			log.Printf("telemetry: connect: %v", err)
		}
	})
	return p, nil
}

// newPublisher wires an existing session and gate. Tests use it directly.
func newPublisher(session broker, gate ConnectivityGate, topic, deviceID string, interval time.Duration) *Publisher {
	initMetrics()
	p := &Publisher{
		topic:    topic,
		deviceID: deviceID,
		cache:    NewLatestValueCache(),
		gate:     gate,
		session:  session,
		worker:   newSerialWorker(),
	}
	p.sched = &publishScheduler{
		worker:   p.worker,
		interval: interval,
		cycle:    p.publishCycle,
	}
	return p
}

// Start begins the publish schedule: one cycle immediately, then every
// interval after the previous cycle completes. Idempotent.
func (p *Publisher) Start() { p.sched.start() }

// Stop cancels the pending trigger without touching the broker session.
// Idempotent; Start may be called again afterwards.
func (p *Publisher) Stop() { p.sched.stop() }

// Close stops the schedule, disconnects the session on the worker and waits
// for pending work to drain. The publisher is not reusable afterwards.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		p.sched.stop()
		p.worker.post(func() { p.session.Disconnect() })
		p.worker.shutdown()
	})
}

// OnTemperature records a temperature reading. Called from the platform's
// sensor-delivery goroutine; overwrites unconditionally and never blocks.
func (p *Publisher) OnTemperature(v float64) { p.cache.RecordTemperature(v) }

// OnPressure records a pressure reading.
func (p *Publisher) OnPressure(v float64) { p.cache.RecordPressure(v) }

// SessionState reports the broker connection state, for diagnostics only;
// the publish cycle itself never consults it.
func (p *Publisher) SessionState() mqttclient.SessionState { return p.session.State() }

// publishCycle runs on the worker. Every outcome reschedules: steady-state
// failures are logged and swallowed so the cadence never stalls.
func (p *Publisher) publishCycle() {
	bufferDepth.Set(float64(p.session.BufferedCount()))

	if !p.gate.Online() {
		log.Println("telemetry: no usable network")
		cyclesSkipped.WithLabelValues("no_network").Inc()
		return
	}

	msg := BuildPayload(p.cache.Snapshot(), p.deviceID, time.Now())
	if msg.Data == nil {
		log.Println("telemetry: no sensor measurement to publish")
		cyclesSkipped.WithLabelValues("no_data").Inc()
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		// fixed schema, should not happen
		log.Printf("telemetry: error serializing payload: %v", err)
		return
	}

	publishAttempts.Inc()
	if err := p.session.Publish(p.topic, publishQoS, payload); err != nil {
		publishErrors.Inc()
		log.Printf("telemetry: error publishing message: %v", err)
	}
}
