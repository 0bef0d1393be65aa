package telemetry

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgelab-iot/weathermq/internal/model/messages"
	"github.com/edgelab-iot/weathermq/pkg/mqttclient"
)

type fakeBroker struct {
	mu            sync.Mutex
	published     [][]byte
	disconnects   int
	publishErr    error
	bufferedCount int
}

func (f *fakeBroker) Publish(_ string, _ byte, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	f.published = append(f.published, cp)
	return nil
}

func (f *fakeBroker) BufferedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bufferedCount
}

func (f *fakeBroker) State() mqttclient.SessionState { return mqttclient.StateConnected }

func (f *fakeBroker) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
}

func (f *fakeBroker) publishCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func (f *fakeBroker) lastPublished(t *testing.T) messages.TelemetryMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.published)
	var msg messages.TelemetryMessage
	require.NoError(t, json.Unmarshal(f.published[len(f.published)-1], &msg))
	return msg
}

// flakyGate answers false for the first n calls, then true.
type flakyGate struct {
	mu    sync.Mutex
	deny  int
	calls int
}

func (g *flakyGate) Online() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.calls > g.deny
}

func newTestPublisher(session broker, gate ConnectivityGate, interval time.Duration) *Publisher {
	return newPublisher(session, gate, "weather/telemetry", "station-test", interval)
}

func TestPublishCycle_TemperatureOnly(t *testing.T) {
	fb := &fakeBroker{}
	p := newTestPublisher(fb, AlwaysOnline{}, time.Second)
	defer p.Close()

	p.OnTemperature(21.5)
	p.publishCycle()

	require.Equal(t, 1, fb.publishCount())
	msg := fb.lastPublished(t)
	assert.Equal(t, "21.5", msg.Data[messages.MetricTemperature])
	assert.NotContains(t, msg.Data, messages.MetricPressure)
	assert.Equal(t, "station-test", msg.DeviceID)
	assert.Equal(t, messages.ChannelPubSub, msg.Channel)
}

func TestPublishCycle_NothingRecordedSkipsPublish(t *testing.T) {
	fb := &fakeBroker{}
	p := newTestPublisher(fb, AlwaysOnline{}, time.Second)
	defer p.Close()

	p.publishCycle()
	assert.Zero(t, fb.publishCount())
}

func TestPublishCycle_OfflineSkipsUntilOnline(t *testing.T) {
	fb := &fakeBroker{}
	gate := &flakyGate{deny: 3}
	p := newTestPublisher(fb, gate, time.Second)
	defer p.Close()

	p.OnTemperature(20)
	for i := 0; i < 3; i++ {
		p.publishCycle()
	}
	assert.Zero(t, fb.publishCount(), "no publish attempts while offline")

	p.publishCycle()
	assert.Equal(t, 1, fb.publishCount(), "one attempt on the first online cycle")
}

func TestPublishCycle_SameValueRepublishedEveryCycle(t *testing.T) {
	// The cache is never cleared after a send: the unchanged reading keeps
	// going out as a steady heartbeat.
	fb := &fakeBroker{}
	p := newTestPublisher(fb, AlwaysOnline{}, time.Second)
	defer p.Close()

	p.OnPressure(990.5)
	p.publishCycle()
	p.publishCycle()
	p.publishCycle()

	require.Equal(t, 3, fb.publishCount())
	msg := fb.lastPublished(t)
	assert.Equal(t, "990.5", msg.Data[messages.MetricPressure])
}

func TestPublishCycle_PublishErrorDoesNotPropagate(t *testing.T) {
	fb := &fakeBroker{publishErr: mqttclient.ErrBufferFull}
	p := newTestPublisher(fb, AlwaysOnline{}, time.Second)
	defer p.Close()

	p.OnTemperature(18)
	// must not panic or stall; error is logged and swallowed
	p.publishCycle()
	p.publishCycle()
}

func TestScheduler_PublishesImmediatelyThenPeriodically(t *testing.T) {
	fb := &fakeBroker{}
	p := newTestPublisher(fb, AlwaysOnline{}, 25*time.Millisecond)
	defer p.Close()

	p.OnTemperature(21.5)
	p.Start()

	require.Eventually(t, func() bool { return fb.publishCount() >= 1 }, time.Second, 5*time.Millisecond,
		"first cycle should run immediately")
	require.Eventually(t, func() bool { return fb.publishCount() >= 3 }, time.Second, 5*time.Millisecond,
		"cycles should keep rescheduling")
}

func TestScheduler_StopHaltsSchedule(t *testing.T) {
	fb := &fakeBroker{}
	p := newTestPublisher(fb, AlwaysOnline{}, 20*time.Millisecond)
	defer p.Close()

	p.OnTemperature(21.5)
	p.Start()
	require.Eventually(t, func() bool { return fb.publishCount() >= 2 }, time.Second, 5*time.Millisecond)

	p.Stop()
	// let any in-flight cycle finish
	time.Sleep(50 * time.Millisecond)
	n := fb.publishCount()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, n, fb.publishCount(), "no further attempts after Stop")

	// restart resumes the cadence
	p.Start()
	require.Eventually(t, func() bool { return fb.publishCount() > n }, time.Second, 5*time.Millisecond)
}

func TestScheduler_StartAndStopAreIdempotent(t *testing.T) {
	fb := &fakeBroker{}
	p := newTestPublisher(fb, AlwaysOnline{}, 20*time.Millisecond)
	defer p.Close()

	p.Stop() // stop while idle is a no-op
	p.OnTemperature(1)
	p.Start()
	p.Start() // second start must not double the cadence
	time.Sleep(110 * time.Millisecond)
	p.Stop()
	p.Stop()

	// immediate cycle plus ~5 rescheduled ones; a doubled schedule would
	// roughly double this
	assert.LessOrEqual(t, fb.publishCount(), 8)
	assert.GreaterOrEqual(t, fb.publishCount(), 3)
}

func TestClose_DisconnectsSessionOnce(t *testing.T) {
	fb := &fakeBroker{}
	p := newTestPublisher(fb, AlwaysOnline{}, 20*time.Millisecond)

	p.OnTemperature(1)
	p.Start()
	p.Close()
	p.Close() // guarded

	assert.Equal(t, 1, fb.disconnects)

	n := fb.publishCount()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, n, fb.publishCount(), "no cycles after Close")
}
