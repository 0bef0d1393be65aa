package telemetry

import (
	"sync"
	"time"
)

// serialWorker executes posted jobs one at a time on a dedicated goroutine.
// All scheduler cycles and session lifecycle work run here, so no two of them
// ever overlap.
type serialWorker struct {
	mu     sync.Mutex
	closed bool
	jobs   chan func()
	done   chan struct{}
}

func newSerialWorker() *serialWorker {
	w := &serialWorker{
		jobs: make(chan func(), 64),
		done: make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *serialWorker) loop() {
	for job := range w.jobs {
		job()
	}
	close(w.done)
}

// post enqueues a job without waiting for it to run. Returns false once the
// worker has been shut down.
func (w *serialWorker) post(job func()) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	w.jobs <- job
	return true
}

// shutdown stops accepting jobs and waits for the queue to drain.
func (w *serialWorker) shutdown() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.jobs)
	w.mu.Unlock()
	<-w.done
}

// publishScheduler reruns cycle on the worker at a fixed interval measured
// from completion of the previous run: each cycle reschedules itself after it
// finishes, so execution time adds to the effective period. Two states: Idle
// (no pending trigger) and Running.
type publishScheduler struct {
	worker   *serialWorker
	interval time.Duration
	cycle    func()

	mu      sync.Mutex
	running bool
	gen     int
	timer   *time.Timer
}

// start schedules an immediate cycle. No-op while already running.
func (s *publishScheduler) start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	s.worker.post(func() { s.run(gen) })
}

// stop cancels the pending trigger. An in-flight cycle completes on its own;
// the generation bump keeps an already-queued run from executing. No-op while
// idle.
func (s *publishScheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *publishScheduler) run(gen int) {
	s.mu.Lock()
	live := s.running && gen == s.gen
	s.mu.Unlock()
	if !live {
		return
	}

	s.cycle()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || gen != s.gen {
		return
	}
	s.timer = time.AfterFunc(s.interval, func() {
		s.worker.post(func() { s.run(gen) })
	})
}
