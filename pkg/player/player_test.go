package player

import (
	"math"
	"testing"
	"time"

	"github.com/asdlei99/fmidi/pkg/seq"
)

// fakeScheduler drives ticks manually with a controllable clock.
type fakeScheduler struct {
	now         time.Time
	period      time.Duration
	tick        func()
	armed       bool
	armCount    int
	disarmCount int
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{now: time.Unix(1000, 0)}
}

func (s *fakeScheduler) Arm(period time.Duration, tick func()) {
	s.period = period
	s.tick = tick
	s.armed = true
	s.armCount++
}

func (s *fakeScheduler) Disarm() {
	s.armed = false
	s.disarmCount++
}

func (s *fakeScheduler) Now() time.Time {
	return s.now
}

// advance moves the clock forward and fires one tick if armed.
func (s *fakeScheduler) advance(d time.Duration) {
	s.now = s.now.Add(d)
	if s.armed {
		s.tick()
	}
}

// noteAt builds a timed note-on event for channel 0.
func noteAt(t float64, key uint8) seq.TimedEvent {
	return seq.TimedEvent{
		Time:  t,
		Event: &seq.Event{Type: seq.Message, Data: []byte{0x90, key, 100}},
	}
}

func TestTickMonotonicity(t *testing.T) {
	sched := newFakeScheduler()
	events := []seq.TimedEvent{noteAt(0.05, 60), noteAt(0.10, 62), noteAt(0.15, 64)}
	p := New(seq.NewList(events), sched)

	var dispatched []uint8
	p.SetEventHandler(func(ev *seq.Event) {
		dispatched = append(dispatched, ev.Data[1])
	})

	p.Start()

	// The first tick after starting measures no elapsed time.
	sched.advance(30 * time.Millisecond)
	if p.CurrentTime() != 0 {
		t.Errorf("timepos after first tick = %v, want 0", p.CurrentTime())
	}

	// Each subsequent tick advances by exactly the elapsed wall time.
	sched.advance(60 * time.Millisecond)
	if math.Abs(p.CurrentTime()-0.06) > 1e-9 {
		t.Errorf("timepos = %v, want 0.06", p.CurrentTime())
	}
	if len(dispatched) != 1 || dispatched[0] != 60 {
		t.Fatalf("dispatched = %v, want [60]", dispatched)
	}

	sched.advance(60 * time.Millisecond)
	if math.Abs(p.CurrentTime()-0.12) > 1e-9 {
		t.Errorf("timepos = %v, want 0.12", p.CurrentTime())
	}
	if len(dispatched) != 2 || dispatched[1] != 62 {
		t.Fatalf("dispatched = %v, want [60 62]", dispatched)
	}
}

func TestCatchUpAndCompletion(t *testing.T) {
	sched := newFakeScheduler()
	events := []seq.TimedEvent{noteAt(0.001, 60), noteAt(0.002, 61), noteAt(0.2, 62)}
	p := New(seq.NewList(events), sched)

	var dispatched []uint8
	finished := 0
	p.SetEventHandler(func(ev *seq.Event) {
		dispatched = append(dispatched, ev.Data[1])
	})
	p.SetFinishHandler(func() { finished++ })

	p.Start()
	sched.advance(time.Millisecond) // anchor tick, zero elapsed

	// One coarse tick covering the whole cluster: everything due
	// dispatches in order before the tick returns.
	sched.advance(250 * time.Millisecond)

	want := []uint8{60, 61, 62}
	if len(dispatched) != len(want) {
		t.Fatalf("dispatched %d events, want %d", len(dispatched), len(want))
	}
	for i, key := range want {
		if dispatched[i] != key {
			t.Errorf("dispatched[%d] = %d, want %d", i, dispatched[i], key)
		}
	}
	if finished != 1 {
		t.Errorf("finish handler invoked %d times, want 1", finished)
	}
	if p.Running() {
		t.Error("Running() = true after exhaustion, want false")
	}

	// No further ticks fire and no duplicate completion.
	sched.advance(100 * time.Millisecond)
	if finished != 1 || len(dispatched) != 3 {
		t.Errorf("state changed after exhaustion: finished=%d dispatched=%d", finished, len(dispatched))
	}
}

func TestStartStopIdempotence(t *testing.T) {
	sched := newFakeScheduler()
	p := New(seq.NewList([]seq.TimedEvent{noteAt(1, 60)}), sched)

	p.Stop() // stopped: no-op
	if sched.disarmCount != 0 {
		t.Errorf("Stop() on stopped player disarmed %d times, want 0", sched.disarmCount)
	}

	p.Start()
	p.Start() // running: no-op
	if sched.armCount != 1 {
		t.Errorf("Start() twice armed %d times, want 1", sched.armCount)
	}
	if !p.Running() {
		t.Error("Running() = false after Start()")
	}

	p.Stop()
	p.Stop()
	if sched.disarmCount != 1 {
		t.Errorf("Stop() twice disarmed %d times, want 1", sched.disarmCount)
	}
	if p.Running() {
		t.Error("Running() = true after Stop()")
	}
}

func TestStopFreezesTimeline(t *testing.T) {
	sched := newFakeScheduler()
	p := New(seq.NewList([]seq.TimedEvent{noteAt(10, 60)}), sched)

	p.Start()
	sched.advance(time.Millisecond)
	sched.advance(500 * time.Millisecond)
	at := p.CurrentTime()

	p.Stop()
	sched.advance(time.Second)
	if p.CurrentTime() != at {
		t.Errorf("timepos advanced while stopped: %v, want %v", p.CurrentTime(), at)
	}

	// Restarting does not credit the stopped interval.
	p.Start()
	sched.advance(time.Millisecond)
	if p.CurrentTime() != at {
		t.Errorf("timepos after restart anchor tick = %v, want %v", p.CurrentTime(), at)
	}
}

func TestSpeedScalesElapsedTime(t *testing.T) {
	sched := newFakeScheduler()
	p := New(seq.NewList([]seq.TimedEvent{noteAt(10, 60)}), sched)

	if err := p.SetSpeed(2); err != nil {
		t.Fatalf("SetSpeed(2) error = %v", err)
	}
	p.Start()
	sched.advance(time.Millisecond)
	sched.advance(100 * time.Millisecond)

	if math.Abs(p.CurrentTime()-0.2) > 1e-9 {
		t.Errorf("timepos at speed 2 = %v, want 0.2", p.CurrentTime())
	}
}

func TestSetSpeedValidation(t *testing.T) {
	p := New(seq.NewList(nil), newFakeScheduler())

	for _, v := range []float64{0, -1} {
		if err := p.SetSpeed(v); err != ErrInvalidSpeed {
			t.Errorf("SetSpeed(%v) error = %v, want ErrInvalidSpeed", v, err)
		}
	}
	if p.Speed() != 1 {
		t.Errorf("speed changed by rejected value: %v, want 1", p.Speed())
	}
}

func TestSetClockFrequency(t *testing.T) {
	sched := newFakeScheduler()
	p := New(seq.NewList(nil), sched)

	for _, v := range []float64{0, -100} {
		if err := p.SetClockFrequency(v); err != ErrInvalidFrequency {
			t.Errorf("SetClockFrequency(%v) error = %v, want ErrInvalidFrequency", v, err)
		}
	}

	if err := p.SetClockFrequency(250); err != nil {
		t.Fatalf("SetClockFrequency(250) error = %v", err)
	}
	if p.ClockFrequency() != 250 {
		t.Errorf("ClockFrequency() = %v, want 250", p.ClockFrequency())
	}

	p.Start()
	if sched.period != 4*time.Millisecond {
		t.Errorf("armed period = %v, want 4ms", sched.period)
	}

	// Changing the rate while running re-arms at the new period.
	if err := p.SetClockFrequency(500); err != nil {
		t.Fatalf("SetClockFrequency(500) error = %v", err)
	}
	if sched.period != 2*time.Millisecond {
		t.Errorf("re-armed period = %v, want 2ms", sched.period)
	}
	if !p.Running() {
		t.Error("Running() = false after rate change")
	}
}

func TestRewind(t *testing.T) {
	sched := newFakeScheduler()
	events := []seq.TimedEvent{noteAt(0.01, 60), noteAt(0.02, 62)}
	p := New(seq.NewList(events), sched)

	var dispatched []uint8
	p.SetEventHandler(func(ev *seq.Event) {
		dispatched = append(dispatched, ev.Data[1])
	})

	p.Start()
	sched.advance(time.Millisecond)
	sched.advance(15 * time.Millisecond)
	if len(dispatched) != 1 {
		t.Fatalf("dispatched %d events before rewind, want 1", len(dispatched))
	}

	p.Rewind()
	if p.CurrentTime() != 0 {
		t.Errorf("timepos after Rewind = %v, want 0", p.CurrentTime())
	}

	// The first event plays again from the top.
	sched.advance(time.Millisecond)
	sched.advance(15 * time.Millisecond)
	if len(dispatched) != 2 || dispatched[1] != 60 {
		t.Errorf("dispatched after rewind = %v, want [60 60]", dispatched)
	}
}

func TestNilHandlersAreValid(t *testing.T) {
	sched := newFakeScheduler()
	p := New(seq.NewList([]seq.TimedEvent{noteAt(0.001, 60)}), sched)

	p.Start()
	sched.advance(time.Millisecond)
	sched.advance(10 * time.Millisecond) // dispatch + exhaustion, no handlers

	if p.Running() {
		t.Error("Running() = true after exhaustion")
	}
}
