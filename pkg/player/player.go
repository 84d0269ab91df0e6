// Package player provides a wall-clock-synchronized playback engine for
// a timed MIDI event sequence.
//
// A Player is single-owner: one goroutine drives it through its
// Scheduler and control methods, and all callbacks run synchronously on
// that goroutine. Calling control methods from inside a dispatch
// callback is not supported.
package player

import (
	"errors"
	"time"

	"github.com/asdlei99/fmidi/pkg/seq"
)

// Default tick rate, 1 kHz, matching a 1 ms scheduler period.
const DefaultClockFrequency = 1000.0

var (
	// ErrInvalidSpeed is returned for non-positive speed multipliers.
	// Reverse playback is unsupported: the sequence cursor only moves
	// forward, except through a full rewind.
	ErrInvalidSpeed = errors.New("player: speed must be positive")

	// ErrInvalidFrequency is returned for non-positive clock rates.
	ErrInvalidFrequency = errors.New("player: clock frequency must be positive")
)

// Scheduler is the host periodic-timer capability driving a Player.
// Arm schedules tick to run at the given period until Disarm.
type Scheduler interface {
	Arm(period time.Duration, tick func())
	Disarm()
	Now() time.Time
}

// EventHandler receives each dispatched event. The event reference is
// only valid for the duration of the call and must not be mutated.
type EventHandler func(ev *seq.Event)

// Player advances a virtual timeline over an event sequence and
// dispatches due events on every scheduler tick.
type Player struct {
	seq   seq.Sequence
	sched Scheduler

	timepos float64 // seconds
	speed   float64
	freq    float64 // ticks per second

	prevTick time.Time
	haveTick bool

	// Single-slot lookahead: the next undispatched event, if any.
	pending     seq.TimedEvent
	havePending bool

	running bool

	onEvent  EventHandler
	onFinish func()
}

// New creates a Player over the given sequence, driven by the given
// scheduler. The player starts stopped, at time zero, speed 1 and the
// default clock frequency.
func New(sequence seq.Sequence, sched Scheduler) *Player {
	return &Player{
		seq:   sequence,
		sched: sched,
		speed: 1,
		freq:  DefaultClockFrequency,
	}
}

// SetEventHandler registers the dispatch callback. A nil handler is
// valid and silently suppresses dispatch.
func (p *Player) SetEventHandler(fn EventHandler) {
	p.onEvent = fn
}

// SetFinishHandler registers the callback invoked once when the
// sequence is exhausted.
func (p *Player) SetFinishHandler(fn func()) {
	p.onFinish = fn
}

// Start arms the periodic tick. The last-tick timestamp is invalidated
// so the first tick after starting contributes zero elapsed time.
// Starting a running player is a no-op.
func (p *Player) Start() {
	if p.running {
		return
	}
	p.haveTick = false
	p.sched.Arm(p.period(), p.tick)
	p.running = true
}

// Stop disarms the periodic tick. Stopping a stopped player is a no-op.
// A tick already in progress dispatches its due batch to completion.
func (p *Player) Stop() {
	if !p.running {
		return
	}
	p.haveTick = false
	p.sched.Disarm()
	p.running = false
}

// Rewind resets the sequence and timeline to zero and clears the
// lookahead buffer, regardless of running state.
func (p *Player) Rewind() {
	p.seq.Rewind()
	p.timepos = 0
	p.haveTick = false
	p.havePending = false
}

// Running reports whether the periodic tick is armed.
func (p *Player) Running() bool {
	return p.running
}

// CurrentTime returns the virtual timeline position in seconds.
func (p *Player) CurrentTime() float64 {
	return p.timepos
}

// Speed returns the playback speed multiplier.
func (p *Player) Speed() float64 {
	return p.speed
}

// SetSpeed sets the playback speed multiplier. The value scales elapsed
// wall time on every tick and may be changed during playback.
func (p *Player) SetSpeed(speed float64) error {
	if speed <= 0 {
		return ErrInvalidSpeed
	}
	p.speed = speed
	return nil
}

// ClockFrequency returns the tick rate in Hz.
func (p *Player) ClockFrequency() float64 {
	return p.freq
}

// SetClockFrequency sets the tick rate in Hz. When the player is
// running the tick is re-armed at the new period. Timeline advancement
// is anchored to elapsed wall time, so the tick rate only affects
// dispatch granularity, not playback speed.
func (p *Player) SetClockFrequency(hz float64) error {
	if hz <= 0 {
		return ErrInvalidFrequency
	}
	p.freq = hz
	if p.running {
		p.sched.Disarm()
		p.sched.Arm(p.period(), p.tick)
	}
	return nil
}

// Close releases the scheduler registration. The player must not be
// used afterwards.
func (p *Player) Close() {
	if p.running {
		p.sched.Disarm()
		p.running = false
	}
}

func (p *Player) period() time.Duration {
	return time.Duration(float64(time.Second) / p.freq)
}

// tick advances the timeline by the wall time elapsed since the
// previous tick, scaled by speed, then dispatches every event due at or
// before the new position. Draining the whole due batch in one pass
// keeps coarse tick periods from starving dense event clusters.
func (p *Player) tick() {
	now := p.sched.Now()
	if p.haveTick {
		p.timepos += p.speed * now.Sub(p.prevTick).Seconds()
	}
	p.haveTick = true
	p.prevTick = now

	for {
		if !p.havePending {
			ev, ok := p.seq.Next()
			if !ok {
				p.finish()
				return
			}
			p.pending = ev
			p.havePending = true
		}
		if p.pending.Time > p.timepos {
			return
		}
		if p.onEvent != nil {
			p.onEvent(p.pending.Event)
		}
		p.havePending = false
	}
}

// finish handles sequence exhaustion: disarm, leave the running state
// and notify exactly once.
func (p *Player) finish() {
	p.sched.Disarm()
	p.running = false
	if p.onFinish != nil {
		p.onFinish()
	}
}
