package player

import (
	"bytes"
	"testing"
	"time"

	"github.com/asdlei99/fmidi/pkg/seq"
)

func messageAt(t float64, data ...byte) seq.TimedEvent {
	return seq.TimedEvent{Time: t, Event: &seq.Event{Type: seq.Message, Data: data}}
}

func TestGotoTimeReconstructsState(t *testing.T) {
	sched := newFakeScheduler()
	events := []seq.TimedEvent{
		messageAt(1, 0xC0, 5),       // program change ch0 -> 5
		messageAt(2, 0xB0, 7, 100),  // control change ch0 cc7 = 100
		messageAt(3, 0x90, 60, 100), // note on, past the target
	}
	p := New(seq.NewList(events), sched)

	var burst [][]byte
	p.SetEventHandler(func(ev *seq.Event) {
		burst = append(burst, append([]byte(nil), ev.Data...))
	})

	p.GotoTime(2.5)

	if p.CurrentTime() != 2.5 {
		t.Errorf("CurrentTime() = %v, want 2.5", p.CurrentTime())
	}

	// Channel 0 restores its program and the explicitly set controller;
	// all other channels only get the reset pair plus program 0.
	wantCh0 := [][]byte{
		{0xB0, 120, 0},
		{0xB0, 121, 0},
		{0xC0, 5},
		{0xB0, 7, 100},
	}
	if len(burst) != 16*3+1 {
		t.Fatalf("burst length = %d, want %d", len(burst), 16*3+1)
	}
	for i, want := range wantCh0 {
		if !bytes.Equal(burst[i], want) {
			t.Errorf("burst[%d] = % X, want % X", i, burst[i], want)
		}
	}

	// Remaining channels, in ascending order.
	i := len(wantCh0)
	for c := byte(1); c < 16; c++ {
		want := [][]byte{
			{0xB0 | c, 120, 0},
			{0xB0 | c, 121, 0},
			{0xC0 | c, 0},
		}
		for _, w := range want {
			if !bytes.Equal(burst[i], w) {
				t.Errorf("burst[%d] = % X, want % X", i, burst[i], w)
			}
			i++
		}
	}

	// No note messages anywhere in the burst.
	for i, msg := range burst {
		if msg[0]&0xF0 == 0x90 || msg[0]&0xF0 == 0x80 {
			t.Errorf("burst[%d] = % X is a note message", i, msg)
		}
	}
}

func TestGotoTimeExcludesEventsAtTarget(t *testing.T) {
	sched := newFakeScheduler()
	events := []seq.TimedEvent{
		messageAt(1, 0xC0, 5),
		messageAt(2, 0xC1, 9), // exactly at the target: not folded in
	}
	p := New(seq.NewList(events), sched)

	var burst [][]byte
	p.SetEventHandler(func(ev *seq.Event) {
		burst = append(burst, append([]byte(nil), ev.Data...))
	})

	p.GotoTime(2)

	if !bytes.Equal(burst[2], []byte{0xC0, 5}) {
		t.Errorf("channel 0 program = % X, want C0 05", burst[2])
	}
	// Channel 1: program change at t=2 was not strictly before target.
	if !bytes.Equal(burst[5], []byte{0xC1, 0}) {
		t.Errorf("channel 1 program = % X, want C1 00", burst[5])
	}
}

func TestGotoTimePreservesRunningState(t *testing.T) {
	sched := newFakeScheduler()
	events := []seq.TimedEvent{messageAt(5, 0x90, 60, 100)}
	p := New(seq.NewList(events), sched)

	p.Start()
	sched.advance(time.Millisecond)
	sched.advance(time.Second)

	p.GotoTime(3)
	if !p.Running() {
		t.Error("Running() = false after seek while running")
	}

	// The last-tick timestamp was cleared: the next tick anchors fresh
	// and contributes zero elapsed time.
	sched.advance(10 * time.Second)
	if p.CurrentTime() != 3 {
		t.Errorf("timepos after anchor tick = %v, want 3", p.CurrentTime())
	}

	p.Stop()
	p.GotoTime(1)
	if p.Running() {
		t.Error("Running() = true after seek while stopped")
	}
}

func TestGotoTimeLaterControllerWins(t *testing.T) {
	sched := newFakeScheduler()
	events := []seq.TimedEvent{
		messageAt(0.5, 0xB2, 7, 10),
		messageAt(1.0, 0xB2, 7, 90), // later value supersedes
		messageAt(1.5, 0xC2, 3),
		messageAt(2.0, 0xC2, 8), // later program supersedes
	}
	p := New(seq.NewList(events), sched)

	var burst [][]byte
	p.SetEventHandler(func(ev *seq.Event) {
		burst = append(burst, append([]byte(nil), ev.Data...))
	})

	p.GotoTime(4)

	// Channel 2 block starts after channels 0 and 1 (3 messages each).
	base := 6
	if !bytes.Equal(burst[base+2], []byte{0xC2, 8}) {
		t.Errorf("channel 2 program = % X, want C2 08", burst[base+2])
	}
	if !bytes.Equal(burst[base+3], []byte{0xB2, 7, 90}) {
		t.Errorf("channel 2 cc7 = % X, want B2 07 5A", burst[base+3])
	}
}

func TestGotoTimeWithoutHandler(t *testing.T) {
	sched := newFakeScheduler()
	p := New(seq.NewList([]seq.TimedEvent{messageAt(1, 0xC0, 5)}), sched)

	// No handler registered: the burst is suppressed, the seek still
	// moves the timeline.
	p.GotoTime(2)
	if p.CurrentTime() != 2 {
		t.Errorf("CurrentTime() = %v, want 2", p.CurrentTime())
	}
}

