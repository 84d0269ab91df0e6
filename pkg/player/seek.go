package player

import (
	"gitlab.com/gomidi/midi/v2"

	"github.com/asdlei99/fmidi/pkg/seq"
)

// Channel-mode controller numbers used by the corrective burst.
const (
	ccAllSoundOff         = 120
	ccResetAllControllers = 121
)

// Controller slots hold 7-bit values; anything above marks "unset".
const ctrlUnset = 0xFF

const numChannels = 16

// shadowState is the instantaneous sound-affecting state of all
// channels at some point in the timeline. It only tracks program and
// controller values: note-level effects are transient and are silenced
// by the all-sound-off reset anyway.
type shadowState struct {
	programs    [numChannels]uint8
	controllers [numChannels][128]uint8
}

func newShadowState() *shadowState {
	st := &shadowState{}
	for c := range st.controllers {
		for i := range st.controllers[c] {
			st.controllers[c][i] = ctrlUnset
		}
	}
	return st
}

// observe folds one event into the shadow table. Everything except
// Program Change and Control Change is ignored.
func (st *shadowState) observe(ev *seq.Event) {
	switch {
	case ev.IsProgramChange():
		st.programs[ev.Channel()] = ev.Data[1] & 0x7F
	case ev.IsControlChange():
		st.controllers[ev.Channel()][ev.Data[1]&0x7F] = ev.Data[2] & 0x7F
	}
}

// emit sends the minimal corrective message burst reconstructing the
// recorded state: per channel, all sound off, reset all controllers,
// the program, then every controller that was explicitly set. No note
// messages are ever emitted.
func (st *shadowState) emit(fn EventHandler) {
	send := func(msg midi.Message) {
		fn(&seq.Event{Type: seq.Message, Data: msg})
	}

	for c := uint8(0); c < numChannels; c++ {
		send(midi.ControlChange(c, ccAllSoundOff, 0))
		send(midi.ControlChange(c, ccResetAllControllers, 0))
		send(midi.ProgramChange(c, st.programs[c]))
		for id := 0; id < 128; id++ {
			if v := st.controllers[c][id]; v != ctrlUnset {
				send(midi.ControlChange(c, uint8(id), v))
			}
		}
	}
}

// GotoTime scrubs the timeline to target seconds without replaying the
// full event history. The sequence is rewound and every
// program/controller-affecting message strictly before target is folded
// into a shadow table; the corrective burst is then dispatched to the
// registered handler. The running state is preserved, and the last-tick
// timestamp is cleared so the next tick measures elapsed time freshly.
func (p *Player) GotoTime(target float64) {
	st := newShadowState()

	p.Rewind()
	for {
		ev, ok := p.seq.Peek()
		if !ok || ev.Time >= target {
			break
		}
		st.observe(ev.Event)
		p.seq.Next()
	}

	p.timepos = target
	p.haveTick = false

	if p.onEvent != nil {
		st.emit(p.onEvent)
	}
}
