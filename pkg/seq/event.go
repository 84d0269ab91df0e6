// Package seq defines the timed event model consumed by the player and
// the sequence providers that produce it.
package seq

import (
	"github.com/asdlei99/fmidi/pkg/memstream"
)

// EventType tags the kind of raw event held in an Event.
type EventType uint8

const (
	// Message is a channel voice or system common message.
	Message EventType = iota
	// MetaEvent is an SMF meta event (tempo, markers, end of track...).
	MetaEvent
	// SysEx is a system-exclusive dump.
	SysEx
)

// Channel message status nibbles.
const (
	statusControlChange = 0xB
	statusProgramChange = 0xC
)

// Meta event types.
const (
	MetaTempo      = 0x51
	MetaEndOfTrack = 0x2F
)

// Event is one raw event from a sequence. Data holds the wire bytes:
// for a Message the status byte followed by its data bytes, for a
// MetaEvent the 0xFF prefix, type byte and payload, for SysEx the full
// dump. Events are owned by the sequence that produced them and must
// not be mutated by listeners.
type Event struct {
	Type  EventType
	Delta uint32 // ticks since the previous event on the same track
	Data  []byte
}

// Status returns the status byte, or 0 for an empty event.
func (e *Event) Status() byte {
	if len(e.Data) == 0 {
		return 0
	}
	return e.Data[0]
}

// Channel returns the channel (0-15) of a channel message.
// The result is meaningless for meta and system-exclusive events.
func (e *Event) Channel() uint8 {
	return e.Status() & 0x0F
}

// IsProgramChange reports whether the event is a channel Program Change.
func (e *Event) IsProgramChange() bool {
	return e.Type == Message && len(e.Data) == 2 && e.Status()>>4 == statusProgramChange
}

// IsControlChange reports whether the event is a channel Control Change.
func (e *Event) IsControlChange() bool {
	return e.Type == Message && len(e.Data) == 3 && e.Status()>>4 == statusControlChange
}

// Tempo decodes a tempo meta event (FF 51 03 tt tt tt) and returns the
// tempo in microseconds per quarter note. ok is false for any other
// event or a malformed payload.
func (e *Event) Tempo() (usPerBeat uint32, ok bool) {
	if e.Type != MetaEvent || len(e.Data) < 3 || e.Data[0] != 0xFF || e.Data[1] != MetaTempo {
		return 0, false
	}
	ms := memstream.New(e.Data[2:])
	n, err := ms.ReadVLQ()
	if err != nil || n != 3 {
		return 0, false
	}
	v, err := ms.ReadUint(3)
	if err != nil {
		return 0, false
	}
	return v, true
}

// classify maps a raw status byte to an EventType.
func classify(status byte) EventType {
	switch {
	case status == 0xFF:
		return MetaEvent
	case status == 0xF0 || status == 0xF7:
		return SysEx
	default:
		return Message
	}
}
