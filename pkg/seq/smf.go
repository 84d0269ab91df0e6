package seq

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"
)

// Default tempo per the SMF specification: 120 BPM.
const defaultUsPerBeat = 500000

// FromFile reads a standard MIDI file and returns its merged, timed
// event sequence.
func FromFile(filename string) (*List, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	return FromBytes(data)
}

// FromBytes parses SMF data and returns its merged, timed event
// sequence.
func FromBytes(data []byte) (*List, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}
	return FromSMF(s)
}

// FromSMF merges all tracks of a parsed SMF file into a single sequence
// ordered by absolute time. Tick positions are converted to seconds
// using the file's tempo map; tracks sharing a tick keep their file
// order. Only metric time division is supported.
func FromSMF(s *smf.SMF) (*List, error) {
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, errors.New("unsupported SMF time format (SMPTE)")
	}
	resolution := int64(mt.Resolution())
	if resolution == 0 {
		return nil, errors.New("invalid SMF resolution")
	}

	type tickEvent struct {
		tick  int64
		event *Event
	}

	var merged []tickEvent
	for _, track := range s.Tracks {
		var tick int64
		for _, ev := range track {
			tick += int64(ev.Delta)

			data := []byte(ev.Message)
			if len(data) == 0 {
				continue
			}
			// End-of-track markers delimit the container, they are
			// not part of the musical event stream.
			if len(data) >= 2 && data[0] == 0xFF && data[1] == MetaEndOfTrack {
				continue
			}

			merged = append(merged, tickEvent{
				tick: tick,
				event: &Event{
					Type:  classify(data[0]),
					Delta: ev.Delta,
					Data:  data,
				},
			})
		}
	}

	// Stable sort keeps track order for events sharing a tick.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].tick < merged[j].tick
	})

	// Walk the merged stream converting ticks to seconds, switching
	// tempo wherever a tempo meta event sits.
	events := make([]TimedEvent, 0, len(merged))
	usPerBeat := uint32(defaultUsPerBeat)
	var lastTick int64
	var lastTime float64
	for _, te := range merged {
		dt := float64(te.tick-lastTick) * float64(usPerBeat) / 1e6 / float64(resolution)
		lastTime += dt
		lastTick = te.tick

		if tempo, ok := te.event.Tempo(); ok && tempo > 0 {
			usPerBeat = tempo
		}

		events = append(events, TimedEvent{Time: lastTime, Event: te.event})
	}

	return NewList(events), nil
}
