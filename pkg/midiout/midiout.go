// Package midiout resolves and opens MIDI output ports and sends raw
// sequence events to them.
package midiout

import (
	"fmt"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"github.com/asdlei99/fmidi/pkg/seq"
)

// Ports returns the names of all available MIDI output ports.
func Ports() []string {
	outs := gomidi.GetOutPorts()
	names := make([]string, 0, len(outs))
	for _, out := range outs {
		names = append(names, out.String())
	}
	return names
}

// Port is an open MIDI output port.
type Port struct {
	name string
	send func(gomidi.Message) error
}

// Open opens the output port whose name contains name (case
// insensitive). An empty name selects the first available port.
func Open(name string) (*Port, error) {
	outs := gomidi.GetOutPorts()
	if len(outs) == 0 {
		return nil, fmt.Errorf("no MIDI output ports available")
	}

	var out drivers.Out
	if name == "" {
		out = outs[0]
	} else {
		for _, o := range outs {
			if strings.Contains(strings.ToLower(o.String()), strings.ToLower(name)) {
				out = o
				break
			}
		}
		if out == nil {
			return nil, fmt.Errorf("no MIDI output port matching %q", name)
		}
	}

	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("failed to open port %q: %w", out.String(), err)
	}
	return &Port{name: out.String(), send: send}, nil
}

// Name returns the resolved port name.
func (p *Port) Name() string {
	return p.name
}

// Send writes one event to the port. Meta events are file-only and are
// silently skipped; channel messages and SysEx dumps go out as-is.
func (p *Port) Send(ev *seq.Event) error {
	if ev.Type == seq.MetaEvent {
		return nil
	}
	return p.send(gomidi.Message(ev.Data))
}

// Close releases the MIDI driver and every port opened through it.
func Close() {
	gomidi.CloseDriver()
}
