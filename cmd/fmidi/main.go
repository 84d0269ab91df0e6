// Package main is the entry point for the fmidi CLI
package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/asdlei99/fmidi/pkg/api"
	"github.com/asdlei99/fmidi/pkg/midiout"
	"github.com/asdlei99/fmidi/pkg/player"
	"github.com/asdlei99/fmidi/pkg/seq"
	"github.com/asdlei99/fmidi/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	portName   string
	speed      float64
	startFrom  float64
	clockRate  float64
	printOnly  bool
	serverPort int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fmidi",
	Short: "Play standard MIDI files with wall-clock-accurate timing",
	Long: `fmidi is a playback engine for standard MIDI files. It advances a
virtual timeline anchored to real elapsed wall time and dispatches due
events to a MIDI output port, with seek, speed and tick-rate control.

Examples:
  fmidi play song.mid
  fmidi play song.mid --port "FLUID" --speed 1.5 --from 30
  fmidi info song.mid
  fmidi ports
  fmidi tui
  fmidi serve --port 8080`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

var playCmd = &cobra.Command{
	Use:   "play <input.mid>",
	Short: "Play a MIDI file to an output port",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlay,
}

var infoCmd = &cobra.Command{
	Use:   "info <input.mid>",
	Short: "Print timing information about a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List available MIDI output ports",
	RunE:  runPorts,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive transport UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the transport-control API server",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "out", "o", "", "MIDI output port (substring match, default first)")

	playCmd.Flags().Float64VarP(&speed, "speed", "s", 1.0, "Playback speed multiplier")
	playCmd.Flags().Float64VarP(&startFrom, "from", "f", 0, "Start position in seconds")
	playCmd.Flags().Float64Var(&clockRate, "clock", player.DefaultClockFrequency, "Tick rate in Hz")
	playCmd.Flags().BoolVar(&printOnly, "print", false, "Print events instead of sending them")

	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	input := args[0]

	sequence, err := seq.FromFile(input)
	if err != nil {
		return err
	}

	var handler player.EventHandler
	if printOnly {
		handler = func(ev *seq.Event) {
			fmt.Printf("% X\n", ev.Data)
		}
	} else {
		port, err := midiout.Open(portName)
		if err != nil {
			return err
		}
		defer midiout.Close()
		fmt.Printf("Playing %s on %q\n", input, port.Name())
		handler = func(ev *seq.Event) {
			_ = port.Send(ev)
		}
	}

	p := player.New(sequence, player.NewTickerScheduler())
	defer p.Close()

	p.SetEventHandler(handler)
	if err := p.SetSpeed(speed); err != nil {
		return err
	}
	if err := p.SetClockFrequency(clockRate); err != nil {
		return err
	}

	done := make(chan struct{})
	p.SetFinishHandler(func() { close(done) })

	if startFrom > 0 {
		p.GotoTime(startFrom)
	}
	p.Start()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	select {
	case <-done:
		fmt.Println("Done.")
	case <-interrupt:
		fmt.Println("Interrupted.")
	}
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	input := args[0]

	sequence, err := seq.FromFile(input)
	if err != nil {
		return err
	}

	messages, metas, sysex := 0, 0, 0
	sequence.Rewind()
	for {
		ev, ok := sequence.Next()
		if !ok {
			break
		}
		switch ev.Event.Type {
		case seq.Message:
			messages++
		case seq.MetaEvent:
			metas++
		case seq.SysEx:
			sysex++
		}
	}

	fmt.Printf("File:     %s\n", input)
	fmt.Printf("Duration: %.3f s\n", sequence.Duration())
	fmt.Printf("Events:   %d (%d messages, %d meta, %d sysex)\n",
		sequence.Len(), messages, metas, sysex)
	return nil
}

func runPorts(cmd *cobra.Command, args []string) error {
	defer midiout.Close()

	ports := midiout.Ports()
	if len(ports) == 0 {
		fmt.Println("No MIDI output ports available.")
		return nil
	}
	for i, name := range ports {
		fmt.Printf("%d: %s\n", i, name)
	}
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run(portName)
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("Starting API server on port %d...\n", serverPort)
	return api.StartServer(serverPort)
}
