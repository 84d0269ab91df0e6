// Package tui provides a terminal transport interface for fmidi.
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/asdlei99/fmidi/pkg/midiout"
	"github.com/asdlei99/fmidi/pkg/player"
	"github.com/asdlei99/fmidi/pkg/seq"
)

// Acid-inspired color scheme (303/acid aesthetic)
var (
	acidGreen  = lipgloss.Color("#39FF14")
	acidYellow = lipgloss.Color("#FFFF00")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(acidGreen).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(silverGray)

	valueStyle = lipgloss.NewStyle().
			Foreground(acidYellow)

	runningStyle = lipgloss.NewStyle().
			Foreground(acidGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(acidGreen).
			Padding(1, 2)
)

// UI refresh period; scheduler ticks piggyback on it, and the player
// drains every due event per tick, so the coarse cadence does not skip
// events.
const tickPeriod = 33 * time.Millisecond

// Seek step for the arrow keys, in seconds.
const seekStep = 5.0

// State represents the current TUI state
type State int

const (
	StateFilePicker State = iota
	StateTransport
)

// teaScheduler adapts the player's Scheduler capability to the
// bubbletea update loop: ticks fire from Update, on the program's own
// goroutine, so the player stays single-threaded.
type teaScheduler struct {
	tick  func()
	armed bool
}

func (s *teaScheduler) Arm(period time.Duration, tick func()) {
	s.tick = tick
	s.armed = true
}

func (s *teaScheduler) Disarm() {
	s.armed = false
}

func (s *teaScheduler) Now() time.Time {
	return time.Now()
}

func (s *teaScheduler) fire() {
	if s.armed {
		s.tick()
	}
}

// Model represents the TUI model
type Model struct {
	state      State
	filePicker filepicker.Model
	progress   progress.Model

	file     string
	sequence *seq.List
	player   *player.Player
	sched    *teaScheduler
	port     *midiout.Port
	finished *bool
	err      error

	width  int
	height int
}

// tickMsg drives both the player scheduler and the progress redraw.
type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickPeriod, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// New creates a new TUI model. portName selects the MIDI output; empty
// picks the first available port.
func New(portName string) Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".mid", ".midi"}
	fp.CurrentDirectory, _ = os.Getwd()

	pb := progress.New(progress.WithSolidFill(string(acidGreen)))

	m := Model{
		state:      StateFilePicker,
		filePicker: fp,
		progress:   pb,
		sched:      &teaScheduler{},
	}

	port, err := midiout.Open(portName)
	if err != nil {
		m.err = err
	} else {
		m.port = port
	}
	return m
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.filePicker.Init(), tick())
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		m.progress.Width = msg.Width - 12
		return m, nil

	case tickMsg:
		m.sched.fire()
		return m, tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.closePlayer()
			return m, tea.Quit
		}
	}

	switch m.state {
	case StateFilePicker:
		return m.updateFilePicker(msg)
	case StateTransport:
		return m.updateTransport(msg)
	}
	return m, nil
}

func (m Model) updateFilePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		return m.loadFile(path)
	}
	return m, cmd
}

func (m Model) loadFile(path string) (tea.Model, tea.Cmd) {
	sequence, err := seq.FromFile(path)
	if err != nil {
		m.err = err
		return m, nil
	}

	m.closePlayer()

	p := player.New(sequence, m.sched)
	if m.port != nil {
		port := m.port
		p.SetEventHandler(func(ev *seq.Event) {
			_ = port.Send(ev)
		})
	}

	// The handler fires from inside a tick while a model copy is in
	// flight through Update, so the flag lives behind a shared pointer.
	done := new(bool)
	p.SetFinishHandler(func() { *done = true })

	m.file = path
	m.sequence = sequence
	m.player = p
	m.finished = done
	m.err = nil
	m.state = StateTransport

	p.Start()
	return m, nil
}

func (m Model) updateTransport(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	p := m.player
	switch keyMsg.String() {
	case " ":
		if p.Running() {
			p.Stop()
		} else {
			*m.finished = false
			p.Start()
		}
	case "r":
		p.Rewind()
		*m.finished = false
	case "left":
		target := p.CurrentTime() - seekStep
		if target < 0 {
			target = 0
		}
		p.GotoTime(target)
	case "right":
		p.GotoTime(p.CurrentTime() + seekStep)
	case "+", "=":
		_ = p.SetSpeed(p.Speed() * 1.25)
	case "-":
		if s := p.Speed() / 1.25; s > 0 {
			_ = p.SetSpeed(s)
		}
	case "esc":
		p.Stop()
		m.state = StateFilePicker
		return m, m.filePicker.Init()
	}
	return m, nil
}

func (m *Model) closePlayer() {
	if m.player != nil {
		m.player.Close()
		m.player = nil
	}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(asciiLogo())
	s.WriteString("\n")

	switch m.state {
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateTransport:
		s.WriteString(m.viewTransport())
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("space: play/pause • ←/→: seek • +/-: speed • r: rewind • esc: file • q: quit"))

	return s.String()
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT MIDI FILE "))
	s.WriteString("\n\n")
	if m.err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %v", m.err)))
		s.WriteString("\n\n")
	}
	s.WriteString(m.filePicker.View())

	return s.String()
}

func (m Model) viewTransport() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" TRANSPORT "))
	s.WriteString("\n\n")

	s.WriteString(labelStyle.Render("File:  "))
	s.WriteString(valueStyle.Render(filepath.Base(m.file)))
	s.WriteString("\n")

	portName := "none (silent)"
	if m.port != nil {
		portName = m.port.Name()
	}
	s.WriteString(labelStyle.Render("Port:  "))
	s.WriteString(valueStyle.Render(portName))
	s.WriteString("\n")

	state := "PAUSED"
	style := labelStyle
	switch {
	case m.finished != nil && *m.finished:
		state = "FINISHED"
		style = valueStyle
	case m.player != nil && m.player.Running():
		state = "PLAYING"
		style = runningStyle
	}
	s.WriteString(labelStyle.Render("State: "))
	s.WriteString(style.Render(state))
	s.WriteString("\n\n")

	pos := m.player.CurrentTime()
	dur := m.sequence.Duration()
	ratio := 0.0
	if dur > 0 {
		ratio = pos / dur
		if ratio > 1 {
			ratio = 1
		}
	}
	s.WriteString(m.progress.ViewAs(ratio))
	s.WriteString("\n")
	s.WriteString(labelStyle.Render(fmt.Sprintf("%s / %s   speed %.2fx",
		formatTime(pos), formatTime(dur), m.player.Speed())))

	return boxStyle.Render(s.String())
}

func formatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	d := time.Duration(seconds * float64(time.Second))
	return fmt.Sprintf("%02d:%05.2f", int(d.Minutes()), d.Seconds()-60*float64(int(d.Minutes())))
}

func asciiLogo() string {
	logo := `
   __           _     _ _
  / _|_ __ ___ (_) __| (_)
 | |_| '_ ` + "`" + ` _ \| |/ _` + "`" + ` | |
 |  _| | | | | | | (_| | |
 |_| |_| |_| |_|_|\__,_|_|
`
	return lipgloss.NewStyle().Foreground(acidGreen).Render(logo)
}

// Run starts the TUI application.
func Run(portName string) error {
	defer midiout.Close()

	p := tea.NewProgram(New(portName), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
