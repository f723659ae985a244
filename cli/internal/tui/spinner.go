package tui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

// Spinner shows an animated status line on stderr while the model works.
// Without a terminal it prints the message once.
type Spinner struct {
	out       io.Writer
	isTTY     bool
	log       zerolog.Logger
	program   *tea.Program
	doneChan  chan struct{}
	startTime time.Time
}

type spinnerModel struct {
	spinner  spinner.Model
	text     string
	done     bool
	duration time.Duration
}

type doneMsg struct {
	duration time.Duration
}

// NewSpinner returns a spinner writing to stderr.
func NewSpinner(log zerolog.Logger) *Spinner {
	return &Spinner{out: os.Stderr, isTTY: IsTTY(), log: log}
}

// Start begins animating message. Input is not read so later prompts keep stdin.
func (s *Spinner) Start(message string) {
	s.startTime = time.Now()
	if !s.isTTY {
		fmt.Fprintf(s.out, "⏺ %s\n", message)
		return
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	s.program = tea.NewProgram(spinnerModel{spinner: sp, text: message},
		tea.WithOutput(s.out), tea.WithInput(nil))
	s.doneChan = make(chan struct{})
	go func() {
		defer close(s.doneChan)
		if _, err := s.program.Run(); err != nil {
			s.log.Error().Err(err).Msg("Error running spinner")
		}
	}()
}

// Stop ends the animation and waits for the terminal to be restored.
func (s *Spinner) Stop() {
	if s.program == nil {
		return
	}
	s.program.Send(doneMsg{duration: time.Since(s.startTime)})
	<-s.doneChan
	s.program = nil
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.done = true
		m.duration = msg.duration
		return m, tea.Quit
	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func (m spinnerModel) View() string {
	if m.done {
		return fmt.Sprintf("Response received from Ollama in %.1fs\n", m.duration.Seconds())
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), m.text)
}
