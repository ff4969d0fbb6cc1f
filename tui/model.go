package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lightpilot/pilot"
	"lightpilot/sequence"
)

// refresh rate for the clock position readout
const tickRate = 100 * time.Millisecond

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("84")).Bold(true)
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type Model struct {
	Pilot *pilot.Pilot

	sequences  []string
	activeSeq  string
	stepIdx    int
	state      sequence.State
	lastAction string
	lastErr    string
	quitting   bool
}

type eventMsg pilot.Event

type tickMsg time.Time

func NewModel(p *pilot.Pilot) Model {
	return Model{
		Pilot:     p,
		sequences: p.Sequences(),
		state:     p.State(),
		stepIdx:   -1,
	}
}

func listenForEvents(p *pilot.Pilot) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-p.Events())
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(listenForEvents(m.Pilot), tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.Pilot.Stop()
			return m, tea.Quit

		case " ":
			m.Pilot.TogglePlayback()

		case "s":
			m.Pilot.Stop()

		case "a":
			m.Pilot.Align()

		case "n":
			m.Pilot.Skip()

		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			idx := int(msg.String()[0] - '1')
			if idx < len(m.sequences) {
				if err := m.Pilot.ActivateSequence(m.sequences[idx]); err != nil {
					m.lastErr = err.Error()
				} else {
					m.lastErr = ""
				}
			}
		}

	case eventMsg:
		switch msg.Kind {
		case pilot.EventStepChanged:
			m.activeSeq = msg.Sequence
			m.stepIdx = msg.StepIdx
			m.state = sequence.StatePlaying
		case pilot.EventStateChanged:
			m.state = msg.State
			if msg.State == sequence.StateStopped {
				m.activeSeq = ""
				m.stepIdx = -1
			}
		case pilot.EventActionTriggered:
			m.lastAction = msg.Action
		}
		return m, listenForEvents(m.Pilot)

	case tickMsg:
		return m, tick()
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return "bye\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("lightpilot"))
	b.WriteString("\n\n")

	pos := m.Pilot.Position()
	bpm := "--"
	if pos.BPM > 0 {
		bpm = fmt.Sprintf("%.1f", pos.BPM)
	}
	b.WriteString(labelStyle.Render("clock   "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%s bpm  beat %.2f  bar %d/%d  phrase %d",
		bpm, pos.Beat, pos.Bar+1, pos.BarsPerPhrase, pos.Phrase+1)))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("phrase  "))
	b.WriteString(progressBar(m.Pilot.PhraseProgress(), 24))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("state   "))
	switch m.state {
	case sequence.StatePlaying:
		b.WriteString(activeStyle.Render(m.state.String()))
	case sequence.StatePaused:
		b.WriteString(pausedStyle.Render(m.state.String()))
	default:
		b.WriteString(valueStyle.Render(m.state.String()))
	}
	if m.activeSeq != "" {
		b.WriteString(valueStyle.Render(fmt.Sprintf("  %s [step %d]", m.activeSeq, m.stepIdx+1)))
	}
	b.WriteString("\n")

	if m.lastAction != "" {
		b.WriteString(labelStyle.Render("action  "))
		b.WriteString(valueStyle.Render(m.lastAction))
		b.WriteString("\n")
	}

	if m.lastErr != "" {
		b.WriteString(labelStyle.Render("error   "))
		b.WriteString(errStyle.Render(m.lastErr))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(labelStyle.Render("sequences\n"))
	if len(m.sequences) == 0 {
		b.WriteString(helpStyle.Render("  (none in project)\n"))
	}
	for i, name := range m.sequences {
		cursor := "  "
		if name == m.activeSeq {
			cursor = activeStyle.Render("> ")
		}
		b.WriteString(fmt.Sprintf("%s%d. %s\n", cursor, i+1, name))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("1-9 activate · space pause/resume · n skip · s stop · a align · q quit"))
	b.WriteString("\n")
	return b.String()
}

func progressBar(frac float64, width int) string {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(frac * float64(width))
	return valueStyle.Render("[" + strings.Repeat("#", filled) + strings.Repeat("·", width-filled) + "]")
}
