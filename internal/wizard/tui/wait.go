package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// waitKeyMap defines key bindings for the wait screen
type waitKeyMap struct {
	Back key.Binding
	Quit key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k waitKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Back, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k waitKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Back, k.Quit}}
}

type waitDoneMsg struct{}

// waitModel shows a spinner until finished is closed
type waitModel struct {
	version  string
	title    string
	finished <-chan struct{}
	started  time.Time

	spinner spinner.Model
	help    help.Model
	keys    waitKeyMap

	aborted     bool
	interrupted bool

	width  int
	height int
}

func newWaitModel(version, title string, finished <-chan struct{}, width, height int) waitModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return waitModel{
		version:  version,
		title:    title,
		finished: finished,
		started:  time.Now(),
		spinner:  s,
		help:     help.New(),
		keys: waitKeyMap{
			Back: key.NewBinding(
				key.WithKeys("esc"),
				key.WithHelp("esc", "back"),
			),
			Quit: key.NewBinding(
				key.WithKeys("ctrl+c"),
				key.WithHelp("ctrl+c", "quit"),
			),
		},
		width:  width,
		height: height,
	}
}

func (m waitModel) size() (int, int) { return m.width, m.height }

func (m waitModel) Init() tea.Cmd {
	finished := m.finished
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			<-finished
			return waitDoneMsg{}
		},
	)
}

func (m waitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.interrupted = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Back):
			m.aborted = true
			return m, tea.Quit
		}
		return m, nil

	case waitDoneMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m waitModel) View() string {
	width := m.width
	if width <= 0 {
		width = DefaultWidth
	}

	elapsed := time.Since(m.started).Round(time.Second)
	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		TitleStyle.Render(fmt.Sprintf("%s %s", m.spinner.View(), m.title)),
		SubtitleStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed)),
		"",
	)
	content = lipgloss.Place(width-4, 0, lipgloss.Center, lipgloss.Top, content)

	header := BuildHeaderContent(fmt.Sprintf(" %s %s ", AppName, m.version), "")
	return RenderApplicationContainer(header, content, m.help.View(m.keys), m.width, m.height)
}
