package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// confirmKeyMap defines key bindings for the yes/no dialog
type confirmKeyMap struct {
	Yes    key.Binding
	No     key.Binding
	Switch key.Binding
	Accept key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k confirmKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Yes, k.No, k.Switch, k.Accept}
}

// FullHelp returns keybindings for the expanded help view
func (k confirmKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Yes, k.No, k.Switch, k.Accept, k.Quit}}
}

// confirmModel is a modal yes/no question; No is focused initially
type confirmModel struct {
	title string
	text  string
	yes   bool

	help help.Model
	keys confirmKeyMap

	answer      bool
	interrupted bool

	width  int
	height int
}

func newConfirmModel(title, text string, width, height int) confirmModel {
	return confirmModel{
		title: title,
		text:  text,
		help:  help.New(),
		keys: confirmKeyMap{
			Yes: key.NewBinding(
				key.WithKeys("y"),
				key.WithHelp("y", "yes"),
			),
			No: key.NewBinding(
				key.WithKeys("n", "esc"),
				key.WithHelp("n/esc", "no"),
			),
			Switch: key.NewBinding(
				key.WithKeys("left", "right", "tab", "h", "l"),
				key.WithHelp("←/→", "switch"),
			),
			Accept: key.NewBinding(
				key.WithKeys("enter"),
				key.WithHelp("enter", "choose"),
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

func (m confirmModel) size() (int, int) { return m.width, m.height }

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.interrupted = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Yes):
			m.answer = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.No):
			m.answer = false
			return m, tea.Quit
		case key.Matches(msg, m.keys.Switch):
			m.yes = !m.yes
		case key.Matches(msg, m.keys.Accept):
			m.answer = m.yes
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m confirmModel) View() string {
	yes, no := ButtonStyle, ActiveButtonStyle
	if m.yes {
		yes, no = ActiveButtonStyle, ButtonStyle
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Top, yes.Render("Yes"), "  ", no.Render("No"))

	body := lipgloss.JoinVertical(lipgloss.Center,
		RenderTitle(m.title),
		m.text,
		"",
		buttons,
		"",
		BuildFooterContent(m.help.View(m.keys)),
	)

	width := SafeModalWidth(50, m.width)
	return RenderModal(ModalStyle.Width(width).Align(lipgloss.Center).Render(body), m.width, m.height)
}
