package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/nusig/internal/wizard"
)

// chooserKeyMap defines key bindings for the selection lists
type chooserKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	Accept  key.Binding
	Back    key.Binding
	Unnamed key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k chooserKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.Accept, k.Back, k.Unnamed, k.Refresh}
}

// FullHelp returns keybindings for the expanded help view
func (k chooserKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle, k.Accept},
		{k.Back, k.Unnamed, k.Refresh, k.Quit},
	}
}

func newChooserKeys(multi, filterable bool) chooserKeyMap {
	k := chooserKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle"),
		),
		Accept: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "accept"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Unnamed: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "show/hide unnamed"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
	k.Toggle.SetEnabled(multi)
	k.Unnamed.SetEnabled(filterable)
	return k
}

// chooserModel is the single- and multi-choice list
type chooserModel struct {
	prompt   wizard.Prompt
	multi    bool
	cursor   int
	selected map[int]bool

	help help.Model
	keys chooserKeyMap

	choice      wizard.Choice
	interrupted bool

	width  int
	height int
}

func newChooserModel(prompt wizard.Prompt, multi bool, width, height int) chooserModel {
	m := chooserModel{
		prompt:   prompt,
		multi:    multi,
		selected: make(map[int]bool),
		help:     help.New(),
		keys:     newChooserKeys(multi, prompt.Filterable),
		width:    width,
		height:   height,
	}
	first := true
	for _, i := range prompt.Defaults {
		if i < 0 || i >= len(prompt.Options) {
			continue
		}
		if first {
			m.cursor = i
			first = false
		}
		if multi {
			m.selected[i] = true
		}
	}
	return m
}

func (m chooserModel) size() (int, int) { return m.width, m.height }

func (m chooserModel) Init() tea.Cmd { return nil }

func (m chooserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m chooserModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.prompt.Options)

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.interrupted = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < n-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Toggle):
		if n > 0 {
			m.selected[m.cursor] = !m.selected[m.cursor]
		}

	case key.Matches(msg, m.keys.Accept):
		m.choice = wizard.Choice{Outcome: wizard.Accepted, Indices: m.indices()}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Back):
		m.choice = wizard.Choice{Outcome: wizard.Cancelled}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Unnamed):
		m.choice = wizard.Choice{Outcome: wizard.FilterToggled}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Refresh):
		m.choice = wizard.Choice{Outcome: wizard.Refreshed}
		return m, tea.Quit
	}
	return m, nil
}

// indices returns the accepted selection: the cursor row for a single
// choice, the checked rows in list order otherwise
func (m chooserModel) indices() []int {
	if len(m.prompt.Options) == 0 {
		return nil
	}
	if !m.multi {
		return []int{m.cursor}
	}
	var out []int
	for i, on := range m.selected {
		if on {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

func (m chooserModel) View() string {
	var b strings.Builder

	b.WriteString(RenderSubtitle(m.prompt.Info))
	b.WriteString("\n\n")

	if len(m.prompt.Options) == 0 {
		b.WriteString("  ")
		b.WriteString(WarningStyle.Render("⚠ Nothing to choose from here, press esc to go back"))
		b.WriteString("\n")
	}

	for i, label := range m.prompt.Options {
		mark := "( )"
		if m.multi {
			mark = "[ ]"
			if m.selected[i] {
				mark = "[x]"
			}
		} else if i == m.cursor {
			mark = "(•)"
		}
		b.WriteString(RenderMenuItem(mark+" "+label, i == m.cursor))
		b.WriteString("\n")
	}

	if m.prompt.Filterable {
		b.WriteString("\n")
		switch {
		case m.prompt.ShowUnnamed:
			b.WriteString(RenderSubtitle("  Showing unnamed devices (s to hide)"))
		case m.prompt.Hidden > 0:
			b.WriteString(RenderSubtitle(fmt.Sprintf("  %d unnamed device(s) hidden (s to show)", m.prompt.Hidden)))
		}
		b.WriteString("\n")
	}

	header := BuildHeaderContent(m.prompt.Title, m.prompt.Ahead)
	return RenderApplicationContainer(header, b.String(), m.help.View(m.keys), m.width, m.height)
}
