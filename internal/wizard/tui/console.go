package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/nusig/internal/console"
	"github.com/muurk/nusig/internal/logging"
	"github.com/muurk/nusig/internal/transcript"
)

// consoleChrome is the number of terminal rows used around the transcript:
// outer border, header, footer and the input line
const consoleChrome = 7

// consoleKeyMap defines key bindings for the console screen
type consoleKeyMap struct {
	Send     key.Binding
	ScrollUp key.Binding
	ScrollDn key.Binding
	Quit     key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k consoleKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.ScrollUp, k.ScrollDn, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k consoleKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Send, k.ScrollUp, k.ScrollDn, k.Quit}}
}

// changedMsg reports that the transcript grew. The lines themselves are
// read back from the buffer, so a notification lost to a lagging
// subscription never loses content.
type changedMsg struct{}

type feedClosedMsg struct{}

// scroller adapts viewport.Model to transcript.Viewport
type scroller struct{ vp *viewport.Model }

func (s scroller) AtBottom() bool { return s.vp.AtBottom() }
func (s scroller) SetContent(content string) { s.vp.SetContent(content) }
func (s scroller) GotoBottom() { s.vp.GotoBottom() }

// consoleModel shows the transcript above a "T> " input line
type consoleModel struct {
	title    string
	viewport viewport.Model
	input    textinput.Model

	help help.Model
	keys consoleKeyMap

	buf      *transcript.Buffer
	feed     <-chan transcript.Line
	cancel   func()
	queue    *console.Queue
	rendered *strings.Builder
	seen     int

	width  int
	height int
}

func newConsoleModel(title string, buf *transcript.Buffer, queue *console.Queue, width, height int) consoleModel {
	backlog, feed, cancel := buf.Tail()

	ti := textinput.New()
	ti.Prompt = "T> "
	ti.PromptStyle = PromptStyle
	ti.Focus()

	m := consoleModel{
		title:    title,
		viewport: viewport.New(contentWidth(width), transcriptHeight(height)),
		input:    ti,
		help:     help.New(),
		keys: consoleKeyMap{
			Send: key.NewBinding(
				key.WithKeys("enter"),
				key.WithHelp("enter", "send"),
			),
			ScrollUp: key.NewBinding(
				key.WithKeys("up", "pgup"),
				key.WithHelp("↑/pgup", "scroll up"),
			),
			ScrollDn: key.NewBinding(
				key.WithKeys("down", "pgdown"),
				key.WithHelp("↓/pgdn", "scroll down"),
			),
			Quit: key.NewBinding(
				key.WithKeys("esc", "ctrl+c"),
				key.WithHelp("esc", "quit"),
			),
		},
		buf:      buf,
		feed:     feed,
		cancel:   cancel,
		queue:    queue,
		rendered: &strings.Builder{},
		seen:     len(backlog),
		width:    width,
		height:   height,
	}
	for _, l := range backlog {
		m.appendLine(l)
	}
	transcript.Follow(scroller{&m.viewport}, m.rendered.String())
	return m
}

func contentWidth(width int) int {
	if width <= 0 {
		width = DefaultWidth
	}
	return max(width-4, 1)
}

func transcriptHeight(height int) int {
	if height <= 0 {
		height = DefaultHeight
	}
	return max(height-consoleChrome, 1)
}

func (m consoleModel) size() (int, int) { return m.width, m.height }

// close releases the transcript subscription
func (m consoleModel) close() { m.cancel() }

func waitForChange(feed <-chan transcript.Line) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-feed; !ok {
			return feedClosedMsg{}
		}
		return changedMsg{}
	}
}

// drain discards pending notifications so a burst is rendered once
func drain(feed <-chan transcript.Line) {
	for {
		select {
		case _, ok := <-feed:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// catchUp renders every line appended since the last call
func (m *consoleModel) catchUp() {
	fresh := m.buf.Since(m.seen)
	if len(fresh) == 0 {
		return
	}
	for _, l := range fresh {
		m.appendLine(l)
	}
	m.seen += len(fresh)
	transcript.Follow(scroller{&m.viewport}, m.rendered.String())
}

func (m consoleModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForChange(m.feed))
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = contentWidth(msg.Width)
		m.viewport.Height = transcriptHeight(msg.Height)
		transcript.Follow(scroller{&m.viewport}, m.rendered.String())
		return m, nil

	case changedMsg:
		drain(m.feed)
		m.catchUp()
		return m, waitForChange(m.feed)

	case feedClosedMsg:
		m.catchUp()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Send):
			text := m.input.Value()
			m.input.Reset()
			if !m.queue.Push(text) {
				logging.Warn("Console input dropped, session is busy or closed")
			}
			return m, nil

		case key.Matches(msg, m.keys.ScrollUp), key.Matches(msg, m.keys.ScrollDn):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m consoleModel) appendLine(l transcript.Line) {
	if m.rendered.Len() > 0 {
		m.rendered.WriteByte('\n')
	}
	style := StatusStyle
	switch l.Kind {
	case transcript.Inbound:
		style = InboundStyle
	case transcript.Outbound:
		style = OutboundStyle
	}
	m.rendered.WriteString(style.Render(l.String()))
}

func (m consoleModel) View() string {
	header := BuildHeaderContent(" "+m.title+" ", "")
	content := m.viewport.View() + "\n" + m.input.View()
	return RenderApplicationContainer(header, content, m.help.View(m.keys), m.width, m.height)
}
