package tui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/nusig/internal/console"
	"github.com/muurk/nusig/internal/transcript"
	"github.com/muurk/nusig/internal/wizard"
)

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func press[M tea.Model](t *testing.T, m M, keys ...string) (M, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(keyMsg(k))
		m = next.(M)
	}
	return m, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestChooserSingleStartsOnDefault(t *testing.T) {
	m := newChooserModel(wizard.Prompt{
		Options:  []string{"a", "b", "c"},
		Defaults: []int{2, 0},
	}, false, 80, 24)

	if m.cursor != 2 {
		t.Fatalf("cursor = %d, want 2", m.cursor)
	}

	m, cmd := press(t, m, "up", "enter")
	if !isQuit(cmd) {
		t.Fatal("enter should quit the chooser")
	}
	if m.choice.Outcome != wizard.Accepted || len(m.choice.Indices) != 1 || m.choice.Indices[0] != 1 {
		t.Errorf("choice = %+v, want Accepted [1]", m.choice)
	}
}

func TestChooserMultiToggles(t *testing.T) {
	m := newChooserModel(wizard.Prompt{
		Options:  []string{"a", "b", "c"},
		Defaults: []int{1},
	}, true, 80, 24)

	// cursor starts on the first default; untick it, tick the last row
	m, _ = press(t, m, " ", "down", " ", "up", "up", " ", "enter")

	want := []int{0, 2}
	got := m.choice.Indices
	if m.choice.Outcome != wizard.Accepted || len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("choice = %+v, want Accepted %v", m.choice, want)
	}
}

func TestChooserOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		filterable bool
		want       wizard.Outcome
		quits      bool
	}{
		{"esc goes back", "esc", false, wizard.Cancelled, true},
		{"r refreshes", "r", false, wizard.Refreshed, true},
		{"s toggles unnamed", "s", true, wizard.FilterToggled, true},
		{"s ignored when not filterable", "s", false, wizard.Accepted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newChooserModel(wizard.Prompt{Options: []string{"a"}, Filterable: tt.filterable}, false, 80, 24)
			m, cmd := press(t, m, tt.key)
			if isQuit(cmd) != tt.quits {
				t.Fatalf("quit = %v, want %v", isQuit(cmd), tt.quits)
			}
			if tt.quits && m.choice.Outcome != tt.want {
				t.Errorf("outcome = %v, want %v", m.choice.Outcome, tt.want)
			}
		})
	}
}

func TestChooserViewShowsHiddenCount(t *testing.T) {
	m := newChooserModel(wizard.Prompt{
		Title:      " NUSig 1.0 > Device ",
		Info:       "Select the desired Bluetooth device",
		Options:    []string{"Nordic_UART_Service"},
		Filterable: true,
		Hidden:     3,
	}, false, 100, 30)

	view := m.View()
	for _, want := range []string{"NUSig 1.0", "Select the desired Bluetooth device", "Nordic_UART_Service", "3 unnamed device(s) hidden"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestChooserInterrupt(t *testing.T) {
	m := newChooserModel(wizard.Prompt{Options: []string{"a"}}, false, 80, 24)
	m, cmd := press(t, m, "ctrl+c")
	if !isQuit(cmd) || !m.interrupted {
		t.Error("ctrl+c should interrupt")
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want bool
	}{
		{"enter defaults to no", []string{"enter"}, false},
		{"y answers yes", []string{"y"}, true},
		{"esc answers no", []string{"esc"}, false},
		{"switch then enter", []string{"left", "enter"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newConfirmModel("Quit", "Do you really want to quit?", 80, 24)
			for _, k := range tt.keys {
				msg := keyMsg(k)
				if k == "left" {
					msg = tea.KeyMsg{Type: tea.KeyLeft}
				}
				next, _ := m.Update(msg)
				m = next.(confirmModel)
			}
			if m.answer != tt.want {
				t.Errorf("answer = %v, want %v", m.answer, tt.want)
			}
		})
	}

	view := newConfirmModel("Quit", "Do you really want to quit?", 80, 24).View()
	if !strings.Contains(view, "Do you really want to quit?") {
		t.Error("dialog text missing from view")
	}
}

func TestWaitModel(t *testing.T) {
	finished := make(chan struct{})
	m := newWaitModel("1.0", "Scanning for Bluetooth devices", finished, 80, 24)

	if !strings.Contains(m.View(), "Scanning for Bluetooth devices") {
		t.Error("title missing from view")
	}

	next, cmd := m.Update(waitDoneMsg{})
	if !isQuit(cmd) || next.(waitModel).aborted {
		t.Error("done should quit without aborting")
	}

	m, cmd = press(t, m, "esc")
	if !isQuit(cmd) || !m.aborted {
		t.Error("esc should abort")
	}
}

func TestConsoleModel(t *testing.T) {
	buf := transcript.NewBuffer()
	buf.Append(transcript.NewStatus(`R0: Connected to "Nordic UART TX"`))

	q := console.NewQueue()
	m := newConsoleModel("NUSig 1.0 - Connected to NUS-A", buf, q, 100, 30)
	defer m.close()

	if !strings.Contains(m.View(), `R0: Connected to "Nordic UART TX"`) {
		t.Error("backlog missing from view")
	}

	// lines appended after the screen opened arrive through the feed
	buf.Append(transcript.NewInbound(0, "hello"))
	msg := waitForChange(m.feed)()
	next, cmd := m.Update(msg)
	m = next.(consoleModel)
	if cmd == nil {
		t.Error("expected the next feed wait to be scheduled")
	}
	if !strings.Contains(m.View(), "R0> hello") {
		t.Error("inbound line missing from view")
	}

	m, _ = press(t, m, "p", "i", "n", "g", "enter")
	select {
	case got := <-q.Lines():
		if got != "ping" {
			t.Errorf("submitted %q, want ping", got)
		}
	case <-time.After(time.Second):
		t.Fatal("nothing submitted")
	}
	if m.input.Value() != "" {
		t.Error("input not cleared after send")
	}

	_, cmd = press(t, m, "esc")
	if !isQuit(cmd) {
		t.Error("esc should quit the console")
	}
}

func TestConsoleModelKeepsEveryLineOfABurst(t *testing.T) {
	buf := transcript.NewBuffer()
	m := newConsoleModel("NUSig 1.0 - Connected to NUS-A", buf, console.NewQueue(), 100, 30)
	defer m.close()

	// more lines than the subscription holds, appended before the screen
	// gets a chance to read any of them
	total := transcript.SubscriberBuffer + 44
	for i := 0; i < total; i++ {
		buf.Append(transcript.NewInbound(0, fmt.Sprintf("line %03d", i)))
	}

	next, _ := m.Update(waitForChange(m.feed)())
	m = next.(consoleModel)

	if m.seen != total {
		t.Errorf("seen = %d, want %d", m.seen, total)
	}
	shown := m.rendered.String()
	for i := 0; i < total; i++ {
		if want := fmt.Sprintf("R0> line %03d", i); !strings.Contains(shown, want) {
			t.Fatalf("%q missing from the console", want)
		}
	}
	if got := strings.Count(shown, "R0> "); got != total {
		t.Errorf("console shows %d lines, want %d", got, total)
	}

	// a stale notification for lines already shown adds nothing
	buf.Append(transcript.NewInbound(0, "tail"))
	next, _ = m.Update(changedMsg{})
	m = next.(consoleModel)
	next, _ = m.Update(changedMsg{})
	m = next.(consoleModel)
	if got := strings.Count(m.rendered.String(), "R0> tail"); got != 1 {
		t.Errorf("tail rendered %d times, want 1", got)
	}
}

func TestScrollerSatisfiesViewport(t *testing.T) {
	var _ transcript.Viewport = scroller{}
}
