package lineui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/nusig/internal/wizard"
)

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		multi      bool
		filterable bool
		defaults   []int
		want       wizard.Choice
		wantErr    bool
	}{
		{name: "defaults single", input: "", defaults: []int{2, 3}, want: wizard.Choice{Outcome: wizard.Accepted, Indices: []int{2}}},
		{name: "defaults multi", input: " ", multi: true, defaults: []int{0, 2}, want: wizard.Choice{Outcome: wizard.Accepted, Indices: []int{0, 2}}},
		{name: "no defaults", input: "", wantErr: true},
		{name: "one", input: "2", want: wizard.Choice{Outcome: wizard.Accepted, Indices: []int{1}}},
		{name: "list", input: "3, 1", multi: true, want: wizard.Choice{Outcome: wizard.Accepted, Indices: []int{0, 2}}},
		{name: "range with duplicate", input: "1-3 2", multi: true, want: wizard.Choice{Outcome: wizard.Accepted, Indices: []int{0, 1, 2}}},
		{name: "two on single list", input: "1,2", wantErr: true},
		{name: "out of range", input: "9", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "junk", input: "x", wantErr: true},
		{name: "reversed range", input: "3-1", multi: true, wantErr: true},
		{name: "back", input: "b", want: wizard.Choice{Outcome: wizard.Cancelled}},
		{name: "refresh", input: "R", want: wizard.Choice{Outcome: wizard.Refreshed}},
		{name: "toggle unnamed", input: "s", filterable: true, want: wizard.Choice{Outcome: wizard.FilterToggled}},
		{name: "toggle not offered", input: "s", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSelection(tt.input, 4, tt.multi, tt.filterable, tt.defaults)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSelectionQuit(t *testing.T) {
	_, err := parseSelection("q", 2, false, false, nil)
	assert.ErrorIs(t, err, errQuit)
}

func TestRenderPrompt(t *testing.T) {
	var out bytes.Buffer
	renderPrompt(&out, wizard.Prompt{
		Title:      " NUSig 1.0 > Device ",
		Ahead:      "> Services ",
		Info:       "Select the desired Bluetooth device",
		Options:    []string{"Nordic_UART_Service", "Thermo"},
		Defaults:   []int{0},
		Filterable: true,
		Hidden:     2,
	}, false)

	s := out.String()
	assert.Contains(t, s, " NUSig 1.0 > Device > Services ")
	assert.Contains(t, s, " *  1) Nordic_UART_Service")
	assert.Contains(t, s, "    2) Thermo")
	assert.Contains(t, s, "s = show 2 unnamed")
}
