package ui

import (
	"fmt"
	"io"
	"os"
)

// Printer writes styled components to a writer. Width follows the
// terminal when the writer is one.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a printer for w
func NewPrinter(w io.Writer) *Printer {
	width := 0
	if f, ok := w.(*os.File); ok {
		width = terminalWidth(f)
	}
	return &Printer{out: w, width: clampWidth(width)}
}

// Width returns the rendering width
func (p *Printer) Width() int {
	return p.width
}

// Println prints content followed by a newline
func (p *Printer) Println(content string) {
	fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	fmt.Fprintln(p.out)
}

// PrintHeader prints a command header
func (p *Printer) PrintHeader(title, command string, params ...Param) {
	p.Println(NewHeader(title, command, params...).SetWidth(p.width).Render())
}

// PrintWaiting prints a one-line notice for a blocking step
func (p *Printer) PrintWaiting(message string) {
	p.Println(WaitStyle.Render(message))
}

// PrintSuccess prints a success box
func (p *Printer) PrintSuccess(title string, details ...Param) {
	p.Println(NewSuccessResult(title, details...).SetWidth(p.width).Render())
}

// PrintWarning prints a warning box
func (p *Printer) PrintWarning(title string, details ...Param) {
	p.Println(NewWarningResult(title, details...).SetWidth(p.width).Render())
}

// PrintError prints a failure box with optional troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting ...string) {
	p.Println(NewFailureResult(title, err, troubleshooting...).SetWidth(p.width).Render())
}

// PrintTranscriptLine prints one mirrored line styled by kind
// ("inbound", "outbound" or "status")
func (p *Printer) PrintTranscriptLine(kind, line string) {
	switch kind {
	case "inbound":
		p.Println(InboundLineStyle.Render(line))
	case "outbound":
		p.Println(OutboundLineStyle.Render(line))
	default:
		p.Println(StatusLineStyle.Render(line))
	}
}
