package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/dhamidi/justice/verifier"
)

var (
	classStyle = lipgloss.NewStyle().Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#90EE90"))

	rejectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	notYetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD75F"))
)

type renderer struct {
	w     io.Writer
	color bool
}

// newRenderer colours its output only when w is a terminal.
func newRenderer(w io.Writer) *renderer {
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &renderer{w: w, color: color}
}

func (r *renderer) style(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

func (r *renderer) status(status verifier.Status) string {
	switch status {
	case verifier.StatusOK:
		return r.style(okStyle, status.String())
	case verifier.StatusRejected:
		return r.style(rejectedStyle, status.String())
	}
	return r.style(notYetStyle, status.String())
}

func (r *renderer) result(label string, res verifier.Result) {
	fmt.Fprintf(r.w, "  %s: %s %s\n", label, r.status(res.Status), res.Message)
}

func (r *renderer) report(report *verifier.Report) {
	fmt.Fprintf(r.w, "%s: %s\n", r.style(classStyle, report.ClassName), r.status(report.Status()))
	r.result("Pass 1", report.Pass1)
	r.result("Pass 2", report.Pass2)
	for _, m := range report.Methods {
		r.result(fmt.Sprintf("Pass 3a, method %d ('%s%s')", m.Index, m.Name, m.Descriptor), m.Result)
	}
	for _, msg := range report.Messages {
		fmt.Fprintf(r.w, "  %s %s\n", r.style(warningStyle, "warning:"), msg)
	}
}
