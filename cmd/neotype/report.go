package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// report prints per-type schema results, colored when stdout is a TTY.
type report struct {
	w io.Writer

	okStyle   lipgloss.Style
	failStyle lipgloss.Style
	dimStyle  lipgloss.Style

	total  int
	errors int
}

func newReport(w io.Writer) *report {
	r := &report{
		w:         w,
		okStyle:   lipgloss.NewStyle(),
		failStyle: lipgloss.NewStyle(),
		dimStyle:  lipgloss.NewStyle(),
	}

	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		r.okStyle = r.okStyle.Foreground(lipgloss.Color("2"))
		r.failStyle = r.failStyle.Foreground(lipgloss.Color("1")).Bold(true)
		r.dimStyle = r.dimStyle.Foreground(lipgloss.Color("8"))
	}

	return r
}

func (r *report) synced(name string) {
	r.total++
	fmt.Fprintf(r.w, "%s %s\n", r.okStyle.Render("synced"), name)
}

func (r *report) present(name string) {
	r.total++
	fmt.Fprintf(r.w, "%s %s\n", r.okStyle.Render("ok"), name)
}

func (r *report) missing(name string) {
	r.total++
	r.errors++
	fmt.Fprintf(r.w, "%s %s\n", r.failStyle.Render("missing"), name)
}

func (r *report) failed(name string, err error) {
	r.total++
	r.errors++
	fmt.Fprintf(r.w, "%s %s: %v\n", r.failStyle.Render("failed"), name, err)
}

func (r *report) summary() {
	fmt.Fprintln(r.w, r.dimStyle.Render(fmt.Sprintf("%d types, %d problems", r.total, r.errors)))
}
