// Package logging builds the structured logger shared by the CLI and the
// scheduler.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"golang.org/x/term"
)

// Formats accepted by New.
const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatLogfmt = "logfmt"
	FormatAuto   = "auto"
)

// Options configures a logger.
type Options struct {
	Level  string // debug, info, warn, error; empty means info
	Format string // text, json, logfmt, auto; empty means auto
	Prefix string

	// Writer defaults to os.Stderr.
	Writer io.Writer
}

// New creates a logger. The auto format picks colored text when the writer
// is a terminal and logfmt otherwise.
func New(opts Options) (*log.Logger, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	level := log.InfoLevel
	if opts.Level != "" {
		l, err := log.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
		level = l
	}

	formatter, err := formatterFor(opts.Format, w)
	if err != nil {
		return nil, err
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          opts.Prefix,
		Level:           level,
		Formatter:       formatter,
	})
	if formatter == log.TextFormatter {
		logger.SetStyles(styles())
	}
	return logger, nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

func formatterFor(format string, w io.Writer) (log.Formatter, error) {
	switch format {
	case FormatText:
		return log.TextFormatter, nil
	case FormatJSON:
		return log.JSONFormatter, nil
	case FormatLogfmt:
		return log.LogfmtFormatter, nil
	case FormatAuto, "":
		if isTerminal(w) {
			return log.TextFormatter, nil
		}
		return log.LogfmtFormatter, nil
	default:
		return 0, fmt.Errorf("logging: unknown format %q", format)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// styles tints the keys the simulation logs most so train ids stand out.
func styles() *log.Styles {
	s := log.DefaultStyles()
	s.Keys["train"] = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	s.Values["train"] = lipgloss.NewStyle().Bold(true)
	s.Keys["blocked_by"] = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	s.Keys["run"] = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	s.Keys["tick"] = lipgloss.NewStyle().Faint(true)
	return s
}
