package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/subsort/subsort/internal/scanner"
)

// ANSI color codes.
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorCyan   = "\033[36m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorDim    = "\033[2m"
)

// TextWriter writes one colored block per host to a writer.
type TextWriter struct {
	w       io.Writer
	closer  io.Closer
	noColor bool
	quiet   bool
}

// NewTextWriter creates a text output writer. If outputFile is empty,
// stdout is used. noColor disables ANSI escape codes.
func NewTextWriter(outputFile string, noColor, quiet bool) (*TextWriter, error) {
	var w io.Writer = os.Stdout
	var closer io.Closer
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return nil, err
		}
		w = f
		closer = f
		noColor = true
	}
	return &TextWriter{w: w, closer: closer, noColor: noColor, quiet: quiet}, nil
}

func (t *TextWriter) WriteHeader(result *scanner.ScanResult) error {
	if t.quiet {
		return nil
	}
	dim, reset := t.color(colorDim), t.color(colorReset)
	_, err := fmt.Fprintf(t.w, "%sScan started %s — %d hosts%s\n\n",
		dim, result.StartedAt.Format("2006-01-02 15:04:05"), result.Total, reset)
	return err
}

func (t *TextWriter) WriteRecord(rec *scanner.Record, fields []string) error {
	reset := t.color(colorReset)

	if rec.Failed() {
		red := t.color(colorRed)
		_, err := fmt.Fprintf(t.w, "%s[ERR]%s %s  %s(%s)%s\n",
			red, reset, rec.Host, t.color(colorDim), rec.ErrorKind, reset)
		return err
	}

	status := ""
	if v, ok := rec.Fields["status_code"]; ok {
		status = fmt.Sprintf("%s[%v]%s ", t.statusColor(v), v, reset)
	}
	if _, err := fmt.Fprintf(t.w, "%s%s  %s%s%s\n", status, rec.Host, t.color(colorDim), rec.URL, reset); err != nil {
		return err
	}

	for _, f := range fields {
		if f == "status_code" || f == "final_url" {
			continue
		}
		v, ok := rec.Fields[f]
		if !ok {
			continue
		}
		s := formatValue(v)
		if s == "" || s == "[]" || s == "{}" || s == "0" || s == "false" {
			continue
		}
		if _, err := fmt.Fprintf(t.w, "      %s%s:%s %s\n", t.color(colorCyan), f, reset, s); err != nil {
			return err
		}
	}
	return nil
}

func (t *TextWriter) WriteFooter(result *scanner.ScanResult) error {
	if t.quiet {
		return nil
	}
	dim, reset := t.color(colorDim), t.color(colorReset)
	state := ""
	if result.Cancelled {
		state = " (cancelled)"
	}
	_, err := fmt.Fprintf(t.w, "\n%sCompleted %d/%d hosts in %s%s%s\n",
		dim, result.Completed, result.Total, result.Duration.Round(10*time.Millisecond), state, reset)
	return err
}

func (t *TextWriter) Close() error {
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

func (t *TextWriter) color(c string) string {
	if t.noColor {
		return ""
	}
	return c
}

func (t *TextWriter) statusColor(v any) string {
	code, ok := v.(int)
	if !ok || t.noColor {
		return ""
	}
	switch {
	case code >= 200 && code < 300:
		return colorGreen
	case code >= 300 && code < 400:
		return colorCyan
	case code >= 400 && code < 500:
		return colorYellow
	default:
		return colorRed
	}
}
