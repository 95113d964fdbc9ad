package output

import (
	"encoding/json"
	"fmt"

	"github.com/subsort/subsort/internal/scanner"
)

// Writer is implemented by each output format. The runner calls
// WriteHeader once, WriteRecord per record in input order, then
// WriteFooter.
type Writer interface {
	WriteHeader(result *scanner.ScanResult) error
	WriteRecord(rec *scanner.Record, fields []string) error
	WriteFooter(result *scanner.ScanResult) error
	Close() error
}

// New creates the writer for the requested format ("text" default).
func New(format, outputFile string, noColor, quiet bool) (Writer, error) {
	switch format {
	case "json":
		return NewJSONWriter(outputFile)
	case "csv":
		return NewCSVWriter(outputFile)
	case "", "text":
		return NewTextWriter(outputFile, noColor, quiet)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// formatValue renders a record field for text/CSV output. Composite
// values (lists, maps) are rendered as compact JSON so the column stays a
// single cell.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int, int32, int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}
