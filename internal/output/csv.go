package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/subsort/subsort/internal/scanner"
)

// csvBaseColumns precede the module field columns in every row.
var csvBaseColumns = []string{"host", "url", "accessible", "attempts", "error_kind", "error"}

// CSVWriter writes one row per host. Module fields become columns in the
// scan's stable field order, so the schema is identical across rows.
type CSVWriter struct {
	w      *csv.Writer
	closer io.Closer
}

// NewCSVWriter creates a CSV output writer.
func NewCSVWriter(outputFile string) (*CSVWriter, error) {
	var w io.Writer = os.Stdout
	var closer io.Closer
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return nil, err
		}
		w = f
		closer = f
	}
	return &CSVWriter{w: csv.NewWriter(w), closer: closer}, nil
}

func (c *CSVWriter) WriteHeader(result *scanner.ScanResult) error {
	return c.w.Write(append(append([]string{}, csvBaseColumns...), result.FieldNames...))
}

func (c *CSVWriter) WriteRecord(rec *scanner.Record, fields []string) error {
	row := []string{
		rec.Host,
		rec.URL,
		fmt.Sprintf("%t", rec.Accessible),
		fmt.Sprintf("%d", rec.Attempts),
		string(rec.ErrorKind),
		rec.Error,
	}
	for _, f := range fields {
		row = append(row, formatValue(rec.Fields[f]))
	}
	return c.w.Write(row)
}

func (c *CSVWriter) WriteFooter(_ *scanner.ScanResult) error {
	c.w.Flush()
	return c.w.Error()
}

func (c *CSVWriter) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
