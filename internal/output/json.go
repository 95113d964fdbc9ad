package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/subsort/subsort/internal/scanner"
)

type jsonRecord struct {
	Host       string          `json:"host"`
	URL        string          `json:"url,omitempty"`
	Accessible bool            `json:"accessible"`
	Attempts   int             `json:"attempts"`
	Error      string          `json:"error,omitempty"`
	ErrorKind  string          `json:"error_kind,omitempty"`
	Fields     scanner.Partial `json:"fields,omitempty"`
}

type jsonDocument struct {
	Timestamp time.Time    `json:"timestamp"`
	Duration  string       `json:"duration"`
	Total     int          `json:"total_hosts"`
	Completed int          `json:"completed_hosts"`
	Cancelled bool         `json:"cancelled,omitempty"`
	Modules   []string     `json:"modules"`
	Records   []jsonRecord `json:"records"`
}

// JSONWriter buffers records and writes one document with scan metadata.
type JSONWriter struct {
	w      io.Writer
	closer io.Closer
	doc    jsonDocument
}

// NewJSONWriter creates a JSON output writer.
func NewJSONWriter(outputFile string) (*JSONWriter, error) {
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
	return &JSONWriter{w: w, closer: closer}, nil
}

func (j *JSONWriter) WriteHeader(result *scanner.ScanResult) error {
	j.doc = jsonDocument{
		Timestamp: result.StartedAt,
		Duration:  result.Duration.String(),
		Total:     result.Total,
		Completed: result.Completed,
		Cancelled: result.Cancelled,
		Modules:   result.Modules,
		Records:   make([]jsonRecord, 0, result.Completed),
	}
	return nil
}

func (j *JSONWriter) WriteRecord(rec *scanner.Record, _ []string) error {
	j.doc.Records = append(j.doc.Records, jsonRecord{
		Host:       rec.Host,
		URL:        rec.URL,
		Accessible: rec.Accessible,
		Attempts:   rec.Attempts,
		Error:      rec.Error,
		ErrorKind:  string(rec.ErrorKind),
		Fields:     rec.Fields,
	})
	return nil
}

func (j *JSONWriter) WriteFooter(_ *scanner.ScanResult) error {
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	return enc.Encode(j.doc)
}

func (j *JSONWriter) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}
