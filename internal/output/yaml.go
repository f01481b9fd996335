package output

import (
	"bufio"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/pubharvest/internal/document"
)

// YAMLWriter writes all records as one YAML sequence on Close.
type YAMLWriter struct {
	w    *bufio.Writer
	recs []document.Record
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{
		w:    bufio.NewWriter(w),
		recs: make([]document.Record, 0),
	}
}

func (w *YAMLWriter) Write(rec document.Record) error {
	w.recs = append(w.recs, rec)
	return nil
}

func (w *YAMLWriter) WriteAll(recs []document.Record) error {
	w.recs = append(w.recs, recs...)
	return nil
}

func (w *YAMLWriter) Close() error {
	enc := yaml.NewEncoder(w.w)
	enc.SetIndent(2)
	if err := enc.Encode(w.recs); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return w.w.Flush()
}
