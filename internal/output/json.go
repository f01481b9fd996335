package output

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/jmylchreest/pubharvest/internal/document"
)

// JSONWriter writes all records as one JSON array on Close.
type JSONWriter struct {
	w      *bufio.Writer
	pretty bool
	indent string
	recs   []document.Record
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{
		w:      bufio.NewWriter(w),
		pretty: pretty,
		indent: indent,
		recs:   make([]document.Record, 0),
	}
}

func (w *JSONWriter) Write(rec document.Record) error {
	w.recs = append(w.recs, rec)
	return nil
}

func (w *JSONWriter) WriteAll(recs []document.Record) error {
	w.recs = append(w.recs, recs...)
	return nil
}

// Close writes the array. An empty harvest is written as [].
func (w *JSONWriter) Close() error {
	var (
		data []byte
		err  error
	)
	if w.pretty {
		data, err = json.MarshalIndent(w.recs, "", w.indent)
	} else {
		data, err = json.Marshal(w.recs)
	}
	if err != nil {
		return err
	}

	if _, err := w.w.Write(data); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// JSONLWriter streams one JSON object per line.
type JSONLWriter struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	bw := bufio.NewWriter(w)
	return &JSONLWriter{w: bw, enc: json.NewEncoder(bw)}
}

func (w *JSONLWriter) Write(rec document.Record) error {
	if err := w.enc.Encode(rec); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLWriter) WriteAll(recs []document.Record) error {
	for _, rec := range recs {
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func (w *JSONLWriter) Close() error {
	return w.w.Flush()
}
