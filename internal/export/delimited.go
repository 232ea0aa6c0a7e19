package export

import (
	"encoding/csv"
	"io"

	"sofdesk/internal/domain"
)

// BOM is the UTF-8 byte order mark, written ahead of CSV downloads for Excel
// compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// Header returns the delimited header row: the id column followed by the
// display columns of the first record.
func Header(records []*domain.Record) []string {
	return append([]string{domain.IDField}, domain.DeriveColumns(records)...)
}

// DelimitedWriter wraps csv.Writer for exporting a result set.
type DelimitedWriter struct {
	csv    *csv.Writer
	header []string
}

// NewDelimitedWriter creates a DelimitedWriter that writes CSV to w.
func NewDelimitedWriter(w io.Writer) *DelimitedWriter {
	return &DelimitedWriter{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row derived from records and remembers it
// for subsequent rows.
func (w *DelimitedWriter) WriteHeader(records []*domain.Record) error {
	w.header = Header(records)
	return w.csv.Write(w.header)
}

// WriteRecords writes one row per record, cells in header order. Fields a
// record lacks are left empty.
func (w *DelimitedWriter) WriteRecords(records []*domain.Record) error {
	for _, r := range records {
		if err := w.csv.Write(recordToRow(r, w.header)); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *DelimitedWriter) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *DelimitedWriter) Error() error {
	return w.csv.Error()
}

func recordToRow(r *domain.Record, header []string) []string {
	row := make([]string, len(header))
	for i, name := range header {
		row[i] = r.Text(name)
	}
	return row
}

// WriteDelimited writes the complete CSV document for records. An empty set
// is rejected with domain.ErrEmptyExport.
func WriteDelimited(out io.Writer, records []*domain.Record) error {
	if len(records) == 0 {
		return domain.ErrEmptyExport
	}
	w := NewDelimitedWriter(out)
	if err := w.WriteHeader(records); err != nil {
		return err
	}
	if err := w.WriteRecords(records); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
