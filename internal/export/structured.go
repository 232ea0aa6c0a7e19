package export

import (
	"encoding/json"
	"io"

	"sofdesk/internal/domain"
)

// Document is the structured export layout. It mirrors the extraction
// service envelope so an export can be read back as a submission result.
type Document struct {
	Columns       []string         `json:"columns"`
	Count         int              `json:"count"`
	ProcessedData []*domain.Record `json:"processed_data"`
}

// WriteStructured writes records as indented JSON, preserving every field in
// its original order. An empty set is rejected with domain.ErrEmptyExport.
func WriteStructured(out io.Writer, records []*domain.Record) error {
	if len(records) == 0 {
		return domain.ErrEmptyExport
	}
	doc := Document{
		Columns:       domain.DeriveColumns(records),
		Count:         len(records),
		ProcessedData: records,
	}
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
