package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// IDField is the record field used for identity operations. It is never a
// display column.
const IDField = "id"

// Field is one named value of a Record. Value holds compact JSON.
type Field struct {
	Name  string
	Value json.RawMessage
}

// Record is one structured result row: an ordered mapping of field name to
// value, in the order the extraction service produced it.
type Record struct {
	fields []Field
}

// NewRecord builds a record from text values given as name/value pairs.
func NewRecord(pairs ...string) *Record {
	r := &Record{}
	for i := 0; i+1 < len(pairs); i += 2 {
		r.SetText(pairs[i], pairs[i+1])
	}
	return r
}

// ID returns the record identity.
func (r *Record) ID() string {
	return r.Text(IDField)
}

// Names returns the field names in order.
func (r *Record) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Fields returns a copy of the fields in order.
func (r *Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Get returns the raw JSON value of a field.
func (r *Record) Get(name string) (json.RawMessage, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Text renders a field as cell text: strings unquoted, null and missing
// fields empty, anything else as compact JSON.
func (r *Record) Text(name string) string {
	raw, ok := r.Get(name)
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

// Set replaces a field's raw value, appending the field if it is new.
func (r *Record) Set(name string, value json.RawMessage) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i].Value = value
			return
		}
	}
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

// SetText stores value as a JSON string. HTML characters are kept as is.
func (r *Record) SetText(name, value string) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(value)
	r.Set(name, bytes.TrimRight(buf.Bytes(), "\n"))
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	c := &Record{fields: make([]Field, len(r.fields))}
	for i, f := range r.fields {
		c.fields[i] = Field{Name: f.Name, Value: append(json.RawMessage(nil), f.Value...)}
	}
	return c
}

// MarshalJSON encodes the record as an object with fields in order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if len(f.Value) == 0 {
			buf.WriteString("null")
		} else {
			buf.Write(f.Value)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping the key order. A repeated key keeps
// its first position and its last value.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected JSON object, got %v", tok)
	}

	var fields []Field
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record: expected field name, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return err
		}
		value := json.RawMessage(compact.Bytes())
		if i, dup := index[name]; dup {
			fields[i].Value = value
			continue
		}
		index[name] = len(fields)
		fields = append(fields, Field{Name: name, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	r.fields = fields
	return nil
}

// DeriveColumns returns the display columns: the field names of the first
// record, excluding the id field. It is empty for an empty set.
func DeriveColumns(records []*Record) []string {
	if len(records) == 0 || records[0] == nil {
		return []string{}
	}
	cols := make([]string, 0, len(records[0].fields))
	for _, f := range records[0].fields {
		if f.Name == IDField {
			continue
		}
		cols = append(cols, f.Name)
	}
	return cols
}
