package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Errors returned when decoding form fields.
var (
	ErrFieldsNotObject   = errors.New("input fields must be a JSON object")
	ErrFieldValueInvalid = errors.New("input field values must be strings, numbers or booleans")
	ErrFieldsMismatch    = errors.New("field keys and values differ in length")
)

// Field is a single form input.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Fields is an ordered string-to-string mapping of form inputs.
// Iteration order is insertion order; prompt composition depends on it.
// The zero value is an empty mapping ready to use.
type Fields struct {
	entries []Field
}

// NewFields builds Fields from pairs in order.
func NewFields(pairs ...Field) Fields {
	var f Fields
	for _, p := range pairs {
		f.Set(p.Key, p.Value)
	}
	return f
}

// FieldsFromColumns rebuilds Fields from parallel key/value slices.
func FieldsFromColumns(keys, values []string) (Fields, error) {
	if len(keys) != len(values) {
		return Fields{}, ErrFieldsMismatch
	}
	var f Fields
	for i := range keys {
		f.Set(keys[i], values[i])
	}
	return f, nil
}

// Set assigns value to key. An existing key keeps its position.
func (f *Fields) Set(key, value string) {
	for i := range f.entries {
		if f.entries[i].Key == key {
			f.entries[i].Value = value
			return
		}
	}
	f.entries = append(f.entries, Field{Key: key, Value: value})
}

// Get returns the value stored for key.
func (f Fields) Get(key string) (string, bool) {
	for _, e := range f.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Len returns the number of entries.
func (f Fields) Len() int {
	return len(f.entries)
}

// Entries returns a copy of the entries in order.
func (f Fields) Entries() []Field {
	return append([]Field(nil), f.entries...)
}

// Columns splits the mapping into parallel key and value slices.
func (f Fields) Columns() (keys, values []string) {
	keys = make([]string, len(f.entries))
	values = make([]string, len(f.entries))
	for i, e := range f.entries {
		keys[i] = e.Key
		values[i] = e.Value
	}
	return keys, values
}

// MarshalJSON encodes the mapping as a JSON object in insertion order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range f.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a flat JSON object, keeping key order.
// Numbers and booleans are kept in their literal text form; null values are
// dropped; nested objects and arrays are rejected.
func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*f = Fields{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return ErrFieldsNotObject
	}

	var out Fields
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return ErrFieldsNotObject
		}

		valTok, err := dec.Token()
		if err != nil {
			return err
		}

		switch v := valTok.(type) {
		case string:
			out.Set(key, v)
		case json.Number:
			out.Set(key, v.String())
		case bool:
			out.Set(key, strconv.FormatBool(v))
		case nil:
			// dropped
		default:
			return fmt.Errorf("%w: field %q", ErrFieldValueInvalid, key)
		}
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*f = out
	return nil
}
