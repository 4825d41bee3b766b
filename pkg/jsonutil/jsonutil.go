// Package jsonutil wraps github.com/go-json-experiment/json behind an
// encoding/json shaped API.
//
// Usage:
//
//	var attrs catalog.ProgramAttributes
//	err := jsonutil.Unmarshal(raw, &attrs)
package jsonutil

import (
	"io"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Unmarshal decodes data into v. Unknown fields are ignored.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Marshal encodes v.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// MarshalIndent encodes v with the given indent.
func MarshalIndent(v any, indent string) ([]byte, error) {
	return json.Marshal(v, jsontext.WithIndent(indent))
}

// Write encodes v to w followed by a newline.
func Write(w io.Writer, v any) error {
	if err := json.MarshalWrite(w, v); err != nil {
		return err
	}
	_, err := w.Write([]byte{'\n'})
	return err
}

// Read decodes one JSON value from r into v.
func Read(r io.Reader, v any) error {
	return json.UnmarshalRead(r, v)
}

// Valid reports whether data is valid JSON.
func Valid(data []byte) bool {
	return jsontext.Value(data).IsValid()
}
