package id

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ErrFloatNotAllowed is returned by Canonicalize when a value tree contains
// a float, which is forbidden in identity-bearing positions (spec.md §4.1).
var ErrFloatNotAllowed = fmt.Errorf("id: floats are not allowed in canonical JSON")

// Canonicalize encodes v as canonical JSON: UTF-8, no insignificant
// whitespace, map keys sorted lexicographically (encoding/json already does
// this for map[string]T and struct field order is caller-controlled),
// arrays kept in declared order, and no float values anywhere in the tree.
//
// v should be built from maps, slices, strings, bool, nil, and integer types
// (int, int64, json.Number). Passing a struct works too, provided none of
// its fields are float32/float64.
func Canonicalize(v any) ([]byte, error) {
	if err := rejectFloats(v); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("id: canonicalize: %w", err)
	}
	// json.Encoder.Encode appends a trailing newline; canonical form has none.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodeCanonical parses canonical JSON bytes into a generic tree using
// json.Number for numerics, so re-Canonicalize-ing the result round-trips
// exactly (no float64 widening of large integers).
func DecodeCanonical(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("id: decode canonical: %w", err)
	}
	return v, nil
}

func rejectFloats(v any) error {
	switch val := v.(type) {
	case float32, float64:
		return ErrFloatNotAllowed
	case map[string]any:
		for _, child := range val {
			if err := rejectFloats(child); err != nil {
				return err
			}
		}
	case []any:
		for _, child := range val {
			if err := rejectFloats(child); err != nil {
				return err
			}
		}
	}
	return nil
}
