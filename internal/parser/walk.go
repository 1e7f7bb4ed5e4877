// Package parser turns loosely structured Kinderpedia payloads into normalized
// records. Parsing never fails: missing or wrongly typed fields fall back to
// the documented sentinel values.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
)

// decode unmarshals raw JSON into generic values, returning nil when invalid.
// Numbers stay json.Number so large ids keep every digit.
func decode(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	if err := dec.Decode(new(any)); !errors.Is(err, io.EOF) {
		return nil
	}
	return v
}

func object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func list(v any) []any {
	l, _ := v.([]any)
	return l
}

// walk descends through nested objects, returning nil as soon as a level is
// missing or not an object
func walk(v any, keys ...string) map[string]any {
	cur := object(v)
	for _, k := range keys {
		if cur == nil {
			return nil
		}
		cur = object(cur[k])
	}
	return cur
}

func text(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// textOr returns v when it is a non-empty string, def otherwise
func textOr(v any, def string) string {
	if s, ok := text(v); ok && s != "" {
		return s
	}
	return def
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	}
	return 0, false
}

func numberOr(v any, def float64) float64 {
	if n, ok := number(v); ok {
		return n
	}
	return def
}

func flag(v any) bool {
	b, _ := v.(bool)
	return b
}

// identifier renders an opaque id (string or number) as a string
func identifier(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(id)
	}
	return ""
}

// truncate cuts s to at most n runes and reports whether anything was cut
func truncate(s string, n int) (string, bool) {
	r := []rune(s)
	if len(r) <= n {
		return s, false
	}
	return string(r[:n]), true
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
