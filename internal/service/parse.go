package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	errFenceNotClosed = errors.New("fence not closed")
	errNoJSONObject   = errors.New("no JSON object in output")
)

// parseModelJSON pulls the JSON object out of a completion. A leading code
// fence must be closed on the last line; anything outside the outermost
// braces is ignored.
func parseModelJSON(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)

	lines := strings.Split(text, "\n")
	if isFence(lines[0]) {
		lines = lines[1:]
		if len(lines) == 0 || !isFence(lines[len(lines)-1]) {
			return nil, errFenceNotClosed
		}
		text = strings.Join(lines[:len(lines)-1], "\n")
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, errNoJSONObject
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(text[start : end+1])))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if obj == nil {
		return nil, errNoJSONObject
	}
	return obj, nil
}

func isFence(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "```")
}

// fieldError reports a key whose value has the wrong JSON type
type fieldError struct {
	key  string
	want string
	got  any
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("field %q: expected %s, got %s", e.key, e.want, jsonKind(e.got))
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

// optString returns nil for an absent or null key
func optString(obj map[string]any, key string) (*string, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, &fieldError{key, "string", v}
	}
	return &s, nil
}

// reqString fails on an absent, null or non-string key
func reqString(obj map[string]any, key string) (string, error) {
	s, err := optString(obj, key)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", fmt.Errorf("field %q is required", key)
	}
	return *s, nil
}

// stringList returns an empty slice for an absent or null key
func stringList(obj map[string]any, key string) ([]string, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return []string{}, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, &fieldError{key, "array of strings", v}
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil, &fieldError{key, "array of strings", item}
		}
		out = append(out, s)
	}
	return out, nil
}

// optInt accepts integral numbers only, so 7 and 7.0 pass but 7.5 does not
func optInt(obj map[string]any, key string) (*int, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, nil
	}
	n, ok := v.(json.Number)
	if !ok {
		return nil, &fieldError{key, "integer", v}
	}
	if i, err := n.Int64(); err == nil {
		x := int(i)
		return &x, nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return nil, &fieldError{key, "integer", v}
	}
	x := int(f)
	return &x, nil
}
