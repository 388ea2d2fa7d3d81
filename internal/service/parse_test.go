package service

import (
	"errors"
	"testing"
)

func TestParseModelJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantKey string
		wantErr error
	}{
		{"plain object", `{"color": "RED"}`, "color", nil},
		{"fenced", "```json\n{\"color\": \"RED\"}\n```", "color", nil},
		{"bare fence", "```\n{\"color\": \"RED\"}\n```", "color", nil},
		{"prose around object", "Sure! {\"color\": \"RED\"} Hope this helps.", "color", nil},
		{"fence not closed", "```json\n{\"color\": \"RED\"}", "", errFenceNotClosed},
		{"only opening fence", "```json", "", errFenceNotClosed},
		{"no object", "I cannot help with that.", "", errNoJSONObject},
		{"braces reversed", "} nothing {", "", errNoJSONObject},
		{"whitespace padded", "\n\n  {\"color\": \"RED\"}  \n", "color", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := parseModelJSON(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, ok := obj[tt.wantKey]; !ok {
				t.Errorf("expected key %q in %v", tt.wantKey, obj)
			}
		})
	}
}

func TestParseModelJSON_InvalidJSON(t *testing.T) {
	if _, err := parseModelJSON(`{"color": RED}`); err == nil {
		t.Error("expected decode error")
	}
	if _, err := parseModelJSON(`{"a": [1, 2}`); err == nil {
		t.Error("expected decode error")
	}
}

func TestOptInt(t *testing.T) {
	obj, err := parseModelJSON(`{"a": 7, "b": 7.0, "c": 7.5, "d": "7", "e": null}`)
	if err != nil {
		t.Fatal(err)
	}

	if v, err := optInt(obj, "a"); err != nil || v == nil || *v != 7 {
		t.Errorf("a: got %v, %v", v, err)
	}
	if v, err := optInt(obj, "b"); err != nil || v == nil || *v != 7 {
		t.Errorf("b: got %v, %v", v, err)
	}
	if _, err := optInt(obj, "c"); err == nil {
		t.Error("c: expected error for fractional number")
	}
	if _, err := optInt(obj, "d"); err == nil {
		t.Error("d: expected error for string")
	}
	if v, err := optInt(obj, "e"); err != nil || v != nil {
		t.Errorf("e: expected nil, got %v, %v", v, err)
	}
	if v, err := optInt(obj, "missing"); err != nil || v != nil {
		t.Errorf("missing: expected nil, got %v, %v", v, err)
	}
}

func TestStringList(t *testing.T) {
	obj, err := parseModelJSON(`{"ok": ["a", "b"], "mixed": ["a", 1], "scalar": "a", "null": null}`)
	if err != nil {
		t.Fatal(err)
	}

	if v, err := stringList(obj, "ok"); err != nil || len(v) != 2 {
		t.Errorf("ok: got %v, %v", v, err)
	}
	if _, err := stringList(obj, "mixed"); err == nil {
		t.Error("mixed: expected error")
	}
	if _, err := stringList(obj, "scalar"); err == nil {
		t.Error("scalar: expected error")
	}
	for _, key := range []string{"null", "missing"} {
		v, err := stringList(obj, key)
		if err != nil || v == nil || len(v) != 0 {
			t.Errorf("%s: expected empty non-nil slice, got %#v, %v", key, v, err)
		}
	}
}
