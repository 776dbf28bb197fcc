package quasijson

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecode_MatchesCanonicalJSON(t *testing.T) {
	tests := []struct {
		name      string
		dialect   string
		canonical string
	}{
		{
			name:      "flat markup",
			dialect:   `{'a1b2': {'x': '10.5', 'y': '20', 'color': '#7A0000', 'comment': 'FOR APPROVAL'}}`,
			canonical: `{"a1b2": {"x": "10.5", "y": "20", "color": "#7A0000", "comment": "FOR APPROVAL"}}`,
		},
		{
			name:      "booleans and null",
			dialect:   `{'m': {'locked': 'True', 'hidden': 'False', 'layer': 'None'}}`,
			canonical: `{"m": {"locked": true, "hidden": false, "layer": null}}`,
		},
		{
			name:      "quoted nested object",
			dialect:   `{'m': {'extra': '{'subject': 'Cloud', 'depth': '2'}'}}`,
			canonical: `{"m": {"extra": {"subject": "Cloud", "depth": "2"}}}`,
		},
		{
			name:      "quoted nested object with pipe quotes",
			dialect:   `{'m': {'extra': '{|"subject|": |"Cloud|", |"tags|": [|"A|", |"B||n|"]}'}}`,
			canonical: `{"m": {"extra": {"subject": "Cloud", "tags": ["A", "B\n"]}}}`,
		},
		{
			name:      "escaped backslash and control characters",
			dialect:   `{'m': {'path': 'C:||||drawings', 'comment': 'PROJECT ADDRESS||r', 'quote': 'say |"hi|"'}}`,
			canonical: `{"m": {"path": "C:\\drawings", "comment": "PROJECT ADDRESS\r", "quote": "say \"hi\""}}`,
		},
		{
			name:      "arrays and numbers",
			dialect:   `{'m': {'points': [1, 2.5, -3e2], 'tags': ['A', 'B'], 'empty': []}}`,
			canonical: `{"m": {"points": [1, 2.5, -300], "tags": ["A", "B"], "empty": []}}`,
		},
		{
			name:      "bare python literals",
			dialect:   `{'m': {'a': True, 'b': None, 'c': false}}`,
			canonical: `{"m": {"a": true, "b": null, "c": false}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := Decode([]byte(tt.dialect))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			var want map[string]any
			if err := json.Unmarshal([]byte(tt.canonical), &want); err != nil {
				t.Fatalf("bad canonical fixture: %v", err)
			}
			if diff := cmp.Diff(want, obj.Map()); diff != "" {
				t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\r\n\t"} {
		obj, err := Decode([]byte(in))
		if err != nil {
			t.Fatalf("Decode(%q) error = %v", in, err)
		}
		if obj.Len() != 0 {
			t.Errorf("Decode(%q).Len() = %d, want 0", in, obj.Len())
		}
	}
}

func TestDecode_KeepsKeyOrder(t *testing.T) {
	obj, err := Decode([]byte(`{'z': '1', 'a': '2', 'm': '3'}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if diff := cmp.Diff([]string{"z", "a", "m"}, obj.Keys); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_StringStartingWithBraceFallsBack(t *testing.T) {
	obj, err := Decode([]byte(`{'comment': '{not an object'}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got, _ := obj.Get("comment"); got != "{not an object" {
		t.Errorf("comment = %q, want %q", got, "{not an object")
	}
}

func TestDecode_QuotedLiteralKeptAsKey(t *testing.T) {
	obj, err := Decode([]byte(`{'None': 'True'}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got, ok := obj.Get("None"); !ok || got != true {
		t.Errorf("Get(None) = %v, %v, want true, true", got, ok)
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []string{
		`{'a': '1'`,
		`{'a' '1'}`,
		`{'a': 'unterminated}`,
		`['a']`,
		`{'a': '1'} trailing`,
		`{'a': ||x}`,
	}
	for _, in := range tests {
		_, err := Decode([]byte(in))
		if err == nil {
			t.Errorf("Decode(%q) error = nil, want error", in)
			continue
		}
		var se *SyntaxError
		if in != `['a']` && !errors.As(err, &se) {
			t.Errorf("Decode(%q) error = %T, want *SyntaxError", in, err)
		}
	}
}
