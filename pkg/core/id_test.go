package core

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestIDStringRoundTrip(t *testing.T) {
	id := NewID()
	parsed, err := ParseID(id.String())
	if err != nil {
		t.Fatal(err)
	}
	if parsed != id {
		t.Errorf("round trip mismatch: %s vs %s", id, parsed)
	}
}

func TestIDUniqueness(t *testing.T) {
	seen := make(map[ID]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
}

func TestParseIDRejectsBadInput(t *testing.T) {
	for _, s := range []string{
		"",
		"abc",
		"-1",
		"12.5",
		strings.Repeat("9", 50), // > 128 bits
	} {
		if _, err := ParseID(s); err == nil {
			t.Errorf("ParseID(%q) should fail", s)
		}
	}
}

func TestIDJSONIsDecimalString(t *testing.T) {
	id := NewID()
	data, err := json.Marshal(id)
	if err != nil {
		t.Fatal(err)
	}
	if data[0] != '"' {
		t.Fatalf("id must serialize as a string, got %s", data)
	}

	var back ID
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back != id {
		t.Error("JSON round trip mismatch")
	}
}

func TestIDJSONRejectsNumericForm(t *testing.T) {
	var id ID
	if err := json.Unmarshal([]byte("12345"), &id); err == nil {
		t.Error("numeric id must be rejected")
	}
}

func TestZeroID(t *testing.T) {
	var zero ID
	if !zero.IsZero() {
		t.Error("zero value must report IsZero")
	}
	if NewID().IsZero() {
		t.Error("fresh id must not be zero")
	}
	if zero.String() != "0" {
		t.Errorf("zero id renders as 0, got %s", zero.String())
	}
}
