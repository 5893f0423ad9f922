package document

import (
	"strings"
	"testing"
)

func TestFromYAMLKeepsUnknownKeys(t *testing.T) {
	doc, err := FromYAML([]byte("mode: rule\nsome-future-field:\n  nested: true\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["mode"] != "rule" {
		t.Errorf("mode = %v", doc["mode"])
	}
	if _, found := doc["some-future-field"]; !found {
		t.Error("unknown key dropped")
	}
}

func TestFromYAMLRejectsInvalidInput(t *testing.T) {
	if _, err := FromYAML([]byte("mode: [unclosed")); err == nil {
		t.Fatal("expected error")
	}
}

func TestYAMLUsesTwoSpaceIndent(t *testing.T) {
	doc := Document{
		"proxies": []any{
			map[string]any{"name": "a"},
		},
	}

	data, err := doc.YAML()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(string(data), "    name:") {
		t.Errorf("output uses deep indentation:\n%s", data)
	}
	if !strings.Contains(string(data), "proxies:") {
		t.Errorf("unexpected output:\n%s", data)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	original := Document{
		"mode":  "rule",
		"port":  7890,
		"rules": []any{"MATCH,DIRECT"},
	}

	data, err := original.YAML()
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := FromYAML(data)
	if err != nil {
		t.Fatal(err)
	}

	if parsed["mode"] != "rule" || parsed["port"] != 7890 {
		t.Errorf("round trip lost fields: %#v", parsed)
	}
}
