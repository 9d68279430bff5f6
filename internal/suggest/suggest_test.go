package suggest

import "testing"

func TestParseSuggestions(t *testing.T) {
	goals, err := ParseSuggestions([]byte(`["Go stargazing", "Bake bread", ""]`), 5)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(goals) != 2 {
		t.Fatalf("expected empty entries dropped, got %v", goals)
	}
}

func TestParseSuggestionsTrimsToN(t *testing.T) {
	goals, err := ParseSuggestions([]byte(`["a","b","c","d"]`), 2)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(goals) != 2 {
		t.Fatalf("expected 2 goals, got %d", len(goals))
	}
}

func TestParseSuggestionsRejectsGarbage(t *testing.T) {
	if _, err := ParseSuggestions([]byte(`not json`), 5); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
	if _, err := ParseSuggestions([]byte(`[]`), 5); err == nil {
		t.Fatalf("expected error for empty response")
	}
}
