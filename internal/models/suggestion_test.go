package models

import (
	"testing"
)

func TestParseSuggestionType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  SuggestionType
	}{
		{"exact", "smart_home", SuggestionTypeSmartHome},
		{"spaced title case", "Smart Home", SuggestionTypeSmartHome},
		{"hyphenated", "social-support", SuggestionTypeSocialSupport},
		{"upper", "EMERGENCY", SuggestionTypeEmergency},
		{"padded", "  therapeutic ", SuggestionTypeTherapeutic},
		{"unknown falls back", "gardening", SuggestionTypeWellness},
		{"empty falls back", "", SuggestionTypeWellness},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ParseSuggestionType(tt.input); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPriority_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value Priority
		valid bool
	}{
		{PriorityLow, true},
		{PriorityMedium, true},
		{PriorityHigh, true},
		{PriorityUrgent, true},
		{Priority("URGENT"), false},
		{Priority("critical"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.value), func(t *testing.T) {
			t.Parallel()
			if got := tt.value.Valid(); got != tt.valid {
				t.Errorf("Expected Valid()=%v for %q, got %v", tt.valid, tt.value, got)
			}
		})
	}
}

func TestParsePriority(t *testing.T) {
	t.Parallel()

	if got := ParsePriority(" URGENT "); got != PriorityUrgent {
		t.Errorf("Expected urgent, got %q", got)
	}
	if got := ParsePriority("Critical"); got != Priority("critical") {
		t.Errorf("Expected unknown priority to be preserved lowercased, got %q", got)
	}
}

func TestSuggestionState(t *testing.T) {
	t.Parallel()

	if SuggestionStateActive.Terminal() {
		t.Error("Expected active to be non-terminal")
	}
	if !SuggestionStateDismissed.Terminal() || !SuggestionStateExecuted.Terminal() {
		t.Error("Expected dismissed and executed to be terminal")
	}

	var nilSuggestion *AutomationSuggestion
	if nilSuggestion.IsActive() {
		t.Error("Expected nil suggestion to be inactive")
	}
	s := &AutomationSuggestion{State: SuggestionStateActive}
	if !s.IsActive() {
		t.Error("Expected active suggestion to report IsActive")
	}
	s.State = SuggestionStateExecuted
	if s.IsActive() {
		t.Error("Expected executed suggestion to be inactive")
	}
}

func TestParseCollection(t *testing.T) {
	t.Parallel()

	if c, ok := ParseCollection("suggestions"); !ok || c != CollectionSuggestions {
		t.Errorf("Expected suggestions collection, got %q (ok=%v)", c, ok)
	}
	if _, ok := ParseCollection("widgets"); ok {
		t.Error("Expected unknown collection to be rejected")
	}
}
