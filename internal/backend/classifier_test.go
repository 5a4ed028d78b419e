package backend

import (
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Category
	}{
		// Creative
		{"creative-poem", "Write me a poem about the warp core", CategoryCreative},
		{"creative-story", "Tell me a story about a Ferengi trader", CategoryCreative},
		{"creative-over-technical", "Imagine a database that never loses data", CategoryCreative},

		// Technical
		{"technical-db", "The database query latency doubled after the last deploy", CategoryTechnical},
		{"technical-engine", "Which engine configuration is faster?", CategoryTechnical},
		{"technical-phrase", "We have a memory leak somewhere in the replicator", CategoryTechnical},

		// Strategic
		{"strategic-should-we", "Should we enter the neutral zone?", CategoryStrategic},
		{"strategic-roadmap", "Draft a roadmap for the next quarter", CategoryStrategic},

		// Factual
		{"factual-prefix", "What is the capital of Bajor?", CategoryFactual},
		{"factual-which", "Which planet has the largest population?", CategoryFactual},
		{"factual-keyword", "Tell me the distance to Risa", CategoryFactual},

		// Conversational fallback
		{"conversational-hello", "Hello there, how was your shift?", CategoryConversational},
		{"conversational-empty", "", CategoryConversational},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.input); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestClassify_WholeWordsOnly(t *testing.T) {
	// "capital" contains "api" and "rapid" contains "api" too
	if got := Classify("Name the capital and a rapid route there"); got == CategoryTechnical {
		t.Errorf("substring match leaked: got %q", got)
	}
}

func TestSplitBackendID(t *testing.T) {
	tests := []struct {
		id, prefix, name string
	}{
		{"openai:gpt-4o", "openai", "gpt-4o"},
		{"scripted:captain_picard", "scripted", "captain_picard"},
		{"codec:engineering:v2", "codec", "engineering:v2"},
		{"openai", "openai", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		p, n := SplitBackendID(tt.id)
		if p != tt.prefix || n != tt.name {
			t.Errorf("SplitBackendID(%q) = (%q, %q), want (%q, %q)", tt.id, p, n, tt.prefix, tt.name)
		}
	}
}
