package routing

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		question string
		want     Route
	}{
		{"Give me a summary", Global},
		{"  SUMMARIZE this video  ", Global},
		{"What is the overall message?", Global},
		{"what's the main idea", Global},
		{"List the key points", Global},
		{"Explain like I'm five", Global},
		{"Can you explain the part about caching?", Global},
		{"quick overview please", Global},
		{"what's the gist", Global},
		{"in short, what happened?", Global},
		{"high level view?", Global},
		{"What did the speaker say about pricing?", Local},
		{"When was the company founded?", Local},
		{"", Local},
		{"   ", Local},
		// "key point" is not "key points".
		{"what is the key point at minute 3", Local},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			if got := Classify(tt.question); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.question, got, tt.want)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	for _, q := range []string{"summary please", "what about pricing", "Overview"} {
		first := Classify(q)
		for i := 0; i < 10; i++ {
			if got := Classify(q); got != first {
				t.Fatalf("Classify(%q) changed from %s to %s", q, first, got)
			}
		}
	}
}

func TestNewKeywordClassifier_Custom(t *testing.T) {
	c := NewKeywordClassifier("  TL;DR ", "")
	if got := c.Classify("tl;dr?"); got != Global {
		t.Errorf("Classify(tl;dr?) = %s, want global", got)
	}
	if got := c.Classify("give me a summary"); got != Local {
		t.Errorf("custom classifier should not use the default keywords, got %s", got)
	}

	var _ Classifier = c
}

func TestRoute_String(t *testing.T) {
	if Global.String() != "global" || Local.String() != "local" || Route(7).String() != "unknown" {
		t.Errorf("Route.String() = %q, %q, %q", Global, Local, Route(7))
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  Hello World \n"); got != "hello world" {
		t.Errorf("Normalize() = %q", got)
	}
}
