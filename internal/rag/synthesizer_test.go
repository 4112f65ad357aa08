package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	llm_mocks "videoqa/internal/llm/mocks"
)

func TestSynthesizer_Prompt(t *testing.T) {
	s := NewSynthesizer(nil)
	prompt := s.Prompt("the summary", "passage one\n\npassage two", "why?")

	// "the summary" also occurs in the fixed rules, so each part is searched after the previous one.
	order := []string{"GLOBAL SUMMARY:", "the summary", "LOCAL CONTEXT:", "passage one\n\npassage two", "QUESTION:", "why?", "Your answer:"}
	pos := 0
	for _, part := range order {
		i := strings.Index(prompt[pos:], part)
		if i < 0 {
			t.Fatalf("prompt missing %q after offset %d", part, pos)
		}
		pos += i + len(part)
	}

	sections := strings.SplitN(prompt, "GLOBAL SUMMARY:\n", 2)
	if len(sections) != 2 || !strings.HasPrefix(sections[1], "the summary\n") {
		t.Errorf("summary not placed under GLOBAL SUMMARY:\n%s", prompt)
	}
}

func TestSynthesizer_Synthesize(t *testing.T) {
	ctrl := gomock.NewController(t)
	generator := llm_mocks.NewMockGenerator(ctrl)
	s := NewSynthesizer(generator)

	generator.EXPECT().Generate(gomock.Any(), s.Prompt("sum", "ctx", "q")).Return("**raw** answer\n", nil)
	got, err := s.Synthesize(context.Background(), "sum", "ctx", "q")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if got != "**raw** answer\n" {
		t.Errorf("Synthesize() = %q, want unmodified output", got)
	}

	cause := errors.New("timeout")
	generator.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("", cause)
	if _, err := s.Synthesize(context.Background(), "sum", "ctx", "q"); !errors.Is(err, cause) {
		t.Errorf("Synthesize() error = %v, want %v", err, cause)
	}
}
