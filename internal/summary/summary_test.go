package summary

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"videoqa/internal/llm/mocks"
)

func TestHead(t *testing.T) {
	tests := []struct {
		name string
		s    string
		n    int
		want string
	}{
		{"shorter than n", "abc", 5, "abc"},
		{"exact", "abc", 3, "abc"},
		{"truncated", "abcdef", 4, "abcd"},
		{"multi-byte", "héllo wörld", 7, "héllo w"},
		{"zero", "abc", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Head(tt.s, tt.n); got != tt.want {
				t.Errorf("Head(%q, %d) = %q, want %q", tt.s, tt.n, got, tt.want)
			}
		})
	}
}

func TestSummarizer_PromptUsesOnlyHead(t *testing.T) {
	s := NewSummarizer(nil, 10)
	prompt := s.Prompt("0123456789TAIL")

	if !strings.Contains(prompt, "0123456789") {
		t.Error("Prompt() should contain the transcript head")
	}
	if strings.Contains(prompt, "TAIL") {
		t.Error("Prompt() should not contain text beyond maxChars")
	}
	if !strings.Contains(prompt, "10–20 bullet points") {
		t.Error("Prompt() should ask for bullet points")
	}
}

func TestNewSummarizer_DefaultMaxChars(t *testing.T) {
	if s := NewSummarizer(nil, 0); s.maxChars != DefaultMaxChars {
		t.Errorf("maxChars = %d, want %d", s.maxChars, DefaultMaxChars)
	}
}

func TestSummarizer_Summarize(t *testing.T) {
	quota := errors.New("quota exceeded")

	tests := []struct {
		name   string
		reply  string
		err    error
		want   string
		wantIs error
	}{
		{
			name:  "verbatim reply",
			reply: "* cats\n* dogs\n",
			want:  "* cats\n* dogs\n",
		},
		{
			name:   "generator error",
			err:    quota,
			wantIs: quota,
		},
		{
			name:   "blank reply",
			reply:  "  \n ",
			wantIs: ErrEmptySummary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			gen := mocks.NewMockGenerator(ctrl)
			gen.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(tt.reply, tt.err)

			got, err := NewSummarizer(gen, 100).Summarize(context.Background(), "transcript")
			if tt.wantIs != nil {
				if !errors.Is(err, tt.wantIs) {
					t.Errorf("Summarize() error = %v, want %v", err, tt.wantIs)
				}
				return
			}
			if err != nil {
				t.Fatalf("Summarize() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Summarize() = %q, want %q", got, tt.want)
			}
		})
	}
}
