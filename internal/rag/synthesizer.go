package rag

import (
	"context"
	"fmt"

	"videoqa/internal/contextutil"
	"videoqa/internal/llm"
)

const answerTemplate = `You are a YouTube video assistant with BOTH:
1. A global summary of the entire video
2. Local transcript passages retrieved for the question

Rules:
- If the question asks about specific details, use the transcript context.
- Always consult the summary for extra clarity.
- Never fabricate. Only use the provided material.
- The passages may overlap; ignore repeated text.
- Keep answers clear and clean.

--------------------
GLOBAL SUMMARY:
%s

--------------------
LOCAL CONTEXT:
%s

--------------------
QUESTION:
%s

Your answer:
`

// Synthesizer answers a question from a summary and retrieved context with one generation call.
type Synthesizer struct {
	generator llm.Generator
}

// NewSynthesizer creates a new answer synthesizer.
func NewSynthesizer(generator llm.Generator) *Synthesizer {
	return &Synthesizer{generator: generator}
}

// Prompt builds the grounded answer prompt.
func (s *Synthesizer) Prompt(summary, retrieved, question string) string {
	return fmt.Sprintf(answerTemplate, summary, retrieved, question)
}

// Synthesize returns the model's reply unmodified.
func (s *Synthesizer) Synthesize(ctx context.Context, summary, retrieved, question string) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	prompt := s.Prompt(summary, retrieved, question)
	logger.DebugContext(ctx, "sending answer prompt", "prompt_length", len(prompt))

	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	logger.InfoContext(ctx, "received answer", "answer_length", len(answer))
	return answer, nil
}
