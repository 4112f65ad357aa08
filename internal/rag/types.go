package rag

import "videoqa/internal/domain"

// AskRequest represents a question about one processed video.
type AskRequest struct {
	// VideoID identifies the video whose index and summary answer the question.
	VideoID string `json:"video_id"`
	// Question is the user's question to answer.
	Question string `json:"question"`
}

// Reference represents a passage that was used in the answer.
type Reference struct {
	// Ordinal is the passage position within the transcript.
	Ordinal int `json:"ordinal"`
	// Score is the cosine similarity between the question and the passage.
	Score float32 `json:"score"`
	// Text is the passage text.
	Text string `json:"text"`
}

// AskResponse represents the answer to a question.
type AskResponse struct {
	// Answer is the cached summary for overview questions, or the generated answer otherwise.
	Answer string `json:"answer"`
	// Mode reports which strategy produced the answer.
	Mode domain.Mode `json:"mode"`
	// References are the passages given to the model, in rank order. Empty in summary mode.
	References []Reference `json:"references"`
}
