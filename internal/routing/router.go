// Package routing decides whether a question asks for an overview or for a specific detail.
package routing

import (
	"strings"
)

// Route is the outcome of classifying a question.
type Route int

const (
	// Local questions are answered from retrieved passages.
	Local Route = iota
	// Global questions are answered with the cached summary.
	Global
)

func (r Route) String() string {
	switch r {
	case Global:
		return "global"
	case Local:
		return "local"
	default:
		return "unknown"
	}
}

// Classifier routes a question.
type Classifier interface {
	Classify(question string) Route
}

// GlobalKeywords are the phrases that mark a question as an overview request.
// Matching is plain substring containment, so "explain" also covers "explain like".
var GlobalKeywords = []string{
	"summary",
	"summarize",
	"overall",
	"main idea",
	"key points",
	"explain",
	"explain like",
	"overview",
	"gist",
	"in short",
	"high level",
}

// KeywordClassifier routes by substring membership in a fixed keyword set.
type KeywordClassifier struct {
	keywords []string
}

// NewKeywordClassifier creates a classifier. An empty keyword list selects GlobalKeywords.
func NewKeywordClassifier(keywords ...string) *KeywordClassifier {
	if len(keywords) == 0 {
		keywords = GlobalKeywords
	}
	normalized := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = Normalize(k); k != "" {
			normalized = append(normalized, k)
		}
	}
	return &KeywordClassifier{keywords: normalized}
}

// Classify returns Global if the normalized question contains any keyword, Local otherwise.
func (c *KeywordClassifier) Classify(question string) Route {
	q := Normalize(question)
	for _, k := range c.keywords {
		if strings.Contains(q, k) {
			return Global
		}
	}
	return Local
}

var defaultClassifier = NewKeywordClassifier()

// Classify routes question with the default keyword set.
func Classify(question string) Route {
	return defaultClassifier.Classify(question)
}

// Normalize trims and lower-cases a question.
func Normalize(question string) string {
	return strings.ToLower(strings.TrimSpace(question))
}
