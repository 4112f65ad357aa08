package indexer

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"videoqa/internal/domain"
)

func TestNewChunker(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{name: "defaults", size: DefaultChunkSize, overlap: DefaultChunkOverlap},
		{name: "no overlap", size: 10, overlap: 0},
		{name: "zero size", size: 0, overlap: 0, wantErr: true},
		{name: "negative size", size: -5, overlap: 0, wantErr: true},
		{name: "negative overlap", size: 10, overlap: -1, wantErr: true},
		{name: "overlap equals size", size: 10, overlap: 10, wantErr: true},
		{name: "overlap exceeds size", size: 10, overlap: 12, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewChunker(tt.size, tt.overlap)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewChunker() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidChunkParams) {
					t.Errorf("NewChunker() error = %v, want ErrInvalidChunkParams", err)
				}
				return
			}
			if c.Size() != tt.size || c.Overlap() != tt.overlap {
				t.Errorf("NewChunker() = (%d, %d), want (%d, %d)", c.Size(), c.Overlap(), tt.size, tt.overlap)
			}
		})
	}
}

func TestChunker_CatsAndDogs(t *testing.T) {
	const text = "A short video about cats and dogs. Cats are independent. Dogs are loyal."

	c, err := NewChunker(30, 5)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}

	passages, err := c.Chunk("vid", text)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(passages) < 2 {
		t.Fatalf("Chunk() returned %d passages, want at least 2", len(passages))
	}

	assertCovers(t, passages, text, 30, 5)
}

func TestChunker_ShortText(t *testing.T) {
	c, err := NewChunker(250, 40)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}

	for _, text := range []string{"hi", strings.Repeat("x", 250)} {
		passages, err := c.Chunk("vid", text)
		if err != nil {
			t.Fatalf("Chunk() error = %v", err)
		}
		if len(passages) != 1 {
			t.Fatalf("Chunk(%d runes) returned %d passages, want 1", len(text), len(passages))
		}
		if passages[0].Text != text || passages[0].Ordinal != 0 || passages[0].VideoID != "vid" {
			t.Errorf("Chunk() = %+v, want whole text as passage 0", passages[0])
		}
	}
}

func TestChunker_ExactWindows(t *testing.T) {
	c, err := NewChunker(4, 1)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}

	passages, err := c.Chunk("v", "abcdefghij")
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}

	want := []string{"abcd", "defg", "ghij"}
	if len(passages) != len(want) {
		t.Fatalf("Chunk() returned %d passages, want %d", len(passages), len(want))
	}
	for i, w := range want {
		if passages[i].Text != w {
			t.Errorf("passage %d = %q, want %q", i, passages[i].Text, w)
		}
		if passages[i].Ordinal != i {
			t.Errorf("passage %d ordinal = %d", i, passages[i].Ordinal)
		}
	}
}

func TestChunker_Idempotent(t *testing.T) {
	text := strings.Repeat("The speaker talks about loyalty and trust. ", 40)

	c, err := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}

	first, err := c.Chunk("v", text)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	second, err := c.Chunk("v", text)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("repeated Chunk() lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("passage %d differs between runs", i)
		}
	}

	assertCovers(t, first, text, DefaultChunkSize, DefaultChunkOverlap)
}

func TestChunker_MultiByte(t *testing.T) {
	text := strings.Repeat("猫と犬。", 20)

	c, err := NewChunker(7, 3)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}

	passages, err := c.Chunk("v", text)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	for i, p := range passages {
		if !utf8.ValidString(p.Text) {
			t.Errorf("passage %d is not valid UTF-8", i)
		}
	}
	assertCovers(t, passages, text, 7, 3)
}

func TestChunker_EmptyText(t *testing.T) {
	c, err := NewChunker(10, 2)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}

	for _, text := range []string{"", "   \n\t"} {
		if _, err := c.Chunk("v", text); !errors.Is(err, ErrEmptyText) {
			t.Errorf("Chunk(%q) error = %v, want ErrEmptyText", text, err)
		}
	}
}

// assertCovers checks the window invariants: no empty passage, full-size passages
// except the last, exact overlap between neighbours, and reconstruction of the text.
func assertCovers(t *testing.T, passages []domain.Passage, text string, size, overlap int) {
	t.Helper()

	var rebuilt []rune
	for i, p := range passages {
		runes := []rune(p.Text)
		if len(runes) == 0 {
			t.Fatalf("passage %d is empty", i)
		}
		if i < len(passages)-1 && len(runes) != size {
			t.Errorf("passage %d has %d runes, want %d", i, len(runes), size)
		}
		if len(runes) > size {
			t.Errorf("passage %d has %d runes, more than %d", i, len(runes), size)
		}

		if i == 0 {
			rebuilt = append(rebuilt, runes...)
			continue
		}

		prev := []rune(passages[i-1].Text)
		if string(prev[len(prev)-overlap:]) != string(runes[:overlap]) {
			t.Errorf("passages %d and %d do not overlap by %d runes", i-1, i, overlap)
		}
		rebuilt = append(rebuilt, runes[overlap:]...)
	}

	if string(rebuilt) != text {
		t.Errorf("passages do not reconstruct the text:\n got %q\nwant %q", string(rebuilt), text)
	}
}
