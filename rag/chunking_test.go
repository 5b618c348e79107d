package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSplitter_ParagraphBoundaries(t *testing.T) {
	s := NewSplitter(SplitterConfig{ChunkSize: 40, ChunkOverlap: 0})

	text := "First paragraph here.\n\nSecond one.\n\nThird paragraph, also short."
	docs := s.Split(text, "notes.md")

	require.NotEmpty(t, docs)
	for _, d := range docs {
		assert.Equal(t, "notes.md", d.Source)
		assert.NotEmpty(t, d.ID)
		assert.NotEmpty(t, strings.TrimSpace(d.Content))
	}
	// Paragraphs one and two fit in one chunk; three does not.
	require.Len(t, docs, 2)
	assert.Equal(t, "First paragraph here.\n\nSecond one.", docs[0].Content)
	assert.Equal(t, "Third paragraph, also short.", docs[1].Content)
}

func TestSplitter_PacksSmallParagraphs(t *testing.T) {
	s := NewSplitter(SplitterConfig{ChunkSize: 200, ChunkOverlap: 0})

	docs := s.Split("alpha.\n\nbeta.\n\ngamma.", "x")
	require.Len(t, docs, 1)
	assert.Equal(t, "alpha.\n\nbeta.\n\ngamma.", docs[0].Content)
}

func TestSplitter_WindowsOversizedParagraph(t *testing.T) {
	s := NewSplitter(SplitterConfig{ChunkSize: 50, ChunkOverlap: 10})

	long := strings.Repeat("abcde ", 30) // 180 chars, no paragraph breaks
	docs := s.Split(long, "big.txt")

	require.Greater(t, len(docs), 1)
	for _, d := range docs {
		assert.LessOrEqual(t, len([]rune(d.Content)), 50)
	}
}

func TestSplitter_EmptyInput(t *testing.T) {
	s := NewSplitter(DefaultSplitterConfig())
	assert.Empty(t, s.Split("", "x"))
	assert.Empty(t, s.Split("   \n\n  \n", "x"))
}

func TestNewSplitter_NormalizesConfig(t *testing.T) {
	s := NewSplitter(SplitterConfig{ChunkSize: -5, ChunkOverlap: -1})
	assert.Equal(t, DefaultSplitterConfig().ChunkSize, s.cfg.ChunkSize)
	assert.Equal(t, 0, s.cfg.ChunkOverlap)

	// Overlap must stay below chunk size or the window never advances.
	s = NewSplitter(SplitterConfig{ChunkSize: 100, ChunkOverlap: 100})
	assert.Less(t, s.cfg.ChunkOverlap, s.cfg.ChunkSize)
}

// No chunk may exceed the configured size, and no input text outside
// whitespace may be lost entirely.
func TestSplitter_SizeProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		size := rapid.IntRange(10, 200).Draw(rt, "size")
		overlap := rapid.IntRange(0, 9).Draw(rt, "overlap")
		// Go's regexp engine caps repeat counts at 1000, so build the
		// 0-2000 char range from two halves.
		text := rapid.StringMatching(`[a-z \n]{0,1000}[a-z \n]{0,1000}`).Draw(rt, "text")

		s := NewSplitter(SplitterConfig{ChunkSize: size, ChunkOverlap: overlap})
		docs := s.Split(text, "prop")

		for _, d := range docs {
			assert.LessOrEqual(rt, len([]rune(d.Content)), size)
			assert.NotEmpty(rt, strings.TrimSpace(d.Content))
		}
		if strings.TrimSpace(text) != "" {
			assert.NotEmpty(rt, docs)
		}
	})
}
