package rag

import (
	"strings"
	"unicode/utf8"
)

// SplitterConfig controls how source text is cut into documents.
type SplitterConfig struct {
	// ChunkSize is the target chunk length in characters.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`
	// ChunkOverlap is carried from the end of one chunk into the next.
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`
}

// DefaultSplitterConfig returns the splitter defaults.
func DefaultSplitterConfig() SplitterConfig {
	return SplitterConfig{ChunkSize: 800, ChunkOverlap: 100}
}

// Splitter cuts text on paragraph boundaries first and falls back to a
// sliding character window for paragraphs larger than the chunk size.
type Splitter struct {
	cfg SplitterConfig
}

// NewSplitter creates a splitter, normalizing nonsensical config.
func NewSplitter(cfg SplitterConfig) *Splitter {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultSplitterConfig().ChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 4
	}
	return &Splitter{cfg: cfg}
}

// Split cuts text into documents tagged with the given source. Empty
// and whitespace-only input yields no documents.
func (s *Splitter) Split(text, source string) []Document {
	var out []Document
	var current strings.Builder

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		current.Reset()
		if chunk != "" {
			out = append(out, NewDocument(chunk, source))
		}
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		// Oversized paragraph: flush what we have and window it.
		if utf8.RuneCountInString(para) > s.cfg.ChunkSize {
			flush()
			for _, piece := range s.window(para) {
				out = append(out, NewDocument(piece, source))
			}
			continue
		}

		if current.Len() > 0 && utf8.RuneCountInString(current.String())+utf8.RuneCountInString(para)+2 > s.cfg.ChunkSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return out
}

// window slides a fixed-size cut with overlap across one long paragraph.
func (s *Splitter) window(text string) []string {
	runes := []rune(text)
	step := s.cfg.ChunkSize - s.cfg.ChunkOverlap

	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + s.cfg.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			out = append(out, piece)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
