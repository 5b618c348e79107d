// Package tokenizer provides prompt token counting. Local models do not
// publish tiktoken encodings, so counts are estimates: a tiktoken
// cl100k_base counter when the encoding data is available, a rune-based
// estimator otherwise. The counts feed logs and metrics, never billing.
package tokenizer

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts the tokens a piece of text will occupy.
type Counter interface {
	// CountTokens returns the token count for the given text.
	CountTokens(text string) (int, error)
	// Name returns the counter's identifier.
	Name() string
}

// TiktokenCounter counts with a tiktoken encoding, initialized lazily
// because GetEncoding may download encoding data on first use.
type TiktokenCounter struct {
	encoding string
	enc      *tiktoken.Tiktoken
	once     sync.Once
	initErr  error
}

// NewTiktokenCounter creates a counter for the given encoding.
// Empty encoding defaults to cl100k_base.
func NewTiktokenCounter(encoding string) *TiktokenCounter {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	return &TiktokenCounter{encoding: encoding}
}

func (t *TiktokenCounter) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

func (t *TiktokenCounter) CountTokens(text string) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

func (t *TiktokenCounter) Name() string {
	return fmt.Sprintf("tiktoken[%s]", t.encoding)
}

// EstimatorCounter is a character-count-based estimator distinguishing
// CJK and ASCII characters, more accurate than a naive len/4.
type EstimatorCounter struct{}

// NewEstimatorCounter creates a generic estimator.
func NewEstimatorCounter() *EstimatorCounter { return &EstimatorCounter{} }

func (e *EstimatorCounter) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}

	totalChars := utf8.RuneCountInString(text)
	cjkCount := 0
	for _, r := range text {
		if isCJK(r) {
			cjkCount++
		}
	}

	// CJK characters ~1.5 chars/token, ASCII ~4 chars/token.
	estimated := int(float64(cjkCount)/1.5 + float64(totalChars-cjkCount)/4.0)
	if estimated == 0 {
		estimated = 1
	}
	return estimated, nil
}

func (e *EstimatorCounter) Name() string { return "estimator" }

// Default returns a tiktoken counter when the encoding initializes,
// falling back to the estimator. Safe to call at startup: the tiktoken
// initialization itself stays lazy.
func Default() Counter {
	return &fallbackCounter{
		primary:  NewTiktokenCounter(""),
		fallback: NewEstimatorCounter(),
	}
}

type fallbackCounter struct {
	primary  Counter
	fallback Counter
}

func (f *fallbackCounter) CountTokens(text string) (int, error) {
	n, err := f.primary.CountTokens(text)
	if err != nil {
		return f.fallback.CountTokens(text)
	}
	return n, nil
}

func (f *fallbackCounter) Name() string { return f.primary.Name() }

// isCJK returns true if the rune is a CJK character.
func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || // CJK Unified Ideographs
		(r >= 0x3400 && r <= 0x4DBF) || // CJK Extension A
		(r >= 0x20000 && r <= 0x2A6DF) || // CJK Extension B
		(r >= 0xF900 && r <= 0xFAFF) || // CJK Compatibility Ideographs
		(r >= 0x3000 && r <= 0x303F) || // CJK Symbols and Punctuation
		(r >= 0xFF00 && r <= 0xFFEF) // Halfwidth and Fullwidth Forms
}
