package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimatorCounter(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantMin int
		wantMax int
	}{
		{"empty", "", 0, 0},
		{"single char rounds up to one", "a", 1, 1},
		{"ascii sentence", "assign this task to the best agent", 7, 10},
		{"cjk text", "分配任务给最合适的代理", 6, 9},
	}

	e := NewEstimatorCounter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := e.CountTokens(tt.text)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, n, tt.wantMin)
			assert.LessOrEqual(t, n, tt.wantMax)
		})
	}
}

func TestEstimatorCounter_ScalesWithLength(t *testing.T) {
	e := NewEstimatorCounter()
	short, err := e.CountTokens("hello world")
	require.NoError(t, err)
	long, err := e.CountTokens(strings.Repeat("hello world ", 50))
	require.NoError(t, err)
	assert.Greater(t, long, short*10)
}

func TestDefault_NeverErrors(t *testing.T) {
	c := Default()
	n, err := c.CountTokens("Which agent should take this task?")
	require.NoError(t, err)
	assert.Greater(t, n, 0)
}
