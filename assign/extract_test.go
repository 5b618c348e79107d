package assign

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain answer",
			raw:  "Planner",
			want: "Planner",
		},
		{
			name: "surrounding whitespace",
			raw:  "\n  Coder \t\n",
			want: "Coder",
		},
		{
			name: "reasoning trace stripped",
			raw:  "Let me think about who fits best here...</think>\nPlanner",
			want: "Planner",
		},
		{
			name: "only text after last trace delimiter kept",
			raw:  "step one</think>step two</think>Reviewer",
			want: "Reviewer",
		},
		{
			name: "quoted answer",
			raw:  "\"Coder\"",
			want: "Coder",
		},
		{
			name: "markdown emphasis",
			raw:  "**Reviewer**",
			want: "Reviewer",
		},
		{
			name: "trailing period",
			raw:  "Planner.",
			want: "Planner",
		},
		{
			name: "explanation on following lines dropped",
			raw:  "Coder\nBecause the task involves writing code.",
			want: "Coder",
		},
		{
			name: "blank lines before answer skipped",
			raw:  "</think>\n\n\nPlanner\n",
			want: "Planner",
		},
		{
			name: "empty input",
			raw:  "",
			want: "",
		},
		{
			name: "whitespace only",
			raw:  "   \n\t  ",
			want: "",
		},
		{
			name: "trace delimiter with nothing after it",
			raw:  "all reasoning no answer</think>",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractName(tt.raw))
		})
	}
}
