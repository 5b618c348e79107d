package crew

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/crewkit/crewkit/llm"
	"github.com/crewkit/crewkit/types"
)

// AgentRunner executes one assigned task and returns the agent's output.
type AgentRunner interface {
	Execute(ctx context.Context, assignment types.Assignment) (string, error)
}

// LLMRunnerConfig configures the completion-backed runner.
type LLMRunnerConfig struct {
	// Model used when the assigned agent does not name one.
	Model string
	// MaxTokens bounds each task completion. Zero lets the server decide.
	MaxTokens int
	// Temperature for task completions.
	Temperature float32
}

// LLMRunner executes tasks by prompting a completion endpoint in the
// assigned agent's persona.
type LLMRunner struct {
	provider llm.Provider
	cfg      LLMRunnerConfig
	logger   *zap.Logger
}

// NewLLMRunner creates a completion-backed runner.
func NewLLMRunner(provider llm.Provider, cfg LLMRunnerConfig, logger *zap.Logger) *LLMRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMRunner{
		provider: provider,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "llm_runner")),
	}
}

// Execute prompts the model as the assigned agent and returns its text.
func (r *LLMRunner) Execute(ctx context.Context, assignment types.Assignment) (string, error) {
	prompt := buildExecutionPrompt(assignment)
	model := llm.ChooseModel(assignment.Agent.Model, r.cfg.Model, "")

	resp, err := r.provider.Completion(ctx, &llm.CompletionRequest{
		Prompt:      prompt,
		Model:       model,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("execute task %s as %s: %w", assignment.Task.ID, assignment.Agent.Name, err)
	}

	out := strings.TrimSpace(resp.Text())
	r.logger.Debug("task executed",
		zap.String("task", assignment.Task.ID),
		zap.String("agent", assignment.Agent.Name),
		zap.Int("output_len", len(out)))
	return out, nil
}

// buildExecutionPrompt renders the persona prompt for one assignment.
func buildExecutionPrompt(a types.Assignment) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s", a.Agent.Name)
	if a.Agent.Role != "" {
		fmt.Fprintf(&b, ", a %s", a.Agent.Role)
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "Your goal: %s\n", a.Agent.Goal)
	if a.Agent.Backstory != "" {
		fmt.Fprintf(&b, "Background: %s\n", a.Agent.Backstory)
	}

	b.WriteString("\nComplete the following task and reply with the result only.\n")
	fmt.Fprintf(&b, "\nTask: %s\n", a.Task.Description)
	return b.String()
}
