package crew

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crewkit/crewkit/assign"
	"github.com/crewkit/crewkit/types"
)

// TaskResult is the outcome of one task within a run.
type TaskResult struct {
	Assignment types.Assignment `json:"assignment"`
	Output     string           `json:"output,omitempty"`
	Error      string           `json:"error,omitempty"`
	Duration   time.Duration    `json:"duration"`
}

// Failed reports whether the task ended in an error.
func (r TaskResult) Failed() bool { return r.Error != "" }

// RunResult is the outcome of one crew run. Results are in task order.
type RunResult struct {
	RunID     string        `json:"run_id"`
	Crew      string        `json:"crew"`
	Results   []TaskResult  `json:"results"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Failures counts tasks that ended in an error.
func (r *RunResult) Failures() int {
	n := 0
	for _, res := range r.Results {
		if res.Failed() {
			n++
		}
	}
	return n
}

// Config configures a crew. Everything the crew needs comes in here;
// there is no package-level state.
type Config struct {
	// Name labels the crew in logs and run records.
	Name string
}

// Crew executes tasks sequentially: each task is resolved to an agent
// and run to completion before the next one starts. A failing task is
// recorded and the run continues.
type Crew struct {
	cfg      Config
	resolver *assign.Resolver
	runner   AgentRunner
	logger   *zap.Logger

	mu    sync.Mutex
	tasks []types.TaskSpec
}

// New creates a crew over a resolver and runner.
func New(cfg Config, resolver *assign.Resolver, runner AgentRunner, logger *zap.Logger) (*Crew, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if cfg.Name == "" {
		cfg.Name = "crew"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crew{
		cfg:      cfg,
		resolver: resolver,
		runner:   runner,
		logger:   logger.With(zap.String("component", "crew"), zap.String("crew", cfg.Name)),
	}, nil
}

// AddTask appends a task to the run list.
func (c *Crew) AddTask(task types.TaskSpec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = append(c.tasks, task)
}

// AddTasks appends tasks in order.
func (c *Crew) AddTasks(tasks ...types.TaskSpec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = append(c.tasks, tasks...)
}

// Tasks returns the pending task list. The slice is a copy.
func (c *Crew) Tasks() []types.TaskSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.TaskSpec, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// Run executes every task in order. It returns an error only when the
// context is cancelled; per-task failures are recorded in the result.
func (c *Crew) Run(ctx context.Context) (*RunResult, error) {
	tasks := c.Tasks()
	start := time.Now()
	result := &RunResult{
		RunID:     uuid.NewString(),
		Crew:      c.cfg.Name,
		Results:   make([]TaskResult, 0, len(tasks)),
		StartedAt: start,
	}

	c.logger.Info("run started",
		zap.String("run_id", result.RunID),
		zap.Int("tasks", len(tasks)))

	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}
		result.Results = append(result.Results, c.runTask(ctx, task))
	}

	result.Duration = time.Since(start)
	c.logger.Info("run completed",
		zap.String("run_id", result.RunID),
		zap.Int("tasks", len(result.Results)),
		zap.Int("failures", result.Failures()),
		zap.Duration("duration", result.Duration))
	return result, nil
}

func (c *Crew) runTask(ctx context.Context, task types.TaskSpec) TaskResult {
	taskStart := time.Now()

	assignment, err := c.resolver.Resolve(ctx, task)
	if err != nil {
		c.logger.Warn("task resolution failed",
			zap.String("task", task.ID),
			zap.Error(err))
		return TaskResult{
			Assignment: types.Assignment{Task: task.Normalize()},
			Error:      err.Error(),
			Duration:   time.Since(taskStart),
		}
	}

	output, err := c.runner.Execute(ctx, assignment)
	res := TaskResult{
		Assignment: assignment,
		Output:     output,
		Duration:   time.Since(taskStart),
	}
	if err != nil {
		res.Error = err.Error()
		c.logger.Warn("task execution failed",
			zap.String("task", assignment.Task.ID),
			zap.String("agent", assignment.Agent.Name),
			zap.Error(err))
	}
	return res
}
