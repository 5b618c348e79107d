package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crewkit/crewkit/crew"
	"github.com/crewkit/crewkit/types"
)

func openTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := Open(Config{Path: ":memory:"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func sampleRun(runID string) *crew.RunResult {
	return &crew.RunResult{
		RunID:     runID,
		Crew:      "bootcamp",
		StartedAt: time.Now().Add(-time.Minute),
		Duration:  time.Minute,
		Results: []crew.TaskResult{
			{
				Assignment: types.Assignment{
					Task:    types.TaskSpec{ID: "t-1", Description: "plan the sprint", Type: "plan", Complexity: 2},
					Agent:   types.AgentSpec{Name: "Planner", Goal: "plan"},
					Matcher: "llm",
				},
				Output:   "1. do things",
				Duration: 30 * time.Second,
			},
			{
				Assignment: types.Assignment{
					Task:     types.TaskSpec{ID: "t-2", Description: "fix the login bug", Type: "code", Complexity: 3},
					Agent:    types.AgentSpec{Name: "Coder", Goal: "code"},
					Matcher:  "llm",
					FellBack: true,
				},
				Error:    "model exploded",
				Duration: 5 * time.Second,
			},
		},
	}
}

func TestHistory_SaveAndListRuns(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()

	require.NoError(t, h.SaveRun(ctx, sampleRun("run-1")))

	runs, err := h.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.Equal(t, "bootcamp", runs[0].Crew)
	assert.Equal(t, 2, runs[0].Tasks)
	assert.Equal(t, 1, runs[0].Failures)
}

func TestHistory_Assignments(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()

	require.NoError(t, h.SaveRun(ctx, sampleRun("run-1")))

	records, err := h.Assignments(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "t-1", records[0].TaskID)
	assert.Equal(t, "Planner", records[0].Agent)
	assert.False(t, records[0].FellBack)
	assert.False(t, records[0].Failed)

	assert.Equal(t, "t-2", records[1].TaskID)
	assert.Equal(t, "Coder", records[1].Agent)
	assert.True(t, records[1].FellBack)
	assert.True(t, records[1].Failed)
	assert.Equal(t, "model exploded", records[1].Error)
}

func TestHistory_Assignments_UnknownRun(t *testing.T) {
	h := openTestHistory(t)

	records, err := h.Assignments(context.Background(), "no-such-run")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHistory_RunsNewestFirst(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()

	older := sampleRun("run-old")
	older.StartedAt = time.Now().Add(-2 * time.Hour)
	newer := sampleRun("run-new")
	newer.StartedAt = time.Now()

	require.NoError(t, h.SaveRun(ctx, older))
	require.NoError(t, h.SaveRun(ctx, newer))

	runs, err := h.Runs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-new", runs[0].RunID)
}

func TestHistory_DuplicateRunIDRejected(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()

	require.NoError(t, h.SaveRun(ctx, sampleRun("run-1")))
	err := h.SaveRun(ctx, sampleRun("run-1"))
	require.Error(t, err)

	// The failed transaction must not leave partial assignment rows.
	records, lerr := h.Assignments(ctx, "run-1")
	require.NoError(t, lerr)
	assert.Len(t, records, 2)
}

func TestHistory_AgentLoad(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()

	require.NoError(t, h.SaveRun(ctx, sampleRun("run-1")))
	require.NoError(t, h.SaveRun(ctx, sampleRun("run-2")))

	load, err := h.AgentLoad(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Planner": 2, "Coder": 2}, load)
}

func TestHistory_SaveRun_Empty(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()

	require.NoError(t, h.SaveRun(ctx, &crew.RunResult{RunID: "empty", Crew: "bootcamp", StartedAt: time.Now()}))

	runs, err := h.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Zero(t, runs[0].Tasks)
}
