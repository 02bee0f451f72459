package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGoalProgress(t *testing.T) {
	steps := func(n int) []Step {
		out := make([]Step, n)
		for i := range out {
			out[i] = Step{ID: i + 1, Title: "step"}
		}
		return out
	}

	tests := []struct {
		name string
		goal Goal
		want int
	}{
		{name: "no steps", goal: Goal{}, want: 0},
		{name: "half done", goal: Goal{Steps: steps(4), CompletedSteps: []int{1, 3}}, want: 50},
		{name: "none done", goal: Goal{Steps: steps(3)}, want: 0},
		{name: "all done", goal: Goal{Steps: steps(3), CompletedSteps: []int{1, 2, 3}}, want: 100},
		{name: "rounds down", goal: Goal{Steps: steps(3), CompletedSteps: []int{2}}, want: 33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.goal.Progress())
		})
	}
}

func TestGoalStepHelpers(t *testing.T) {
	g := Goal{Steps: []Step{{ID: 1}, {ID: 4}}, CompletedSteps: []int{4}}

	assert.True(t, g.HasStep(4))
	assert.False(t, g.HasStep(2))
	assert.True(t, g.IsStepCompleted(4))
	assert.False(t, g.IsStepCompleted(1))
	assert.Equal(t, 5, g.NextStepID())
	assert.Equal(t, 1, Goal{}.NextStepID())
	assert.False(t, g.IsComplete())
	assert.False(t, Goal{}.IsComplete())
}

func TestNewOfflineOperationEncodesPayload(t *testing.T) {
	op, err := NewOfflineOperation(OpToggleStep, map[string]int{"goalId": 3, "stepId": 2}, fixedTime)
	assert.NoError(t, err)
	assert.Equal(t, OpToggleStep, op.Type)
	assert.JSONEq(t, `{"goalId":3,"stepId":2}`, string(op.Payload))
	assert.Zero(t, op.RetryCount)
	assert.NotEqual(t, [16]byte{}, [16]byte(op.ID))
}

var fixedTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
