package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPlan builds a plan of milestones numbered 1..len(stepsPerMilestone), all in the given state.
func newPlan(done bool, stepsPerMilestone ...int) Plan {
	p := Plan{Title: "Todo app"}
	for i, n := range stepsPerMilestone {
		m := Milestone{MilestoneNumber: i + 1, Title: "M"}
		for j := 0; j < n; j++ {
			m.Steps = append(m.Steps, Step{StepNumber: j + 1, Description: "do it", IsDone: done})
		}
		m.IsCompleted = isMilestoneCompleted(m.Steps)
		p.Milestones = append(p.Milestones, m)
	}
	p.IsProjectDone = isPlanDone(p.Milestones)
	return p
}

func milestoneStates(p Plan) []bool {
	states := make([]bool, 0, len(p.Milestones))
	for _, m := range p.Milestones {
		states = append(states, m.IsCompleted)
	}
	return states
}

// assertConsistent checks that completion flags agree with the step flags.
func assertConsistent(t *testing.T, p Plan) {
	t.Helper()
	for _, m := range p.Milestones {
		assert.Equal(t, isMilestoneCompleted(m.Steps), m.IsCompleted, "milestone %d", m.MilestoneNumber)
	}
	assert.Equal(t, isPlanDone(p.Milestones), p.IsProjectDone)
}

func TestSetMilestoneStatus(t *testing.T) {
	tests := []struct {
		name       string
		plan       Plan
		milestone  int
		completed  bool
		wantStates []bool
		wantDone   bool
		wantErr    error
	}{
		{
			name:       "complete the only milestone",
			plan:       newPlan(false, 2),
			milestone:  1,
			completed:  true,
			wantStates: []bool{true},
			wantDone:   true,
		},
		{
			name:       "uncomplete cascades to later milestones",
			plan:       newPlan(true, 2, 2, 2),
			milestone:  2,
			completed:  false,
			wantStates: []bool{true, false, false},
		},
		{
			name:       "complete does not cascade",
			plan:       newPlan(false, 1, 1, 1),
			milestone:  2,
			completed:  true,
			wantStates: []bool{false, true, false},
		},
		{
			name:       "uncomplete the last milestone",
			plan:       newPlan(true, 1, 1),
			milestone:  2,
			completed:  false,
			wantStates: []bool{true, false},
		},
		{
			name:       "milestone without steps stays incomplete",
			plan:       newPlan(false, 0),
			milestone:  1,
			completed:  true,
			wantStates: []bool{false},
		},
		{
			name:      "unknown milestone",
			plan:      newPlan(false, 1),
			milestone: 7,
			completed: true,
			wantErr:   ErrMilestoneNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.plan.Clone()
			got, err := SetMilestoneStatus(tt.plan, tt.milestone, tt.completed)
			assert.Equal(t, before, tt.plan, "input plan must not be mutated")
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				assert.Equal(t, before, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStates, milestoneStates(got))
			assert.Equal(t, tt.wantDone, got.IsProjectDone)
			assertConsistent(t, got)

			for _, m := range got.Milestones {
				if m.MilestoneNumber == tt.milestone && len(m.Steps) > 0 {
					for _, s := range m.Steps {
						assert.Equal(t, tt.completed, s.IsDone)
					}
				}
				if !tt.completed && m.MilestoneNumber > tt.milestone {
					for _, s := range m.Steps {
						assert.False(t, s.IsDone)
					}
				}
			}

			again, err := SetMilestoneStatus(got, tt.milestone, tt.completed)
			require.NoError(t, err)
			assert.Equal(t, got, again, "must be idempotent")
		})
	}
}

func TestSetStepStatus(t *testing.T) {
	tests := []struct {
		name       string
		plan       Plan
		milestone  int
		step       int
		done       bool
		wantStates []bool
		wantDone   bool
		wantErr    error
	}{
		{
			name:       "undo a step does not cascade",
			plan:       newPlan(true, 2, 2),
			milestone:  1,
			step:       1,
			done:       false,
			wantStates: []bool{false, true},
		},
		{
			name:       "last step completes milestone and plan",
			plan:       func() Plan { p := newPlan(true, 2); p, _ = SetStepStatus(p, 1, 2, false); return p }(),
			milestone:  1,
			step:       2,
			done:       true,
			wantStates: []bool{true},
			wantDone:   true,
		},
		{
			name:       "one step of many",
			plan:       newPlan(false, 3),
			milestone:  1,
			step:       3,
			done:       true,
			wantStates: []bool{false},
		},
		{name: "unknown milestone", plan: newPlan(false, 1), milestone: 2, step: 1, wantErr: ErrMilestoneNotFound},
		{name: "unknown step", plan: newPlan(false, 1), milestone: 1, step: 5, wantErr: ErrStepNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.plan.Clone()
			got, err := SetStepStatus(tt.plan, tt.milestone, tt.step, tt.done)
			assert.Equal(t, before, tt.plan, "input plan must not be mutated")
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				assert.Equal(t, before, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStates, milestoneStates(got))
			assert.Equal(t, tt.wantDone, got.IsProjectDone)
			assertConsistent(t, got)

			again, err := SetStepStatus(got, tt.milestone, tt.step, tt.done)
			require.NoError(t, err)
			assert.Equal(t, got, again, "must be idempotent")
		})
	}
}

func TestIsPlanDone_noMilestones(t *testing.T) {
	assert.False(t, isPlanDone(nil))
	assert.False(t, Reset(Plan{Title: "empty"}).IsProjectDone)
}

func TestClone(t *testing.T) {
	p := newPlan(false, 2)
	p.TechStack = []string{"Go"}
	c := p.Clone()
	c.TechStack[0] = "Rust"
	c.Milestones[0].Steps[0].IsDone = true
	c.Milestones[0].Title = "changed"

	assert.Equal(t, "Go", p.TechStack[0])
	assert.False(t, p.Milestones[0].Steps[0].IsDone)
	assert.Equal(t, "M", p.Milestones[0].Title)
}
