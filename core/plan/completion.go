package plan

// Completion rules:
//   - a milestone is completed iff it has steps and all of them are done;
//   - a plan is done iff it has milestones and all of them are completed;
//   - un-completing a milestone resets every milestone numbered after it.
//
// SetMilestoneStatus and SetStepStatus never mutate their input.

// SetMilestoneStatus marks every step of milestone n as done (or not done).
// When completed is false, every later milestone is reset too.
func SetMilestoneStatus(p Plan, n int, completed bool) (Plan, error) {
	idx := p.milestoneIndex(n)
	if idx < 0 {
		return p, ErrMilestoneNotFound
	}

	next := p.Clone()
	setAllSteps(&next.Milestones[idx], completed)
	if !completed {
		for i := range next.Milestones {
			if next.Milestones[i].MilestoneNumber > n {
				setAllSteps(&next.Milestones[i], false)
			}
		}
	}
	next.IsProjectDone = isPlanDone(next.Milestones)
	return next, nil
}

// SetStepStatus marks step s of milestone m as done (or not done).
// Other milestones are left untouched.
func SetStepStatus(p Plan, m, s int, done bool) (Plan, error) {
	mIdx := p.milestoneIndex(m)
	if mIdx < 0 {
		return p, ErrMilestoneNotFound
	}
	sIdx := p.Milestones[mIdx].stepIndex(s)
	if sIdx < 0 {
		return p, ErrStepNotFound
	}

	next := p.Clone()
	milestone := &next.Milestones[mIdx]
	milestone.Steps[sIdx].IsDone = done
	milestone.IsCompleted = isMilestoneCompleted(milestone.Steps)
	next.IsProjectDone = isPlanDone(next.Milestones)
	return next, nil
}

// Reset clears every completion flag of p.
func Reset(p Plan) Plan {
	next := p.Clone()
	for i := range next.Milestones {
		setAllSteps(&next.Milestones[i], false)
	}
	next.IsProjectDone = false
	return next
}

func (p Plan) milestoneIndex(n int) int {
	for i, m := range p.Milestones {
		if m.MilestoneNumber == n {
			return i
		}
	}
	return -1
}

func (m Milestone) stepIndex(n int) int {
	for i, s := range m.Steps {
		if s.StepNumber == n {
			return i
		}
	}
	return -1
}

func setAllSteps(m *Milestone, done bool) {
	for i := range m.Steps {
		m.Steps[i].IsDone = done
	}
	m.IsCompleted = isMilestoneCompleted(m.Steps)
}

func isMilestoneCompleted(steps []Step) bool {
	if len(steps) == 0 {
		return false
	}
	for _, s := range steps {
		if !s.IsDone {
			return false
		}
	}
	return true
}

func isPlanDone(milestones []Milestone) bool {
	if len(milestones) == 0 {
		return false
	}
	for _, m := range milestones {
		if !m.IsCompleted {
			return false
		}
	}
	return true
}
