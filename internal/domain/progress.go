package domain

import "time"

// ProgressState is the visible state of a processing station.
type ProgressState string

const (
	ProgressIdle       ProgressState = "idle"
	ProgressProcessing ProgressState = "processing"
	ProgressDone       ProgressState = "done"
	ProgressSpoiled    ProgressState = "spoiled"
)

// Stage is one timed step of a ProgressMachine. State is reported while the
// stage's timer runs.
type Stage struct {
	State   ProgressState
	Recipes []TimedRecipe
}

// Completion is produced when a stage timer expires: the held prop of kind
// Input must be replaced by a prop of kind Output.
type Completion struct {
	Input  ItemKind
	Output ItemKind
	Next   ProgressState
}

// ProgressMachine is the timed station machine. A stove is two stages,
// frying (processing) then burning (done), ending in spoiled.
type ProgressMachine struct {
	stages  []Stage
	final   ProgressState
	stage   int
	state   ProgressState
	recipe  *TimedRecipe
	elapsed time.Duration
}

// NewProgressMachine builds a machine that enters final once its last stage completes.
func NewProgressMachine(final ProgressState, stages ...Stage) *ProgressMachine {
	return &ProgressMachine{stages: stages, final: final, state: ProgressIdle}
}

// Attach resolves the first-stage recipe for kind. Kinds without a recipe
// are accepted and leave the machine idle.
func (m *ProgressMachine) Attach(kind ItemKind) {
	m.reset()
	if len(m.stages) == 0 {
		return
	}
	r, ok := findTimed(m.stages[0].Recipes, kind)
	if !ok {
		return
	}
	m.recipe = &r
	m.state = m.stages[0].State
}

// Detach returns the machine to idle.
func (m *ProgressMachine) Detach() {
	m.reset()
}

func (m *ProgressMachine) reset() {
	m.stage = 0
	m.state = ProgressIdle
	m.recipe = nil
	m.elapsed = 0
}

// Running reports whether a timer is advancing.
func (m *ProgressMachine) Running() bool {
	return m.recipe != nil
}

// State returns the current state.
func (m *ProgressMachine) State() ProgressState {
	return m.state
}

// Elapsed returns time spent in the current stage.
func (m *ProgressMachine) Elapsed() time.Duration {
	return m.elapsed
}

// Progress returns elapsed/maxDuration, or 0 when no timer runs.
func (m *ProgressMachine) Progress() float64 {
	if m.recipe == nil || m.recipe.Duration <= 0 {
		return 0
	}
	p := float64(m.elapsed) / float64(m.recipe.Duration)
	if p > 1 {
		return 1
	}
	return p
}

// Advance adds dt to the running timer. When the timer reaches the recipe
// duration the stage completes and the machine chains into the next stage
// whose table has a recipe for the produced kind.
func (m *ProgressMachine) Advance(dt time.Duration) (Completion, bool) {
	if m.recipe == nil {
		return Completion{}, false
	}
	m.elapsed += dt
	if m.elapsed < m.recipe.Duration {
		return Completion{}, false
	}

	done := *m.recipe
	m.elapsed = 0
	m.recipe = nil

	next := m.stage + 1
	switch {
	case next >= len(m.stages):
		m.state = m.final
	default:
		if r, ok := findTimed(m.stages[next].Recipes, done.Output); ok {
			m.stage = next
			m.recipe = &r
			m.state = m.stages[next].State
		} else {
			m.state = ProgressDone
		}
	}
	return Completion{Input: done.Input, Output: done.Output, Next: m.state}, true
}

// StepMachine is the discrete-step station machine used by cutting boards.
type StepMachine struct {
	recipes []StepRecipe
	recipe  *StepRecipe
	steps   int
}

// NewStepMachine builds a step machine over recipes.
func NewStepMachine(recipes []StepRecipe) *StepMachine {
	return &StepMachine{recipes: recipes}
}

// Attach resolves the recipe for kind and zeroes the step counter.
func (m *StepMachine) Attach(kind ItemKind) {
	m.steps = 0
	m.recipe = nil
	if r, ok := findStep(m.recipes, kind); ok {
		m.recipe = &r
	}
}

// Detach zeroes the machine.
func (m *StepMachine) Detach() {
	m.steps = 0
	m.recipe = nil
}

// Step records one alternate interaction. ok is false when no recipe applies;
// done is true when the step count is reached, after which the machine is idle.
func (m *StepMachine) Step() (r StepRecipe, done, ok bool) {
	if m.recipe == nil {
		return StepRecipe{}, false, false
	}
	m.steps++
	r = *m.recipe
	if m.steps >= r.Steps {
		m.Detach()
		return r, true, true
	}
	return r, false, true
}

// State reports processing once at least one step was taken.
func (m *StepMachine) State() ProgressState {
	if m.recipe != nil && m.steps > 0 {
		return ProgressProcessing
	}
	return ProgressIdle
}

// Steps returns the steps taken on the current recipe.
func (m *StepMachine) Steps() int {
	return m.steps
}

// Progress returns steps/required, or 0 when no recipe applies.
func (m *StepMachine) Progress() float64 {
	if m.recipe == nil || m.recipe.Steps <= 0 {
		return 0
	}
	return float64(m.steps) / float64(m.recipe.Steps)
}
