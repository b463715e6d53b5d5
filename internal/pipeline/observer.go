package pipeline

// Observer receives executor transitions. Implementations must be fast;
// the executor calls them synchronously between steps.
type Observer interface {
	// RunStarted fires once after order resolution, before the first step.
	RunStarted(def Definition, order []string)
	// StepStarted fires immediately before a step body is invoked.
	StepStarted(step Step)
	// StepFinished fires after a step reaches a terminal result. downgraded
	// is true when a non-critical failure was accepted as a warning.
	StepFinished(step Step, result Result, downgraded bool)
	// RunFinished fires once with the terminal outcome.
	RunFinished(outcome Outcome)
}

// NopObserver ignores every transition.
type NopObserver struct{}

func (NopObserver) RunStarted(Definition, []string) {}

func (NopObserver) StepStarted(Step) {}

func (NopObserver) StepFinished(Step, Result, bool) {}

func (NopObserver) RunFinished(Outcome) {}
