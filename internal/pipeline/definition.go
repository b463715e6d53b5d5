package pipeline

import (
	"errors"
	"fmt"
)

// Definition declares a pipeline: an ordered list of steps whose DependsOn
// edges form an acyclic graph. List order is meaningful: independent steps
// execute in declaration order.
type Definition struct {
	ID          string
	Description string
	Steps       []Step
}

var (
	// ErrCycle marks definitions whose dependency edges form a cycle.
	ErrCycle = errors.New("dependency cycle")
	// ErrUnknownDependency marks edges that reference ids outside the
	// definition.
	ErrUnknownDependency = errors.New("unknown dependency")
)

// Validate rejects malformed definitions before any step body runs:
// duplicate or empty ids, missing bodies, self or unknown dependencies, and
// cyclic graphs.
func (d Definition) Validate() error {
	if len(d.Steps) == 0 {
		return fmt.Errorf("definition %s: no steps", d.ID)
	}
	seen := make(map[string]struct{}, len(d.Steps))
	for i, step := range d.Steps {
		if step.ID == "" {
			return fmt.Errorf("definition %s: step %d has empty id", d.ID, i)
		}
		if _, dup := seen[step.ID]; dup {
			return fmt.Errorf("definition %s: duplicate step id %q", d.ID, step.ID)
		}
		seen[step.ID] = struct{}{}
		if step.Body == nil {
			return fmt.Errorf("definition %s: step %q has no body", d.ID, step.ID)
		}
	}
	for _, step := range d.Steps {
		for _, dep := range step.DependsOn {
			if dep == step.ID {
				return fmt.Errorf("definition %s: step %q depends on itself: %w", d.ID, step.ID, ErrCycle)
			}
			if _, ok := seen[dep]; !ok {
				return fmt.Errorf("definition %s: step %q depends on %q: %w", d.ID, step.ID, dep, ErrUnknownDependency)
			}
		}
	}
	if _, err := topologicalOrder(d.Steps); err != nil {
		return fmt.Errorf("definition %s: %w", d.ID, err)
	}
	return nil
}

// ExecutionOrder resolves the deterministic execution order for a valid
// definition. Dry runs use it to report the plan without invoking any body.
func ExecutionOrder(d Definition) ([]string, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	order, err := topologicalOrder(d.Steps)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(order))
	for i, idx := range order {
		ids[i] = d.Steps[idx].ID
	}
	return ids, nil
}

func (d Definition) stepTotal() int { return len(d.Steps) }
