package pipeline

import "fmt"

// topologicalOrder resolves step execution order with Kahn's algorithm.
// Ties among ready steps break by declaration position, not id, so authors
// control the order of independent steps. Returns ErrCycle when edges form
// a cycle and ErrUnknownDependency for edges pointing outside the
// definition.
func topologicalOrder(steps []Step) ([]int, error) {
	position := make(map[string]int, len(steps))
	for i, step := range steps {
		position[step.ID] = i
	}

	inDegree := make([]int, len(steps))
	dependents := make(map[int][]int, len(steps))
	for i, step := range steps {
		for _, dep := range step.DependsOn {
			from, ok := position[dep]
			if !ok {
				return nil, fmt.Errorf("step %q depends on %q: %w", step.ID, dep, ErrUnknownDependency)
			}
			if from == i {
				return nil, fmt.Errorf("step %q depends on itself: %w", step.ID, ErrCycle)
			}
			inDegree[i]++
			dependents[from] = append(dependents[from], i)
		}
	}

	ready := make([]bool, len(steps))
	done := make([]bool, len(steps))
	for i := range steps {
		if inDegree[i] == 0 {
			ready[i] = true
		}
	}

	order := make([]int, 0, len(steps))
	for len(order) < len(steps) {
		// Pick the earliest declared ready step.
		next := -1
		for i := range steps {
			if ready[i] && !done[i] {
				next = i
				break
			}
		}
		if next == -1 {
			remaining := make([]string, 0, len(steps)-len(order))
			for i, step := range steps {
				if !done[i] {
					remaining = append(remaining, step.ID)
				}
			}
			return nil, fmt.Errorf("steps %v: %w", remaining, ErrCycle)
		}
		done[next] = true
		order = append(order, next)
		for _, dependent := range dependents[next] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready[dependent] = true
			}
		}
	}
	return order, nil
}
