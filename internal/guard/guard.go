// Package guard implements the policy-gated checks steps run before
// expensive operations. Guards are pure: they fold a measured condition and
// a flag state into a continue/block decision without touching storage or
// logging.
package guard

import (
	"fmt"
	"strings"

	"slate/internal/flags"
	"slate/internal/recovery"
)

// Outcome is a guard decision. When ShouldContinue is false the calling
// step must fail with Err; swallowing a block outcome is a bug in the step.
type Outcome struct {
	ShouldContinue bool
	WasWarning     bool
	Err            *recovery.PipelineError
	UserMessage    string
}

func pass() Outcome {
	return Outcome{ShouldContinue: true}
}

// CheckTokenBudget compares a measured prompt token count against the
// configured budget. A budget of zero or less means no budget is
// configured and the guard always passes.
func CheckTokenBudget(actual, budget int, state flags.State) Outcome {
	if budget <= 0 || actual <= budget {
		return pass()
	}
	if state == flags.StateOff {
		return pass()
	}

	err := recovery.Errorf(recovery.CategoryTokenOverflow,
		"prompt uses %d tokens, budget is %d", actual, budget).
		WithDetail("actual_tokens", actual).
		WithDetail("budget_tokens", budget)

	if state == flags.StateBlock {
		return Outcome{
			Err:         err,
			UserMessage: fmt.Sprintf("Generation blocked: prompt uses %d tokens, over the %d token budget. Shorten the prompt or raise the budget.", actual, budget),
		}
	}
	return Outcome{
		ShouldContinue: true,
		WasWarning:     true,
		Err:            err,
		UserMessage:    fmt.Sprintf("Prompt uses %d tokens, over the %d token budget. The backend may truncate it.", actual, budget),
	}
}

// CheckValidation folds workflow validation issues into one decision. An
// empty issue list always passes.
func CheckValidation(issues []string, state flags.State) Outcome {
	trimmed := make([]string, 0, len(issues))
	for _, issue := range issues {
		if issue = strings.TrimSpace(issue); issue != "" {
			trimmed = append(trimmed, issue)
		}
	}
	if len(trimmed) == 0 || state == flags.StateOff {
		return pass()
	}

	summary := strings.Join(trimmed, "; ")
	err := recovery.Errorf(recovery.CategoryValidationFailed,
		"workflow validation found %d issue(s): %s", len(trimmed), summary).
		WithDetail("issue_count", len(trimmed))

	if state == flags.StateBlock {
		return Outcome{
			Err:         err,
			UserMessage: fmt.Sprintf("Run blocked by workflow validation: %s", summary),
		}
	}
	return Outcome{
		ShouldContinue: true,
		WasWarning:     true,
		Err:            err,
		UserMessage:    fmt.Sprintf("Workflow validation reported issues: %s", summary),
	}
}
