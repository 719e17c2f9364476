// Package saga runs an ordered list of steps against independent
// collaborators, with no shared transaction across them. Each step may carry
// a compensating action that semantically undoes its external effect; once a
// pivot step has committed there is no undo, and later failures are logged
// as reconciliation candidates instead.
package saga

import (
	"context"
	"fmt"
	"log"
)

// Step is one unit of a saga.
type Step struct {
	Name string

	// Run performs the step's effect.
	Run func(ctx context.Context) error

	// Compensate semantically undoes the step after a later step fails.
	// Nil when the step has nothing to undo. Compensation is best effort:
	// a failing compensation is logged for reconciliation, never retried.
	Compensate func(ctx context.Context) error

	// Pivot marks the step after which the saga can no longer be unwound.
	// When a step past the pivot fails, completed steps keep their effects
	// and the failure is logged as a reconciliation candidate.
	Pivot bool
}

// Error is a saga step failure.
type Error struct {
	Saga string
	Step string
	Err  error

	// Abandoned is true when the failure happened past the pivot: earlier
	// effects were kept and the saga was logged for reconciliation rather
	// than compensated.
	Abandoned bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("saga %s: step %s: %v", e.Saga, e.Step, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Run executes the steps in order. On failure before the pivot has
// committed, the compensations of completed steps run in reverse order; on
// failure after it, the saga is abandoned in place and logged for
// reconciliation.
// The name should carry enough identifiers (trip, vehicle) to make the
// reconciliation log actionable.
func Run(ctx context.Context, name string, steps []Step) error {
	committed := false

	for i, step := range steps {
		if err := step.Run(ctx); err != nil {
			if committed {
				log.Printf("RECONCILE saga=%s failed_step=%s err=%v (effects kept, operator follow-up required)", name, step.Name, err)
				return &Error{Saga: name, Step: step.Name, Err: err, Abandoned: true}
			}
			compensate(ctx, name, steps[:i])
			return &Error{Saga: name, Step: step.Name, Err: err}
		}
		if step.Pivot {
			committed = true
		}
	}
	return nil
}

// compensate unwinds completed steps in reverse order. It runs detached from
// the caller's cancellation: a canceled request must not abort the action
// that reverts an already committed external effect.
func compensate(ctx context.Context, name string, completed []Step) {
	ctx = context.WithoutCancel(ctx)
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			log.Printf("RECONCILE saga=%s compensate_step=%s err=%v (compensation failed, operator follow-up required)", name, step.Name, err)
			continue
		}
		log.Printf("saga=%s compensated step=%s", name, step.Name)
	}
}
