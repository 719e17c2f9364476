package saga

import (
	"context"
	"errors"
	"testing"
)

func TestRun_AllStepsSucceed(t *testing.T) {
	var order []string
	steps := []Step{
		{Name: "a", Run: func(context.Context) error { order = append(order, "a"); return nil }},
		{Name: "b", Run: func(context.Context) error { order = append(order, "b"); return nil }},
	}

	if err := Run(context.Background(), "test", steps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("steps ran out of order: %v", order)
	}
}

func TestRun_FailureBeforePivot_CompensatesInReverse(t *testing.T) {
	var compensated []string
	boom := errors.New("boom")

	steps := []Step{
		{
			Name:       "first",
			Run:        func(context.Context) error { return nil },
			Compensate: func(context.Context) error { compensated = append(compensated, "first"); return nil },
		},
		{
			Name:       "second",
			Run:        func(context.Context) error { return nil },
			Compensate: func(context.Context) error { compensated = append(compensated, "second"); return nil },
		},
		{
			Name: "third",
			Run:  func(context.Context) error { return boom },
		},
	}

	err := Run(context.Background(), "test", steps)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}

	var sagaErr *Error
	if !errors.As(err, &sagaErr) {
		t.Fatal("expected *saga.Error")
	}
	if sagaErr.Abandoned {
		t.Error("pre-pivot failure must not be abandoned")
	}
	if sagaErr.Step != "third" {
		t.Errorf("failed step = %q, want third", sagaErr.Step)
	}

	if len(compensated) != 2 || compensated[0] != "second" || compensated[1] != "first" {
		t.Errorf("compensations ran %v, want [second first]", compensated)
	}
}

func TestRun_FailureAfterPivot_KeepsEffects(t *testing.T) {
	var compensated []string
	boom := errors.New("boom")

	steps := []Step{
		{
			Name:       "reserve",
			Run:        func(context.Context) error { return nil },
			Compensate: func(context.Context) error { compensated = append(compensated, "reserve"); return nil },
		},
		{
			Name:  "commit",
			Run:   func(context.Context) error { return nil },
			Pivot: true,
		},
		{
			Name: "notify",
			Run:  func(context.Context) error { return boom },
		},
	}

	err := Run(context.Background(), "test", steps)

	var sagaErr *Error
	if !errors.As(err, &sagaErr) {
		t.Fatal("expected *saga.Error")
	}
	if !sagaErr.Abandoned {
		t.Error("post-pivot failure must be abandoned, not compensated")
	}
	if len(compensated) != 0 {
		t.Errorf("no compensation expected past the pivot, got %v", compensated)
	}
}

func TestRun_CompensationFailureDoesNotStopUnwind(t *testing.T) {
	var compensated []string
	boom := errors.New("boom")

	steps := []Step{
		{
			Name:       "a",
			Run:        func(context.Context) error { return nil },
			Compensate: func(context.Context) error { compensated = append(compensated, "a"); return nil },
		},
		{
			Name:       "b",
			Run:        func(context.Context) error { return nil },
			Compensate: func(context.Context) error { return errors.New("compensation failed") },
		},
		{
			Name: "c",
			Run:  func(context.Context) error { return boom },
		},
	}

	if err := Run(context.Background(), "test", steps); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(compensated) != 1 || compensated[0] != "a" {
		t.Errorf("unwind should continue past a failed compensation, got %v", compensated)
	}
}

func TestRun_CancelledContextStillCompensates(t *testing.T) {
	var compensationCtxErr error

	ctx, cancel := context.WithCancel(context.Background())
	steps := []Step{
		{
			Name: "reserve",
			Run:  func(context.Context) error { return nil },
			Compensate: func(ctx context.Context) error {
				compensationCtxErr = ctx.Err()
				return nil
			},
		},
		{
			Name: "blocked",
			Run: func(ctx context.Context) error {
				cancel()
				return ctx.Err()
			},
		},
	}

	if err := Run(ctx, "test", steps); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if compensationCtxErr != nil {
		t.Errorf("compensation must run detached from the cancelled request context, got %v", compensationCtxErr)
	}
}
