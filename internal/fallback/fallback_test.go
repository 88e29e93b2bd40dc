package fallback

import (
	"context"
	"errors"
	"testing"
)

func TestInvokeReturnsFirstSuccess(t *testing.T) {
	cCalled := false
	chain := []Provider[string]{
		{Name: "a", Call: func(ctx context.Context) (string, error) { return "", errors.New("a down") }},
		{Name: "b", Call: func(ctx context.Context) (string, error) { return "from b", nil }},
		{Name: "c", Call: func(ctx context.Context) (string, error) { cCalled = true; return "from c", nil }},
	}

	out := Invoke(context.Background(), "content", chain)
	if out.Exhausted {
		t.Fatalf("expected success, got exhausted: %+v", out.Failures)
	}
	if out.Value != "from b" || out.Provider != "b" {
		t.Errorf("expected b's result annotated as b, got %q from %q", out.Value, out.Provider)
	}
	if cCalled {
		t.Errorf("provider c should never be invoked after b succeeds")
	}
	if len(out.Failures) != 1 || out.Failures[0].Provider != "a" {
		t.Errorf("expected a single recorded failure for a, got %+v", out.Failures)
	}
}

func TestInvokeExhaustion(t *testing.T) {
	chain := []Provider[int]{
		{Name: "a", Call: func(ctx context.Context) (int, error) { return 0, errors.New("a down") }},
		{Name: "b", Call: func(ctx context.Context) (int, error) { return 0, errors.New("b down") }},
	}

	out := Invoke(context.Background(), "research", chain)
	if !out.Exhausted {
		t.Fatalf("expected exhausted outcome")
	}
	if len(out.Failures) != 2 {
		t.Errorf("expected 2 failures, got %d", len(out.Failures))
	}
}

func TestInvokeEmptyChain(t *testing.T) {
	out := Invoke[string](context.Background(), "research", nil)
	if !out.Exhausted {
		t.Errorf("expected empty chain to be exhausted")
	}
}

func TestInvokeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	chain := []Provider[string]{
		{Name: "a", Call: func(ctx context.Context) (string, error) { called = true; return "x", nil }},
	}
	out := Invoke(ctx, "content", chain)
	if !out.Exhausted {
		t.Errorf("expected exhaustion under cancelled context")
	}
	if called {
		t.Errorf("provider should not run once context is done")
	}
}
