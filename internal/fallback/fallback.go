// Package fallback executes ordered provider chains for AI capabilities.
//
// A chain is data: an ordered list of named callables. Providers are tried
// strictly in priority order and the first success wins. Exhaustion is a
// value, never an error the caller must catch.
package fallback

import (
	"context"
	"log/slog"
)

// Provider is one named entry in a capability chain.
type Provider[T any] struct {
	Name string
	Call func(ctx context.Context) (T, error)
}

// Failure records why one provider in the chain did not produce a result.
type Failure struct {
	Provider string
	Err      error
}

// Outcome is the result of running a chain. Either Provider names the
// entry that produced Value, or Exhausted is true and Failures explains
// each attempt.
type Outcome[T any] struct {
	Value     T
	Provider  string
	Exhausted bool
	Failures  []Failure
}

// Invoke tries each provider in order and returns the first successful
// result annotated with its provider name. A provider error advances to the
// next entry; no retries happen within a single pass. The capability label
// is used for logging only.
func Invoke[T any](ctx context.Context, capability string, providers []Provider[T]) Outcome[T] {
	var out Outcome[T]
	for _, p := range providers {
		if err := ctx.Err(); err != nil {
			out.Failures = append(out.Failures, Failure{Provider: p.Name, Err: err})
			continue
		}
		slog.Debug("Trying provider", "capability", capability, "provider", p.Name)
		value, err := p.Call(ctx)
		if err != nil {
			slog.Warn("Provider failed, advancing chain", "capability", capability, "provider", p.Name, "error", err)
			out.Failures = append(out.Failures, Failure{Provider: p.Name, Err: err})
			continue
		}
		slog.Info("Provider succeeded", "capability", capability, "provider", p.Name)
		out.Value = value
		out.Provider = p.Name
		return out
	}
	slog.Warn("All providers exhausted", "capability", capability, "attempts", len(out.Failures))
	out.Exhausted = true
	return out
}
