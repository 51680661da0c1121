// Package minimize implements the single-level minimization engine: it
// enumerates every single-element-removed variant of a base request, probes
// them concurrently against the live target, and folds the removals whose
// responses still match the baseline fingerprint.
package minimize

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/usestring/reqslim/internal/message"
	"github.com/usestring/reqslim/internal/transport"
)

// Prober abstracts the probing side so engine tests can run without a
// network.
type Prober interface {
	Probe(ctx context.Context, target transport.Target, raw string) (*message.Fingerprint, error)
}

// Variant is one candidate request, equal to the base except for exactly one
// removed element.
type Variant struct {
	Removal message.Removal
	Request *message.Request
}

// Result is the outcome of probing one variant. Fingerprint is nil when Err
// is set; a failed probe never matches any baseline, so its removal is
// rejected (the element is treated as load-bearing and kept).
type Result struct {
	Removal     message.Removal
	Fingerprint *message.Fingerprint
	Err         error
}

// Accepted reports whether this result confirms its removal against baseline.
func (r Result) Accepted(baseline *message.Fingerprint) bool {
	return r.Err == nil && baseline.Equals(r.Fingerprint)
}

// Engine drives the enumerate/probe/reduce pipeline.
type Engine struct {
	prober Prober
}

// NewEngine creates an Engine backed by the given prober.
func NewEngine(p Prober) *Engine {
	return &Engine{prober: p}
}

// Enumerate produces one deep-copied variant per removable element of base.
// Minimization is single-level: no variant removes two elements, and accepted
// combinations are never re-tested.
func Enumerate(base *message.Request) []Variant {
	removals := base.Removals()
	variants := make([]Variant, 0, len(removals))
	for _, rm := range removals {
		v := base.Clone()
		v.Remove(rm)
		variants = append(variants, Variant{Removal: rm, Request: v})
	}
	return variants
}

// ProbeAll dispatches one goroutine per variant, each over its own
// connection, and joins them all before returning. Probe failures are
// captured in the Result rather than returned, so one stuck or refused
// connection never aborts the batch; wall-clock time is bounded by the
// slowest single probe, not the sum.
func (e *Engine) ProbeAll(ctx context.Context, target transport.Target, variants []Variant) []Result {
	results := make([]Result, len(variants))
	var g errgroup.Group
	for i, v := range variants {
		i, v := i, v
		g.Go(func() error {
			fp, err := e.prober.Probe(ctx, target, v.Request.Serialize())
			results[i] = Result{Removal: v.Removal, Fingerprint: fp, Err: err}
			if err != nil {
				slog.Debug("variant probe failed",
					slog.String("key", v.Removal.Key),
					slog.String("location", string(v.Removal.Location)),
					slog.String("error", err.Error()),
				)
			}
			return nil
		})
	}
	_ = g.Wait() // probe errors live in results, never here
	return results
}

// Reduce folds every baseline-matching removal onto a copy of base. Fold
// order is irrelevant: each descriptor addresses a distinct (key, location)
// pair and map removal is commutative.
func Reduce(base *message.Request, baseline *message.Fingerprint, results []Result) *message.Request {
	minimized := base.Clone()
	for _, res := range results {
		if res.Accepted(baseline) {
			minimized.Remove(res.Removal)
		}
	}
	return minimized
}

// Minimize runs the full pipeline and returns the minimized request together
// with the per-variant results for reporting.
func (e *Engine) Minimize(ctx context.Context, target transport.Target, base *message.Request, baseline *message.Fingerprint) (*message.Request, []Result) {
	variants := Enumerate(base)
	slog.Info("probing variants",
		slog.Int("count", len(variants)),
		slog.String("target", target.String()),
	)
	results := e.ProbeAll(ctx, target, variants)

	accepted := 0
	for _, res := range results {
		if res.Accepted(baseline) {
			accepted++
		}
	}
	slog.Info("minimization complete",
		slog.Int("removed", accepted),
		slog.Int("kept", len(results)-accepted),
	)
	return Reduce(base, baseline, results), results
}
