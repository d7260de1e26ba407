package security

import (
	"context"
	"fmt"
)

// Middleware is one stateless-per-call check in a pipeline.
//
// Process must not mutate sctx; a unit that transforms content returns
// it in the Result. Returning an error means the unit itself could not
// run (I/O failure, broken configuration) and fails the pipeline
// closed; a negative verdict is expressed with Safe=false instead.
type Middleware interface {
	Name() string
	Process(ctx context.Context, content string, sctx Context) (Result, error)
}

// Pipeline runs an ordered chain of middleware against one request.
type Pipeline struct {
	units []Middleware
}

// NewPipeline builds a pipeline from units, executed in the given
// order. A nil unit is a construction error.
func NewPipeline(units ...Middleware) (*Pipeline, error) {
	for i, u := range units {
		if u == nil {
			return nil, fmt.Errorf("pipeline: unit %d is nil", i)
		}
	}
	return &Pipeline{units: units}, nil
}

// Use appends a unit to the chain and returns the pipeline for
// chaining.
func (p *Pipeline) Use(m Middleware) *Pipeline {
	p.units = append(p.units, m)
	return p
}

// Units returns the names of the registered units in execution order.
func (p *Pipeline) Units() []string {
	names := make([]string, len(p.units))
	for i, u := range p.units {
		names[i] = u.Name()
	}
	return names
}

// Execute runs every unit in order against content.
//
// Each unit receives the content as rewritten by its predecessors. On
// the first unsafe verdict the pipeline stops: remaining units do not
// run, so an auditor placed after a sanitizer never observes content
// the sanitizer would have redacted. The aggregate risk score is the
// maximum observed across executed units; violations concatenate in
// execution order.
func (p *Pipeline) Execute(ctx context.Context, content string, sctx Context) (Result, error) {
	sctx = sctx.normalized()
	if err := sctx.validate(); err != nil {
		return Result{}, err
	}

	agg := Result{
		Content:  content,
		Safe:     true,
		Metadata: map[string]any{"unit_count": len(p.units)},
	}
	unitResults := make(map[string]any, len(p.units))
	agg.Metadata["unit_results"] = unitResults

	for _, unit := range p.units {
		res, err := unit.Process(ctx, agg.Content, sctx)
		if err != nil {
			return Result{}, fmt.Errorf("pipeline unit %s: %w", unit.Name(), err)
		}

		agg.Content = res.Content
		agg.Violations = append(agg.Violations, res.Violations...)
		if res.RiskScore > agg.RiskScore {
			agg.RiskScore = res.RiskScore
		}
		unitResults[unit.Name()] = res.Metadata

		if !res.Safe {
			agg.Safe = false
			agg.FailedUnit = unit.Name()
			break
		}
	}
	return agg, nil
}

// Denial converts an unsafe aggregate result into a ComplianceError.
// Calling it on a safe result is a programming error and returns nil.
func Denial(r Result) error {
	if r.Safe {
		return nil
	}
	return &ComplianceError{
		Unit:       r.FailedUnit,
		RiskScore:  r.RiskScore,
		Violations: r.Violations,
	}
}
