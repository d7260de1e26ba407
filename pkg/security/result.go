package security

import (
	"fmt"
	"strings"
)

// Result is the verdict of one middleware unit, or of a whole pipeline
// run after aggregation.
type Result struct {
	// Content is the (possibly transformed) content. Units that redact
	// or rewrite pass the new content forward here.
	Content string
	// Safe reports whether the content passed this check.
	Safe bool
	// RiskScore is in [0.0, 1.0]. Pipelines aggregate by maximum, not
	// sum, so the scale stays meaningful.
	RiskScore float64
	// Violations are human-readable findings, in detection order.
	Violations []string
	// Metadata carries per-unit diagnostics.
	Metadata map[string]any
	// FailedUnit names the unit whose unsafe verdict stopped the
	// pipeline. Empty on a safe result.
	FailedUnit string
}

// safeResult builds a passing result that leaves content untouched.
func safeResult(content string, metadata map[string]any) Result {
	return Result{Content: content, Safe: true, Metadata: metadata}
}

// ComplianceError surfaces a pipeline denial to callers with enough
// structure to render an actionable message without re-deriving it
// from logs.
type ComplianceError struct {
	Unit       string
	RiskScore  float64
	Violations []string
}

func (e *ComplianceError) Error() string {
	if len(e.Violations) == 0 {
		return fmt.Sprintf("blocked by %s", e.Unit)
	}
	return fmt.Sprintf("blocked by %s: %s", e.Unit, strings.Join(e.Violations, "; "))
}
