// Package security implements the composable screening pipeline that
// every prompt access passes through before its content is trusted.
//
// A pipeline is an ordered chain of independent middleware units. Each
// unit inspects (and may rewrite) the content, then reports a verdict.
// The pipeline short-circuits on the first unsafe verdict and
// aggregates risk across the units that ran.
package security

import "fmt"

// RiskLevel classifies how sensitive a request or artifact is.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Valid reports whether l is a known risk level.
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// Context carries request-scoped information through a pipeline run.
// It is created fresh per request and never mutated by middleware;
// units communicate forward through the Result they return.
type Context struct {
	// ActorID identifies the caller.
	ActorID string
	// ArtifactName names the prompt being accessed, when known.
	ArtifactName string
	// RiskLevel defaults to medium when unset.
	RiskLevel RiskLevel
	// Environment defaults to "production" when unset.
	Environment string
	// Role is the caller's role for access-control checks.
	Role string
	// Category is the artifact's category for access-control checks.
	// It is supplied explicitly because the pipeline runs before the
	// full artifact record is available.
	Category string
}

// NewContext builds a Context with the documented defaults applied.
func NewContext(actorID, artifactName string) (Context, error) {
	c := Context{
		ActorID:      actorID,
		ArtifactName: artifactName,
		RiskLevel:    RiskMedium,
		Environment:  "production",
	}
	return c, c.validate()
}

func (c Context) validate() error {
	if c.ActorID == "" {
		return fmt.Errorf("security context: actor id is required")
	}
	if !c.RiskLevel.Valid() {
		return fmt.Errorf("security context: invalid risk level %q", c.RiskLevel)
	}
	return nil
}

// normalized returns a copy of c with defaults applied.
func (c Context) normalized() Context {
	if c.RiskLevel == "" {
		c.RiskLevel = RiskMedium
	}
	if c.Environment == "" {
		c.Environment = "production"
	}
	return c
}
