// Package store persists named, versioned prompt artifacts on the
// local filesystem with checksum-verified loads and a per-name locking
// discipline for writers.
//
// Layout under the vault root:
//
//	catalog.yaml          version ledger + global settings
//	audit.jsonl           append-only audit trail
//	<name>/<version>.md   one artifact file per version
//
// An artifact file is a YAML front-matter header followed by the raw
// content body; the checksum in the header (and in the catalog) is the
// SHA-256 digest of the body.
package store

import (
	"fmt"
	"strings"
	"time"
)

// Category drives role-based access checks.
type Category string

const (
	CategorySystem   Category = "system"
	CategoryUser     Category = "user"
	CategoryFallback Category = "fallback"
	CategoryTemplate Category = "template"
	CategoryInternal Category = "internal"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategorySystem, CategoryUser, CategoryFallback, CategoryTemplate, CategoryInternal:
		return true
	}
	return false
}

// RiskLevel is informational metadata used by policy.
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

// Artifact is one immutable version of a named prompt. Content and
// checksum never change after creation; a new version must be created
// instead.
type Artifact struct {
	ID           string     `yaml:"id"`
	Name         string     `yaml:"name"`
	Version      string     `yaml:"version"`
	Category     Category   `yaml:"category"`
	RiskLevel    RiskLevel  `yaml:"risk_level"`
	Checksum     string     `yaml:"checksum"`
	CreatedBy    string     `yaml:"created_by"`
	CreatedAt    time.Time  `yaml:"created_at"`
	Approved     bool       `yaml:"approved"`
	ApprovedBy   string     `yaml:"approved_by,omitempty"`
	ApprovedDate *time.Time `yaml:"approved_date,omitempty"`
	Tags         []string   `yaml:"tags,omitempty"`

	// Content is empty on metadata-only results (List).
	Content string `yaml:"-"`
}

// validateName rejects identifiers that could escape the vault root
// when joined into a path.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("artifact name is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." || strings.Contains(name, "..") {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	return nil
}
