package store

import (
	"errors"
	"fmt"
)

// Sentinel targets for errors.Is checks. The typed errors below carry
// the structured detail; these let callers branch on kind without
// unpacking.
var (
	ErrNotFound  = errors.New("artifact not found")
	ErrConflict  = errors.New("artifact version already exists")
	ErrIntegrity = errors.New("artifact integrity check failed")
)

// NotFoundError reports a missing artifact name or version.
type NotFoundError struct {
	Name    string
	Version string
}

func (e *NotFoundError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("artifact not found: %s", e.Name)
	}
	return fmt.Sprintf("artifact not found: %s@%s", e.Name, e.Version)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError reports a duplicate (name, version) on create. The
// caller should pick a new version: existing versions are immutable.
type ConflictError struct {
	Name    string
	Version string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("artifact %s@%s already exists", e.Name, e.Version)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// IntegrityError reports a checksum mismatch on load. It is never
// downgraded to a warning: serving tampered content is the failure
// this store exists to prevent.
type IntegrityError struct {
	Name     string
	Version  string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s@%s: expected %s, got %s",
		e.Name, e.Version, e.Expected, e.Actual)
}

func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }
