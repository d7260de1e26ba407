//go:build property
// +build property

// Package checksum_test contains property-based tests for digest round-trips.
package checksum_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/promptvault/promptvault/pkg/checksum"
)

// TestVerifyRoundTripProperty verifies Verify(C, Digest(C)) for arbitrary content.
func TestVerifyRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("digest round-trips for any content", prop.ForAll(
		func(content string) bool {
			return checksum.Verify(content, checksum.Digest(content))
		},
		gen.AnyString(),
	))

	properties.Property("distinct content yields distinct digests", prop.ForAll(
		func(a, b string) bool {
			if a == b {
				return true
			}
			return !checksum.Verify(b, checksum.Digest(a))
		},
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
