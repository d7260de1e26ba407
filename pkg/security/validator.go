package security

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMaxContentLength bounds prompt size for the input validator.
const DefaultMaxContentLength = 10000

// InputValidator rejects malformed or abusive content before any other
// unit spends time on it. All of its checks run on every call; the
// unit reports one violation per failing check rather than stopping at
// the first.
type InputValidator struct {
	maxLength int
}

// NewInputValidator constructs the validator. maxLength <= 0 selects
// DefaultMaxContentLength.
func NewInputValidator(maxLength int) *InputValidator {
	if maxLength <= 0 {
		maxLength = DefaultMaxContentLength
	}
	return &InputValidator{maxLength: maxLength}
}

func (v *InputValidator) Name() string { return "input_validator" }

func (v *InputValidator) Process(ctx context.Context, content string, sctx Context) (Result, error) {
	var violations []string

	if strings.ContainsRune(content, 0) {
		violations = append(violations, "null bytes detected in content")
	}

	if ctrl := disallowedControls(content); len(ctrl) > 0 {
		violations = append(violations, fmt.Sprintf("control characters detected: %v", ctrl))
	}

	if !utf8.ValidString(content) {
		violations = append(violations, "content is not valid UTF-8")
	}

	if n := utf8.RuneCountInString(content); n > v.maxLength {
		violations = append(violations, fmt.Sprintf("content exceeds maximum length: %d > %d", n, v.maxLength))
	}

	if strings.TrimSpace(content) == "" {
		violations = append(violations, "content is empty or whitespace only")
	}

	res := Result{
		Content:    content,
		Safe:       len(violations) == 0,
		Violations: violations,
		Metadata: map[string]any{
			"content_length": utf8.RuneCountInString(content),
			"max_length":     v.maxLength,
		},
	}
	if !res.Safe {
		res.RiskScore = 1.0
	}
	return res, nil
}

// disallowedControls lists the control characters present in s other
// than tab, newline and carriage return.
func disallowedControls(s string) []rune {
	seen := make(map[rune]bool)
	var out []rune
	for _, r := range s {
		if r >= 0x20 || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		if r == 0 {
			continue // reported separately as a null-byte violation
		}
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
