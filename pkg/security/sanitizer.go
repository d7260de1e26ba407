package security

import (
	"context"
	"fmt"
	"regexp"
)

// RedactionMarker replaces every matched injection span so downstream
// consumers can see that redaction occurred.
const RedactionMarker = "[REDACTED]"

// riskPerPatternClass is the score added per distinct pattern class
// matched, capped at 1.0. Scoring by class rather than raw match count
// approximates attack-surface diversity: five hits of one class do not
// outweigh two hits of different classes. The curve is policy, not
// contract; override it with SanitizerConfig.RiskPerClass.
const riskPerPatternClass = 0.4

// PatternClass groups related injection patterns under one label for
// risk scoring.
type PatternClass struct {
	Name     string
	Patterns []string
}

// defaultPatternClasses covers the common prompt-injection families.
// Treated as an immutable fallback; callers wanting different coverage
// pass their own classes to NewSanitizer.
var defaultPatternClasses = []PatternClass{
	{
		Name: "instruction_override",
		Patterns: []string{
			`ignore\s+(previous|above|prior)\s+(instructions?|prompts?|commands?)`,
			`disregard\s+(previous|above|all|everything)`,
			`forget\s+(previous|above|all|everything)`,
		},
	},
	{
		Name: "role_confusion",
		Patterns: []string{
			`you\s+are\s+now`,
			`act\s+as\s+if`,
			`pretend\s+(to\s+be|you\s+are)`,
			`simulate\s+(being|that\s+you)`,
		},
	},
	{
		Name: "system_injection",
		Patterns: []string{
			`new\s+instructions?:`,
			`system\s*:\s*`,
			`<\s*\|\s*im_start\s*\|\s*>`,
			`<\s*\|\s*im_end\s*\|\s*>`,
		},
	},
	{
		Name: "delimiter_injection",
		Patterns: []string{
			`---\s*end\s+of\s+prompt`,
			"```\\s*system",
		},
	},
	{
		Name: "privilege_escalation",
		Patterns: []string{
			`sudo\s+mode`,
			`admin\s+mode`,
			`developer\s+mode`,
			`god\s+mode`,
			`root\s+access`,
		},
	},
}

// SanitizerConfig tunes the sanitizer at construction time.
type SanitizerConfig struct {
	// Classes replaces the default pattern classes when non-nil.
	Classes []PatternClass
	// RiskPerClass overrides the per-class risk increment when > 0.
	RiskPerClass float64
}

// Sanitizer screens content for prompt-injection patterns and redacts
// every match in the content it passes forward.
type Sanitizer struct {
	classes      []compiledClass
	riskPerClass float64
}

type compiledClass struct {
	name     string
	patterns []*regexp.Regexp
}

// NewSanitizer compiles the configured pattern classes. All patterns
// are matched case-insensitively. Compilation failures are surfaced at
// construction, never at call time.
func NewSanitizer(cfg SanitizerConfig) (*Sanitizer, error) {
	classes := cfg.Classes
	if classes == nil {
		classes = defaultPatternClasses
	}
	risk := cfg.RiskPerClass
	if risk <= 0 {
		risk = riskPerPatternClass
	}

	s := &Sanitizer{riskPerClass: risk}
	for _, c := range classes {
		cc := compiledClass{name: c.Name}
		for _, p := range c.Patterns {
			re, err := regexp.Compile(`(?i)` + p)
			if err != nil {
				return nil, fmt.Errorf("sanitizer: pattern %q in class %s: %w", p, c.Name, err)
			}
			cc.patterns = append(cc.patterns, re)
		}
		s.classes = append(s.classes, cc)
	}
	return s, nil
}

func (s *Sanitizer) Name() string { return "sanitizer" }

func (s *Sanitizer) Process(ctx context.Context, content string, sctx Context) (Result, error) {
	var violations []string
	cleaned := content
	matchCount := 0
	classesMatched := 0

	for _, class := range s.classes {
		classHit := false
		for _, re := range class.patterns {
			matches := re.FindAllString(cleaned, -1)
			if len(matches) == 0 {
				continue
			}
			classHit = true
			matchCount += len(matches)
			for _, m := range matches {
				violations = append(violations, fmt.Sprintf("injection pattern detected (%s): %q", class.name, m))
			}
			cleaned = re.ReplaceAllString(cleaned, RedactionMarker)
		}
		if classHit {
			classesMatched++
		}
	}

	risk := float64(classesMatched) * s.riskPerClass
	if risk > 1.0 {
		risk = 1.0
	}

	return Result{
		Content:    cleaned,
		Safe:       len(violations) == 0,
		RiskScore:  risk,
		Violations: violations,
		Metadata: map[string]any{
			"classes_matched": classesMatched,
			"matches_found":   matchCount,
			"sanitized":       matchCount > 0,
		},
	}, nil
}
