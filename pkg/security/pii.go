package security

import (
	"context"
	"fmt"
	"regexp"
	"sort"
)

// piiPatterns maps a PII class to its detector and redaction marker.
var piiPatterns = []struct {
	name    string
	marker  string
	pattern *regexp.Regexp
}{
	{"email", "[REDACTED_EMAIL]", regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)},
	{"ssn", "[REDACTED_SSN]", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"credit_card", "[REDACTED_CARD]", regexp.MustCompile(`\b\d{4}[\s\-]?\d{4}[\s\-]?\d{4}[\s\-]?\d{4}\b`)},
	{"phone", "[REDACTED_PHONE]", regexp.MustCompile(`\b\d{3}[\-.]?\d{3}[\-.]?\d{4}\b`)},
}

// piiRiskPerClass is the score added per PII class detected in redact
// mode, capped at 1.0. In block mode a detection always scores 1.0.
const piiRiskPerClass = 0.2

// PIIScreen detects personally identifiable information in content.
//
// In redact mode (Block=false) matches are replaced with class-specific
// markers and the result stays safe, so the pipeline continues with the
// scrubbed content. In block mode any detection is an unsafe verdict.
type PIIScreen struct {
	block bool
}

// NewPIIScreen constructs the screen. block selects blocking mode.
func NewPIIScreen(block bool) *PIIScreen {
	return &PIIScreen{block: block}
}

func (p *PIIScreen) Name() string { return "pii_screen" }

func (p *PIIScreen) Process(ctx context.Context, content string, sctx Context) (Result, error) {
	cleaned := content
	detected := make(map[string]int)
	for _, pp := range piiPatterns {
		matches := pp.pattern.FindAllString(cleaned, -1)
		if len(matches) == 0 {
			continue
		}
		detected[pp.name] = len(matches)
		cleaned = pp.pattern.ReplaceAllString(cleaned, pp.marker)
	}

	if len(detected) == 0 {
		return safeResult(content, map[string]any{"pii_detected": false}), nil
	}

	classes := make([]string, 0, len(detected))
	for name := range detected {
		classes = append(classes, name)
	}
	sort.Strings(classes)

	var violations []string
	for _, name := range classes {
		violations = append(violations, fmt.Sprintf("pii detected: %s (%d occurrence(s))", name, detected[name]))
	}

	risk := float64(len(classes)) * piiRiskPerClass
	if p.block || risk > 1.0 {
		risk = 1.0
	}

	return Result{
		Content:    cleaned,
		Safe:       !p.block,
		RiskScore:  risk,
		Violations: violations,
		Metadata: map[string]any{
			"pii_detected": true,
			"pii_classes":  classes,
			"blocked":      p.block,
		},
	}, nil
}
