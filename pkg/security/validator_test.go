package security_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptvault/promptvault/pkg/security"
)

func TestInputValidator_Process_AcceptsPlainContent(t *testing.T) {
	v := security.NewInputValidator(0)

	res, err := v.Process(context.Background(), "You are a helpful assistant.\nBe concise.", sctx(t))
	require.NoError(t, err)
	assert.True(t, res.Safe)
	assert.Zero(t, res.RiskScore)
	assert.Empty(t, res.Violations)
}

func TestInputValidator_Process_RejectsNullBytes(t *testing.T) {
	v := security.NewInputValidator(0)

	res, err := v.Process(context.Background(), "hello\x00world", sctx(t))
	require.NoError(t, err)
	assert.False(t, res.Safe)
	assert.InDelta(t, 1.0, res.RiskScore, 1e-9)
	require.Len(t, res.Violations, 1)
	assert.Contains(t, res.Violations[0], "null bytes")
}

func TestInputValidator_Process_RejectsControlCharacters(t *testing.T) {
	v := security.NewInputValidator(0)

	res, err := v.Process(context.Background(), "hello\x07world", sctx(t))
	require.NoError(t, err)
	assert.False(t, res.Safe)
	require.Len(t, res.Violations, 1)
	assert.Contains(t, res.Violations[0], "control characters")
}

func TestInputValidator_Process_AllowsTabNewlineCarriageReturn(t *testing.T) {
	v := security.NewInputValidator(0)

	res, err := v.Process(context.Background(), "col1\tcol2\r\nnext line", sctx(t))
	require.NoError(t, err)
	assert.True(t, res.Safe)
}

func TestInputValidator_Process_RejectsInvalidUTF8(t *testing.T) {
	v := security.NewInputValidator(0)

	res, err := v.Process(context.Background(), "ok \xff\xfe", sctx(t))
	require.NoError(t, err)
	assert.False(t, res.Safe)
	found := false
	for _, viol := range res.Violations {
		if strings.Contains(viol, "UTF-8") {
			found = true
		}
	}
	assert.True(t, found, "expected a UTF-8 violation, got %v", res.Violations)
}

func TestInputValidator_Process_RejectsOverlongContent(t *testing.T) {
	v := security.NewInputValidator(10)

	res, err := v.Process(context.Background(), strings.Repeat("a", 11), sctx(t))
	require.NoError(t, err)
	assert.False(t, res.Safe)
	require.Len(t, res.Violations, 1)
	assert.Contains(t, res.Violations[0], "maximum length")

	ok, err := v.Process(context.Background(), strings.Repeat("a", 10), sctx(t))
	require.NoError(t, err)
	assert.True(t, ok.Safe)
}

func TestInputValidator_Process_RejectsEmptyContent(t *testing.T) {
	v := security.NewInputValidator(0)

	for _, content := range []string{"", "   ", "\n\t "} {
		res, err := v.Process(context.Background(), content, sctx(t))
		require.NoError(t, err)
		assert.False(t, res.Safe, "content %q", content)
	}
}

func TestInputValidator_Process_ReportsOneViolationPerFailingCheck(t *testing.T) {
	v := security.NewInputValidator(5)

	// Null byte, control char and overlong at once; every check still runs.
	res, err := v.Process(context.Background(), "abc\x00\x01defgh", sctx(t))
	require.NoError(t, err)
	assert.False(t, res.Safe)
	assert.Len(t, res.Violations, 3)
	assert.InDelta(t, 1.0, res.RiskScore, 1e-9)
}
