package audit_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptvault/promptvault/pkg/audit"
)

func newTrail(t *testing.T) *audit.Trail {
	t.Helper()
	trail, err := audit.Open(filepath.Join(t.TempDir(), "audit.jsonl"))
	require.NoError(t, err)
	t.Cleanup(func() { trail.Close() })
	return trail
}

func TestTrail_Append_WritesOneJSONLinePerRecord(t *testing.T) {
	trail := newTrail(t)

	rec, err := trail.Append(context.Background(), audit.Record{
		Actor:        "alice",
		EventType:    audit.EventCreate,
		ArtifactName: "greeting",
		Success:      true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.Timestamp.IsZero())

	raw, err := os.ReadFile(trail.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)

	var parsed audit.Record
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &parsed))
	assert.Equal(t, "alice", parsed.Actor)
	assert.Equal(t, audit.EventCreate, parsed.EventType)
	assert.Equal(t, "genesis", parsed.PreviousHash)
	assert.NotEmpty(t, parsed.RecordHash)
}

func TestTrail_Append_RejectsUnknownEventType(t *testing.T) {
	trail := newTrail(t)

	_, err := trail.Append(context.Background(), audit.Record{
		Actor:     "alice",
		EventType: "deleted_everything",
	})
	assert.Error(t, err)
}

func TestTrail_Append_ChainsRecords(t *testing.T) {
	trail := newTrail(t)
	ctx := context.Background()

	first, err := trail.Append(ctx, audit.Record{Actor: "a", EventType: audit.EventCreate, ArtifactName: "x", Success: true})
	require.NoError(t, err)
	second, err := trail.Append(ctx, audit.Record{Actor: "a", EventType: audit.EventRead, ArtifactName: "x", Success: true})
	require.NoError(t, err)

	assert.Equal(t, first.RecordHash, second.PreviousHash)
	require.NoError(t, trail.Verify(ctx))
}

func TestTrail_Verify_DetectsEditedRecord(t *testing.T) {
	trail := newTrail(t)
	ctx := context.Background()

	_, err := trail.Append(ctx, audit.Record{Actor: "a", EventType: audit.EventCreate, ArtifactName: "x", Success: true})
	require.NoError(t, err)
	_, err = trail.Append(ctx, audit.Record{Actor: "b", EventType: audit.EventRead, ArtifactName: "x", Success: true})
	require.NoError(t, err)

	raw, err := os.ReadFile(trail.Path())
	require.NoError(t, err)
	tampered := strings.Replace(string(raw), `"actor":"a"`, `"actor":"z"`, 1)
	require.NoError(t, os.WriteFile(trail.Path(), []byte(tampered), 0o644))

	assert.ErrorIs(t, trail.Verify(ctx), audit.ErrChainBroken)
}

func TestTrail_Open_RecoversChainHead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")
	ctx := context.Background()

	trail, err := audit.Open(path)
	require.NoError(t, err)
	last, err := trail.Append(ctx, audit.Record{Actor: "a", EventType: audit.EventCreate, ArtifactName: "x", Success: true})
	require.NoError(t, err)
	require.NoError(t, trail.Close())

	reopened, err := audit.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	next, err := reopened.Append(ctx, audit.Record{Actor: "a", EventType: audit.EventRead, ArtifactName: "x", Success: true})
	require.NoError(t, err)
	assert.Equal(t, last.RecordHash, next.PreviousHash)
	require.NoError(t, reopened.Verify(ctx))
}

func TestTrail_Query_Filters(t *testing.T) {
	trail := newTrail(t)
	ctx := context.Background()

	_, err := trail.Append(ctx, audit.Record{Actor: "alice", EventType: audit.EventCreate, ArtifactName: "greeting", Success: true})
	require.NoError(t, err)
	_, err = trail.Append(ctx, audit.Record{Actor: "bob", EventType: audit.EventRead, ArtifactName: "greeting", Success: true})
	require.NoError(t, err)
	_, err = trail.Append(ctx, audit.Record{Actor: "alice", EventType: audit.EventAccessDenied, ArtifactName: "system-core", Success: false})
	require.NoError(t, err)

	byActor, err := trail.Query(ctx, audit.Filter{Actor: "alice"})
	require.NoError(t, err)
	assert.Len(t, byActor, 2)

	byType, err := trail.Query(ctx, audit.Filter{EventType: audit.EventAccessDenied})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "system-core", byType[0].ArtifactName)

	limited, err := trail.Query(ctx, audit.Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestTrail_Query_TimeRange(t *testing.T) {
	trail := newTrail(t)
	ctx := context.Background()

	before := time.Now().UTC().Add(-time.Minute)
	_, err := trail.Append(ctx, audit.Record{Actor: "alice", EventType: audit.EventRead, ArtifactName: "greeting", Success: true})
	require.NoError(t, err)

	within, err := trail.Query(ctx, audit.Filter{Since: before})
	require.NoError(t, err)
	assert.Len(t, within, 1)

	outside, err := trail.Query(ctx, audit.Filter{Until: before})
	require.NoError(t, err)
	assert.Empty(t, outside)
}

func TestTrail_Query_IsRestartable(t *testing.T) {
	trail := newTrail(t)
	ctx := context.Background()

	_, err := trail.Append(ctx, audit.Record{Actor: "alice", EventType: audit.EventRead, ArtifactName: "greeting", Success: true})
	require.NoError(t, err)

	first, err := trail.Query(ctx, audit.Filter{})
	require.NoError(t, err)

	_, err = trail.Append(ctx, audit.Record{Actor: "alice", EventType: audit.EventRead, ArtifactName: "greeting", Success: true})
	require.NoError(t, err)

	second, err := trail.Query(ctx, audit.Filter{})
	require.NoError(t, err)
	assert.Len(t, first, 1)
	assert.Len(t, second, 2)
}

func TestTrail_Query_SkipsMalformedLines(t *testing.T) {
	trail := newTrail(t)
	ctx := context.Background()

	_, err := trail.Append(ctx, audit.Record{Actor: "alice", EventType: audit.EventRead, ArtifactName: "greeting", Success: true})
	require.NoError(t, err)

	f, err := os.OpenFile(trail.Path(), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = trail.Append(ctx, audit.Record{Actor: "bob", EventType: audit.EventRead, ArtifactName: "greeting", Success: true})
	require.NoError(t, err)

	records, err := trail.Query(ctx, audit.Filter{})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
