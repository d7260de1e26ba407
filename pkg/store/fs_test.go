package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptvault/promptvault/pkg/audit"
	"github.com/promptvault/promptvault/pkg/checksum"
	"github.com/promptvault/promptvault/pkg/store"
)

func newStore(t *testing.T) *store.FS {
	t.Helper()
	s, err := store.Open(t.TempDir(), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreate(t *testing.T, s *store.FS, name, version, content string) *store.Artifact {
	t.Helper()
	a, err := s.Create(context.Background(), store.CreateRequest{
		Name:    name,
		Content: content,
		Version: version,
		Actor:   "alice",
	})
	require.NoError(t, err)
	return a
}

func TestFS_Create_PersistsArtifactWithChecksum(t *testing.T) {
	s := newStore(t)

	a := mustCreate(t, s, "greeting", "1.0.0", "You are a helpful assistant.")
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, checksum.Digest("You are a helpful assistant."), a.Checksum)
	assert.Equal(t, store.CategoryUser, a.Category)
	assert.Equal(t, store.RiskMedium, a.RiskLevel)

	loaded, err := s.Load(context.Background(), "greeting", "1.0.0", "alice")
	require.NoError(t, err)
	assert.Equal(t, "You are a helpful assistant.", loaded.Content)
	assert.Equal(t, a.Checksum, loaded.Checksum)
}

func TestFS_Create_DuplicateVersionIsConflict(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	mustCreate(t, s, "greeting", "1.0.0", "first")

	_, err := s.Create(ctx, store.CreateRequest{
		Name: "greeting", Content: "second", Version: "1.0.0", Actor: "bob",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrConflict)
	var ce *store.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "1.0.0", ce.Version)

	// The first artifact's content is unchanged.
	a, err := s.Load(ctx, "greeting", "1.0.0", "alice")
	require.NoError(t, err)
	assert.Equal(t, "first", a.Content)
}

func TestFS_Create_RejectsInvalidInput(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	cases := []store.CreateRequest{
		{Name: "", Content: "c", Version: "1.0.0", Actor: "a"},
		{Name: "../escape", Content: "c", Version: "1.0.0", Actor: "a"},
		{Name: "a/b", Content: "c", Version: "1.0.0", Actor: "a"},
		{Name: "ok", Content: "c", Version: "not-a-version", Actor: "a"},
		{Name: "ok", Content: "c", Version: "1.0.0", Actor: ""},
		{Name: "ok", Content: "c", Version: "1.0.0", Actor: "a", Category: "secret"},
		{Name: "ok", Content: "c", Version: "1.0.0", Actor: "a", RiskLevel: "extreme"},
	}
	for _, req := range cases {
		_, err := s.Create(ctx, req)
		assert.Error(t, err, "request %+v", req)
	}
}

func TestFS_Load_MissingArtifactIsNotFound(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Load(ctx, "ghost", "", "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)

	mustCreate(t, s, "greeting", "1.0.0", "hi")
	_, err = s.Load(ctx, "greeting", "9.9.9", "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFS_Load_ResolvesLatestVersion(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	mustCreate(t, s, "greeting", "1.0.0", "v1")
	mustCreate(t, s, "greeting", "1.1.0", "v2")

	a, err := s.Load(ctx, "greeting", "", "alice")
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", a.Version)
	assert.Equal(t, "v2", a.Content)
}

func TestFS_Create_LatestPointerNeverMovesBackwards(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	mustCreate(t, s, "greeting", "2.0.0", "current")
	mustCreate(t, s, "greeting", "1.0.0", "older import")

	latest, err := s.Latest(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", latest)
}

func TestFS_Load_TamperedContentIsIntegrityError(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	mustCreate(t, s, "greeting", "1.0.0", "original content")

	// Alter the persisted body behind the store's back.
	path := filepath.Join(s.Root(), "greeting", "1.0.0.md")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := strings.Replace(string(raw), "original content", "injected content", 1)
	require.NoError(t, os.WriteFile(path, []byte(tampered), 0o644))

	_, err = s.Load(ctx, "greeting", "1.0.0", "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrIntegrity)
	var ie *store.IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.NotEqual(t, ie.Expected, ie.Actual)

	// The failure is on the audit trail.
	records, err := s.Trail().Query(ctx, audit.Filter{EventType: audit.EventIntegrityFailure})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "greeting", records[0].ArtifactName)
	assert.False(t, records[0].Success)
}

func TestFS_Rollback_MovesPointerNonDestructively(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	mustCreate(t, s, "greeting", "1.0.0", "v1 content")
	mustCreate(t, s, "greeting", "2.0.0", "v2 content")

	rolled, err := s.Rollback(ctx, "greeting", "1.0.0", "alice")
	require.NoError(t, err)
	assert.Equal(t, "v1 content", rolled.Content)

	// Latest now resolves to v1.
	latest, err := s.Load(ctx, "greeting", "", "alice")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", latest.Version)
	assert.Equal(t, "v1 content", latest.Content)

	// The newer version is retained and loadable explicitly.
	v2, err := s.Load(ctx, "greeting", "2.0.0", "alice")
	require.NoError(t, err)
	assert.Equal(t, "v2 content", v2.Content)
}

func TestFS_Rollback_UnknownTargetIsNotFound(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	mustCreate(t, s, "greeting", "1.0.0", "v1")

	_, err := s.Rollback(ctx, "greeting", "3.0.0", "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Rollback(ctx, "ghost", "1.0.0", "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFS_Rollback_WritesAuditRecord(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	mustCreate(t, s, "greeting", "1.0.0", "v1")
	mustCreate(t, s, "greeting", "2.0.0", "v2")
	_, err := s.Rollback(ctx, "greeting", "1.0.0", "carol")
	require.NoError(t, err)

	records, err := s.Trail().Query(ctx, audit.Filter{EventType: audit.EventRollback})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "carol", records[0].Actor)
	assert.Equal(t, "1.0.0", records[0].ArtifactVersion)
}

func TestFS_ConcurrentCreate_ExactlyOneWins(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Create(ctx, store.CreateRequest{
				Name:    "contested",
				Content: "writer " + string(rune('a'+i)),
				Version: "1.0.0",
				Actor:   "racer",
			})
		}(i)
	}
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, store.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, conflicts)

	// Whatever won is fully readable, never partially written.
	a, err := s.Load(ctx, "contested", "1.0.0", "reader")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(a.Content, "writer "))
}

func TestFS_List_ReturnsMetadataOnly(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	mustCreate(t, s, "greeting", "1.0.0", "v1")
	mustCreate(t, s, "greeting", "1.1.0", "v2")
	mustCreate(t, s, "escalation", "1.0.0", "e1")

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "escalation", all[0].Name)
	for _, a := range all {
		assert.Empty(t, a.Content)
		assert.NotEmpty(t, a.Checksum)
	}

	one, err := s.List(ctx, "greeting")
	require.NoError(t, err)
	require.Len(t, one, 2)
	assert.Equal(t, "1.0.0", one[0].Version)
	assert.Equal(t, "1.1.0", one[1].Version)

	_, err = s.List(ctx, "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFS_Create_WritesAuditRecord(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	mustCreate(t, s, "greeting", "1.0.0", "hello")

	records, err := s.Trail().Query(ctx, audit.Filter{EventType: audit.EventCreate})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "alice", records[0].Actor)
	assert.True(t, records[0].Success)
}

func TestFS_Meta_ResolvesWithoutContent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	mustCreate(t, s, "greeting", "1.0.0", "hello")

	meta, resolved, err := s.Meta(ctx, "greeting", "")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", resolved)
	assert.Equal(t, store.CategoryUser, meta.Category)

	// Resolving metadata is not an access: no read record is written.
	records, err := s.Trail().Query(ctx, audit.Filter{EventType: audit.EventRead})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFS_Open_ReopensExistingVault(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := store.Open(dir, store.Options{})
	require.NoError(t, err)
	mustCreate(t, s, "greeting", "1.0.0", "hello")
	require.NoError(t, s.Close())

	reopened, err := store.Open(dir, store.Options{})
	require.NoError(t, err)
	defer reopened.Close()

	a, err := reopened.Load(ctx, "greeting", "", "alice")
	require.NoError(t, err)
	assert.Equal(t, "hello", a.Content)
}

func TestFS_Settings_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	custom := store.Settings{ValidationEnabled: true, ChecksumRequired: true, MaxContentSize: 500, AuditRetentionDays: 7}

	s, err := store.Open(dir, store.Options{Settings: &custom})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, custom, got)
}
