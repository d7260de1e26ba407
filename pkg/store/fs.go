package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/promptvault/promptvault/pkg/audit"
	"github.com/promptvault/promptvault/pkg/checksum"
)

// AuditFile is the trail document at the vault root.
const AuditFile = "audit.jsonl"

// Options tune a filesystem store.
type Options struct {
	// Settings seed the catalog when initializing a new vault.
	// Ignored when a catalog already exists.
	Settings *Settings
	// Logger defaults to slog.Default.
	Logger *slog.Logger
	// Trail overrides the vault's own audit trail, mainly for tests.
	Trail *audit.Trail
}

// FS is the filesystem storage backend.
//
// Mutations for the same artifact name are serialized by a per-name
// lock held across the whole read-ledger/write-content/write-ledger
// region, which makes "check version doesn't exist, then write"
// atomic. Reads never take that lock: the catalog and artifact files
// are committed by atomic rename, and checksum verification on load
// catches any torn state instead of blocking readers.
type FS struct {
	root   string
	trail  *audit.Trail
	logger *slog.Logger

	locks nameLocks
	// catMu serializes read-modify-write cycles of the shared catalog
	// document across different artifact names.
	catMu sync.Mutex
}

// nameLocks hands out one mutex per artifact name.
type nameLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *nameLocks) acquire(name string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.m == nil {
		l.m = make(map[string]*sync.Mutex)
	}
	nl, ok := l.m[name]
	if !ok {
		nl = &sync.Mutex{}
		l.m[name] = nl
	}
	return nl
}

// Open initializes (or opens) a vault rooted at dir.
func Open(dir string, opts Options) (*FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure vault root: %w", err)
	}

	if _, err := os.Stat(filepath.Join(dir, catalogFile)); os.IsNotExist(err) {
		settings := DefaultSettings()
		if opts.Settings != nil {
			settings = *opts.Settings
		}
		if err := saveCatalog(dir, newCatalog(settings)); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat catalog: %w", err)
	}

	trail := opts.Trail
	if trail == nil {
		var err error
		trail, err = audit.Open(filepath.Join(dir, AuditFile))
		if err != nil {
			return nil, err
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &FS{root: dir, trail: trail, logger: logger.With("component", "store")}, nil
}

// Close releases the store's audit trail.
func (s *FS) Close() error { return s.trail.Close() }

// Root returns the vault directory.
func (s *FS) Root() string { return s.root }

// Trail exposes the store's audit trail for offline review.
func (s *FS) Trail() *audit.Trail { return s.trail }

// Settings returns the catalog's global settings.
func (s *FS) Settings(ctx context.Context) (Settings, error) {
	cat, err := loadCatalog(s.root)
	if err != nil {
		return Settings{}, err
	}
	return cat.Settings, nil
}

// CreateRequest carries everything needed to persist a new artifact
// version.
type CreateRequest struct {
	Name      string
	Content   string
	Version   string
	Category  Category
	RiskLevel RiskLevel
	Actor     string
	Approved  bool
	Tags      []string
}

func (r *CreateRequest) validate() error {
	if err := validateName(r.Name); err != nil {
		return err
	}
	if r.Actor == "" {
		return fmt.Errorf("actor is required")
	}
	if r.Category == "" {
		r.Category = CategoryUser
	}
	if !r.Category.Valid() {
		return fmt.Errorf("invalid category %q", r.Category)
	}
	if r.RiskLevel == "" {
		r.RiskLevel = RiskMedium
	}
	if !r.RiskLevel.Valid() {
		return fmt.Errorf("invalid risk level %q", r.RiskLevel)
	}
	if _, err := semver.NewVersion(r.Version); err != nil {
		return fmt.Errorf("invalid version %q: %w", r.Version, err)
	}
	return nil
}

// Create persists a new (name, version) artifact. The pair must not
// already exist; existing versions are immutable. The ledger's latest
// pointer advances only when the new version is semver-greater than
// the current one, so importing an older version never moves "latest"
// backwards.
func (s *FS) Create(ctx context.Context, req CreateRequest) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	lock := s.locks.acquire(req.Name)
	lock.Lock()
	defer lock.Unlock()

	a, err := s.createLocked(req)
	if err != nil {
		return nil, err
	}

	if _, err := s.trail.Append(ctx, audit.Record{
		Actor:           req.Actor,
		EventType:       audit.EventCreate,
		ArtifactName:    a.Name,
		ArtifactVersion: a.Version,
		Success:         true,
		Details:         map[string]any{"category": string(a.Category), "checksum": a.Checksum},
	}); err != nil {
		return nil, err
	}

	s.logger.Info("artifact created", "name", a.Name, "version", a.Version, "actor", req.Actor)
	return a, nil
}

func (s *FS) createLocked(req CreateRequest) (*Artifact, error) {
	s.catMu.Lock()
	defer s.catMu.Unlock()

	cat, err := loadCatalog(s.root)
	if err != nil {
		return nil, err
	}

	entry := cat.Prompts[req.Name]
	if entry == nil {
		entry = &LedgerEntry{Versions: make(map[string]VersionMeta)}
		cat.Prompts[req.Name] = entry
	}
	if _, exists := entry.Versions[req.Version]; exists {
		return nil, &ConflictError{Name: req.Name, Version: req.Version}
	}

	now := time.Now().UTC()
	a := &Artifact{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Version:   req.Version,
		Category:  req.Category,
		RiskLevel: req.RiskLevel,
		Checksum:  checksum.Digest(req.Content),
		CreatedBy: req.Actor,
		CreatedAt: now,
		Approved:  req.Approved,
		Tags:      req.Tags,
		Content:   req.Content,
	}

	relPath := filepath.Join(req.Name, req.Version+".md")
	if err := s.writeArtifactFile(relPath, a); err != nil {
		return nil, err
	}

	entry.Versions[req.Version] = VersionMeta{
		ID:        a.ID,
		Path:      relPath,
		Category:  a.Category,
		RiskLevel: a.RiskLevel,
		Checksum:  a.Checksum,
		CreatedBy: a.CreatedBy,
		CreatedAt: a.CreatedAt,
		Approved:  a.Approved,
		Tags:      a.Tags,
	}
	if shouldAdvance(entry.LatestVersion, req.Version) {
		entry.LatestVersion = req.Version
	}

	if err := saveCatalog(s.root, cat); err != nil {
		return nil, err
	}
	return a, nil
}

// shouldAdvance reports whether the latest pointer moves to candidate.
func shouldAdvance(current, candidate string) bool {
	if current == "" {
		return true
	}
	cur, err := semver.NewVersion(current)
	if err != nil {
		return true
	}
	cand, err := semver.NewVersion(candidate)
	if err != nil {
		return false
	}
	return cand.GreaterThan(cur)
}

// writeArtifactFile commits the artifact document atomically.
func (s *FS) writeArtifactFile(relPath string, a *Artifact) error {
	data, err := encodeArtifactFile(a)
	if err != nil {
		return err
	}
	full := filepath.Join(s.root, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("ensure artifact dir: %w", err)
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		return fmt.Errorf("commit artifact: %w", err)
	}
	return nil
}

// resolve finds the ledger record for (name, version), resolving an
// empty version through the latest pointer.
func (s *FS) resolve(name, version string) (VersionMeta, string, error) {
	cat, err := loadCatalog(s.root)
	if err != nil {
		return VersionMeta{}, "", err
	}
	entry := cat.Prompts[name]
	if entry == nil {
		return VersionMeta{}, "", &NotFoundError{Name: name}
	}
	if version == "" {
		version = entry.LatestVersion
		if version == "" {
			return VersionMeta{}, "", &NotFoundError{Name: name}
		}
	}
	meta, ok := entry.Versions[version]
	if !ok {
		return VersionMeta{}, "", &NotFoundError{Name: name, Version: version}
	}
	return meta, version, nil
}

// Meta returns ledger metadata for (name, version) without reading
// content. An empty version resolves to the latest pointer.
func (s *FS) Meta(ctx context.Context, name, version string) (VersionMeta, string, error) {
	if err := ctx.Err(); err != nil {
		return VersionMeta{}, "", fmt.Errorf("meta: %w", err)
	}
	if err := validateName(name); err != nil {
		return VersionMeta{}, "", err
	}
	return s.resolve(name, version)
}

// Load reads an artifact and always verifies its checksum against the
// ledger before returning. A mismatch is a hard IntegrityError and is
// recorded in the audit trail as an integrity failure; altered content
// is never returned. Loads take no lock.
func (s *FS) Load(ctx context.Context, name, version, actor string) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	if err := validateName(name); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	meta, resolved, err := s.resolve(name, version)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(filepath.Join(s.root, meta.Path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Name: name, Version: resolved}
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	a, err := decodeArtifactFile(raw)
	if err != nil {
		return nil, err
	}

	if !checksum.Verify(a.Content, meta.Checksum) {
		intErr := &IntegrityError{
			Name:     name,
			Version:  resolved,
			Expected: meta.Checksum,
			Actual:   checksum.Digest(a.Content),
		}
		if _, err := s.trail.Append(ctx, audit.Record{
			Actor:           actor,
			EventType:       audit.EventIntegrityFailure,
			ArtifactName:    name,
			ArtifactVersion: resolved,
			Success:         false,
			Details:         map[string]any{"expected": intErr.Expected, "actual": intErr.Actual},
		}); err != nil {
			s.logger.Error("audit append failed", "error", err)
		}
		s.logger.Warn("integrity failure", "name", name, "version", resolved)
		return nil, intErr
	}

	if _, err := s.trail.Append(ctx, audit.Record{
		Actor:           actor,
		EventType:       audit.EventRead,
		ArtifactName:    name,
		ArtifactVersion: resolved,
		Success:         true,
	}); err != nil {
		return nil, err
	}

	a.Name = name
	a.Version = resolved
	return a, nil
}

// Rollback moves the latest pointer for name back to an existing
// version. Non-destructive: newer versions stay in the ledger and
// remain loadable explicitly.
func (s *FS) Rollback(ctx context.Context, name, toVersion, actor string) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rollback: %w", err)
	}
	if err := validateName(name); err != nil {
		return nil, fmt.Errorf("rollback: %w", err)
	}
	if toVersion == "" {
		return nil, fmt.Errorf("rollback: target version is required")
	}

	lock := s.locks.acquire(name)
	lock.Lock()
	defer lock.Unlock()

	if err := s.rollbackLocked(name, toVersion); err != nil {
		return nil, err
	}

	if _, err := s.trail.Append(ctx, audit.Record{
		Actor:           actor,
		EventType:       audit.EventRollback,
		ArtifactName:    name,
		ArtifactVersion: toVersion,
		Success:         true,
	}); err != nil {
		return nil, err
	}
	s.logger.Info("artifact rolled back", "name", name, "version", toVersion, "actor", actor)

	return s.Load(ctx, name, toVersion, actor)
}

func (s *FS) rollbackLocked(name, toVersion string) error {
	s.catMu.Lock()
	defer s.catMu.Unlock()

	cat, err := loadCatalog(s.root)
	if err != nil {
		return err
	}
	entry := cat.Prompts[name]
	if entry == nil {
		return &NotFoundError{Name: name}
	}
	if _, ok := entry.Versions[toVersion]; !ok {
		return &NotFoundError{Name: name, Version: toVersion}
	}
	if entry.LatestVersion == toVersion {
		return nil // already latest; the audit record is still written
	}
	entry.LatestVersion = toVersion
	return saveCatalog(s.root, cat)
}

// List returns metadata-only artifacts. With a name it lists every
// version of that name in ascending semver order; without, every
// version of every name sorted by name then version. Each call
// re-reads the ledger.
func (s *FS) List(ctx context.Context, name string) ([]Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	cat, err := loadCatalog(s.root)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(cat.Prompts))
	if name != "" {
		if cat.Prompts[name] == nil {
			return nil, &NotFoundError{Name: name}
		}
		names = append(names, name)
	} else {
		for n := range cat.Prompts {
			names = append(names, n)
		}
		sort.Strings(names)
	}

	var out []Artifact
	for _, n := range names {
		entry := cat.Prompts[n]
		for _, v := range entry.SortedVersions() {
			meta := entry.Versions[v]
			out = append(out, Artifact{
				ID:           meta.ID,
				Name:         n,
				Version:      v,
				Category:     meta.Category,
				RiskLevel:    meta.RiskLevel,
				Checksum:     meta.Checksum,
				CreatedBy:    meta.CreatedBy,
				CreatedAt:    meta.CreatedAt,
				Approved:     meta.Approved,
				ApprovedBy:   meta.ApprovedBy,
				ApprovedDate: meta.ApprovedDate,
				Tags:         meta.Tags,
			})
		}
	}
	return out, nil
}

// Latest returns the latest-pointer version for name.
func (s *FS) Latest(ctx context.Context, name string) (string, error) {
	_, resolved, err := s.Meta(ctx, name, "")
	return resolved, err
}
