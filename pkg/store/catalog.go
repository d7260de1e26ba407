package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// catalogFile is the ledger document at the vault root.
const catalogFile = "catalog.yaml"

// Settings are the global knobs persisted alongside the ledger.
type Settings struct {
	ValidationEnabled  bool `yaml:"validation_enabled"`
	ChecksumRequired   bool `yaml:"checksum_required"`
	MaxContentSize     int  `yaml:"max_content_size"`
	AuditRetentionDays int  `yaml:"audit_retention_days"`
}

// DefaultSettings returns the compiled-in settings for a new vault.
func DefaultSettings() Settings {
	return Settings{
		ValidationEnabled:  true,
		ChecksumRequired:   true,
		MaxContentSize:     10000,
		AuditRetentionDays: 90,
	}
}

// VersionMeta is the per-version ledger record: everything about an
// artifact except its content.
type VersionMeta struct {
	ID           string     `yaml:"id"`
	Path         string     `yaml:"path"`
	Category     Category   `yaml:"category"`
	RiskLevel    RiskLevel  `yaml:"risk_level"`
	Checksum     string     `yaml:"checksum"`
	CreatedBy    string     `yaml:"created_by"`
	CreatedAt    time.Time  `yaml:"created_at"`
	Approved     bool       `yaml:"approved"`
	ApprovedBy   string     `yaml:"approved_by,omitempty"`
	ApprovedDate *time.Time `yaml:"approved_date,omitempty"`
	Tags         []string   `yaml:"tags,omitempty"`
}

// LedgerEntry tracks the ordered set of versions for one artifact name
// and its latest pointer. The pointer always refers to a version
// present in Versions.
type LedgerEntry struct {
	LatestVersion string                 `yaml:"latest_version"`
	Versions      map[string]VersionMeta `yaml:"versions"`
}

// VersionCount returns how many versions the entry tracks.
func (e *LedgerEntry) VersionCount() int { return len(e.Versions) }

// SortedVersions returns the entry's versions in ascending semver
// order.
func (e *LedgerEntry) SortedVersions() []string {
	parsed := make(semver.Collection, 0, len(e.Versions))
	for v := range e.Versions {
		sv, err := semver.NewVersion(v)
		if err != nil {
			continue
		}
		parsed = append(parsed, sv)
	}
	sort.Sort(parsed)
	out := make([]string, len(parsed))
	for i, sv := range parsed {
		out[i] = sv.Original()
	}
	return out
}

// catalog is the full ledger document.
type catalog struct {
	Settings Settings                `yaml:"settings"`
	Prompts  map[string]*LedgerEntry `yaml:"prompts"`
}

func newCatalog(settings Settings) *catalog {
	return &catalog{Settings: settings, Prompts: make(map[string]*LedgerEntry)}
}

func loadCatalog(root string) (*catalog, error) {
	data, err := os.ReadFile(filepath.Join(root, catalogFile))
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if c.Prompts == nil {
		c.Prompts = make(map[string]*LedgerEntry)
	}
	return &c, nil
}

// saveCatalog writes the ledger atomically: full content to a temp
// file in the same directory, then rename over the live document, so
// a reader never observes a half-written catalog.
func saveCatalog(root string, c *catalog) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	path := filepath.Join(root, catalogFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit catalog: %w", err)
	}
	return nil
}
