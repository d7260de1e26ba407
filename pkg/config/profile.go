package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is an environment-specific overlay on top of the base
// configuration, loaded from profile_<name>.yaml.
type Profile struct {
	Name              string           `yaml:"name"`
	Environment       string           `yaml:"environment"`
	ValidationEnabled *bool            `yaml:"validation_enabled,omitempty"`
	ChecksumRequired  *bool            `yaml:"checksum_required,omitempty"`
	MaxContentSize    *int             `yaml:"max_content_size,omitempty"`
	RetentionDays     *int             `yaml:"retention_days,omitempty"`
	RolesPath         string           `yaml:"roles_path,omitempty"`
	RateLimit         *RateLimitConfig `yaml:"rate_limit,omitempty"`
	PIIMode           string           `yaml:"pii_mode,omitempty"` // "redact" | "block" | "off"
}

// RateLimitConfig bounds load throughput per actor.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// LoadProfile loads an environment profile by name from the profiles
// directory, looking for profile_<name>.yaml.
func LoadProfile(profilesDir, name string) (*Profile, error) {
	name = strings.ToLower(name)
	path := filepath.Join(profilesDir, fmt.Sprintf("profile_%s.yaml", name))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", name, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", name, err)
	}
	if p.Name == "" {
		p.Name = name
	}
	switch p.PIIMode {
	case "", "redact", "block", "off":
	default:
		return nil, &ConfigurationError{Setting: "pii_mode", Value: p.PIIMode, Reason: "must be redact, block or off"}
	}
	return &p, nil
}

// LoadAllProfiles loads every profile_*.yaml in the profiles directory,
// keyed by profile name.
func LoadAllProfiles(profilesDir string) (map[string]*Profile, error) {
	matches, err := filepath.Glob(filepath.Join(profilesDir, "profile_*.yaml"))
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]*Profile, len(matches))
	for _, path := range matches {
		base := filepath.Base(path)
		name := strings.TrimSuffix(strings.TrimPrefix(base, "profile_"), ".yaml")
		p, err := LoadProfile(profilesDir, name)
		if err != nil {
			return nil, err
		}
		profiles[p.Name] = p
	}
	return profiles, nil
}

// Apply overlays the profile's set fields onto cfg.
func (p *Profile) Apply(cfg *Config) {
	if p.ValidationEnabled != nil {
		cfg.ValidationEnabled = *p.ValidationEnabled
	}
	if p.ChecksumRequired != nil {
		cfg.ChecksumRequired = *p.ChecksumRequired
	}
	if p.MaxContentSize != nil {
		cfg.MaxContentSize = *p.MaxContentSize
	}
	if p.RetentionDays != nil {
		cfg.RetentionDays = *p.RetentionDays
	}
	if p.RolesPath != "" {
		cfg.RolesPath = p.RolesPath
	}
	if p.RateLimit != nil {
		cfg.RateLimitPerSec = p.RateLimit.PerSecond
		cfg.RateLimitBurst = p.RateLimit.Burst
	}
}
