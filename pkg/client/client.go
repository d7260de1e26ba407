// Package client is the high-level facade over the vault: every
// operation goes through storage plus the security pipeline appropriate
// for it, so callers never touch unscreened content.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/promptvault/promptvault/pkg/audit"
	"github.com/promptvault/promptvault/pkg/config"
	"github.com/promptvault/promptvault/pkg/security"
	"github.com/promptvault/promptvault/pkg/store"
)

// AccessFile is the pipeline auditor's log at the vault root, kept
// separate from the store's own trail.
const AccessFile = "access.jsonl"

// Client wires the filesystem store to the write and read pipelines.
//
// Writes pass through validation, injection sanitization, PII
// screening and access control before anything is persisted. Reads
// pass through rate limiting and access control before content is
// released, and every released read is logged by the pipeline auditor.
type Client struct {
	store  *store.FS
	logger *slog.Logger

	createPipe *security.Pipeline
	loadPipe   *security.Pipeline

	roleFor func(actorID string) string
}

// Open builds a client from configuration, initializing the vault at
// cfg.BasePath if it does not exist yet.
func Open(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	settings := store.Settings{
		ValidationEnabled:  cfg.ValidationEnabled,
		ChecksumRequired:   cfg.ChecksumRequired,
		MaxContentSize:     cfg.MaxContentSize,
		AuditRetentionDays: cfg.RetentionDays,
	}
	st, err := store.Open(cfg.BasePath, store.Options{Settings: &settings, Logger: logger})
	if err != nil {
		return nil, err
	}

	roles := security.DefaultRoles()
	roleFor := func(string) string { return "user" }
	if cfg.RolesPath != "" {
		rf, err := security.LoadRoles(cfg.RolesPath)
		if err != nil {
			st.Close()
			return nil, err
		}
		roles = rf.Roles
		roleFor = rf.RoleFor
	}

	c, err := build(st, cfg, roles, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	c.roleFor = roleFor
	return c, nil
}

func build(st *store.FS, cfg *config.Config, roles security.RoleMap, logger *slog.Logger) (*Client, error) {
	rbac, err := security.NewRBAC(roles)
	if err != nil {
		return nil, err
	}
	sanitizer, err := security.NewSanitizer(security.SanitizerConfig{})
	if err != nil {
		return nil, err
	}
	auditor, err := security.NewAuditor(filepath.Join(st.Root(), AccessFile))
	if err != nil {
		return nil, err
	}
	limiter, err := security.NewRateLimiter(cfg.RateLimitPerSec, cfg.RateLimitBurst)
	if err != nil {
		return nil, err
	}

	createUnits := []security.Middleware{}
	if cfg.ValidationEnabled {
		createUnits = append(createUnits, security.NewInputValidator(cfg.MaxContentSize))
	}
	createUnits = append(createUnits,
		sanitizer,
		security.NewPIIScreen(false),
		rbac,
		auditor,
	)
	createPipe, err := security.NewPipeline(createUnits...)
	if err != nil {
		return nil, err
	}

	loadPipe, err := security.NewPipeline(limiter, rbac, auditor)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      st,
		logger:     logger.With("component", "client"),
		createPipe: createPipe,
		loadPipe:   loadPipe,
	}, nil
}

// Close releases the underlying store.
func (c *Client) Close() error { return c.store.Close() }

// Store exposes the underlying store for operations that bypass the
// pipelines, such as offline audit review.
func (c *Client) Store() *store.FS { return c.store }

// CreateRequest mirrors the store's create parameters; the client
// resolves the actor's role itself.
type CreateRequest struct {
	Name      string
	Content   string
	Version   string
	Category  store.Category
	RiskLevel store.RiskLevel
	Actor     string
	Approved  bool
	Tags      []string
}

// Create screens the content through the write pipeline and persists
// the screened form. Sanitizer and PII redactions are applied before
// storage, so the vault never holds the raw submission. A pipeline
// denial is returned as a ComplianceError and recorded on the audit
// trail; nothing is persisted.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*store.Artifact, error) {
	category := req.Category
	if category == "" {
		category = store.CategoryUser
	}

	sctx, err := security.NewContext(req.Actor, req.Name)
	if err != nil {
		return nil, err
	}
	sctx.Role = c.roleFor(req.Actor)
	sctx.Category = string(category)
	if req.RiskLevel != "" {
		sctx.RiskLevel = security.RiskLevel(req.RiskLevel)
	}

	res, err := c.createPipe.Execute(ctx, req.Content, sctx)
	if err != nil {
		return nil, err
	}
	if denial := security.Denial(res); denial != nil {
		c.auditDenial(ctx, req.Actor, req.Name, req.Version, res)
		return nil, denial
	}

	return c.store.Create(ctx, store.CreateRequest{
		Name:      req.Name,
		Content:   res.Content,
		Version:   req.Version,
		Category:  category,
		RiskLevel: req.RiskLevel,
		Actor:     req.Actor,
		Approved:  req.Approved,
		Tags:      req.Tags,
	})
}

// Load retrieves an artifact and screens the access through the read
// pipeline. A denial is returned as a ComplianceError and the content
// is withheld. An empty version resolves to the latest pointer.
func (c *Client) Load(ctx context.Context, name, version, actor string) (*store.Artifact, error) {
	meta, resolved, err := c.store.Meta(ctx, name, version)
	if err != nil {
		return nil, err
	}

	sctx, err := security.NewContext(actor, name)
	if err != nil {
		return nil, err
	}
	sctx.Role = c.roleFor(actor)
	sctx.Category = string(meta.Category)
	sctx.RiskLevel = security.RiskLevel(meta.RiskLevel)

	a, err := c.store.Load(ctx, name, resolved, actor)
	if err != nil {
		return nil, err
	}

	res, err := c.loadPipe.Execute(ctx, a.Content, sctx)
	if err != nil {
		return nil, err
	}
	if denial := security.Denial(res); denial != nil {
		c.auditDenial(ctx, actor, name, resolved, res)
		return nil, denial
	}
	return a, nil
}

// Rollback verifies the actor may touch the artifact's category, then
// moves the latest pointer through the store.
func (c *Client) Rollback(ctx context.Context, name, toVersion, actor string) (*store.Artifact, error) {
	meta, _, err := c.store.Meta(ctx, name, toVersion)
	if err != nil {
		return nil, err
	}

	sctx, err := security.NewContext(actor, name)
	if err != nil {
		return nil, err
	}
	sctx.Role = c.roleFor(actor)
	sctx.Category = string(meta.Category)

	res, err := c.loadPipe.Execute(ctx, "", sctx)
	if err != nil {
		return nil, err
	}
	if denial := security.Denial(res); denial != nil {
		c.auditDenial(ctx, actor, name, toVersion, res)
		return nil, denial
	}

	return c.store.Rollback(ctx, name, toVersion, actor)
}

// List returns metadata-only artifacts straight from the ledger; no
// content is released, so no pipeline runs.
func (c *Client) List(ctx context.Context, name string) ([]store.Artifact, error) {
	return c.store.List(ctx, name)
}

// auditDenial records a blocked request on the store's trail. Denials
// from the sanitizer are classed as injection attempts; everything
// else is an access denial.
func (c *Client) auditDenial(ctx context.Context, actor, name, version string, res security.Result) {
	event := audit.EventAccessDenied
	if res.FailedUnit == "sanitizer" {
		event = audit.EventInjectionAttempt
	}
	if _, err := c.store.Trail().Append(ctx, audit.Record{
		Actor:           actor,
		EventType:       event,
		ArtifactName:    name,
		ArtifactVersion: version,
		Success:         false,
		Details: map[string]any{
			"unit":       res.FailedUnit,
			"risk_score": res.RiskScore,
			"violations": res.Violations,
		},
	}); err != nil {
		c.logger.Error("audit append failed", "error", err)
	}
	c.logger.Warn("request blocked",
		"actor", actor, "name", name, "unit", res.FailedUnit, "risk", res.RiskScore)
}

// BulkCreate persists a set of artifacts through the full write
// pipeline, continuing past individual failures. It returns the
// artifacts that were stored and one error per rejected item.
func (c *Client) BulkCreate(ctx context.Context, reqs []CreateRequest) ([]*store.Artifact, []error) {
	var created []*store.Artifact
	var errs []error
	for _, req := range reqs {
		a, err := c.Create(ctx, req)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s@%s: %w", req.Name, req.Version, err))
			continue
		}
		created = append(created, a)
	}
	return created, errs
}

// IsDenied reports whether err is a pipeline denial rather than a
// storage failure.
func IsDenied(err error) bool {
	var ce *security.ComplianceError
	return errors.As(err, &ce)
}
