package security

import (
	"context"
	"fmt"
	"sort"
)

// RoleMap assigns each role the set of artifact categories it may
// access.
type RoleMap map[string][]string

// DefaultRoles is the compiled-in fallback role map. Callers with a
// roles file pass their own map to NewRBAC instead.
func DefaultRoles() RoleMap {
	return RoleMap{
		"admin":     {"system", "user", "fallback", "internal", "template"},
		"developer": {"user", "fallback", "internal"},
		"user":      {"user"},
	}
}

// RBAC enforces role-based access to artifact categories. An unknown
// role denies everything: access control fails closed.
type RBAC struct {
	allowed map[string]map[string]bool
}

// NewRBAC builds the unit from a role map. A nil map selects
// DefaultRoles.
func NewRBAC(roles RoleMap) (*RBAC, error) {
	if roles == nil {
		roles = DefaultRoles()
	}
	allowed := make(map[string]map[string]bool, len(roles))
	for role, categories := range roles {
		if role == "" {
			return nil, fmt.Errorf("rbac: empty role name")
		}
		set := make(map[string]bool, len(categories))
		for _, c := range categories {
			if c == "" {
				return nil, fmt.Errorf("rbac: role %q has an empty category", role)
			}
			set[c] = true
		}
		allowed[role] = set
	}
	return &RBAC{allowed: allowed}, nil
}

func (r *RBAC) Name() string { return "rbac" }

// AllowedCategories returns the categories granted to role, sorted.
func (r *RBAC) AllowedCategories(role string) []string {
	set := r.allowed[role]
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (r *RBAC) Process(ctx context.Context, content string, sctx Context) (Result, error) {
	role := sctx.Role
	if role == "" {
		role = "user"
	}
	category := sctx.Category
	if category == "" {
		category = "user"
	}

	set, known := r.allowed[role]
	if !known || !set[category] {
		return Result{
			Content:   content,
			Safe:      false,
			RiskScore: 1.0,
			Violations: []string{
				fmt.Sprintf("access denied: role %q cannot access category %q", role, category),
			},
			Metadata: map[string]any{
				"role":               role,
				"category":           category,
				"role_known":         known,
				"allowed_categories": r.AllowedCategories(role),
			},
		}, nil
	}

	return Result{
		Content: content,
		Safe:    true,
		Metadata: map[string]any{
			"role":     role,
			"category": category,
		},
	}, nil
}
