package security

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RolesFile is the on-disk shape of a roles document: a role map plus
// optional actor-to-role assignments for callers that resolve roles
// from identity.
type RolesFile struct {
	Roles       RoleMap             `yaml:"roles"`
	Assignments map[string][]string `yaml:"assignments,omitempty"`
}

// LoadRoles reads a roles YAML document from path.
func LoadRoles(path string) (*RolesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load roles %q: %w", path, err)
	}
	var rf RolesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse roles %q: %w", path, err)
	}
	if len(rf.Roles) == 0 {
		return nil, fmt.Errorf("roles %q: no roles defined", path)
	}
	return &rf, nil
}

// RoleFor resolves the first assigned role for an actor, falling back
// to "user" when the actor has no assignment.
func (rf *RolesFile) RoleFor(actorID string) string {
	if roles := rf.Assignments[actorID]; len(roles) > 0 {
		return roles[0]
	}
	return "user"
}
