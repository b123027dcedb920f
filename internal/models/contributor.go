package models

import "strings"

// Contributor status values
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Contributor represents a human entity tracked with a governance role.
// Username keeps its display casing; identity comparisons are always
// case-insensitive.
type Contributor struct {
	Username     string `yaml:"username"`
	Role         string `yaml:"role"`
	Team         string `yaml:"team"`
	Status       string `yaml:"status"`
	AssignedBy   string `yaml:"assigned_by"`
	AssignedAt   string `yaml:"assigned_at"`
	LastActivity string `yaml:"last_activity"`
	Notes        string `yaml:"notes"`
}

// NewContributor creates a contributor at the lowest hierarchy tier
func NewContributor(username, role, team, assignedBy, assignedAt, lastActivity, notes string) *Contributor {
	return &Contributor{
		Username:     username,
		Role:         role,
		Team:         team,
		Status:       StatusActive,
		AssignedBy:   assignedBy,
		AssignedAt:   assignedAt,
		LastActivity: lastActivity,
		Notes:        notes,
	}
}

// Metadata drives the clean-start vs incremental decision
type Metadata struct {
	LastSync           string `yaml:"last_sync,omitempty"`
	TotalContributors  int    `yaml:"total_contributors"`
	ActiveContributors int    `yaml:"active_contributors"`
}

// Registry is the primary contributor registry document
type Registry struct {
	Contributors []*Contributor `yaml:"contributors"`
	Metadata     Metadata       `yaml:"metadata"`
}

// Find returns the contributor matching username case-insensitively
func (r *Registry) Find(username string) *Contributor {
	lower := strings.ToLower(username)
	for _, c := range r.Contributors {
		if strings.ToLower(c.Username) == lower {
			return c
		}
	}
	return nil
}

// Remove detaches the contributor matching username case-insensitively
// and reports whether a record was removed.
func (r *Registry) Remove(username string) bool {
	lower := strings.ToLower(username)
	for i, c := range r.Contributors {
		if strings.ToLower(c.Username) == lower {
			r.Contributors = append(r.Contributors[:i], r.Contributors[i+1:]...)
			return true
		}
	}
	return false
}

// ActiveCount returns the number of contributors with active status
func (r *Registry) ActiveCount() int {
	count := 0
	for _, c := range r.Contributors {
		if c.Status == StatusActive {
			count++
		}
	}
	return count
}
