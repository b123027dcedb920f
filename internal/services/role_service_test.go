package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testHierarchy = []string{
	"Newbie Contributor",
	"Active Contributor",
	"Core Contributor",
	"Principal Contributor",
	"Maintainer",
}

var testProtected = []string{"CEO", "CTO"}

func TestRoleValidation(t *testing.T) {
	roles := NewRoleService(testHierarchy, testProtected)

	testCases := []struct {
		name        string
		action      string
		current     string
		target      string
		valid       bool
		errContains string
	}{
		{
			name:    "Valid promotion one tier up",
			action:  ActionPromote,
			current: "Active Contributor",
			target:  "Core Contributor",
			valid:   true,
		},
		{
			name:    "Valid promotion skipping tiers",
			action:  ActionPromote,
			current: "Newbie Contributor",
			target:  "Maintainer",
			valid:   true,
		},
		{
			name:        "Promotion to same tier rejected",
			action:      ActionPromote,
			current:     "Core Contributor",
			target:      "Core Contributor",
			valid:       false,
			errContains: "target is not higher",
		},
		{
			name:        "Promotion to lower tier rejected",
			action:      ActionPromote,
			current:     "Core Contributor",
			target:      "Newbie Contributor",
			valid:       false,
			errContains: "target is not higher",
		},
		{
			name:    "Valid demotion",
			action:  ActionDemote,
			current: "Maintainer",
			target:  "Active Contributor",
			valid:   true,
		},
		{
			name:        "Demotion to same tier rejected",
			action:      ActionDemote,
			current:     "Active Contributor",
			target:      "Active Contributor",
			valid:       false,
			errContains: "target is not lower",
		},
		{
			name:        "Demotion to higher tier rejected",
			action:      ActionDemote,
			current:     "Newbie Contributor",
			target:      "Maintainer",
			valid:       false,
			errContains: "target is not lower",
		},
		{
			name:        "Unknown target role rejected",
			action:      ActionPromote,
			current:     "Newbie Contributor",
			target:      "Benevolent Dictator",
			valid:       false,
			errContains: "not a valid governance role",
		},
		{
			name:    "Promotion from role outside hierarchy allowed",
			action:  ActionPromote,
			current: "Community Advocate",
			target:  "Newbie Contributor",
			valid:   true,
		},
		{
			// The demote comparison is skipped when the current role
			// sits outside the hierarchy. This asymmetry is intentional.
			name:    "Demotion from role outside hierarchy passes the guard",
			action:  ActionDemote,
			current: "Community Advocate",
			target:  "Newbie Contributor",
			valid:   true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := roles.Validate(tc.action, tc.current, tc.target)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.errContains)
			}
		})
	}
}

func TestProtectedRolesRejectEveryAction(t *testing.T) {
	roles := NewRoleService(testHierarchy, testProtected)

	for _, current := range testProtected {
		for _, action := range []string{ActionPromote, ActionDemote} {
			for _, target := range testHierarchy {
				err := roles.Validate(action, current, target)
				assert.Error(t, err, "expected %s from %s to %s to be rejected", action, current, target)
				assert.Contains(t, err.Error(), "protected")
			}
		}
	}
}

func TestRoleValidationOrderConsistency(t *testing.T) {
	roles := NewRoleService(testHierarchy, testProtected)

	// Promoting then demoting back must satisfy each direction rule
	// independently.
	assert.NoError(t, roles.Validate(ActionPromote, "Active Contributor", "Maintainer"))
	assert.NoError(t, roles.Validate(ActionDemote, "Maintainer", "Active Contributor"))

	// A round trip through an equal tier fails on both legs.
	assert.Error(t, roles.Validate(ActionPromote, "Maintainer", "Maintainer"))
	assert.Error(t, roles.Validate(ActionDemote, "Maintainer", "Maintainer"))
}

func TestLowestRole(t *testing.T) {
	roles := NewRoleService(testHierarchy, testProtected)
	assert.Equal(t, "Newbie Contributor", roles.LowestRole())
	assert.True(t, roles.IsProtected("CEO"))
	assert.False(t, roles.IsProtected("Maintainer"))
}
