package services

import "fmt"

// Role change actions
const (
	ActionPromote = "promote"
	ActionDemote  = "demote"
)

// RoleService validates role transitions against the ordered hierarchy.
// It is a pure validator with no side effects; the command path is its
// only caller.
type RoleService struct {
	hierarchy []string
	protected map[string]bool
}

// NewRoleService creates a new RoleService. The hierarchy is ordered
// lowest tier first.
func NewRoleService(hierarchy, protected []string) *RoleService {
	protectedSet := make(map[string]bool, len(protected))
	for _, role := range protected {
		protectedSet[role] = true
	}
	return &RoleService{
		hierarchy: hierarchy,
		protected: protectedSet,
	}
}

// LowestRole returns the bottom hierarchy tier
func (s *RoleService) LowestRole() string {
	return s.hierarchy[0]
}

// IsProtected reports whether a role is exempt from automated changes
func (s *RoleService) IsProtected(role string) bool {
	return s.protected[role]
}

func (s *RoleService) index(role string) int {
	for i, r := range s.hierarchy {
		if r == role {
			return i
		}
	}
	return -1
}

// Validate checks whether changing currentRole to targetRole is a valid
// promotion or demotion. A nil return means the transition is allowed;
// otherwise the error carries the rejection reason shown to the
// requester.
//
// A current role outside the hierarchy (and not protected) maps to
// index -1: any promotion is allowed, and the demote comparison is
// skipped entirely for it. Existing registries rely on that asymmetry
// to move legacy roles back into the hierarchy in either direction.
func (s *RoleService) Validate(action, currentRole, targetRole string) error {
	targetIdx := s.index(targetRole)
	if targetIdx == -1 {
		return fmt.Errorf("Role '%s' is not a valid governance role.", targetRole)
	}

	if s.protected[currentRole] {
		return fmt.Errorf("Role '%s' is protected and cannot be changed via governance commands.", currentRole)
	}

	currentIdx := s.index(currentRole)

	switch action {
	case ActionPromote:
		if targetIdx <= currentIdx {
			return fmt.Errorf("Cannot promote to '%s' from '%s' (target is not higher).", targetRole, currentRole)
		}
	case ActionDemote:
		if targetIdx >= currentIdx && currentIdx != -1 {
			return fmt.Errorf("Cannot demote to '%s' from '%s' (target is not lower).", targetRole, currentRole)
		}
	}

	return nil
}
