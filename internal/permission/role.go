package permission

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "shop-auth/pkg/errors"
)

// RoleAuthorityPrefix marks role authorities in token claims and authority sets.
const RoleAuthorityPrefix = "ROLE_"

var roleNamePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Role is one member of a Hierarchy.
type Role string

// Authority returns the hierarchical authority name, e.g. ROLE_ADMIN.
func (r Role) Authority() string {
	return RoleAuthorityPrefix + string(r)
}

func (r Role) String() string {
	return string(r)
}

// Hierarchy is a strict total order of roles, least privileged first.
// It is immutable once built.
type Hierarchy struct {
	roles []Role
	rank  map[Role]int
}

// NewHierarchy builds a hierarchy from roles ordered least to most privileged.
func NewHierarchy(roles ...Role) (*Hierarchy, error) {
	if len(roles) == 0 {
		return nil, apperrors.Validation(errHierarchyEmpty)
	}

	h := &Hierarchy{
		roles: make([]Role, 0, len(roles)),
		rank:  make(map[Role]int, len(roles)),
	}
	for i, r := range roles {
		if !roleNamePattern.MatchString(string(r)) {
			return nil, apperrors.Validation(fmt.Sprintf(errRoleNameInvalidFmt, r))
		}
		if _, dup := h.rank[r]; dup {
			return nil, apperrors.Validation(fmt.Sprintf(errDuplicateRoleFmt, r))
		}
		h.rank[r] = i
		h.roles = append(h.roles, r)
	}
	return h, nil
}

// MustHierarchy panics on an invalid role list. Use it for literals only.
func MustHierarchy(roles ...Role) *Hierarchy {
	h, err := NewHierarchy(roles...)
	if err != nil {
		panic(fmt.Sprintf("permission.MustHierarchy: %v", err))
	}
	return h
}

// Roles returns the roles least privileged first.
func (h *Hierarchy) Roles() []Role {
	out := make([]Role, len(h.roles))
	copy(out, h.roles)
	return out
}

func (h *Hierarchy) Lowest() Role {
	return h.roles[0]
}

func (h *Hierarchy) Highest() Role {
	return h.roles[len(h.roles)-1]
}

func (h *Hierarchy) Contains(r Role) bool {
	_, ok := h.rank[r]
	return ok
}

// Rank returns the position of r, 0 being the least privileged.
func (h *Hierarchy) Rank(r Role) (int, bool) {
	i, ok := h.rank[r]
	return i, ok
}

// AtLeast reports whether r is min or above it. Unknown roles are never elevated.
func (h *Hierarchy) AtLeast(r, min Role) bool {
	ri, ok1 := h.rank[r]
	mi, ok2 := h.rank[min]
	if !ok1 || !ok2 {
		return false
	}
	return ri >= mi
}

// Parse accepts a bare role name (ADMIN) or its authority (ROLE_ADMIN).
func (h *Hierarchy) Parse(name string) (Role, error) {
	r := Role(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(name)), RoleAuthorityPrefix))
	if !h.Contains(r) {
		return "", apperrors.Validation(fmt.Sprintf(errUnknownRoleFmt, name))
	}
	return r, nil
}

// ParseAuthority accepts only the ROLE_ form, exactly as it appears in claims.
func (h *Hierarchy) ParseAuthority(authority string) (Role, error) {
	if !strings.HasPrefix(authority, RoleAuthorityPrefix) {
		return "", apperrors.Validation(fmt.Sprintf(errUnknownRoleFmt, authority))
	}
	r := Role(strings.TrimPrefix(authority, RoleAuthorityPrefix))
	if !h.Contains(r) {
		return "", apperrors.Validation(fmt.Sprintf(errUnknownRoleFmt, authority))
	}
	return r, nil
}
