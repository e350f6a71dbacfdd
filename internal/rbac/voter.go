package rbac

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"shop-auth/internal/permission"
)

// A role satisfies its own authority and, through g, every lower role's.
const hierarchyModel = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj
`

// Voter decides whether a set of authorities satisfies a required one.
// Permission authorities must be held directly; role authorities are also
// satisfied by any higher role.
type Voter struct {
	enforcer *casbin.Enforcer
}

// NewVoter links every role to every role below it, so lookups never walk
// more than one level.
func NewVoter(h *permission.Hierarchy) (*Voter, error) {
	m, err := model.NewModelFromString(hierarchyModel)
	if err != nil {
		return nil, fmt.Errorf(errBuildModelFmt, err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf(errNewEnforcerFmt, err)
	}

	roles := h.Roles()
	for i, r := range roles {
		policy := []string{r.Authority(), r.Authority()}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return nil, fmt.Errorf(errAddPolicyFmt, policy, err)
		}
		for _, lower := range roles[:i] {
			if _, err := enforcer.AddGroupingPolicy(r.Authority(), lower.Authority()); err != nil {
				return nil, fmt.Errorf(errAddGroupingPolicyFmt, r, lower, err)
			}
		}
	}

	return &Voter{enforcer: enforcer}, nil
}

func MustNewVoter(h *permission.Hierarchy) *Voter {
	v, err := NewVoter(h)
	if err != nil {
		panic(fmt.Sprintf(errMustNewPanicFmt, err))
	}
	return v
}

// Allows reports whether held satisfies required.
func (v *Voter) Allows(held permission.Authorities, required string) bool {
	if required == "" {
		return false
	}
	if held.Has(required) {
		return true
	}
	if !strings.HasPrefix(required, permission.RoleAuthorityPrefix) {
		return false
	}

	for a := range held {
		if !strings.HasPrefix(a, permission.RoleAuthorityPrefix) {
			continue
		}
		ok, err := v.enforcer.Enforce(a, required)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// Authorize is Allows with a reason.
func (v *Voter) Authorize(held permission.Authorities, required string) error {
	if required == "" {
		return fmt.Errorf("%w: %w", ErrDenied, ErrEmptyRequired)
	}
	if held == nil {
		return fmt.Errorf("%w: %w", ErrDenied, ErrNoPrincipal)
	}
	if !v.Allows(held, required) {
		return fmt.Errorf("%w: "+errDeniedMissingFmt, ErrDenied, required)
	}
	return nil
}
