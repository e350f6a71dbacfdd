package permission

import (
	"encoding/json"
	"fmt"
	"sort"

	apperrors "shop-auth/pkg/errors"
)

// Model combines the role hierarchy with the operation catalog and is the
// only place permissions are validated against configuration.
type Model struct {
	hierarchy *Hierarchy
	catalog   *Catalog
}

func NewModel(h *Hierarchy, c *Catalog) *Model {
	return &Model{hierarchy: h, catalog: c}
}

func (m *Model) Hierarchy() *Hierarchy {
	return m.hierarchy
}

func (m *Model) Catalog() *Catalog {
	return m.catalog
}

// ExpandAuthorities returns the role authority plus every OPERATION_FUNCTION held.
func (m *Model) ExpandAuthorities(role Role, perms *Set) (Authorities, error) {
	if !m.hierarchy.Contains(role) {
		return nil, apperrors.Validation(fmt.Sprintf(errUnknownRoleFmt, role))
	}
	a := perms.Authorities()
	a.Add(role.Authority())
	return a, nil
}

// AuthoritiesFromClaims rebuilds an authority set from a token's role and
// perm claims. Permission authorities outside the catalog are dropped and
// reported in the second return value.
func (m *Model) AuthoritiesFromClaims(roleAuthority string, perms []string) (Authorities, []string, error) {
	role, err := m.hierarchy.ParseAuthority(roleAuthority)
	if err != nil {
		return nil, nil, err
	}

	a := NewAuthorities(role.Authority())
	var dropped []string
	for _, p := range perms {
		if _, _, err := m.catalog.ParseAuthority(p); err != nil {
			dropped = append(dropped, p)
			continue
		}
		a.Add(p)
	}
	return a, dropped, nil
}

// AddFunction is idempotent.
func (m *Model) AddFunction(perms *Set, op Operation, fn Function) error {
	if err := m.check(op, fn); err != nil {
		return err
	}
	perms.add(op, fn)
	return nil
}

// RemoveFunction reports whether anything was removed.
func (m *Model) RemoveFunction(perms *Set, op Operation, fn Function) (bool, error) {
	if err := m.check(op, fn); err != nil {
		return false, err
	}
	return perms.remove(op, fn), nil
}

// GrantAll gives identity every function on every catalog operation.
func (m *Model) GrantAll(identity string) *Set {
	s := NewSet(identity)
	for _, op := range m.catalog.operations {
		for _, fn := range allFunctions {
			s.add(op, fn)
		}
	}
	return s
}

// MissingFrom returns the records GrantAll would add to perms.
func (m *Model) MissingFrom(perms *Set) []*UserPermission {
	var missing []*UserPermission
	for _, want := range m.GrantAll(perms.identity).Permissions() {
		var fns []Function
		for _, fn := range want.Functions() {
			if have, ok := perms.Get(want.Operation); !ok || !have.Has(fn) {
				fns = append(fns, fn)
			}
		}
		if len(fns) > 0 {
			p, _ := NewUserPermission(perms.identity, want.Operation, fns...)
			missing = append(missing, p)
		}
	}
	return missing
}

// DecodeStoredSet parses the {"OP":["FN"]} form read back from storage. Operations
// dropped from the catalog since they were written, unknown functions and
// empty lists are skipped and reported as authority-like strings instead of
// failing the whole record; the next save writes the pruned set.
func (m *Model) DecodeStoredSet(identity string, data []byte) (*Set, []string, error) {
	s := NewSet(identity)
	if len(data) == 0 {
		return s, nil, nil
	}

	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, apperrors.Validation(fmt.Sprintf(errDecodePermissionsFmt, err))
	}

	var skipped []string
	for rawOp, rawFns := range raw {
		op, err := m.catalog.ParseOperation(rawOp)
		if err != nil {
			skipped = append(skipped, rawOp)
			continue
		}
		for _, rawFn := range rawFns {
			fn, err := ParseFunction(rawFn)
			if err != nil {
				skipped = append(skipped, rawOp+"_"+rawFn)
				continue
			}
			s.add(op, fn)
		}
	}
	sort.Strings(skipped)
	return s, skipped, nil
}

func (m *Model) check(op Operation, fn Function) error {
	if !m.catalog.Contains(op) {
		return apperrors.Validation(fmt.Sprintf(errUnknownOperationFmt, op))
	}
	if functionOrder(fn) < 0 {
		return apperrors.Validation(fmt.Sprintf(errUnknownFunctionFmt, fn))
	}
	return nil
}
