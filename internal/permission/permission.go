package permission

import (
	"encoding/json"
	"fmt"
	"sort"

	apperrors "shop-auth/pkg/errors"
)

// UserPermission grants one identity a set of functions on one operation.
type UserPermission struct {
	Identity  string
	Operation Operation
	functions map[Function]struct{}
}

// NewUserPermission rejects an empty function set.
func NewUserPermission(identity string, op Operation, fns ...Function) (*UserPermission, error) {
	if len(fns) == 0 {
		return nil, apperrors.Validation(errEmptyFunctions)
	}

	p := &UserPermission{
		Identity:  identity,
		Operation: op,
		functions: make(map[Function]struct{}, len(fns)),
	}
	for _, fn := range fns {
		if functionOrder(fn) < 0 {
			return nil, apperrors.Validation(fmt.Sprintf(errUnknownFunctionFmt, fn))
		}
		p.functions[fn] = struct{}{}
	}
	return p, nil
}

func (p *UserPermission) Has(fn Function) bool {
	_, ok := p.functions[fn]
	return ok
}

// Functions returns the granted functions in declaration order.
func (p *UserPermission) Functions() []Function {
	out := make([]Function, 0, len(p.functions))
	for fn := range p.functions {
		out = append(out, fn)
	}
	sortFunctions(out)
	return out
}

func (p *UserPermission) Authorities() []string {
	fns := p.Functions()
	out := make([]string, len(fns))
	for i, fn := range fns {
		out[i] = Authority(p.Operation, fn)
	}
	return out
}

// Set holds the permissions of one identity, one record per operation.
type Set struct {
	identity string
	byOp     map[Operation]*UserPermission
}

func NewSet(identity string) *Set {
	return &Set{identity: identity, byOp: make(map[Operation]*UserPermission)}
}

// SetOf builds a set from records, merging records for the same operation.
func SetOf(identity string, perms ...*UserPermission) (*Set, error) {
	s := NewSet(identity)
	for _, p := range perms {
		if p.Identity != identity {
			return nil, apperrors.Validation(fmt.Sprintf(errIdentityMismatchFmt, p.Identity, identity))
		}
		for fn := range p.functions {
			s.add(p.Operation, fn)
		}
	}
	return s, nil
}

func (s *Set) Identity() string {
	return s.identity
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byOp)
}

func (s *Set) Get(op Operation) (*UserPermission, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.byOp[op]
	return p, ok
}

// Permissions returns the records sorted by operation.
func (s *Set) Permissions() []*UserPermission {
	if s == nil {
		return nil
	}
	out := make([]*UserPermission, 0, len(s.byOp))
	for _, p := range s.byOp {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })
	return out
}

// Authorities returns the permission authorities only, without any role.
func (s *Set) Authorities() Authorities {
	a := make(Authorities)
	for _, p := range s.Permissions() {
		a.Add(p.Authorities()...)
	}
	return a
}

func (s *Set) Clone() *Set {
	c := NewSet(s.identity)
	for op, p := range s.byOp {
		for fn := range p.functions {
			c.add(op, fn)
		}
	}
	return c
}

func (s *Set) add(op Operation, fn Function) {
	if p, ok := s.byOp[op]; ok {
		p.functions[fn] = struct{}{}
		return
	}
	s.byOp[op] = &UserPermission{
		Identity:  s.identity,
		Operation: op,
		functions: map[Function]struct{}{fn: {}},
	}
}

// remove drops the record once its last function is gone.
func (s *Set) remove(op Operation, fn Function) bool {
	p, ok := s.byOp[op]
	if !ok || !p.Has(fn) {
		return false
	}
	delete(p.functions, fn)
	if len(p.functions) == 0 {
		delete(s.byOp, op)
	}
	return true
}

// MarshalJSON writes {"ITEM":["READ","DELETE"]}.
func (s *Set) MarshalJSON() ([]byte, error) {
	out := make(map[Operation][]Function, s.Len())
	for _, p := range s.Permissions() {
		out[p.Operation] = p.Functions()
	}
	return json.Marshal(out)
}
