package permission

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	apperrors "shop-auth/pkg/errors"
)

// Operation is a protected resource category such as ITEM or SYSTEM.
type Operation string

// Function is the kind of action applied to an operation.
type Function string

const (
	FunctionCreate       Function = "CREATE"
	FunctionCreateUpdate Function = "CREATE_UPDATE"
	FunctionRead         Function = "READ"
	FunctionDelete       Function = "DELETE"
)

var allFunctions = []Function{FunctionCreate, FunctionCreateUpdate, FunctionRead, FunctionDelete}

// Operation names may not contain '_' so an authority splits unambiguously.
var operationNamePattern = regexp.MustCompile(`^[A-Z][A-Z0-9]*$`)

// Functions returns every function in declaration order.
func Functions() []Function {
	out := make([]Function, len(allFunctions))
	copy(out, allFunctions)
	return out
}

func functionOrder(fn Function) int {
	for i, f := range allFunctions {
		if f == fn {
			return i
		}
	}
	return -1
}

// ParseFunction is case-insensitive.
func ParseFunction(s string) (Function, error) {
	fn := Function(strings.ToUpper(strings.TrimSpace(s)))
	if functionOrder(fn) < 0 {
		return "", apperrors.Validation(fmt.Sprintf(errUnknownFunctionFmt, s))
	}
	return fn, nil
}

// Authority composes OPERATION_FUNCTION.
func Authority(op Operation, fn Function) string {
	return string(op) + "_" + string(fn)
}

// Catalog is the closed set of operations an application protects.
type Catalog struct {
	operations []Operation
	index      map[Operation]struct{}
}

func NewCatalog(ops ...Operation) (*Catalog, error) {
	if len(ops) == 0 {
		return nil, apperrors.Validation(errCatalogEmpty)
	}

	c := &Catalog{index: make(map[Operation]struct{}, len(ops))}
	for _, op := range ops {
		if !operationNamePattern.MatchString(string(op)) {
			return nil, apperrors.Validation(fmt.Sprintf(errOperationNameInvalidFmt, op))
		}
		if _, dup := c.index[op]; dup {
			return nil, apperrors.Validation(fmt.Sprintf(errDuplicateOperationFmt, op))
		}
		c.index[op] = struct{}{}
		c.operations = append(c.operations, op)
	}
	return c, nil
}

func MustCatalog(ops ...Operation) *Catalog {
	c, err := NewCatalog(ops...)
	if err != nil {
		panic(fmt.Sprintf("permission.MustCatalog: %v", err))
	}
	return c
}

func (c *Catalog) Operations() []Operation {
	out := make([]Operation, len(c.operations))
	copy(out, c.operations)
	return out
}

func (c *Catalog) Contains(op Operation) bool {
	_, ok := c.index[op]
	return ok
}

func (c *Catalog) ParseOperation(s string) (Operation, error) {
	op := Operation(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Contains(op) {
		return "", apperrors.Validation(fmt.Sprintf(errUnknownOperationFmt, s))
	}
	return op, nil
}

// ParseAuthority splits OPERATION_FUNCTION back into its parts.
func (c *Catalog) ParseAuthority(authority string) (Operation, Function, error) {
	op, fn, ok := strings.Cut(authority, "_")
	if !ok {
		return "", "", apperrors.Validation(fmt.Sprintf(errUnknownAuthorityFmt, authority))
	}
	if !c.Contains(Operation(op)) || functionOrder(Function(fn)) < 0 {
		return "", "", apperrors.Validation(fmt.Sprintf(errUnknownAuthorityFmt, authority))
	}
	return Operation(op), Function(fn), nil
}

func sortFunctions(fns []Function) {
	sort.Slice(fns, func(i, j int) bool { return functionOrder(fns[i]) < functionOrder(fns[j]) })
}
