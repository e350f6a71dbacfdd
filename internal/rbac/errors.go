package rbac

import "errors"

var (
	ErrDenied        = errors.New("authorization denied")
	ErrNoPrincipal   = errors.New("no authenticated principal")
	ErrEmptyRequired = errors.New("required authority is empty")
)

const (
	errBuildModelFmt        = "rbac: build model: %w"
	errNewEnforcerFmt       = "rbac: new enforcer: %w"
	errAddPolicyFmt         = "rbac: add policy %v: %w"
	errAddGroupingPolicyFmt = "rbac: add role link %s > %s: %w"
	errMustNewPanicFmt      = "rbac.MustNewVoter: %v"
	errDeniedMissingFmt     = "missing authority '%s'"
)
