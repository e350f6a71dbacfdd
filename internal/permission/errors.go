package permission

const (
	errHierarchyEmpty          = "role hierarchy must not be empty"
	errRoleNameInvalidFmt      = "invalid role name %q"
	errDuplicateRoleFmt        = "duplicate role %q"
	errUnknownRoleFmt          = "unknown role %q"
	errCatalogEmpty            = "operation catalog must not be empty"
	errOperationNameInvalidFmt = "invalid operation name %q"
	errDuplicateOperationFmt   = "duplicate operation %q"
	errUnknownOperationFmt     = "unknown operation %q"
	errUnknownFunctionFmt      = "unknown function %q"
	errUnknownAuthorityFmt     = "unknown authority %q"
	errEmptyFunctions          = "a permission without any function is meaningless"
	errIdentityMismatchFmt     = "permission for %q cannot join the set of %q"
	errDecodePermissionsFmt    = "decode permissions: %v"
)
