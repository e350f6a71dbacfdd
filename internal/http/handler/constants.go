package handler

const (
	jsonKeyStatus = "status"

	msgContentTypeJSONRequired = "content type must be application/json"
	msgInvalidRequestBody      = "invalid request body"
	msgInvalidQuery            = "invalid query parameters"
	msgUserNotAuthenticated    = "user not authenticated"

	paramUsername  = "username"
	paramOperation = "operation"
	paramFunction  = "function"

	metaOperation = "operation"
	metaFunction  = "function"
	metaChange    = "change"
	metaTarget    = "target"
	metaPrevious  = "previous"
	metaCurrent   = "current"
	metaTTLHours  = "ttl_hours"
	metaSource    = "source"

	metaSourceSupplied  = "supplied"
	metaSourceGenerated = "generated"

	changeGrant  = "grant"
	changeRevoke = "revoke"
)
