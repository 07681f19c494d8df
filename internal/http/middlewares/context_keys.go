package middlewares

// gin context keys shared between middlewares and handlers
const (
	CtxRequestID = "request_id"

	ctxUserIDKey = "auth.userID"
	ctxEmailKey  = "auth.email"
	ctxRoleKey   = "auth.role"

	// set only by RequireResetToken
	ctxResetJTIKey = "auth.resetJTI"
)
