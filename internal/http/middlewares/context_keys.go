package middlewares

const (
	ctxUserIDKey   = "auth.userID"
	ctxEmailKey    = "auth.email"
	ctxPositionKey = "auth.position"

	CtxRequestID = "request_id"
)
