package httpx

type ctxKey string

const (
	// CtxKeyUserID holds the authenticated user's id (string).
	CtxKeyUserID ctxKey = "user_id"

	// CtxKeyRole holds the authenticated user's role (string).
	CtxKeyRole ctxKey = "role"

	// CtxKeyClaims holds the verified *jwtx.Claims for the request.
	CtxKeyClaims ctxKey = "claims"
)
