package values

type contextKey string

const (
	ContextTracingKey contextKey = "tracing"
	ContextUserKey    contextKey = "user_id"
)

const (
	HeaderRequestSource = "X-Request-Source"
	HeaderRequestID     = "X-Request-ID"
)

// response statuses, mapped to HTTP codes by util.StatusCode
const (
	Success        = "success"
	Created        = "created"
	Error          = "error"
	Failed         = "failed"
	BadRequestBody = "bad_request_body"
	Unprocessable  = "unprocessable"
	NotAllowed     = "not_allowed"
	Conflict       = "conflict"
	NotFound       = "not_found"
	NotAuthorised  = "not_authorised"
	TokenExpired   = "token_expired"
)

const SystemErr = "something went wrong, please try again"
