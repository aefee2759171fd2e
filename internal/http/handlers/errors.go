package handlers

// Error codes carried in ErrorResponse.Code.
const (
	// Protocol level; the status alone mostly says the same thing.
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"

	// ErrCodeAdminOnline rejects an inbox submission; the widget switches
	// back to live chat when it sees it.
	ErrCodeAdminOnline   = "admin_online"
	ErrCodeInvalidStatus = "invalid_status"
	ErrCodeListFailed    = "list_failed"
	ErrCodeDeleteFailed  = "delete_failed"
	ErrCodeMailFailed    = "mail_failed"
	// ErrCodeMailDisabled means no SMTP credentials are configured.
	ErrCodeMailDisabled = "mail_disabled"
)
