package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrRemoteUnauthorized ErrCode = "REMOTE_UNAUTHORIZED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Exam session ──────────────────────────────────────────────────
	ErrNoExamLoaded      ErrCode = "NO_EXAM_LOADED"
	ErrExamNotInProgress ErrCode = "EXAM_NOT_IN_PROGRESS"
	ErrExamInProgress    ErrCode = "EXAM_IN_PROGRESS"
	ErrExamCompleted     ErrCode = "EXAM_COMPLETED"
	ErrNoDuration        ErrCode = "EXAM_HAS_NO_DURATION"
	ErrUnknownQuestion   ErrCode = "UNKNOWN_QUESTION"
	ErrAnswerMismatch    ErrCode = "ANSWER_TYPE_MISMATCH"
	ErrSubmitInFlight    ErrCode = "SUBMIT_IN_FLIGHT"
	ErrSessionReset      ErrCode = "SESSION_RESET"

	// ─── Remote exam service ───────────────────────────────────────────
	ErrFetchFailed        ErrCode = "FETCH_FAILED"
	ErrSubmitFailed       ErrCode = "SUBMIT_FAILED"
	ErrSubmitUnconfirmed  ErrCode = "SUBMIT_UNCONFIRMED"
	ErrRemoteUnavailable  ErrCode = "REMOTE_UNAVAILABLE"
	ErrAnswerSheetMissing ErrCode = "ANSWER_SHEET_NOT_FOUND"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrFeatureDisabled ErrCode = "FEATURE_DISABLED"
	ErrInternal        ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrSessionInvalidated:
		return "Your portal session has ended. Please sign in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrRemoteUnauthorized:
		return "The exam service rejected your credentials."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Exam session ──────────────────────────────────────────────────
	case ErrNoExamLoaded:
		return "No exam is loaded."
	case ErrExamNotInProgress:
		return "The exam has not been started."
	case ErrExamInProgress:
		return "An exam is in progress. Finish it before leaving the exam page."
	case ErrExamCompleted:
		return "The exam is already completed. Reset the session to take another one."
	case ErrNoDuration:
		return "This exam has no duration and cannot be started."
	case ErrUnknownQuestion:
		return "The question is not part of this exam."
	case ErrAnswerMismatch:
		return "The answer does not match the question type."
	case ErrSubmitInFlight:
		return "A submission is already in progress."
	case ErrSessionReset:
		return "The session was reset while the request was running."

	// ─── Remote exam service ───────────────────────────────────────────
	case ErrFetchFailed:
		return "Failed to load the exam. Please try again."
	case ErrSubmitFailed:
		return "Failed to submit the exam. Your answers are kept, please try again."
	case ErrSubmitUnconfirmed:
		return "Time is up and the submission could not be confirmed. Please contact support."
	case ErrRemoteUnavailable:
		return "The exam service is unavailable."
	case ErrAnswerSheetMissing:
		return "Answer sheet not found."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrFeatureDisabled:
		return "This feature is not enabled on this portal."
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
