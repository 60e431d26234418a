package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// Tokens
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenMismatch ErrCode = "TOKEN_SESSION_MISMATCH"

	// Validation
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// Sessions
	ErrSessionNotFound     ErrCode = "SESSION_NOT_FOUND"
	ErrSessionClosed       ErrCode = "SESSION_CLOSED"
	ErrAlreadySubmitted    ErrCode = "SESSION_ALREADY_SUBMITTED"
	ErrQuestionOutOfRange  ErrCode = "QUESTION_OUT_OF_RANGE"
	ErrSubmitFailed        ErrCode = "SUBMIT_FAILED"
	ErrResultNotReady      ErrCode = "RESULT_NOT_READY"
	ErrNoQuestions         ErrCode = "NO_QUESTIONS"
	ErrSessionInitFailed   ErrCode = "SESSION_INIT_FAILED"
	ErrQuestionBankInvalid ErrCode = "QUESTION_BANK_INVALID"

	// Rate limiting
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// Server
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "A session token is required."
	case ErrTokenInvalid:
		return "The session token is invalid or expired."
	case ErrTokenMismatch:
		return "The token does not belong to this session."

	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	case ErrSessionNotFound:
		return "Session not found."
	case ErrSessionClosed:
		return "This session is no longer accepting changes."
	case ErrAlreadySubmitted:
		return "This session has already been submitted."
	case ErrQuestionOutOfRange:
		return "Question number is out of range for this session."
	case ErrSubmitFailed:
		return "Submission could not be saved. Please try again."
	case ErrResultNotReady:
		return "The result is not available yet."
	case ErrNoQuestions:
		return "No questions are available for this subject."
	case ErrSessionInitFailed:
		return "The session could not be started. Please try again."
	case ErrQuestionBankInvalid:
		return "The question payload is invalid."

	case ErrRateLimitExceeded:
		return "Too many requests. Please slow down."

	case ErrInternal:
		return "An internal error occurred."
	default:
		return "An unknown error occurred."
	}
}
