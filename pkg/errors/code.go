package errors

import "net/http"

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges:
// 10000-10999: system, infrastructure and validation
// 13000-13999: evaluation
const (
	Success ErrorCode = 10000

	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Cache errors (10200-10299)
	CacheError     ErrorCode = 10200
	CacheMiss      ErrorCode = 10201
	CacheSetFailed ErrorCode = 10202

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// Message queue errors (10400-10499)
	QueueError        ErrorCode = 10400
	QueuePublishError ErrorCode = 10401

	// Submission (13000-13099)
	SubmissionNotFound   ErrorCode = 13000
	CodeTooLarge         ErrorCode = 13002
	LanguageNotSupported ErrorCode = 13003
	TestSuiteInvalid     ErrorCode = 13006

	// Evaluation (13100-13199)
	JudgeQueueFull    ErrorCode = 13100
	JudgeSystemError  ErrorCode = 13101
	CompilationError  ErrorCode = 13102
	RuntimeError      ErrorCode = 13103
	TimeLimitExceeded ErrorCode = 13104
	WrapperError      ErrorCode = 13107
	WorkspaceError    ErrorCode = 13108
)

var errorMessages = map[ErrorCode]string{
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	CacheError:     "Cache operation failed",
	CacheMiss:      "Cache miss",
	CacheSetFailed: "Failed to set cache",

	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	QueueError:        "Message queue operation failed",
	QueuePublishError: "Failed to publish message",

	SubmissionNotFound:   "Submission not found",
	CodeTooLarge:         "Code is too large",
	LanguageNotSupported: "Programming language not supported",
	TestSuiteInvalid:     "Invalid test suite",

	JudgeQueueFull:    "Evaluation queue is full, please try again later",
	JudgeSystemError:  "Evaluation system error",
	CompilationError:  "Compilation failed",
	RuntimeError:      "Runtime error",
	TimeLimitExceeded: "Execution timeout",
	WrapperError:      "Failed to wrap submission",
	WorkspaceError:    "Failed to prepare workspace",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// Retryable reports whether a failure with this code is worth redelivering.
// Infrastructure faults are; malformed input never is.
func (c ErrorCode) Retryable() bool {
	switch c {
	case CacheError, CacheSetFailed, QueueError, QueuePublishError, ServiceUnavailable, Timeout, JudgeQueueFull:
		return true
	default:
		return false
	}
}

// HTTPStatus maps the code onto an HTTP status for the status API.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case Success:
		return http.StatusOK
	case InvalidParams, ValidationFailed, InvalidFormat, InvalidValue, RequiredFieldEmpty,
		LanguageNotSupported, TestSuiteInvalid:
		return http.StatusBadRequest
	case CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case NotFound, SubmissionNotFound, CacheMiss:
		return http.StatusNotFound
	case TooManyRequests, JudgeQueueFull:
		return http.StatusTooManyRequests
	case ServiceUnavailable, QueueError, QueuePublishError:
		return http.StatusServiceUnavailable
	case Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
