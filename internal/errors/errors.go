package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"
)

// ErrorCategory defines the type of error for proper handling
type ErrorCategory string

const (
	CategoryInvalidInput       ErrorCategory = "invalid_input"
	CategorySubjectUnavailable ErrorCategory = "subject_unavailable"
	CategoryPayloadTooLarge    ErrorCategory = "payload_too_large"
	CategoryRateLimit          ErrorCategory = "rate_limit"
	CategoryInternal           ErrorCategory = "internal"
)

// AppError wraps an errbuilder error with the category and HTTP status used by the API
type AppError struct {
	*errbuilder.ErrBuilder
	Category   ErrorCategory     `json:"category"`
	HTTPStatus int               `json:"http_status"`
	Details    map[string]string `json:"details,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	RequestID  string            `json:"request_id,omitempty"`
	StackTrace string            `json:"stack_trace,omitempty"`
}

// ErrorResponse is the JSON envelope written for failed requests
type ErrorResponse struct {
	Status   string            `json:"status"`
	Message  string            `json:"message"`
	Category ErrorCategory     `json:"category"`
	Details  map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	codeStr := "UNKNOWN_ERROR"
	switch e.ErrBuilder.ErrCode() {
	case errbuilder.CodeInvalidArgument:
		codeStr = "INVALID_INPUT"
	case errbuilder.CodeNotFound:
		codeStr = "NOT_FOUND"
	case errbuilder.CodeUnavailable:
		codeStr = "SUBJECT_UNAVAILABLE"
	case errbuilder.CodeDeadlineExceeded:
		codeStr = "TIMEOUT"
	case errbuilder.CodeResourceExhausted:
		codeStr = "RESOURCE_EXHAUSTED"
	case errbuilder.CodeInternal:
		codeStr = "INTERNAL_ERROR"
	case errbuilder.CodeFailedPrecondition:
		codeStr = "CONFIGURATION_ERROR"
	}

	return fmt.Sprintf("[%s] %s", codeStr, e.ErrBuilder.Msg)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

// Message returns the human readable message without the code prefix
func (e *AppError) Message() string {
	return e.ErrBuilder.Msg
}

// Response builds the JSON envelope for this error
func (e *AppError) Response() ErrorResponse {
	return ErrorResponse{
		Status:   "error",
		Message:  e.ErrBuilder.Msg,
		Category: e.Category,
		Details:  e.Details,
	}
}

// NewAppError creates an AppError from errbuilder with additional context
func NewAppError(builder *errbuilder.ErrBuilder, category ErrorCategory, httpStatus int) *AppError {
	return &AppError{
		ErrBuilder: builder,
		Category:   category,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
}

// withDetails attaches key/value context both to the errbuilder details and the envelope
func withDetails(builder *errbuilder.ErrBuilder, details map[string]string) (*errbuilder.ErrBuilder, map[string]string) {
	if len(details) == 0 {
		return builder, nil
	}
	errorMap := errbuilder.ErrorMap{}
	for key, value := range details {
		errorMap.Set(key, errors.New(value))
	}
	return builder.WithDetails(errbuilder.NewErrDetails(errorMap)), details
}

func build(builder *errbuilder.ErrBuilder, cause error, details map[string]string, category ErrorCategory, status int) *AppError {
	if cause != nil {
		builder = builder.WithCause(cause)
	}

	builder, details = withDetails(builder, details)
	appErr := NewAppError(builder, category, status)
	appErr.Details = details
	return appErr
}

// NewInvalidInputError rejects a request before any scoring happens
func NewInvalidInputError(message string, details ...string) *AppError {
	var detailMap map[string]string
	if len(details) > 0 {
		detailMap = map[string]string{"input": details[0]}
	}
	return build(errbuilder.New().WithCode(errbuilder.CodeInvalidArgument).WithMsg(message), nil, detailMap, CategoryInvalidInput, http.StatusBadRequest)
}

// NewSubjectNotFoundError reports a local file that does not exist or is not a regular file
func NewSubjectNotFoundError(path string, cause error) *AppError {
	return build(errbuilder.New().WithCode(errbuilder.CodeNotFound).WithMsg(fmt.Sprintf("Video file not found: %s", path)),
		cause,
		map[string]string{"path": path},
		CategorySubjectUnavailable, http.StatusNotFound)
}

// NewFetchError reports a metadata lookup that failed on the network or while parsing
func NewFetchError(url string, cause error) *AppError {
	return build(errbuilder.New().WithCode(errbuilder.CodeUnavailable).WithMsg("Error fetching video metadata"),
		cause,
		map[string]string{"url": url},
		CategorySubjectUnavailable, http.StatusBadGateway)
}

// NewFetchTimeoutError reports a metadata lookup that exceeded its deadline
func NewFetchTimeoutError(url string, timeout time.Duration, cause error) *AppError {
	return build(errbuilder.New().WithCode(errbuilder.CodeDeadlineExceeded).WithMsg("Timed out fetching video metadata"),
		cause,
		map[string]string{"url": url, "timeout": timeout.String()},
		CategorySubjectUnavailable, http.StatusGatewayTimeout)
}

// NewPayloadTooLargeError rejects an upload above the configured limit
func NewPayloadTooLargeError(limit int64) *AppError {
	return build(errbuilder.New().WithCode(errbuilder.CodeResourceExhausted).WithMsg("File too large"),
		nil,
		map[string]string{"max_bytes": fmt.Sprintf("%d", limit)},
		CategoryPayloadTooLarge, http.StatusRequestEntityTooLarge)
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(retryAfter string) *AppError {
	return build(errbuilder.New().WithCode(errbuilder.CodeResourceExhausted).WithMsg("Rate limit exceeded"),
		nil,
		map[string]string{"retry_after": retryAfter},
		CategoryRateLimit, http.StatusTooManyRequests)
}

// NewInternalError reports an unexpected failure while handling subject at the given stage
func NewInternalError(subject, stage string, cause error) *AppError {
	details := map[string]string{"stage": stage}
	if subject != "" {
		details["subject"] = subject
	}

	appErr := build(errbuilder.New().WithCode(errbuilder.CodeInternal).WithMsg("Internal server error"),
		cause,
		details,
		CategoryInternal, http.StatusInternalServerError)

	if gin.Mode() == gin.DebugMode {
		appErr.StackTrace = captureStackTrace()
	}

	return appErr
}

// NewConfigurationError reports an invalid configuration at startup
func NewConfigurationError(message string, cause error) *AppError {
	return build(errbuilder.New().WithCode(errbuilder.CodeFailedPrecondition).WithMsg(message),
		cause,
		nil,
		CategoryInternal, http.StatusInternalServerError)
}

// captureStackTrace captures a stack trace for debugging
func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// ErrorHandler is a Gin middleware that renders the last handler error as the error envelope
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := ToAppError(c.Errors.Last().Err)
		appErr.RequestID = c.GetHeader("X-Request-ID")

		LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr.Response())
	}
}

// RecoveryHandler turns a panic in a handler into a 500 so the process keeps serving
func RecoveryHandler() gin.HandlerFunc {
	return gin.RecoveryWithWriter(nil, func(c *gin.Context, err interface{}) {
		appErr := NewInternalError(c.Request.URL.Path, "handler", fmt.Errorf("panic: %v", err))
		appErr.StackTrace = captureStackTrace()

		LogError(c, appErr)
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.Response())
	})
}

// ToAppError converts any error to an AppError
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if ebErr, ok := err.(*errbuilder.ErrBuilder); ok {
		return NewAppError(ebErr, CategoryInternal, http.StatusInternalServerError)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return build(errbuilder.New().WithCode(errbuilder.CodeDeadlineExceeded).WithMsg("Request deadline exceeded"), err, nil,
			CategorySubjectUnavailable, http.StatusGatewayTimeout)
	}

	return NewInternalError("", "unknown", err)
}

// IsInvalidInput reports whether err was caused by bad caller input
func IsInvalidInput(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Category == CategoryInvalidInput
}

// IsSubjectUnavailable reports whether err means the file or URL metadata could not be obtained
func IsSubjectUnavailable(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Category == CategorySubjectUnavailable
}

// LogError logs an error with appropriate level and context
func LogError(c *gin.Context, err *AppError) {
	logEntry := slog.With(
		"error_category", err.Category,
		"error_code", err.ErrBuilder.ErrCode(),
		"http_status", err.HTTPStatus,
		"ip", c.ClientIP(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetHeader("X-Request-ID"),
	)

	msg := err.ErrBuilder.Msg
	switch err.Category {
	case CategoryInvalidInput, CategoryRateLimit, CategoryPayloadTooLarge:
		if len(err.Details) > 0 {
			logEntry.Warn(msg, "details", err.Details)
		} else {
			logEntry.Warn(msg)
		}
	case CategorySubjectUnavailable:
		if cause := err.ErrBuilder.Unwrap(); cause != nil {
			logEntry.Info(msg, "cause", cause, "details", err.Details)
		} else {
			logEntry.Info(msg, "details", err.Details)
		}
	default:
		if cause := err.ErrBuilder.Unwrap(); cause != nil {
			logEntry.Error(msg, "cause", cause, "details", err.Details)
		} else {
			logEntry.Error(msg, "details", err.Details)
		}
	}

	if err.StackTrace != "" && gin.Mode() == gin.DebugMode {
		logEntry.Debug("stack_trace", "trace", err.StackTrace)
	}
}

// SafeClose safely closes a resource and logs any errors
func SafeClose(closer interface{ Close() error }, resourceName string) {
	if closer == nil {
		return
	}

	if err := closer.Close(); err != nil {
		slog.Warn("Failed to close resource",
			"resource", resourceName,
			"error", err)
	}
}
