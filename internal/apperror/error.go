package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// AppError is an error with a stable code, a caller-safe message and
// internal context that only reaches logs.
type AppError struct {
	Code       Code      `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"statusCode"`
	Context    string    `json:"context,omitempty"`
	TraceID    string    `json:"traceId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	cause      error
	stack      []uintptr
}

// Option configures an AppError in New.
type Option func(*AppError)

// New creates an AppError for code, taking message and status from the code
// tables unless an option overrides them.
func New(code Code, opts ...Option) *AppError {
	e := &AppError{
		Code:       code,
		Message:    messages[code],
		StatusCode: statusFor(code),
		Timestamp:  time.Now(),
		stack:      callers(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.Message == "" {
		e.Message = string(code)
	}
	return e
}

// WithMessage replaces the table message. The message is shown to callers.
func WithMessage(message string) Option {
	return func(e *AppError) { e.Message = message }
}

// WithContext attaches internal detail such as a hash, a vendor status or a
// truncated vendor body.
func WithContext(context string) Option {
	return func(e *AppError) { e.Context = context }
}

// WithStatusCode overrides the HTTP status derived from the code.
func WithStatusCode(statusCode int) Option {
	return func(e *AppError) { e.StatusCode = statusCode }
}

// WithCause records the underlying error.
func WithCause(cause error) Option {
	return func(e *AppError) { e.cause = cause }
}

// NotFound creates a 404 error for the missing key.
func NotFound(code Code, key string) *AppError {
	return New(code, WithContext(key), WithStatusCode(http.StatusNotFound))
}

func (e *AppError) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Is matches any AppError with the same code, so errors.Is works across
// separately constructed errors.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e.Code == t.Code
}

// Traced returns a copy of e stamped with the trace id of the span in ctx.
func (e *AppError) Traced(ctx context.Context) *AppError {
	c := *e
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		c.TraceID = sc.TraceID().String()
	}
	return &c
}

// Response is the caller-facing error body.
type Response struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	TraceID   string `json:"traceId,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ToResponse drops context, cause and stack.
func (e *AppError) ToResponse() Response {
	return Response{
		Code:      e.Code,
		Message:   e.Message,
		TraceID:   e.TraceID,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
	}
}

// LogAttrs returns the error as logger key/value pairs, including the
// internal context, the cause and the origin of the error.
func (e *AppError) LogAttrs() []any {
	attrs := []any{"code", e.Code, "status", e.StatusCode}
	if e.Context != "" {
		attrs = append(attrs, "context", e.Context)
	}
	if e.cause != nil {
		attrs = append(attrs, "cause", e.cause.Error())
	}
	if origin := e.origin(); origin != "" {
		attrs = append(attrs, "origin", origin)
	}
	return attrs
}

// origin is the first non-runtime frame that created the error.
func (e *AppError) origin() string {
	frames := runtime.CallersFrames(e.stack)
	for {
		f, more := frames.Next()
		if f.File != "" && !strings.Contains(f.File, "runtime/") {
			return fmt.Sprintf("%s:%d", f.Function, f.Line)
		}
		if !more {
			return ""
		}
	}
}

func callers() []uintptr {
	var pcs [16]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[:n]
}

// IsAppError reports whether err has an AppError in its chain.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetCode returns the code of the first AppError in err's chain.
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}

// IsCode reports whether err carries code anywhere in its chain.
func IsCode(err error, code Code) bool {
	return errors.Is(err, &AppError{Code: code})
}

// HTTPStatus returns the status to answer with for err.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// statusFor pins a status from the table, or derives it from the code name.
func statusFor(code Code) int {
	if status, ok := statusCodes[code]; ok {
		return status
	}
	name := string(code)
	switch {
	case code == CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case strings.Contains(name, "UNAUTHORIZED"):
		return http.StatusUnauthorized
	case strings.HasSuffix(name, "NOT_FOUND"):
		return http.StatusNotFound
	case strings.HasPrefix(name, "INVALID"), strings.HasSuffix(name, "_INVALID"):
		return http.StatusBadRequest
	case strings.Contains(name, "CONNECTION"), strings.Contains(name, "TIMEOUT"),
		strings.HasSuffix(name, "UNAVAILABLE"):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
