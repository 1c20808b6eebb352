package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fd1az/paybridge/internal/apperror"
)

const maxBodyBytes = 1 << 20

// JSON writes data with statusCode.
func JSON(w http.ResponseWriter, statusCode int, data any) {
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError answers with the error's status and its safe response body.
// Causes and context stay in the logs.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.New(apperror.CodeInternalError, apperror.WithCause(err))
	}
	appErr = appErr.Traced(r.Context())
	attrs := append([]any{"path", r.URL.Path}, appErr.LogAttrs()...)

	if appErr.StatusCode >= http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed", attrs...)
	} else {
		s.log.Warn(r.Context(), "request rejected", attrs...)
	}
	JSON(w, appErr.StatusCode, appErr.ToResponse())
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.New(apperror.CodeInvalidFormat,
			apperror.WithMessage("Request body is not valid JSON"), apperror.WithCause(err))
	}
	return nil
}
