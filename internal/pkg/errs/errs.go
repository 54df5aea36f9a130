/*
Package errs provides custom error types and application-level error code constants.

CustomError is the single error shape that crosses the service boundary: HTTP responses
render it as the error envelope and the realtime router sends it as an error event.
*/
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"livechat/internal/pkg/logx"
)

// CustomError carries a business code, a client-facing message and the HTTP status used
// when the error is returned from a REST endpoint.
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e CustomError) Error() string {
	return fmt.Sprintf("code=%d status=%d: %s", e.Code, e.Status, e.Message)
}

// NewError returns a copy of the registered error for code. details are applied to the
// message with fmt.Sprintf when the template has verbs; for ErrUnknown the first detail may
// be the underlying error, which is logged instead.
func NewError(code int, details ...any) *CustomError {
	tmpl, ok := errorMap[code]
	if !ok {
		logx.Warn("Unregistered error code requested", "requested_code", code)
		tmpl = errorMap[ErrUnknown]
	}

	out := tmpl
	if out.Status == 0 {
		out.Status = http.StatusOK
	}

	if !ok || len(details) == 0 {
		return &out
	}

	switch {
	case code == ErrUnknown:
		if cause, isErr := details[0].(error); isErr {
			logx.Error(cause, "Unknown error")
		}
	case strings.Contains(out.Message, "%"):
		out.Message = fmt.Sprintf(out.Message, details...)
	default:
		logx.Debug("Error details ignored: message has no verbs", "code", code)
	}

	return &out
}

// CodeOf returns the business code carried by err, or ErrUnknown.
func CodeOf(err error) int {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrUnknown
}
