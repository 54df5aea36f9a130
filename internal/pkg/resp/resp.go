/*
Package resp provides helper functions for constructing and sending standardized HTTP JSON responses.
*/
package resp

import (
	"encoding/json"
	"errors"
	"net/http"

	"livechat/internal/pkg/errs"
	"livechat/internal/pkg/logx"
)

// JSONResponse is the envelope of every HTTP response body.
type JSONResponse struct {
	// Code is the business status code (0 for success, see the errs package otherwise).
	Code int `json:"code"`

	// Message is the client-friendly status description or error message.
	Message string `json:"message"`

	// Data is the optional response payload.
	Data any `json:"data,omitempty"`
}

// RespondJSON sets the Content-Type and writes payload with the given status.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Error(err, "Error encoding JSON response", "http_status", httpStatus)

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	_, _ = w.Write(response)
}

// RespondSuccess sends a successful HTTP response (HTTP 200 OK).
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, r, http.StatusOK, JSONResponse{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// RespondError sends an HTTP response containing custom error information.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	RespondJSON(w, r, customErr.Status, JSONResponse{
		Code:    customErr.Code,
		Message: customErr.Message,
	})
}

// RespondErr reports any error. CustomErrors keep their code; everything else is logged and
// reported as fallbackCode so internal details never reach the client.
func RespondErr(w http.ResponseWriter, r *http.Request, err error, fallbackCode int) {
	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		RespondError(w, r, customErr)
		return
	}

	logx.Error(err, "Request failed", "request_uri", r.RequestURI)
	RespondError(w, r, errs.NewError(fallbackCode))
}
