/*
Package resp writes the standard JSON response envelope used by every HTTP endpoint.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
)

// JSONResponse is the response body {code, message, data}.
type JSONResponse struct {
	// Code is 0 on success, otherwise an errs code.
	Code int `json:"code"`

	// Message is the client-facing status description.
	Message string `json:"message"`

	// Data is the optional response payload.
	Data any `json:"data,omitempty"`
}

// RespondJSON writes payload as JSON with the given HTTP status.
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

// RespondSuccess sends data with HTTP 200 and code 0.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, r, http.StatusOK, JSONResponse{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// RespondError sends customErr with its HTTP status. A nil error is reported as ErrUnknown.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	RespondJSON(w, r, customErr.Status, JSONResponse{
		Code:    customErr.Code,
		Message: customErr.Message,
	})
}
