// Package httpapi implements the core HTTP surface (C9): the chi router,
// the RequestID/Recovery/Timeout/logging/CORS middleware chain, the auth
// and rate-limit gates, and the four `/v1/memory/*` handlers. Every
// response — success or error — is written through the envelope helpers in
// this file so the wire shape stays identical across every handler (§6.2).
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rawcontext/engram-sub001/internal/apierr"
)

type successEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
	Meta    any  `json:"meta,omitempty"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// writeSuccess writes a 2xx envelope carrying data.
func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successEnvelope{Success: true, Data: data})
}

// writeError translates err into the `{success:false,error:{...}}` envelope
// and the matching HTTP status, via apierr.FromInternal (§7: internal
// validation error kinds are never surfaced raw).
func writeError(w http.ResponseWriter, err error) {
	appErr := apierr.FromInternal(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status())
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Success: false,
		Error: errorBody{
			Code:    string(appErr.Code),
			Message: appErr.Message,
			Details: appErr.Details,
		},
	})
}

// writeAppError is writeError's shortcut for handlers that already hold a
// concrete *apierr.AppError (auth/scope failures, request-decode failures).
func writeAppError(w http.ResponseWriter, appErr *apierr.AppError) {
	writeError(w, appErr)
}
