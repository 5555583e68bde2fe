// Package api implements the HTTP surface over the engine: discovery,
// link/utilization/health/optic reads, timelines, and the maps/uplinks
// catalog.
package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/netweather/weathermap/internal/wmerrors"
)

// errorEnvelope is the flat {"error","code","description"} response body
// every error path produces.
type errorEnvelope struct {
	Error       wmerrors.Kind `json:"error"`
	Code        int           `json:"code"`
	Description string        `json:"description"`
}

// WriteJSON writes data as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	render.Status(r, status)
	render.JSON(w, r, data)
}

// WriteError renders err as the flat error envelope. Any *wmerrors.HTTPError
// is rendered using its own Kind/Code/Message; any other error is folded
// into a 500 internal error without leaking its text to the caller.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var httpErr *wmerrors.HTTPError
	if !errors.As(err, &httpErr) {
		httpErr = wmerrors.Internal(err)
	}
	WriteJSON(w, r, httpErr.Code, errorEnvelope{
		Error:       httpErr.Kind,
		Code:        httpErr.Code,
		Description: httpErr.Message,
	})
}
