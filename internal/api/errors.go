package api

import (
	"errors"
	"net/http"

	"github.com/netweather/weathermap/internal/wmerrors"
)

// writeDecodeBodyError maps a DecodeBody failure to the right HTTPError:
// an oversize body becomes 413, anything else is a validation failure.
func writeDecodeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *requestBodyTooLargeError
	if errors.As(err, &tooLarge) {
		WriteError(w, r, &wmerrors.HTTPError{
			Kind:    wmerrors.KindPayloadTooLarge,
			Code:    http.StatusRequestEntityTooLarge,
			Message: tooLarge.Error(),
		})
		return
	}
	WriteError(w, r, wmerrors.Validation("%s", err.Error()))
}
