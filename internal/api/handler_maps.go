package api

import (
	"net/http"

	"github.com/netweather/weathermap/internal/engine"
)

// HandleMaps serves GET /api/maps: the node-group catalog used to
// render weathermap pages.
func HandleMaps(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, r, http.StatusOK, eng.Maps.Maps())
	}
}

// HandleUplinks serves GET /api/uplinks: the uplink catalog used by
// the remote-node endpoints' longer node-list allowance.
func HandleUplinks(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, r, http.StatusOK, eng.Maps.Uplinks())
	}
}
