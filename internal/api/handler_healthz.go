package api

import (
	"net/http"

	"github.com/netweather/weathermap/internal/buildinfo"
)

// HandleHealthz returns a handler for GET /healthz.
// No authentication is required.
func HandleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, r, http.StatusOK, map[string]string{
			"status":     "ok",
			"version":    buildinfo.Version,
			"git_commit": buildinfo.GitCommit,
			"build_time": buildinfo.BuildTime,
		})
	}
}
