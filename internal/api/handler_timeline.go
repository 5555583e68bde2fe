package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/netweather/weathermap/internal/engine"
	"github.com/netweather/weathermap/internal/wmerrors"
)

const (
	timelineDateLayout = "01/02/2006"
	timelineMaxSpan    = 3 * 24 * time.Hour
)

type timelineRequest struct {
	Date    string `json:"date"`
	Hour    *int   `json:"hour,omitempty"`
	Remotes string `json:"remotes,omitempty"`
}

// timelineWindow resolves a timelineRequest into a (start, end,
// shortInterval) query window: an hour given means minute-granularity
// data for that single hour, otherwise the full day at 15-minute
// granularity. Grounded on original_source/weathermap/api.py's
// node_timeline.
func timelineWindow(req timelineRequest) (start, end time.Time, shortInterval bool, err error) {
	day, err := time.Parse(timelineDateLayout, req.Date)
	if err != nil {
		return time.Time{}, time.Time{}, false, wmerrors.Validation("date: must be mm/dd/yyyy")
	}
	if req.Hour != nil {
		if *req.Hour < 0 || *req.Hour > 23 {
			return time.Time{}, time.Time{}, false, wmerrors.Validation("hour: must be between 0 and 23")
		}
		start = day.Add(time.Duration(*req.Hour) * time.Hour)
		end = start.Add(time.Hour)
		return start, end, true, nil
	}
	start = day
	end = day.Add(24 * time.Hour)
	return start, end, false, nil
}

// HandleTimeline serves POST /api/timeline/{node}/{utilization,optic}.
func HandleTimeline(eng *engine.Engine, metric string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nodes, err := validateNodeList(chi.URLParam(r, "node"), nodeListMaxChars)
		if err != nil {
			WriteError(w, r, err)
			return
		}

		var req timelineRequest
		if err := DecodeBody(r, &req); err != nil {
			writeDecodeBodyError(w, r, err)
			return
		}
		start, end, shortInterval, err := timelineWindow(req)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if end.Sub(start) > timelineMaxSpan {
			WriteError(w, r, wmerrors.Validation("requested window exceeds the %s maximum", timelineMaxSpan))
			return
		}

		var remotes []string
		if req.Remotes != "" {
			remotes, err = validateNodeList(req.Remotes, uplinkListMaxChars)
			if err != nil {
				WriteError(w, r, err)
				return
			}
		}

		fetch := eng.Enrichment.GetRatesTimeline
		if metric == "optic" {
			fetch = eng.Enrichment.GetOpticsTimeline
		}

		timelines, err := fetch(r.Context(), nodes, nil, true, start, end, shortInterval)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if len(remotes) > 0 {
			remoteTimelines, err := fetch(r.Context(), nodes, remotes, true, start, end, shortInterval)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			timelines = append(timelines, remoteTimelines...)
		}
		WriteJSON(w, r, http.StatusOK, newTimelineDTOs(timelines))
	}
}
