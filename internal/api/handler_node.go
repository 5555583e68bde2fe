package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/netweather/weathermap/internal/engine"
	"github.com/netweather/weathermap/internal/sample"
)

// HandleListNodes serves GET /api/node: every node name known to the
// merged datasource. Grounded on original_source/weathermap/api.py's
// nodes().
func HandleListNodes(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := eng.Enrichment.Nodes(r.Context())
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteJSON(w, r, http.StatusOK, names)
	}
}

// linkMeasureFunc is the shape shared by enrichment.Engine's three
// measure-kind accessors, letting the node/remote/pairwise handlers below
// dispatch on a metric name without three near-duplicate handler bodies.
type linkMeasureFunc func(ctx context.Context, eng *engine.Engine, nodes, remotes []string, skipSelf bool) ([]sample.Link, error)

var linkMeasures = map[string]linkMeasureFunc{
	"utilization": func(ctx context.Context, eng *engine.Engine, nodes, remotes []string, skipSelf bool) ([]sample.Link, error) {
		return eng.Enrichment.GetRates(ctx, nodes, remotes, skipSelf)
	},
	"health": func(ctx context.Context, eng *engine.Engine, nodes, remotes []string, skipSelf bool) ([]sample.Link, error) {
		return eng.Enrichment.GetHealth(ctx, nodes, remotes, skipSelf)
	},
	"optic": func(ctx context.Context, eng *engine.Engine, nodes, remotes []string, skipSelf bool) ([]sample.Link, error) {
		return eng.Enrichment.GetOptics(ctx, nodes, remotes, skipSelf)
	},
}

// HandleNodeLink serves GET /api/node/{node}/link/{utilization,health,optic}.
func HandleNodeLink(eng *engine.Engine, metric string) http.HandlerFunc {
	measure := linkMeasures[metric]
	return func(w http.ResponseWriter, r *http.Request) {
		nodes, err := validateNodeList(chi.URLParam(r, "node"), nodeListMaxChars)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		skipSelf, err := ParseBoolQuery(r, "skip_self")
		if err != nil {
			WriteError(w, r, err)
			return
		}
		links, err := measure(r.Context(), eng, nodes, nil, skipSelf)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteJSON(w, r, http.StatusOK, newLinkDTOs(links))
	}
}

// HandleNodeRemote serves
// GET /api/node/{node}/remote/{remote}/{utilization,health,optic}.
func HandleNodeRemote(eng *engine.Engine, metric string) http.HandlerFunc {
	measure := linkMeasures[metric]
	return func(w http.ResponseWriter, r *http.Request) {
		maxChars := nodeListMaxChars
		if strings.Contains(r.Referer(), "uplink") {
			maxChars = uplinkListMaxChars
		}
		nodes, err := validateNodeList(chi.URLParam(r, "node"), maxChars)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		remotes, err := validateNodeList(chi.URLParam(r, "remote"), maxChars)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		links, err := measure(r.Context(), eng, nodes, remotes, false)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteJSON(w, r, http.StatusOK, newLinkDTOs(links))
	}
}
