package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/netweather/weathermap/internal/engine"
	"github.com/netweather/weathermap/internal/sample"
	"github.com/netweather/weathermap/internal/wmerrors"
)

// HandleLink serves GET /api/link/{src}/{tgt}: the interface identities
// on each side of the matched link, with no measurement attached.
// Grounded on original_source/weathermap/link.py's get_ends, which the
// original endpoint returns verbatim.
func HandleLink(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src, err := validateNodeList(chi.URLParam(r, "src"), nodeListMaxChars)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		tgt, err := validateNodeList(chi.URLParam(r, "tgt"), nodeListMaxChars)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		links, err := eng.Enrichment.Links(r.Context(), src, tgt, true)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if len(links) == 0 {
			WriteError(w, r, wmerrors.NotFound("no link between %v and %v", src, tgt))
			return
		}
		first := links[0]
		WriteJSON(w, r, http.StatusOK, map[string]interfaceDTO{
			"source": newInterfaceDTO(first.Source),
			"target": newInterfaceDTO(first.Target),
		})
	}
}

// pairwiseLinks draws every (node, remote) pair from two validated node
// lists and runs measure over them with skipSelf forced true, matching
// original_source/weathermap/api.py's utilization_links/health_links/
// optic_links, which always compare across the two lists rather than
// within one.
func pairwiseLinks(ctx context.Context, eng *engine.Engine, metric string, nodes, remotes []string) ([]sample.Link, error) {
	measure := linkMeasures[metric]
	seen := make(map[string]struct{}, len(nodes)*len(remotes))
	var out []sample.Link
	for _, n := range nodes {
		for _, rm := range remotes {
			if n == rm {
				continue
			}
			key := n + "\x00" + rm
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			links, err := measure(ctx, eng, []string{n}, []string{rm}, true)
			if err != nil {
				return nil, err
			}
			out = append(out, links...)
		}
	}
	return out, nil
}

// HandlePairwiseMetric serves GET /api/{utilization,health,optic}/{src}/{tgt}.
func HandlePairwiseMetric(eng *engine.Engine, metric string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src, err := validateNodeList(chi.URLParam(r, "src"), nodeListMaxChars)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		tgt, err := validateNodeList(chi.URLParam(r, "tgt"), nodeListMaxChars)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		links, err := pairwiseLinks(r.Context(), eng, metric, src, tgt)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteJSON(w, r, http.StatusOK, newLinkDTOs(links))
	}
}
