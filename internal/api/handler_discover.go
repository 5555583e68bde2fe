package api

import (
	"net/http"
	"strings"

	"github.com/netweather/weathermap/internal/engine"
	"github.com/netweather/weathermap/internal/topology"
	"github.com/netweather/weathermap/internal/wmerrors"
)

// shortenName collapses deployment-specific node-name suffixes, mirroring
// original_source/weathermap/api.py's shorten_name. Kept as opt-in display
// sugar in the HTTP layer rather than the core, per SPEC_FULL.md's decision
// that it is a display concern, not a topology one.
func shortenName(name string) string {
	if strings.Contains(name, "-pe") || strings.Contains(name, "beibr") {
		parts := strings.Split(name, "-")
		if len(parts) > 3 {
			parts = parts[:3]
		}
		name = strings.Join(parts, "-")
	}
	if strings.Contains(name, "be-ibr") {
		parts := strings.Split(name, "-")
		if len(parts) > 4 {
			parts = parts[:4]
		}
		name = strings.Join(parts, "-")
	}
	return name
}

type discoveredNodeDTO struct {
	ID    string `json:"id"`
	Group string `json:"group"`
}

type discoveredLinkDTO struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type discoveryDTO struct {
	Nodes []discoveredNodeDTO `json:"nodes"`
	Links []discoveredLinkDTO `json:"links"`
}

func newDiscoveryDTO(d topology.Discovery, shorten bool) discoveryDTO {
	out := discoveryDTO{
		Nodes: make([]discoveredNodeDTO, len(d.Nodes)),
		Links: make([]discoveredLinkDTO, len(d.Links)),
	}
	for i, n := range d.Nodes {
		id := n.ID
		if shorten {
			id = shortenName(id)
		}
		out.Nodes[i] = discoveredNodeDTO{ID: id, Group: n.Group}
	}
	for i, l := range d.Links {
		src, tgt := l.Source, l.Target
		if shorten {
			src, tgt = shortenName(src), shortenName(tgt)
		}
		out.Links[i] = discoveredLinkDTO{Source: src, Target: tgt}
	}
	return out
}

// HandleDiscover serves GET /api/discover[?filter=&shorten=].
func HandleDiscover(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("filter")
		shorten, err := ParseBoolQuery(r, "shorten")
		if err != nil {
			WriteError(w, r, wmerrors.Validation("%s", err.Error()))
			return
		}
		d, err := eng.Enrichment.Discover(r.Context(), filter, false)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteJSON(w, r, http.StatusOK, newDiscoveryDTO(d, shorten))
	}
}

// HandleDiscoverOrphan serves GET /api/discover/orphan.
func HandleDiscoverOrphan(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("filter")
		orphans, err := eng.Enrichment.DiscoverOrphans(r.Context(), filter)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		out := make([]discoveredNodeDTO, len(orphans))
		for i, n := range orphans {
			out[i] = discoveredNodeDTO{ID: n.ID, Group: n.Group}
		}
		WriteJSON(w, r, http.StatusOK, out)
	}
}

// HandleDiscoverPOP serves GET /api/discover/pop: every node's group
// (point of presence) collapsed to a unique set, plus the inter-POP link
// graph with self-loops dropped. Grounded on
// original_source/weathermap/api.py's discover_pops.
func HandleDiscoverPOP(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := eng.Enrichment.Discover(r.Context(), "", false)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		pops := make(map[string]struct{})
		for _, n := range d.Nodes {
			pops[n.Group] = struct{}{}
		}
		type popPair struct{ source, target string }
		links := make(map[popPair]struct{})
		for _, l := range d.Links {
			src, _, _ := strings.Cut(l.Source, "-")
			tgt, _, _ := strings.Cut(l.Target, "-")
			if src == tgt {
				continue
			}
			links[popPair{src, tgt}] = struct{}{}
		}

		out := discoveryDTO{Nodes: make([]discoveredNodeDTO, 0, len(pops)), Links: make([]discoveredLinkDTO, 0, len(links))}
		for pop := range pops {
			out.Nodes = append(out.Nodes, discoveredNodeDTO{ID: pop, Group: pop})
		}
		for pair := range links {
			out.Links = append(out.Links, discoveredLinkDTO{Source: pair.source, Target: pair.target})
		}
		WriteJSON(w, r, http.StatusOK, out)
	}
}

type verificationErrorDTO struct {
	ErrorType    string `json:"errortype"`
	Source       string `json:"source"`
	ParsedRemote string `json:"parsed_remote"`
	Expected     string `json:"expected"`
	Message      string `json:"message"`
}

// HandleDiscoverError serves GET /api/discover/error[?format=csv].
func HandleDiscoverError(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") == "csv" {
			csv, err := eng.Matcher.ErrorsCSV()
			if err != nil {
				WriteError(w, r, err)
				return
			}
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Disposition", "attachment; filename=verificationerrors.csv")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(csv))
			return
		}
		verrs := eng.Matcher.DiscoverErrors()
		out := make([]verificationErrorDTO, len(verrs))
		for i, v := range verrs {
			out[i] = verificationErrorDTO{
				ErrorType:    v.Class.String(),
				Source:       v.Source.String(),
				ParsedRemote: v.ParsedRemote,
				Expected:     v.Expected,
				Message:      v.Message,
			}
		}
		WriteJSON(w, r, http.StatusOK, out)
	}
}

// HandleResetDiscoverError serves DELETE /api/discover/error.
func HandleResetDiscoverError(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eng.Matcher.ResetDiscoverErrors()
		WriteJSON(w, r, http.StatusOK, map[string]string{"result": "reset successful"})
	}
}
