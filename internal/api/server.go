package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/netweather/weathermap/internal/engine"
)

// Server wraps the HTTP server and router for the weathermap API.
type Server struct {
	httpServer *http.Server
	router     chi.Router
}

// NewServer builds the router for eng and returns a Server listening on
// eng.Config.ListenAddress. /healthz is public; everything under /api
// is behind AuthMiddleware.
func NewServer(eng *engine.Engine) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogMiddleware(eng.Logger))

	r.Get("/healthz", HandleHealthz())

	r.Route("/api", func(api chi.Router) {
		api.Use(AuthMiddleware(eng.Config.AuthTokens))
		api.Use(func(next http.Handler) http.Handler {
			return RequestBodyLimitMiddleware(int64(eng.Config.APIMaxBodyBytes), next)
		})

		api.Get("/discover", HandleDiscover(eng))
		api.Get("/discover/orphan", HandleDiscoverOrphan(eng))
		api.Get("/discover/pop", HandleDiscoverPOP(eng))
		api.Get("/discover/error", HandleDiscoverError(eng))
		api.Delete("/discover/error", HandleResetDiscoverError(eng))

		api.Get("/node", HandleListNodes(eng))
		for _, metric := range []string{"utilization", "health", "optic"} {
			api.Get("/node/{node}/link/"+metric, HandleNodeLink(eng, metric))
			api.Get("/node/{node}/remote/{remote}/"+metric, HandleNodeRemote(eng, metric))
			api.Get("/"+metric+"/{src}/{tgt}", HandlePairwiseMetric(eng, metric))
		}
		api.Get("/link/{src}/{tgt}", HandleLink(eng))

		api.Post("/timeline/{node}/utilization", HandleTimeline(eng, "utilization"))
		api.Post("/timeline/{node}/optic", HandleTimeline(eng, "optic"))

		api.Get("/maps", HandleMaps(eng))
		api.Get("/uplinks", HandleUplinks(eng))
	})

	return &Server{
		httpServer: &http.Server{
			Addr:    eng.Config.ListenAddress,
			Handler: r,
		},
		router: r,
	}
}

// ListenAndServe starts the HTTP server. It blocks until the server stops.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}
