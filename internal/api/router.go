// Package api exposes the locations service over HTTP under /api.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/illmade-knight/bikepark/pkg/locations"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// LocationService is the part of locations.Service the handlers call.
type LocationService interface {
	Create(ctx context.Context, loc locations.Location) (locations.Location, error)
	Update(ctx context.Context, loc locations.Location) (locations.Location, error)
	Cancel(ctx context.Context, endereco, numero string) (locations.Location, error)
	ListAvailable(ctx context.Context) ([]locations.Location, error)
	GetByID(ctx context.Context, id string) (locations.Location, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string) ([]locations.Location, error)
	Reindex(ctx context.Context) (int, error)
}

// Handler serves the REST resources of the locations service.
type Handler struct {
	svc    LocationService
	logger zerolog.Logger
}

func NewHandler(svc LocationService, logger zerolog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// NewRouter mounts the handler with request logging, panic recovery and CORS.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(h.logger))
	r.Use(requestIDLogger)
	r.Use(hlog.RemoteAddrHandler("ip"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request handled")
	}))
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		ExposedHeaders: []string{"Location", alertHeader, paramsHeader, errorHeader},
	}).Handler)

	r.Get("/healthz", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/localizacaos", h.create)
		r.Put("/localizacaos", h.update)
		r.Post("/localizacaos/cancela", h.cancel)
		r.Get("/localizacaos", h.listAvailable)
		r.Get("/localizacaos/{id}", h.get)
		r.Delete("/localizacaos/{id}", h.delete)
		r.Get("/_search/localizacaos", h.search)
		r.Post("/_reindex/localizacaos", h.reindex)
	})
	return r
}

// requestIDLogger adds chi's request id to the request logger.
func requestIDLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			log := zerolog.Ctx(r.Context())
			log.UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("req_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}
