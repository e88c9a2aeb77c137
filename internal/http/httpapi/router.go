package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kothari1/NuFleet-AI-SOP/internal/http/handlers"
	"github.com/kothari1/NuFleet-AI-SOP/internal/infra"
	"github.com/kothari1/NuFleet-AI-SOP/internal/middleware"
)

// NewRouter wires the API surface.
func NewRouter(app *handlers.App, logger infra.Logger) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer, middleware.Logger(logger))

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/models", app.ListModels)

	r.Route("/v1/sop", func(r chi.Router) {
		r.Post("/", app.Generate)
		r.Post("/export", app.ExportPDF)
	})

	return r
}
