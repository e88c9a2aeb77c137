package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kothari1/NuFleet-AI-SOP/internal/infra"
	"github.com/kothari1/NuFleet-AI-SOP/internal/sop"
	"github.com/kothari1/NuFleet-AI-SOP/internal/storage"
)

// SOPGenerator runs the generation pipeline for one request.
type SOPGenerator interface {
	Generate(ctx context.Context, p sop.GenerateParams) (string, error)
}

// ModelLister reports the provider models able to generate content.
type ModelLister interface {
	ListModels(ctx context.Context) []string
}

// PDFExporter renders annotated SOP markdown to PDF bytes.
type PDFExporter interface {
	Render(documentText string) ([]byte, error)
}

// App carries the handlers' dependencies.
type App struct {
	Cfg    *infra.Config
	Logger *infra.Logger
	Models ModelLister
	SOP    SOPGenerator
	PDF    PDFExporter
	Spool  *storage.Spool
}

// NewApp builds the handler container.
func NewApp(cfg *infra.Config, logger *infra.Logger, models ModelLister, generator SOPGenerator, pdf PDFExporter, spool *storage.Spool) *App {
	return &App{Cfg: cfg, Logger: logger, Models: models, SOP: generator, PDF: pdf, Spool: spool}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}
