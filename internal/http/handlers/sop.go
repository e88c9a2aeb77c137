package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kothari1/NuFleet-AI-SOP/internal/export"
	"github.com/kothari1/NuFleet-AI-SOP/internal/genai"
	"github.com/kothari1/NuFleet-AI-SOP/internal/sop"
)

const multipartMemoryLimit = 32 << 20

// Generate accepts a multipart form (video required; image, observations and
// model optional), runs the SOP pipeline, and returns the annotated markdown.
// Uploaded bytes are spooled to temp files scoped to this request and removed
// unconditionally when it finishes, success or failure.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.Cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}

	video, videoHeader, err := r.FormFile("video")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "video file is required")
		return
	}
	defer video.Close()

	videoExt, videoMIME, ok := mediaType(videoHeader.Filename, videoMIMETypes)
	if !ok {
		a.error(w, http.StatusUnsupportedMediaType, "unsupported_media", "video must be mp4, mov, avi or mkv")
		return
	}

	videoPath, videoCleanup, err := a.Spool.Save(video, videoExt)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to store upload")
		return
	}
	defer videoCleanup()

	params := sop.GenerateParams{
		VideoPath:       videoPath,
		VideoMIME:       videoMIME,
		ObservationText: strings.TrimSpace(r.FormValue("observations")),
		Model:           strings.TrimSpace(r.FormValue("model")),
	}

	if image, imageHeader, err := r.FormFile("image"); err == nil {
		defer image.Close()
		imageExt, imageMIME, ok := mediaType(imageHeader.Filename, imageMIMETypes)
		if !ok {
			a.error(w, http.StatusUnsupportedMediaType, "unsupported_media", "image must be jpg, jpeg or png")
			return
		}
		imagePath, imageCleanup, err := a.Spool.Save(image, imageExt)
		if err != nil {
			a.error(w, http.StatusInternalServerError, "internal", "failed to store upload")
			return
		}
		defer imageCleanup()
		params.ImagePath = imagePath
		params.ImageMIME = imageMIME
	}

	markdown, err := a.SOP.Generate(r.Context(), params)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: sop generation failed")

		var procErr *genai.AssetProcessingError
		if errors.As(err, &procErr) {
			a.error(w, http.StatusBadGateway, "asset_processing_failed", procErr.Error())
			return
		}
		var genErr *genai.GenerationError
		if errors.As(err, &genErr) {
			a.error(w, http.StatusBadGateway, "generation_failed", genErr.Error())
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "sop generation failed")
		return
	}

	a.json(w, http.StatusOK, map[string]string{"markdown": markdown})
}

type exportRequest struct {
	Markdown string `json:"markdown"`
}

// ExportPDF renders previously generated markdown to a downloadable PDF. A
// render failure affects only this export; the document itself is unharmed.
func (a *App) ExportPDF(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.Markdown) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "markdown is required")
		return
	}

	pdfBytes, err := a.PDF.Render(req.Markdown)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: pdf export failed")
		var renderErr *export.RenderError
		if errors.As(err, &renderErr) {
			a.error(w, http.StatusInternalServerError, "render_failed", renderErr.Error())
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "pdf export failed")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="maintenance_sop.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdfBytes)
}
