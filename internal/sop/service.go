package sop

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/kothari1/NuFleet-AI-SOP/internal/genai"
	"github.com/kothari1/NuFleet-AI-SOP/internal/infra"
)

// MediaClient is the slice of the Gemini client the pipeline depends on.
type MediaClient interface {
	UploadFile(ctx context.Context, path, mimeType string) (*genai.File, error)
	WaitActive(ctx context.Context, files []*genai.File) error
	GenerateContent(ctx context.Context, model string, parts []genai.Part) (string, error)
}

// GenerateParams describes one SOP generation request. Paths point at
// request-scoped temp copies of the uploaded media; the caller owns cleanup.
type GenerateParams struct {
	VideoPath       string
	VideoMIME       string
	ObservationText string
	ImagePath       string
	ImageMIME       string
	Model           string
}

// Service runs the SOP pipeline: upload assets, await activation, compose the
// prompt, generate, annotate. One linear pass per request; nothing is cached
// or shared between requests.
type Service struct {
	client       MediaClient
	annotator    *Annotator
	defaultModel string
	logger       *infra.Logger
}

// NewService wires the pipeline together.
func NewService(client MediaClient, annotator *Annotator, defaultModel string, logger *infra.Logger) *Service {
	if logger == nil {
		discard := zerolog.Nop()
		l := infra.Logger(discard)
		logger = &l
	}
	return &Service{client: client, annotator: annotator, defaultModel: defaultModel, logger: logger}
}

// Generate produces the annotated SOP markdown for the given media. Any
// upload, activation, or generation failure is fatal for the request and is
// returned as-is; only frame annotation tolerates partial failure.
func (s *Service) Generate(ctx context.Context, p GenerateParams) (string, error) {
	model := p.Model
	if model == "" {
		model = s.defaultModel
	}

	video, err := s.client.UploadFile(ctx, p.VideoPath, p.VideoMIME)
	if err != nil {
		return "", err
	}
	if err := s.client.WaitActive(ctx, []*genai.File{video}); err != nil {
		return "", err
	}

	var image *genai.File
	if p.ImagePath != "" {
		image, err = s.client.UploadFile(ctx, p.ImagePath, p.ImageMIME)
		if err != nil {
			return "", err
		}
		if err := s.client.WaitActive(ctx, []*genai.File{image}); err != nil {
			return "", err
		}
	}

	parts := ComposePrompt(video, p.ObservationText, image)

	s.logger.Info().
		Str("model", model).
		Bool("has_image", image != nil).
		Bool("has_observations", p.ObservationText != "").
		Msg("sop: generating document")

	text, err := s.client.GenerateContent(ctx, model, parts)
	if err != nil {
		return "", err
	}

	return s.annotator.Annotate(ctx, text, p.VideoPath), nil
}
