package sop

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kothari1/NuFleet-AI-SOP/internal/genai"
)

type fakeMediaClient struct {
	uploads     []string
	waited      int
	genModel    string
	genParts    []genai.Part
	genText     string
	uploadErr   error
	waitErr     error
	generateErr error
}

func (f *fakeMediaClient) UploadFile(ctx context.Context, path, mimeType string) (*genai.File, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads = append(f.uploads, path)
	return &genai.File{Name: "files/" + path, URI: "https://files.example/" + path, MIMEType: mimeType, State: genai.FileStateActive}, nil
}

func (f *fakeMediaClient) WaitActive(ctx context.Context, files []*genai.File) error {
	f.waited += len(files)
	return f.waitErr
}

func (f *fakeMediaClient) GenerateContent(ctx context.Context, model string, parts []genai.Part) (string, error) {
	f.genModel = model
	f.genParts = parts
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return f.genText, nil
}

func TestServiceGeneratePipeline(t *testing.T) {
	client := &fakeMediaClient{genText: "Step 1 [TIMESTAMP: 00:05] done"}
	ext := &fakeExtractor{uri: "data:image/jpeg;base64,AAA"}
	svc := NewService(client, NewAnnotator(ext, nil), "models/gemini-1.5-pro", nil)

	out, err := svc.Generate(context.Background(), GenerateParams{
		VideoPath:       "clip.mp4",
		VideoMIME:       "video/mp4",
		ObservationText: "careful with the clip",
		ImagePath:       "note.png",
		ImageMIME:       "image/png",
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(client.uploads) != 2 {
		t.Fatalf("uploads = %v, want video and image", client.uploads)
	}
	if client.waited != 2 {
		t.Fatalf("waited on %d files, want 2", client.waited)
	}
	if client.genModel != "models/gemini-1.5-pro" {
		t.Fatalf("model = %q, want default", client.genModel)
	}
	if !strings.Contains(out, "![Snapshot at 00:05]") {
		t.Fatalf("output not annotated: %q", out)
	}
}

func TestServiceGenerateModelOverride(t *testing.T) {
	client := &fakeMediaClient{genText: "no tags"}
	svc := NewService(client, NewAnnotator(&fakeExtractor{}, nil), "models/gemini-1.5-pro", nil)

	_, err := svc.Generate(context.Background(), GenerateParams{
		VideoPath: "clip.mp4",
		VideoMIME: "video/mp4",
		Model:     "models/gemini-1.5-flash",
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if client.genModel != "models/gemini-1.5-flash" {
		t.Fatalf("model = %q, want override", client.genModel)
	}
}

func TestServiceGenerateSurfacesAssetFailure(t *testing.T) {
	wantErr := &genai.AssetProcessingError{Name: "files/clip.mp4", State: genai.FileStateFailed}
	client := &fakeMediaClient{waitErr: wantErr}
	svc := NewService(client, NewAnnotator(&fakeExtractor{}, nil), "models/gemini-1.5-pro", nil)

	_, err := svc.Generate(context.Background(), GenerateParams{VideoPath: "clip.mp4", VideoMIME: "video/mp4"})
	var procErr *genai.AssetProcessingError
	if !errors.As(err, &procErr) {
		t.Fatalf("error = %v, want *AssetProcessingError", err)
	}
}

func TestServiceGenerateSurfacesGenerationFailure(t *testing.T) {
	client := &fakeMediaClient{generateErr: &genai.GenerationError{Err: errors.New("quota")}}
	svc := NewService(client, NewAnnotator(&fakeExtractor{}, nil), "models/gemini-1.5-pro", nil)

	_, err := svc.Generate(context.Background(), GenerateParams{VideoPath: "clip.mp4", VideoMIME: "video/mp4"})
	var genErr *genai.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("error = %v, want *GenerationError", err)
	}
}

func TestServiceGenerateSkipsImageUploadWithoutImage(t *testing.T) {
	client := &fakeMediaClient{genText: "doc"}
	svc := NewService(client, NewAnnotator(&fakeExtractor{}, nil), "models/gemini-1.5-pro", nil)

	if _, err := svc.Generate(context.Background(), GenerateParams{VideoPath: "clip.mp4", VideoMIME: "video/mp4"}); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(client.uploads) != 1 {
		t.Fatalf("uploads = %v, want video only", client.uploads)
	}
	for _, p := range client.genParts {
		if p.Text != "" && strings.Contains(p.Text, "Additional Visual Context") {
			t.Fatal("image context part present without image")
		}
	}
}
