package genai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(Options{
		APIKey:       "test-key",
		BaseURL:      srv.URL + "/v1beta",
		PollInterval: time.Millisecond,
		HTTPClient:   srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(Options{APIKey: ""}); !errors.Is(err, ErrAPIKeyRequired) {
		t.Fatalf("NewClient(empty key) error = %v, want ErrAPIKeyRequired", err)
	}
	if _, err := NewClient(Options{APIKey: "any-non-empty-string"}); err != nil {
		t.Fatalf("NewClient(non-empty key) returned error: %v", err)
	}
}

func TestListModelsPriorityOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{
				{"name": "models/gemini-1.5-flash", "supportedGenerationMethods": []string{"generateContent"}},
				{"name": "models/gemini-1.5-pro", "supportedGenerationMethods": []string{"generateContent"}},
				{"name": "models/other-model", "supportedGenerationMethods": []string{"generateContent"}},
				{"name": "models/embedding-001", "supportedGenerationMethods": []string{"embedContent"}},
			},
		})
	}))
	defer srv.Close()

	got := newTestClient(t, srv).ListModels(context.Background())
	want := []string{"models/gemini-1.5-pro", "models/gemini-1.5-flash", "models/other-model"}
	if len(got) != len(want) {
		t.Fatalf("ListModels = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ListModels[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestListModelsStableWithinTier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{
				{"name": "models/gemini-1.5-pro-001", "supportedGenerationMethods": []string{"generateContent"}},
				{"name": "models/gemini-1.5-pro-latest", "supportedGenerationMethods": []string{"generateContent"}},
			},
		})
	}))
	defer srv.Close()

	got := newTestClient(t, srv).ListModels(context.Background())
	if len(got) != 2 || got[0] != "models/gemini-1.5-pro-001" || got[1] != "models/gemini-1.5-pro-latest" {
		t.Fatalf("tie order not preserved: %v", got)
	}
}

func TestListModelsReturnsEmptyOnProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":500,"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	if got := newTestClient(t, srv).ListModels(context.Background()); len(got) != 0 {
		t.Fatalf("ListModels = %v, want empty on provider error", got)
	}
}

func TestUploadFileAndWaitActive(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/upload/v1beta/files":
			if got := r.Header.Get("X-Goog-Upload-Protocol"); got != "raw" {
				t.Fatalf("upload protocol = %q, want raw", got)
			}
			if got := r.Header.Get("Content-Type"); got != "video/mp4" {
				t.Fatalf("upload content type = %q, want video/mp4", got)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"file": map[string]any{"name": "files/abc", "uri": "", "state": "PROCESSING"},
			})
		case r.Method == http.MethodGet && r.URL.Path == "/v1beta/files/abc":
			state := "PROCESSING"
			if polls.Add(1) >= 3 {
				state = "ACTIVE"
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"name": "files/abc", "uri": "https://files.example/abc", "state": state,
			})
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("not-really-video"), 0o644); err != nil {
		t.Fatal(err)
	}

	client := newTestClient(t, srv)
	file, err := client.UploadFile(context.Background(), path, "video/mp4")
	if err != nil {
		t.Fatalf("UploadFile returned error: %v", err)
	}
	if file.State != FileStateProcessing {
		t.Fatalf("State = %q, want PROCESSING", file.State)
	}

	if err := client.WaitActive(context.Background(), []*File{file}); err != nil {
		t.Fatalf("WaitActive returned error: %v", err)
	}
	if file.State != FileStateActive {
		t.Fatalf("State after wait = %q, want ACTIVE", file.State)
	}
	if file.URI != "https://files.example/abc" {
		t.Fatalf("URI after wait = %q", file.URI)
	}
	if polls.Load() < 3 {
		t.Fatalf("expected at least 3 polls, got %d", polls.Load())
	}
}

func TestWaitActiveFailsOnTerminalState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "files/bad", "state": "FAILED"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	err := client.WaitActive(context.Background(), []*File{{Name: "files/bad", State: FileStateProcessing}})
	var procErr *AssetProcessingError
	if !errors.As(err, &procErr) {
		t.Fatalf("WaitActive error = %v, want *AssetProcessingError", err)
	}
	if procErr.State != FileStateFailed {
		t.Fatalf("State = %q, want FAILED", procErr.State)
	}
}

func TestWaitActiveHonorsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "files/slow", "state": "PROCESSING"})
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := newTestClient(t, srv)
	err := client.WaitActive(ctx, []*File{{Name: "files/slow", State: FileStateProcessing}})
	if err == nil {
		t.Fatal("WaitActive returned nil for a file that never activates")
	}
}

func TestGenerateContentPreservesPartOrder(t *testing.T) {
	var captured generateContentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-1.5-pro:generateContent" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "# SOP"}}}},
			},
		})
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	parts := []Part{
		TextPart("instructions"),
		FilePart(&File{URI: "https://files.example/abc", MIMEType: "video/mp4"}),
		TextPart("closing"),
	}
	text, err := client.GenerateContent(context.Background(), "models/gemini-1.5-pro", parts)
	if err != nil {
		t.Fatalf("GenerateContent returned error: %v", err)
	}
	if text != "# SOP" {
		t.Fatalf("text = %q, want %q", text, "# SOP")
	}

	got := captured.Contents[0].Parts
	if len(got) != 3 {
		t.Fatalf("sent %d parts, want 3", len(got))
	}
	if got[0].Text != "instructions" || got[2].Text != "closing" {
		t.Fatalf("text parts out of order: %+v", got)
	}
	if got[1].FileData == nil || got[1].FileData.FileURI != "https://files.example/abc" {
		t.Fatalf("file part missing or misplaced: %+v", got[1])
	}
}

func TestGenerateContentSurfacesProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":429,"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).GenerateContent(context.Background(), "", []Part{TextPart("hi")})
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("error = %v, want *GenerationError", err)
	}
}
