package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kothari1/NuFleet-AI-SOP/internal/infra"
)

// ErrAPIKeyRequired is returned by NewClient when no credential is supplied.
// The key is not validated against the provider at construction time; a bad
// key only surfaces on the first real call.
var ErrAPIKeyRequired = errors.New("genai: api key is required")

// FileState is the provider-side processing state of an uploaded file.
type FileState string

const (
	FileStateProcessing FileState = "PROCESSING"
	FileStateActive     FileState = "ACTIVE"
	FileStateFailed     FileState = "FAILED"
)

// File is an uploaded binary in the provider's file store. It is created by
// UploadFile and only ever polled afterwards, never mutated by the caller.
type File struct {
	Name     string    `json:"name"`
	URI      string    `json:"uri"`
	MIMEType string    `json:"mimeType,omitempty"`
	State    FileState `json:"state"`
}

// Part is one element of an ordered generation request: either a text segment
// or a reference to an uploaded file. Exactly one field is set.
type Part struct {
	Text string
	File *File
}

// TextPart builds a text part.
func TextPart(text string) Part { return Part{Text: text} }

// FilePart builds a file-reference part.
func FilePart(f *File) Part { return Part{File: f} }

// AssetProcessingError reports an uploaded file that reached a terminal state
// other than ACTIVE.
type AssetProcessingError struct {
	Name  string
	State FileState
}

func (e *AssetProcessingError) Error() string {
	return fmt.Sprintf("genai: file %s failed to process (state %s)", e.Name, e.State)
}

// GenerationError reports a failed generateContent call. Generation is never
// retried; the first failure surfaces directly to the caller.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("genai: generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey       string
	BaseURL      string
	Model        string
	PollInterval time.Duration
	HTTPClient   *http.Client
	Logger       *infra.Logger
}

// Client is a lightweight facade over the Gemini REST API covering the three
// operations the SOP pipeline needs: media upload (with state polling), model
// listing, and content generation.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	pollInterval time.Duration
	httpClient   *http.Client
	logger       *infra.Logger
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one without a global timeout is created, since
// uploads and generation calls can legitimately run for minutes.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "models/gemini-1.5-pro"
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		apiKey:       apiKey,
		baseURL:      baseURL,
		model:        model,
		pollInterval: interval,
		httpClient:   client,
		logger:       logger,
	}, nil
}

// Model returns the configured default model identifier.
func (c *Client) Model() string {
	return c.model
}

type listModelsResponse struct {
	Models []struct {
		Name                       string   `json:"name"`
		SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
	} `json:"models"`
}

// ListModels returns the names of models that advertise generateContent
// support, ordered so that 1.5-pro variants sort first and 1.5-flash variants
// second, ties kept in provider order. Any provider error yields an empty
// slice: the caller must treat "no models" as unavailable, not as success.
func (c *Client) ListModels(ctx context.Context) []string {
	var out listModelsResponse
	if err := c.get(ctx, c.baseURL+"/models", &out); err != nil {
		c.logger.Warn().Err(err).Msg("genai: list models failed")
		return nil
	}

	var names []string
	for _, m := range out.Models {
		for _, method := range m.SupportedGenerationMethods {
			if method == "generateContent" {
				names = append(names, m.Name)
				break
			}
		}
	}

	sort.SliceStable(names, func(i, j int) bool {
		return modelTier(names[i]) < modelTier(names[j])
	})
	return names
}

func modelTier(name string) int {
	switch {
	case strings.Contains(name, "gemini-1.5-pro"):
		return 0
	case strings.Contains(name, "gemini-1.5-flash"):
		return 1
	default:
		return 2
	}
}

type uploadResponse struct {
	File File `json:"file"`
}

// UploadFile sends the raw bytes at path to the provider's file store and
// returns the resulting file handle, typically still in PROCESSING state.
func (c *Client) UploadFile(ctx context.Context, path, mimeType string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("genai: read upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadEndpoint(), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("genai: create upload request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("X-Goog-Upload-Protocol", "raw")
	req.Header.Set("Content-Type", mimeType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("genai: upload file: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("genai: decode upload response: %w", err)
	}

	c.logger.Debug().
		Str("name", out.File.Name).
		Str("mime_type", mimeType).
		Int("bytes", len(data)).
		Msg("genai: uploaded file")

	return &out.File, nil
}

// GetFile fetches the current state of an uploaded file by its resource name
// (e.g. "files/abc123").
func (c *Client) GetFile(ctx context.Context, name string) (*File, error) {
	var out File
	if err := c.get(ctx, c.baseURL+"/"+strings.TrimLeft(name, "/"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WaitActive polls each file on the configured interval until it leaves the
// PROCESSING state. A file landing in any terminal state other than ACTIVE
// fails the wait with *AssetProcessingError. There is no internal timeout:
// cancellation is the caller's responsibility via ctx.
func (c *Client) WaitActive(ctx context.Context, files []*File) error {
	for _, f := range files {
		current := f
		for current.State == FileStateProcessing {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.pollInterval):
			}
			refreshed, err := c.GetFile(ctx, current.Name)
			if err != nil {
				return err
			}
			current = refreshed
		}
		if current.State != FileStateActive {
			return &AssetProcessingError{Name: current.Name, State: current.State}
		}
		f.State = current.State
		if current.URI != "" {
			f.URI = current.URI
		}
	}
	return nil
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text     string          `json:"text,omitempty"`
	FileData *geminiFileData `json:"fileData,omitempty"`
}

type geminiFileData struct {
	MIMEType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

type generateContentRequest struct {
	Contents []geminiContent `json:"contents"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// GenerateContent submits the ordered parts to the given model and returns the
// generated text verbatim. Part order is preserved exactly as composed; the
// model is sensitive to ordering and proximity of related content.
func (c *Client) GenerateContent(ctx context.Context, model string, parts []Part) (string, error) {
	if model == "" {
		model = c.model
	}

	content := geminiContent{Role: "user"}
	for _, p := range parts {
		if p.File != nil {
			content.Parts = append(content.Parts, geminiPart{
				FileData: &geminiFileData{MIMEType: p.File.MIMEType, FileURI: p.File.URI},
			})
			continue
		}
		content.Parts = append(content.Parts, geminiPart{Text: p.Text})
	}

	payload := generateContentRequest{Contents: []geminiContent{content}}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &GenerationError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(strings.TrimPrefix(model, "models/")))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &GenerationError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &GenerationError{Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", &GenerationError{Err: err}
	}

	var out generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &GenerationError{Err: fmt.Errorf("decode response: %w", err)}
	}

	for _, cand := range out.Candidates {
		for _, part := range cand.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text, nil
			}
		}
	}
	return "", &GenerationError{Err: errors.New("no text content returned")}
}

// uploadEndpoint derives the media upload URL from the API base URL. The
// Gemini upload surface lives under /upload/v1beta rather than /v1beta.
func (c *Client) uploadEndpoint() string {
	if strings.Contains(c.baseURL, "/v1beta") {
		return strings.Replace(c.baseURL, "/v1beta", "/upload/v1beta", 1) + "/files"
	}
	return c.baseURL + "/upload/files"
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("genai: create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("genai: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("genai: decode response: %w", err)
	}
	return nil
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}
	var apiErr apiErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
	}
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 {
		return fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return fmt.Errorf("gemini status %d", resp.StatusCode)
}
