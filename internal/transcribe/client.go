// Package transcribe talks to an OpenAI-compatible speech-to-text endpoint
// and returns word-level timestamps.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/montage/internal/asset"
)

const defaultHTTPTimeout = 5 * time.Minute

// Word is one transcribed word with its timing in seconds from the start of
// the audio.
type Word struct {
	Text  string  `json:"word" yaml:"text"`
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// Duration is End - Start.
func (w Word) Duration() float64 {
	return w.End - w.Start
}

// Transcript is the result of transcribing one audio asset.
type Transcript struct {
	Text  string `json:"text" yaml:"text"`
	Words []Word `json:"words" yaml:"words"`
}

// Config captures the endpoint settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Language       string
	TimeoutSeconds int
}

// Client uploads audio files for transcription.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a transcription client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg: Config{
			APIKey:   strings.TrimSpace(cfg.APIKey),
			BaseURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:    strings.TrimSpace(cfg.Model),
			Language: strings.TrimSpace(cfg.Language),
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg.BaseURL == "" {
		c.cfg.BaseURL = "https://api.openai.com/v1"
	}
	if c.cfg.Model == "" {
		c.cfg.Model = "whisper-1"
	}
	return c
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("transcription request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Transcribe uploads the audio file behind a and returns its words.
func (c *Client) Transcribe(ctx context.Context, a asset.Asset) (Transcript, error) {
	var empty Transcript
	if a.Kind != asset.KindAudio {
		return empty, fmt.Errorf("transcribe %q: not an audio asset (%s)", a.ID, a.Kind)
	}
	if c.cfg.APIKey == "" {
		return empty, errors.New("transcribe: api key required")
	}

	body, contentType, err := c.buildForm(a.Source)
	if err != nil {
		return empty, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/audio/transcriptions", body)
	if err != nil {
		return empty, fmt.Errorf("transcribe: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, fmt.Errorf("transcribe: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, fmt.Errorf("transcribe: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return empty, &httpStatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var out Transcript
	if err := json.Unmarshal(data, &out); err != nil {
		return empty, fmt.Errorf("transcribe: parse response: %w", err)
	}
	for i := range out.Words {
		out.Words[i].Text = strings.TrimSpace(out.Words[i].Text)
	}
	return out, nil
}

func (c *Client) buildForm(path string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("transcribe: open audio: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("transcribe: read audio: %w", err)
	}

	fields := [][2]string{
		{"model", c.cfg.Model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "word"},
	}
	if c.cfg.Language != "" {
		fields = append(fields, [2]string{"language", c.cfg.Language})
	}
	for _, kv := range fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
