// Package speech synthesizes narration through an OpenAI-compatible
// text-to-speech endpoint and registers the results as audio assets.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ivlev/montage/internal/asset"
	"github.com/ivlev/montage/internal/system"
)

const defaultHTTPTimeout = 2 * time.Minute

// Config captures the endpoint settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Voice          string
	Speed          float64
	TimeoutSeconds int
}

// DurationProber measures an audio file.
type DurationProber func(ctx context.Context, path string) (float64, error)

// Client turns text into narration files.
type Client struct {
	cfg        Config
	outDir     string
	httpClient *http.Client
	probe      DurationProber
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

// WithProber overrides how narration durations are measured.
func WithProber(p DurationProber) Option {
	return func(c *Client) {
		if p != nil {
			c.probe = p
		}
	}
}

// NewClient constructs a client writing narration files into outDir.
func NewClient(cfg Config, outDir string, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg: Config{
			APIKey:  strings.TrimSpace(cfg.APIKey),
			BaseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:   strings.TrimSpace(cfg.Model),
			Voice:   strings.TrimSpace(cfg.Voice),
			Speed:   cfg.Speed,
		},
		outDir:     outDir,
		httpClient: &http.Client{Timeout: timeout},
		probe: func(ctx context.Context, path string) (float64, error) {
			return system.AudioDuration(ctx, "ffprobe", path)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg.BaseURL == "" {
		c.cfg.BaseURL = "https://api.openai.com/v1"
	}
	if c.cfg.Model == "" {
		c.cfg.Model = "tts-1"
	}
	if c.cfg.Voice == "" {
		c.cfg.Voice = "alloy"
	}
	return c
}

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed,omitempty"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("speech request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Synthesize produces one audio asset per text, in order. Nothing is kept on
// failure.
func (c *Client) Synthesize(ctx context.Context, texts []string) ([]asset.Asset, error) {
	if c.cfg.APIKey == "" {
		return nil, errors.New("speech: api key required")
	}
	if err := os.MkdirAll(c.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("speech: create output directory: %w", err)
	}

	out := make([]asset.Asset, 0, len(texts))
	cleanup := func() {
		for _, a := range out {
			_ = os.Remove(a.Source)
		}
	}

	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			cleanup()
			return nil, fmt.Errorf("speech: text %d is empty", i)
		}
		a, err := c.synthesizeOne(ctx, text)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("speech: text %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func (c *Client) synthesizeOne(ctx context.Context, text string) (asset.Asset, error) {
	payload, err := json.Marshal(speechRequest{
		Model:          c.cfg.Model,
		Input:          text,
		Voice:          c.cfg.Voice,
		ResponseFormat: "mp3",
		Speed:          c.cfg.Speed,
	})
	if err != nil {
		return asset.Asset{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return asset.Asset{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return asset.Asset{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return asset.Asset{}, &httpStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	id := "narration-" + uuid.NewString()
	path := filepath.Join(c.outDir, id+".mp3")
	f, err := os.Create(path)
	if err != nil {
		return asset.Asset{}, fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return asset.Asset{}, fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return asset.Asset{}, err
	}

	dur, err := c.probe(ctx, path)
	if err != nil {
		os.Remove(path)
		return asset.Asset{}, fmt.Errorf("measure %s: %w", path, err)
	}

	return asset.Asset{ID: id, Kind: asset.KindAudio, Source: path, Duration: dur, Text: text}, nil
}
