// Package config loads render settings from TOML and defines the project
// output contract.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"github.com/ivlev/montage/internal/asset"
	"github.com/ivlev/montage/internal/errs"
)

//go:embed sample_config.toml
var sampleConfig string

// Render holds encoder and pipeline settings.
type Render struct {
	Workers       int    `toml:"workers"`
	Encoder       string `toml:"encoder"`
	Quality       int    `toml:"quality"`
	BatchSize     int    `toml:"batch_size"`
	Background    string `toml:"background"`
	Scaling       string `toml:"scaling"` // bilinear or catmull-rom
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	ShowStats     bool   `toml:"show_stats"`
}

// Subtitles holds the default style of generated subtitle assets.
type Subtitles struct {
	MaxDuration float64 `toml:"max_duration"`
	Font        string  `toml:"font"`
	FontSize    float64 `toml:"font_size"`
	Color       string  `toml:"color"`
	StrokeColor string  `toml:"stroke_color"`
	StrokeWidth int     `toml:"stroke_width"`
	Margin      int     `toml:"margin"`
}

// Speech configures the text-to-speech collaborator.
type Speech struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	Voice          string `toml:"voice"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Transcription configures the speech-to-text collaborator.
type Transcription struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	Language       string `toml:"language"` // BCP 47 tag, empty lets the service detect it
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging controls log output.
type Logging struct {
	Level string `toml:"level"`
}

// Config encapsulates all settings of a montage run.
type Config struct {
	Project       Project       `toml:"project"`
	Render        Render        `toml:"render"`
	Subtitles     Subtitles     `toml:"subtitles"`
	Speech        Speech        `toml:"speech"`
	Transcription Transcription `toml:"transcription"`
	Logging       Logging       `toml:"logging"`
}

// Default returns a Config populated with built-in defaults.
func Default() Config {
	return Config{
		Project: DefaultProject(),
		Render: Render{
			Encoder:       "auto",
			BatchSize:     32,
			Background:    "#000000",
			Scaling:       "bilinear",
			FFmpegBinary:  "ffmpeg",
			FFprobeBinary: "ffprobe",
		},
		Subtitles: Subtitles{
			MaxDuration: 5,
			FontSize:    48,
			Color:       "#FFFFFF",
			StrokeColor: "#000000",
			StrokeWidth: 2,
			Margin:      60,
		},
		Speech: Speech{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "tts-1",
			Voice:          "alloy",
			TimeoutSeconds: 120,
		},
		Transcription: Transcription{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "whisper-1",
			TimeoutSeconds: 300,
		},
		Logging: Logging{Level: "info"},
	}
}

// DefaultConfigPath returns the default location of the configuration file.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/montage/config.toml")
}

// Load reads path (or the default locations when empty) over the defaults,
// applies environment overrides and validates the result. It reports the
// resolved path and whether a file was found there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("%w: parse %s: %w", errs.ErrInvalidConfig, resolved, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func (c *Config) applyEnv() {
	key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if c.Speech.APIKey == "" {
		c.Speech.APIKey = key
	}
	if c.Transcription.APIKey == "" {
		c.Transcription.APIKey = key
	}
	if lvl := strings.TrimSpace(os.Getenv("MONTAGE_LOG_LEVEL")); lvl != "" {
		c.Logging.Level = lvl
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("montage.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Project.Validate(); err != nil {
		return fmt.Errorf("project: %w", err)
	}
	if c.Render.Workers < 0 {
		return fmt.Errorf("%w: render.workers must not be negative", errs.ErrInvalidConfig)
	}
	if c.Render.BatchSize <= 0 {
		return fmt.Errorf("%w: render.batch_size must be positive", errs.ErrInvalidConfig)
	}
	if c.Render.Scaling != "bilinear" && c.Render.Scaling != "catmull-rom" {
		return fmt.Errorf("%w: render.scaling must be bilinear or catmull-rom, got %q", errs.ErrInvalidConfig, c.Render.Scaling)
	}
	if c.Render.Quality < 0 {
		return fmt.Errorf("%w: render.quality must not be negative", errs.ErrInvalidConfig)
	}
	if c.Subtitles.MaxDuration <= 0 {
		return fmt.Errorf("%w: subtitles.max_duration must be positive", errs.ErrInvalidConfig)
	}
	if lang := strings.TrimSpace(c.Transcription.Language); lang != "" {
		if _, err := language.Parse(lang); err != nil {
			return fmt.Errorf("%w: transcription.language %q: %w", errs.ErrInvalidConfig, lang, err)
		}
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name onto slog levels.
func ParseLevel(name string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("%w: logging.level %q", errs.ErrInvalidConfig, name)
	}
	return lvl, nil
}

// CreateSample writes the sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ExpandPath expands a leading ~ and makes the path absolute.
func ExpandPath(p string) (string, error) {
	if p == "" {
		return p, nil
	}
	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if p == "~" {
			p = home
		} else if len(p) > 1 && (p[1] == '/' || p[1] == '\\') {
			p = filepath.Join(home, p[2:])
		}
	}
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", p, err)
	}
	return abs, nil
}

// Style returns the subtitle defaults as a text style.
func (s Subtitles) Style() asset.TextStyle {
	return asset.TextStyle{
		Font:        s.Font,
		FontSize:    s.FontSize,
		Color:       s.Color,
		StrokeColor: s.StrokeColor,
		StrokeWidth: s.StrokeWidth,
	}
}
