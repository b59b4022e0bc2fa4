package director

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/montage/internal/asset"
	"github.com/ivlev/montage/internal/errs"
)

const defaultShotDuration = 3.0

// Media is one input file offered to the builder.
type Media struct {
	ID          string     `yaml:"id"`
	Kind        asset.Kind `yaml:"kind"`
	Source      string     `yaml:"source"`
	Description string     `yaml:"description,omitempty"`
	Duration    float64    `yaml:"duration,omitempty"`
	Width       int        `yaml:"width,omitempty"`
	Height      int        `yaml:"height,omitempty"`
}

// Asset converts m into the asset registered for it.
func (m Media) Asset() asset.Asset {
	return asset.Asset{
		ID:       m.ID,
		Kind:     m.Kind,
		Source:   m.Source,
		Duration: m.Duration,
		Width:    m.Width,
		Height:   m.Height,
	}
}

// Shot is one entry of a shooting script. Start and End are project times;
// they are ignored when narration drives the layout.
type Shot struct {
	Title       string   `yaml:"title,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Subtitle    string   `yaml:"subtitle,omitempty"`
	Start       float64  `yaml:"start"`
	End         float64  `yaml:"end"`
	MediaIDs    []string `yaml:"media"`
	Effects     []string `yaml:"effects,omitempty"`
	Link        string   `yaml:"link,omitempty"` // rendered as a QR code
}

// Duration is End - Start.
func (s Shot) Duration() float64 {
	return s.End - s.Start
}

// Script is an ordered list of shots.
type Script struct {
	Title       string `yaml:"title,omitempty"`
	Description string `yaml:"description,omitempty"`
	Shots       []Shot `yaml:"shots"`
}

// ScriptGenerator proposes a script for the given media.
type ScriptGenerator interface {
	Generate(ctx context.Context, media []Media) (Script, error)
}

// FileScriptGenerator reads a hand-written script from a YAML file.
type FileScriptGenerator struct {
	Path string
}

// Generate loads the script and checks every shot only uses offered media.
func (g FileScriptGenerator) Generate(_ context.Context, media []Media) (Script, error) {
	s, err := ReadScript(g.Path)
	if err != nil {
		return Script{}, err
	}
	known := make(map[string]bool, len(media))
	for _, m := range media {
		known[m.ID] = true
	}
	for i, shot := range s.Shots {
		for _, id := range shot.MediaIDs {
			if !known[id] {
				return Script{}, fmt.Errorf("%w: shot %d uses media %q", errs.ErrUnknownAsset, i, id)
			}
		}
	}
	return s, nil
}

// SlideshowGenerator proposes one shot per visual media item in manifest
// order, each lasting ShotDuration seconds (default 3) and panned with
// Effects.
type SlideshowGenerator struct {
	ShotDuration float64
	Effects      []string
}

// Generate lays the visual media out back to back. Audio is not placed.
func (g SlideshowGenerator) Generate(_ context.Context, media []Media) (Script, error) {
	d := g.ShotDuration
	if d <= 0 {
		d = defaultShotDuration
	}
	var s Script
	cursor := 0.0
	for _, m := range media {
		if !m.Kind.Visual() {
			continue
		}
		s.Shots = append(s.Shots, Shot{
			Title:    shotTitle(m.ID),
			Start:    cursor,
			End:      cursor + d,
			MediaIDs: []string{m.ID},
			Effects:  g.Effects,
		})
		cursor += d
	}
	if len(s.Shots) == 0 {
		return Script{}, fmt.Errorf("%w: no visual media to show", errs.ErrInvalidAsset)
	}
	return s, nil
}

// shotTitle turns a media id like "title-card" into "Title Card".
func shotTitle(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool { return r == '-' || r == '_' })
	return cases.Title(language.Und).String(strings.Join(words, " "))
}

// WriteScript writes a script to a YAML file.
func WriteScript(s Script, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadScript reads a script from a YAML file.
func ReadScript(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, err
	}
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("parse script %s: %w", path, err)
	}
	return s, nil
}

// ReadMedia reads a media manifest: a YAML list of Media.
func ReadMedia(path string) ([]Media, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var media []Media
	if err := yaml.Unmarshal(data, &media); err != nil {
		return nil, fmt.Errorf("parse media manifest %s: %w", path, err)
	}
	for i := range media {
		media[i].Kind = asset.Kind(strings.ToLower(string(media[i].Kind)))
	}
	return media, nil
}
