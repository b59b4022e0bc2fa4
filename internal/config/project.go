package config

import (
	"fmt"
	"strings"

	"github.com/ivlev/montage/internal/errs"
	"github.com/ivlev/montage/internal/position"
)

// Project is the output contract of a video: frame size, rate and identity.
type Project struct {
	Name    string `yaml:"name" toml:"name"`
	Version int    `yaml:"version" toml:"version"`
	Width   int    `yaml:"width" toml:"width"`
	Height  int    `yaml:"height" toml:"height"`
	FPS     int    `yaml:"fps" toml:"fps"`
}

// DefaultProject is a 1080p, 30 fps landscape project.
func DefaultProject() Project {
	return Project{Name: "untitled", Version: 1, Width: 1920, Height: 1080, FPS: 30}
}

// Validate rejects non-positive dimensions and frame rates.
func (p Project) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: resolution %dx%d", errs.ErrInvalidConfig, p.Width, p.Height)
	}
	if p.FPS <= 0 {
		return fmt.Errorf("%w: fps %d", errs.ErrInvalidConfig, p.FPS)
	}
	return nil
}

// Frame returns the frame size.
func (p Project) Frame() position.Size {
	return position.Size{W: p.Width, H: p.Height}
}

// WithPreset returns a copy sized for the named aspect preset.
func (p Project) WithPreset(name string) (Project, error) {
	w, h, err := Preset(name)
	if err != nil {
		return p, err
	}
	p.Width, p.Height = w, h
	return p, nil
}

var presets = map[string][2]int{
	"16:9": {1280, 720},
	"9:16": {720, 1280}, // Shorts/TikTok
	"4:5":  {1080, 1350},
}

// Preset maps an aspect name to a resolution.
func Preset(name string) (int, int, error) {
	wh, ok := presets[strings.TrimSpace(name)]
	if !ok {
		return 0, 0, fmt.Errorf("%w: unknown preset %q (use 16:9, 9:16 or 4:5)", errs.ErrInvalidConfig, name)
	}
	return wh[0], wh[1], nil
}
