package timeline

import (
	"fmt"
	"slices"

	"github.com/ivlev/montage/internal/errs"
)

// Scene groups references under one time anchor. Member times are relative
// to Start.
type Scene struct {
	Title       string           `yaml:"title,omitempty"`
	Description string           `yaml:"description,omitempty"`
	Start       float64          `yaml:"start"`
	References  []AssetReference `yaml:"references"`
}

func (Scene) event() {}

// NewScene creates an empty scene anchored at start.
func NewScene(title string, start float64) Scene {
	return Scene{Title: title, Start: start}
}

// WithReferences returns a copy with refs appended.
func (s Scene) WithReferences(refs ...AssetReference) Scene {
	s.References = append(slices.Clone(s.References), refs...)
	return s
}

// WithDescription returns a copy with a description.
func (s Scene) WithDescription(d string) Scene {
	s.Description = d
	return s
}

// Flatten returns the members with project-absolute times.
func (s Scene) Flatten() ([]AssetReference, error) {
	if !finite(s.Start) || s.Start < 0 {
		return nil, fmt.Errorf("%w: scene %q anchored at %.3f", errs.ErrInvalidInterval, s.Title, s.Start)
	}
	out := make([]AssetReference, 0, len(s.References))
	for _, r := range s.References {
		abs := r.clone()
		abs.Start += s.Start
		abs.End += s.Start
		out = append(out, abs)
	}
	return out, nil
}

// End is the latest member end time, scene-relative.
func (s Scene) End() float64 {
	end := 0.0
	for _, r := range s.References {
		end = max(end, r.End)
	}
	return end
}

func (s Scene) clone() Scene {
	c := s
	c.References = make([]AssetReference, len(s.References))
	for i, r := range s.References {
		c.References[i] = r.clone()
	}
	return c
}
