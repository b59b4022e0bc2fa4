package compose

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/montage/internal/asset"
	"github.com/ivlev/montage/internal/config"
	"github.com/ivlev/montage/internal/position"
)

// Layer is one visual asset reference drawn into a frame. Layers of a frame
// are ordered bottom to top.
type Layer struct {
	RefID      string           `yaml:"ref_id"`
	AssetID    string           `yaml:"asset_id"`
	Kind       asset.Kind       `yaml:"kind"`
	Z          int              `yaml:"z"`
	Rect       position.Rect    `yaml:"rect"`
	Scale      float64          `yaml:"scale"`
	Opacity    float64          `yaml:"opacity"`
	LocalTime  float64          `yaml:"local_time"`
	SourceTime float64          `yaml:"source_time,omitempty"` // video only: position inside the source
	Style      *asset.TextStyle `yaml:"style,omitempty"`
}

// FrameInstruction lists what to draw at one point of the frame grid.
type FrameInstruction struct {
	Index  int     `yaml:"index"`
	Time   float64 `yaml:"time"`
	Layers []Layer `yaml:"layers"`
}

// AudioClip places one audio reference on the output track. Offset is the
// project time the clip starts at; SourceOffset is where it starts reading
// the source.
type AudioClip struct {
	RefID        string  `yaml:"ref_id"`
	AssetID      string  `yaml:"asset_id"`
	Offset       float64 `yaml:"offset"`
	SourceOffset float64 `yaml:"source_offset"`
	Duration     float64 `yaml:"duration"`
	Volume       float64 `yaml:"volume"`
}

// End is the project time the clip stops at.
func (c AudioClip) End() float64 {
	return c.Offset + c.Duration
}

// ActiveAudio is an audio clip sounding at a given project time.
type ActiveAudio struct {
	Clip       AudioClip
	Local      float64 // seconds since the clip started
	SourceTime float64 // SourceOffset + Local
}

// Plan is the fully resolved render plan of a timeline.
type Plan struct {
	Project  config.Project     `yaml:"project"`
	Duration float64            `yaml:"duration"`
	Frames   []FrameInstruction `yaml:"frames"`
	Audio    []AudioClip        `yaml:"audio"`
}

// AudioAt returns the clips sounding at t, in timeline order.
func (p *Plan) AudioAt(t float64) []ActiveAudio {
	var out []ActiveAudio
	for _, c := range p.Audio {
		if t < c.Offset || t >= c.End() {
			continue
		}
		local := t - c.Offset
		out = append(out, ActiveAudio{Clip: c, Local: local, SourceTime: c.SourceOffset + local})
	}
	return out
}

// Encode writes the plan as YAML. Equal plans encode to equal bytes.
func (p *Plan) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return enc.Close()
}
