package project

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/montage/internal/asset"
	"github.com/ivlev/montage/internal/config"
	"github.com/ivlev/montage/internal/errs"
	"github.com/ivlev/montage/internal/timeline"
)

// document is the on-disk shape of a project.
type document struct {
	Config   config.Project `yaml:"config"`
	Assets   []asset.Asset  `yaml:"assets"`
	Timeline []entry        `yaml:"timeline"`
}

// entry holds exactly one of its fields.
type entry struct {
	Scene     *timeline.Scene          `yaml:"scene,omitempty"`
	Reference *timeline.AssetReference `yaml:"reference,omitempty"`
}

// Encode writes p as YAML.
func (p *Project) Encode(w io.Writer) error {
	doc := document{Config: p.config, Assets: p.assets.Assets(), Timeline: []entry{}}
	for _, ev := range p.tl.Events() {
		switch v := ev.(type) {
		case timeline.Scene:
			doc.Timeline = append(doc.Timeline, entry{Scene: &v})
		case timeline.AssetReference:
			doc.Timeline = append(doc.Timeline, entry{Reference: &v})
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	return enc.Close()
}

// Decode reads a project written by Encode, validating it the same way the
// editing operations do.
func Decode(r io.Reader) (*Project, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty project document", errs.ErrInvalidConfig)
		}
		return nil, fmt.Errorf("decode project: %w", err)
	}

	p, err := New(doc.Config)
	if err != nil {
		return nil, err
	}
	for _, a := range doc.Assets {
		if err := p.AddAsset(a); err != nil {
			return nil, err
		}
	}
	for i, e := range doc.Timeline {
		var ev timeline.Event
		switch {
		case e.Scene != nil && e.Reference == nil:
			ev = *e.Scene
		case e.Reference != nil && e.Scene == nil:
			ev = *e.Reference
		default:
			return nil, fmt.Errorf("%w: timeline entry %d needs exactly one of scene or reference", errs.ErrInvalidEventType, i)
		}
		if err := p.AddEvent(ev); err != nil {
			return nil, fmt.Errorf("timeline entry %d: %w", i, err)
		}
	}
	return p, nil
}

// Save writes p to path.
func (p *Project) Save(path string) error {
	var buf bytes.Buffer
	if err := p.Encode(&buf); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create project directory: %w", err)
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Load reads a project file.
func Load(path string) (*Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// GeneratePath creates a timestamped project filename inside dir.
func GeneratePath(dir string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("project_%s.yaml", timestamp))
}

// FindLatest finds the most recently modified project file in dir.
func FindLatest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read projects directory: %w", err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var projects []candidate
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		projects = append(projects, candidate{filepath.Join(dir, name), info.ModTime()})
	}

	if len(projects) == 0 {
		return "", fmt.Errorf("no project files found in %s", dir)
	}

	// Newest first
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].modTime.After(projects[j].modTime)
	})
	return projects[0].path, nil
}
