package director

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivlev/montage/internal/analyzer"
	"github.com/ivlev/montage/internal/asset"
	"github.com/ivlev/montage/internal/config"
	"github.com/ivlev/montage/internal/effects"
	"github.com/ivlev/montage/internal/errs"
	"github.com/ivlev/montage/internal/project"
	"github.com/ivlev/montage/internal/timeline"
	"github.com/ivlev/montage/internal/transcribe"
)

type fakeSynth struct {
	durations map[string]float64
	err       error
	calls     int
}

func (f *fakeSynth) Synthesize(_ context.Context, texts []string) ([]asset.Asset, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]asset.Asset, len(texts))
	for i, text := range texts {
		out[i] = asset.Asset{
			ID:       "voice-" + strings.Fields(text)[0],
			Kind:     asset.KindAudio,
			Source:   "voice.mp3",
			Duration: f.durations[text],
			Text:     text,
		}
	}
	return out, nil
}

type fakeTranscriber struct {
	words map[string][]transcribe.Word
	fail  map[string]bool
}

func (f *fakeTranscriber) Transcribe(_ context.Context, a asset.Asset) (transcribe.Transcript, error) {
	if f.fail[a.ID] {
		return transcribe.Transcript{}, errors.New("service unavailable")
	}
	return transcribe.Transcript{Text: a.Text, Words: f.words[a.ID]}, nil
}

type fakeStills struct {
	img image.Image
}

func (f fakeStills) Still(context.Context, asset.Asset) (image.Image, error) {
	return f.img, nil
}

func newProject(t *testing.T) *project.Project {
	t.Helper()
	p, err := project.New(config.Project{Name: "demo", Version: 1, Width: 720, Height: 1280, FPS: 30})
	if err != nil {
		t.Fatalf("project.New failed: %v", err)
	}
	return p
}

var slides = []Media{
	{ID: "slide", Kind: asset.KindImage, Source: "deck.pdf#page=1", Width: 1280, Height: 720},
	{ID: "clip", Kind: asset.KindVideo, Source: "clip.mp4", Duration: 3, Width: 1280, Height: 720},
}

func scenes(t *testing.T, p *project.Project) []timeline.Scene {
	t.Helper()
	var out []timeline.Scene
	for i, ev := range p.Timeline().Events() {
		sc, ok := ev.(timeline.Scene)
		if !ok {
			t.Fatalf("Event %d is %T, expected a scene", i, ev)
		}
		out = append(out, sc)
	}
	return out
}

func subtitleCues(t *testing.T, p *project.Project, sc timeline.Scene) []cue {
	t.Helper()
	var cues []cue
	for _, r := range sc.References {
		a, err := p.Assets().Get(r.AssetID)
		if err != nil {
			t.Fatalf("Reference %s points to a missing asset", r.ID)
		}
		if a.Kind == asset.KindSubtitle {
			cues = append(cues, cue{text: a.Text, start: r.Start, end: r.End})
		}
	}
	return cues
}

func TestBuildWithoutNarration(t *testing.T) {
	p := newProject(t)
	d := New(t.TempDir(), nil)
	script := Script{Shots: []Shot{
		{Title: "Intro", Subtitle: "One. Two. Three.", Start: 0, End: 6, MediaIDs: []string{"slide"}, Effects: []string{"zoom_in"}},
		{Title: "Clip", Start: 6, End: 11, MediaIDs: []string{"clip"}},
	}}

	if err := d.Build(context.Background(), p, slides, script); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	got := scenes(t, p)
	if len(got) != 2 {
		t.Fatalf("Expected 2 scenes, got %d", len(got))
	}
	if p.Duration() != 9 {
		t.Errorf("Expected duration 9 (clip limited to its length), got %.3f", p.Duration())
	}

	want := []cue{{"One.", 0, 2}, {"Two.", 2, 4}, {"Three.", 4, 6}}
	cues := subtitleCues(t, p, got[0])
	if len(cues) != len(want) {
		t.Fatalf("Expected %d cues, got %+v", len(want), cues)
	}
	for i := range want {
		if cues[i] != want[i] {
			t.Errorf("Cue %d: expected %+v, got %+v", i, want[i], cues[i])
		}
	}

	bg := got[0].References[0]
	if len(bg.Effects) != 1 || bg.Effects[0].Kind != effects.ZoomIn || bg.Effects[0].End != 6 {
		t.Errorf("Unexpected background effects: %+v", bg.Effects)
	}
	if clip := got[1].References[0]; clip.End != 3 {
		t.Errorf("Expected the clip to end at 3, got %.3f", clip.End)
	}
}

func TestBuildWithNarration(t *testing.T) {
	p := newProject(t)
	d := New(t.TempDir(), nil)
	d.MaxSubtitleDuration = 1
	d.Synth = &fakeSynth{durations: map[string]float64{
		"Hello there. General Kenobi.": 4,
		"Bye.":                         2,
	}}
	d.Transcriber = &fakeTranscriber{words: map[string][]transcribe.Word{
		"voice-Hello": {
			{Text: "Hello", Start: 0, End: 0.5},
			{Text: "there.", Start: 0.5, End: 1},
			{Text: "General", Start: 2, End: 2.5},
			{Text: "Kenobi.", Start: 2.5, End: 3.5},
		},
	}}
	script := Script{Shots: []Shot{
		{Subtitle: "Hello there. General Kenobi.", Start: 10, End: 11, MediaIDs: []string{"slide"}},
		{Subtitle: "Bye.", MediaIDs: []string{"slide"}},
	}}

	if err := d.Build(context.Background(), p, slides, script); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	got := scenes(t, p)
	if got[0].Start != 0 || got[1].Start != 4 {
		t.Errorf("Narrated shots should be laid out back to back, got starts %.3f and %.3f", got[0].Start, got[1].Start)
	}
	if p.Duration() != 6 {
		t.Errorf("Expected duration 6, got %.3f", p.Duration())
	}

	want := []cue{{"Hello there.", 0, 2}, {"General", 2, 2.5}, {"Kenobi.", 2.5, 4}}
	cues := subtitleCues(t, p, got[0])
	if len(cues) != len(want) {
		t.Fatalf("Expected %d cues, got %+v", len(want), cues)
	}
	for i := range want {
		if cues[i] != want[i] {
			t.Errorf("Cue %d: expected %+v, got %+v", i, want[i], cues[i])
		}
	}

	// No words for the second narration: fall back to sentences.
	if cues := subtitleCues(t, p, got[1]); len(cues) != 1 || cues[0].end != 1 {
		t.Errorf("Expected one capped sentence cue, got %+v", cues)
	}

	// slide, two voices, four subtitles
	if n := len(p.AssetList()); n != 7 {
		t.Errorf("Expected 7 assets, got %d", n)
	}
}

func TestBuildSynthesisFailure(t *testing.T) {
	p := newProject(t)
	d := New(t.TempDir(), nil)
	d.Synth = &fakeSynth{err: errors.New("quota exceeded")}

	err := d.Build(context.Background(), p, slides, Script{Shots: []Shot{{Subtitle: "Hi.", MediaIDs: []string{"slide"}}}})
	if !errors.Is(err, errs.ErrUpstream) {
		t.Fatalf("Expected ErrUpstream, got %v", err)
	}
	if p.Timeline().Len() != 0 || len(p.AssetList()) != 0 {
		t.Error("Failed synthesis should not touch the project")
	}
}

func TestBuildKeepsCompletedShots(t *testing.T) {
	p := newProject(t)
	d := New(t.TempDir(), nil)
	d.Synth = &fakeSynth{durations: map[string]float64{"First.": 2, "Second.": 3}}
	d.Transcriber = &fakeTranscriber{fail: map[string]bool{"voice-Second.": true}}

	err := d.Build(context.Background(), p, slides, Script{Shots: []Shot{
		{Subtitle: "First.", MediaIDs: []string{"slide"}},
		{Subtitle: "Second.", MediaIDs: []string{"slide"}},
	}})
	if !errors.Is(err, errs.ErrUpstream) {
		t.Fatalf("Expected ErrUpstream, got %v", err)
	}

	if p.Timeline().Len() != 1 {
		t.Errorf("Expected the first shot to stay, got %d events", p.Timeline().Len())
	}
	if _, err := p.Assets().Get("voice-Second."); err == nil {
		t.Error("Narration of the failed shot should not be registered")
	}
	if _, err := p.Assets().Get("voice-First."); err != nil {
		t.Errorf("Narration of the first shot is missing: %v", err)
	}
}

func TestBuildRejectsBadShots(t *testing.T) {
	tests := []struct {
		name string
		shot Shot
		want error
	}{
		{"unknown effect", Shot{End: 2, MediaIDs: []string{"slide"}, Effects: []string{"spin"}}, errs.ErrInvalidEffect},
		{"unknown media", Shot{End: 2, MediaIDs: []string{"ghost"}}, errs.ErrUnknownAsset},
		{"empty shot", Shot{Start: 2, End: 2, MediaIDs: []string{"slide"}}, errs.ErrInvalidInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProject(t)
			err := New(t.TempDir(), nil).Build(context.Background(), p, slides, Script{Shots: []Shot{tt.shot}})
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
			if p.Timeline().Len() != 0 || len(p.AssetList()) != 0 {
				t.Error("Rejected shot left traces in the project")
			}
		})
	}
}

func TestBuildLinkAddsQRCode(t *testing.T) {
	dir := t.TempDir()
	p := newProject(t)
	script := Script{Shots: []Shot{{End: 3, MediaIDs: []string{"slide"}, Link: "https://example.com/demo"}}}

	if err := New(dir, nil).Build(context.Background(), p, slides, script); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	refs := scenes(t, p)[0].References
	qr := refs[len(refs)-1]
	a, err := p.Assets().Get(qr.AssetID)
	if err != nil {
		t.Fatalf("QR asset missing: %v", err)
	}
	if qr.Z() != linkZ || qr.Position.Anchor != "bottom-right" {
		t.Errorf("Unexpected QR placement: z=%d anchor=%q", qr.Z(), qr.Position.Anchor)
	}
	if filepath.Dir(a.Source) != dir {
		t.Errorf("QR code written outside the work dir: %s", a.Source)
	}
	if _, err := os.Stat(a.Source); err != nil {
		t.Errorf("QR code file missing: %v", err)
	}
}

func TestBuildSuggestsMotion(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 400, 200))
	for y := 60; y < 140; y++ {
		for x := 280; x < 380; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	picker, err := analyzer.NewMotionPicker("contrast")
	if err != nil {
		t.Fatalf("NewMotionPicker failed: %v", err)
	}

	p := newProject(t)
	d := New(t.TempDir(), nil)
	d.Motion = picker
	d.Stills = fakeStills{img: img}

	script := Script{Shots: []Shot{{End: 4, MediaIDs: []string{"slide"}}}}
	if err := d.Build(context.Background(), p, slides, script); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	fx := scenes(t, p)[0].References[0].Effects
	if len(fx) != 1 || fx[0].Kind != effects.PanRight {
		t.Errorf("Expected a suggested pan_right, got %+v", fx)
	}
}

func TestFileScriptGenerator(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.yaml")
	script := Script{Title: "Demo", Shots: []Shot{{Subtitle: "Hi.", Start: 0, End: 2, MediaIDs: []string{"slide"}}}}
	if err := WriteScript(script, path); err != nil {
		t.Fatalf("WriteScript failed: %v", err)
	}

	got, err := FileScriptGenerator{Path: path}.Generate(context.Background(), slides)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got.Title != "Demo" || len(got.Shots) != 1 || got.Shots[0].MediaIDs[0] != "slide" {
		t.Errorf("Unexpected script: %+v", got)
	}

	if _, err := (FileScriptGenerator{Path: path}).Generate(context.Background(), nil); !errors.Is(err, errs.ErrUnknownAsset) {
		t.Errorf("Expected ErrUnknownAsset for unoffered media, got %v", err)
	}
}

func TestSlideshowGenerator(t *testing.T) {
	media := append([]Media{{ID: "music", Kind: asset.KindAudio, Source: "m.mp3", Duration: 30}}, slides...)

	got, err := SlideshowGenerator{ShotDuration: 2.5, Effects: []string{"zoom_in"}}.Generate(context.Background(), media)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(got.Shots) != 2 {
		t.Fatalf("Expected 2 shots (audio skipped), got %d", len(got.Shots))
	}
	if got.Shots[0].Title != "Slide" {
		t.Errorf("Expected title Slide, got %q", got.Shots[0].Title)
	}
	if got.Shots[1].Start != 2.5 || got.Shots[1].End != 5 || got.Shots[1].MediaIDs[0] != "clip" {
		t.Errorf("Unexpected second shot: %+v", got.Shots[1])
	}

	p := newProject(t)
	if err := New(t.TempDir(), nil).Build(context.Background(), p, media, got); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if p.Duration() != 5 {
		t.Errorf("Expected duration 5, got %.3f", p.Duration())
	}

	if _, err := (SlideshowGenerator{}).Generate(context.Background(), media[:1]); !errors.Is(err, errs.ErrInvalidAsset) {
		t.Errorf("Expected ErrInvalidAsset without visual media, got %v", err)
	}
}
