// Package director builds a project from media and a shooting script:
// narration is synthesized per shot, subtitles are timed against it and
// everything is laid out as one scene per shot.
package director

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/ivlev/montage/internal/analyzer"
	"github.com/ivlev/montage/internal/asset"
	"github.com/ivlev/montage/internal/effects"
	"github.com/ivlev/montage/internal/errs"
	"github.com/ivlev/montage/internal/position"
	"github.com/ivlev/montage/internal/project"
	"github.com/ivlev/montage/internal/timeline"
	"github.com/ivlev/montage/internal/transcribe"
)

const (
	defaultMaxSubtitleDuration = 5.0
	defaultMargin              = 48
	qrSize                     = 256

	subtitleZ = 10
	linkZ     = 20
)

// SpeechSynthesizer turns texts into narration audio assets, one per text.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, texts []string) ([]asset.Asset, error)
}

// Transcriber returns word timings for an audio asset.
type Transcriber interface {
	Transcribe(ctx context.Context, a asset.Asset) (transcribe.Transcript, error)
}

// StillLoader decodes a still frame of a visual asset.
type StillLoader interface {
	Still(ctx context.Context, a asset.Asset) (image.Image, error)
}

// Director assembles projects. Synth, Transcriber and Motion are optional.
type Director struct {
	Synth       SpeechSynthesizer
	Transcriber Transcriber

	// Motion suggests a camera effect for image shots without effects.
	// Stills must be set along with it.
	Motion *analyzer.MotionPicker
	Stills StillLoader

	MaxSubtitleDuration float64
	SubtitleMargin      int
	WorkDir             string // QR code images are written here
	Logger              *slog.Logger
}

// New creates a Director with default settings.
func New(workDir string, logger *slog.Logger) *Director {
	return &Director{
		MaxSubtitleDuration: defaultMaxSubtitleDuration,
		SubtitleMargin:      defaultMargin,
		WorkDir:             workDir,
		Logger:              logger,
	}
}

func (d *Director) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func (d *Director) maxSubtitle() float64 {
	if d.MaxSubtitleDuration <= 0 {
		return defaultMaxSubtitleDuration
	}
	return d.MaxSubtitleDuration
}

// Build adds media and one scene per shot to p. Each shot is committed only
// after all its collaborator calls succeeded; a failure leaves the shots
// built so far in place and returns the error.
func (d *Director) Build(ctx context.Context, p *project.Project, media []Media, script Script) error {
	byID := make(map[string]Media, len(media))
	for _, m := range media {
		byID[m.ID] = m
	}

	narration, err := d.narrate(ctx, script.Shots)
	if err != nil {
		return err
	}

	cursor := 0.0
	for i, shot := range script.Shots {
		if err := ctx.Err(); err != nil {
			return err
		}

		start, dur := shot.Start, shot.Duration()
		voice, narrated := narration[i]
		if narrated {
			start, dur = cursor, voice.Duration
		}
		if dur <= 0 {
			return fmt.Errorf("%w: shot %d lasts %.3fs", errs.ErrInvalidInterval, i, dur)
		}

		b := &shotBuilder{d: d, p: p, media: byID, scene: timeline.NewScene(shot.Title, start).WithDescription(shot.Description)}
		if err := b.build(ctx, shot, dur, voice, narrated); err != nil {
			return fmt.Errorf("shot %d: %w", i, err)
		}
		if err := b.commit(); err != nil {
			return fmt.Errorf("shot %d: %w", i, err)
		}

		d.logger().Info("[*] shot built",
			"index", i,
			"title", shot.Title,
			"start", start,
			"duration", dur,
			"references", len(b.scene.References))
		cursor = start + dur
	}

	d.logger().Info("[*] build complete", "shots", len(script.Shots), "duration", p.Duration())
	return nil
}

// narrate synthesizes the subtitles of all shots that have one. The result
// is keyed by shot index.
func (d *Director) narrate(ctx context.Context, shots []Shot) (map[int]asset.Asset, error) {
	out := make(map[int]asset.Asset)
	if d.Synth == nil {
		return out, nil
	}

	var texts []string
	var index []int
	for i, s := range shots {
		if strings.TrimSpace(s.Subtitle) != "" {
			texts = append(texts, s.Subtitle)
			index = append(index, i)
		}
	}
	if len(texts) == 0 {
		return out, nil
	}

	d.logger().Info("[>] synthesizing narration", "texts", len(texts))
	voices, err := d.Synth.Synthesize(ctx, texts)
	if err != nil {
		return nil, errs.Upstream("speech synthesizer", err)
	}
	if len(voices) != len(texts) {
		return nil, errs.Upstream("speech synthesizer",
			fmt.Errorf("returned %d assets for %d texts", len(voices), len(texts)))
	}
	for j, i := range index {
		out[i] = voices[j]
	}
	return out, nil
}

// shotBuilder stages the assets and scene of one shot.
type shotBuilder struct {
	d      *Director
	p      *project.Project
	media  map[string]Media
	scene  timeline.Scene
	staged []asset.Asset
}

func (b *shotBuilder) stage(a asset.Asset) {
	for _, s := range b.staged {
		if s.ID == a.ID {
			return
		}
	}
	if _, err := b.p.Assets().Get(a.ID); err == nil {
		return
	}
	b.staged = append(b.staged, a)
}

func (b *shotBuilder) add(r timeline.AssetReference) {
	b.scene = b.scene.WithReferences(r)
}

func (b *shotBuilder) build(ctx context.Context, shot Shot, dur float64, voice asset.Asset, narrated bool) error {
	for _, id := range shot.MediaIDs {
		m, ok := b.media[id]
		if !ok {
			return fmt.Errorf("%w: media %q", errs.ErrUnknownAsset, id)
		}
		if err := b.addMedia(ctx, m, shot.Effects, dur); err != nil {
			return err
		}
	}

	if narrated {
		b.stage(voice)
		b.add(timeline.NewReference(voice.ID, 0, dur))
	}

	if strings.TrimSpace(shot.Subtitle) != "" {
		if err := b.addSubtitles(ctx, shot.Subtitle, dur, voice, narrated); err != nil {
			return err
		}
	}

	if shot.Link != "" {
		if err := b.addLink(shot.Link, dur); err != nil {
			return err
		}
	}
	return nil
}

func (b *shotBuilder) addMedia(ctx context.Context, m Media, names []string, dur float64) error {
	a := m.Asset()
	b.stage(a)

	end := dur
	if a.Kind.TimeBound() && a.Duration < end {
		end = a.Duration
	}
	ref := timeline.NewReference(a.ID, 0, end)

	if a.Kind.Visual() {
		fx, err := b.effects(ctx, a, names, end)
		if err != nil {
			return err
		}
		ref = ref.WithEffects(fx...)
	}
	b.add(ref)
	return nil
}

func (b *shotBuilder) effects(ctx context.Context, a asset.Asset, names []string, dur float64) ([]effects.Effect, error) {
	if len(names) == 0 && a.Kind == asset.KindImage && b.d.Motion != nil && b.d.Stills != nil {
		if kind, ok := b.suggestMotion(ctx, a); ok {
			names = []string{string(kind)}
		}
	}

	out := make([]effects.Effect, 0, len(names))
	for _, name := range names {
		e, err := effects.New(name, 0, dur)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// suggestMotion is best effort: an unreadable still only costs the motion.
func (b *shotBuilder) suggestMotion(ctx context.Context, a asset.Asset) (effects.Kind, bool) {
	img, err := b.d.Stills.Still(ctx, a)
	if err == nil {
		var kind effects.Kind
		if kind, err = b.d.Motion.Pick(img); err == nil {
			b.d.logger().Debug("[>] motion suggested", "asset", a.ID, "effect", kind)
			return kind, true
		}
	}
	b.d.logger().Warn("[!] motion analysis failed", "asset", a.ID, "error", err)
	return "", false
}

type cue struct {
	text       string
	start, end float64
}

func (b *shotBuilder) addSubtitles(ctx context.Context, text string, dur float64, voice asset.Asset, narrated bool) error {
	var cues []cue
	if narrated && b.d.Transcriber != nil {
		tr, err := b.d.Transcriber.Transcribe(ctx, voice)
		if err != nil {
			return errs.Upstream("transcriber", err)
		}
		cues = phraseCues(GroupPhrases(tr.Words, b.d.maxSubtitle()), dur)
	}
	if len(cues) == 0 {
		cues = sentenceCues(SplitSentences(text), dur, b.d.maxSubtitle())
	}

	pos, err := position.Region("bottom-center", b.d.SubtitleMargin)
	if err != nil {
		return err
	}
	for _, c := range cues {
		a := asset.Asset{ID: "subtitle-" + uuid.NewString(), Kind: asset.KindSubtitle, Text: c.text}
		b.stage(a)
		b.add(timeline.NewReference(a.ID, c.start, c.end).WithZIndex(subtitleZ).WithPosition(pos))
	}
	return nil
}

// phraseCues shows each phrase from its first word until the next phrase
// starts. The last phrase stays up until the end of the shot.
func phraseCues(phrases [][]transcribe.Word, dur float64) []cue {
	var cues []cue
	for i, ph := range phrases {
		start := ph[0].Start
		end := dur
		if i+1 < len(phrases) {
			end = phrases[i+1][0].Start
		}
		start, end = max(0, start), min(end, dur)
		if end <= start {
			continue
		}
		cues = append(cues, cue{text: PhraseText(ph), start: start, end: end})
	}
	return cues
}

// sentenceCues shows sentences back to back, each for an equal share of the
// shot capped at maxDuration.
func sentenceCues(sentences []string, dur, maxDuration float64) []cue {
	if len(sentences) == 0 {
		return nil
	}
	seg := min(dur/float64(len(sentences)), maxDuration)
	cues := make([]cue, 0, len(sentences))
	for i, s := range sentences {
		start := float64(i) * seg
		cues = append(cues, cue{text: s, start: start, end: min(start+seg, dur)})
	}
	return cues
}

func (b *shotBuilder) addLink(link string, dur float64) error {
	if err := os.MkdirAll(b.d.WorkDir, 0o755); err != nil {
		return err
	}
	id := "qr-" + uuid.NewString()
	path := filepath.Join(b.d.WorkDir, id+".png")
	if err := qrcode.WriteFile(link, qrcode.Medium, qrSize, path); err != nil {
		return fmt.Errorf("encode qr code for %q: %w", link, err)
	}

	pos, err := position.Region("bottom-right", b.d.SubtitleMargin)
	if err != nil {
		return err
	}
	b.stage(asset.Asset{ID: id, Kind: asset.KindImage, Source: path, Width: qrSize, Height: qrSize})
	b.add(timeline.NewReference(id, 0, dur).WithZIndex(linkZ).WithPosition(pos))
	return nil
}

// commit registers the staged assets and appends the scene. On failure the
// assets registered here are removed again.
func (b *shotBuilder) commit() error {
	var added []string
	rollback := func() {
		for _, id := range added {
			_, _ = b.p.RemoveAsset(id)
		}
	}

	for _, a := range b.staged {
		if err := b.p.AddAsset(a); err != nil {
			rollback()
			return err
		}
		added = append(added, a.ID)
	}
	if err := b.p.AddEvent(b.scene); err != nil {
		rollback()
		return err
	}
	return nil
}
