package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ivlev/montage/internal/analyzer"
	"github.com/ivlev/montage/internal/config"
	"github.com/ivlev/montage/internal/director"
	"github.com/ivlev/montage/internal/errs"
	"github.com/ivlev/montage/internal/project"
	"github.com/ivlev/montage/internal/source"
	"github.com/ivlev/montage/internal/speech"
	"github.com/ivlev/montage/internal/system"
	"github.com/ivlev/montage/internal/transcribe"
)

type buildOptions struct {
	mediaPath    string
	imports      []string
	scriptPath   string
	output       string
	name         string
	preset       string
	workDir      string
	shotDuration float64
	effects      []string
	narrate      bool
	transcribe   bool
	autoMotion   bool
}

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a project from media and a shooting script",
		Long: "Build registers the given media, lays out one scene per shot of the script " +
			"and saves the project as YAML. Without --script every visual medium becomes " +
			"one shot of --shot-duration seconds.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := runBuild(cmd.Context(), cfg, opts, ctx.logger(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[+] Project saved to %s\n", path)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.mediaPath, "media", "", "Media manifest (YAML list of id, kind, source, duration, width, height)")
	flags.StringSliceVarP(&opts.imports, "import", "i", nil, "Media files to import (PDF pages, images, audio, video)")
	flags.StringVarP(&opts.scriptPath, "script", "s", "", "Shooting script (YAML)")
	flags.StringVarP(&opts.output, "output", "o", "", "Project file (default: projects/project_<timestamp>.yaml)")
	flags.StringVar(&opts.name, "name", "", "Project name (default: script title)")
	flags.StringVar(&opts.preset, "preset", "", "Format preset: 16:9, 9:16 (Shorts/TikTok), 4:5 (Instagram)")
	flags.StringVar(&opts.workDir, "work-dir", "output/work", "Directory for narration and QR code files")
	flags.Float64Var(&opts.shotDuration, "shot-duration", 3, "Seconds per medium when no script is given")
	flags.StringSliceVar(&opts.effects, "effects", nil, "Effects for generated shots, e.g. zoom_in,fade_in")
	flags.BoolVar(&opts.narrate, "narrate", false, "Synthesize shot subtitles as narration")
	flags.BoolVar(&opts.transcribe, "transcribe", false, "Time subtitles from a transcription of the narration")
	flags.BoolVar(&opts.autoMotion, "auto-motion", false, "Pick a camera move for image shots without effects")
	return cmd
}

func runBuild(ctx context.Context, cfg *config.Config, opts buildOptions, logger *slog.Logger) (string, error) {
	if opts.transcribe && !opts.narrate {
		return "", fmt.Errorf("%w: --transcribe requires --narrate", errs.ErrInvalidConfig)
	}

	loader := source.NewLoader(cfg.Render.FFmpegBinary, cfg.Render.FFprobeBinary, logger)
	media, err := collectMedia(ctx, loader, opts)
	if err != nil {
		return "", err
	}

	var gen director.ScriptGenerator = director.SlideshowGenerator{ShotDuration: opts.shotDuration, Effects: opts.effects}
	if opts.scriptPath != "" {
		gen = director.FileScriptGenerator{Path: opts.scriptPath}
	}
	script, err := gen.Generate(ctx, media)
	if err != nil {
		return "", err
	}

	pc := cfg.Project
	if opts.preset != "" {
		if pc, err = pc.WithPreset(opts.preset); err != nil {
			return "", err
		}
	}
	switch {
	case opts.name != "":
		pc.Name = opts.name
	case script.Title != "":
		pc.Name = script.Title
	}
	p, err := project.New(pc)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(opts.workDir, 0o755); err != nil {
		return "", fmt.Errorf("create work directory: %w", err)
	}
	d := director.New(opts.workDir, logger)
	d.MaxSubtitleDuration = cfg.Subtitles.MaxDuration
	d.SubtitleMargin = cfg.Subtitles.Margin
	if opts.narrate {
		d.Synth = speech.NewClient(speech.Config{
			APIKey:         cfg.Speech.APIKey,
			BaseURL:        cfg.Speech.BaseURL,
			Model:          cfg.Speech.Model,
			Voice:          cfg.Speech.Voice,
			TimeoutSeconds: cfg.Speech.TimeoutSeconds,
		}, opts.workDir, speech.WithProber(func(ctx context.Context, path string) (float64, error) {
			return system.AudioDuration(ctx, cfg.Render.FFprobeBinary, path)
		}))
	}
	if opts.transcribe {
		d.Transcriber = transcribe.NewClient(transcribe.Config{
			APIKey:         cfg.Transcription.APIKey,
			BaseURL:        cfg.Transcription.BaseURL,
			Model:          cfg.Transcription.Model,
			Language:       cfg.Transcription.Language,
			TimeoutSeconds: cfg.Transcription.TimeoutSeconds,
		})
	}
	if opts.autoMotion {
		picker, err := analyzer.NewMotionPicker("contrast")
		if err != nil {
			return "", err
		}
		d.Motion, d.Stills = picker, loader
	}

	if err := d.Build(ctx, p, media, script); err != nil {
		return "", err
	}
	if err := p.WithSubtitleStyle(cfg.Subtitles.Style()).Err(); err != nil {
		return "", err
	}

	out := opts.output
	if out == "" {
		out = project.GeneratePath(projectsDir)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("create project directory: %w", err)
	}
	if err := p.Save(out); err != nil {
		return "", err
	}
	return out, nil
}

// collectMedia merges the manifest with imported files. Imported ids must
// not collide with manifest ids.
func collectMedia(ctx context.Context, loader *source.Loader, opts buildOptions) ([]director.Media, error) {
	var media []director.Media
	if opts.mediaPath != "" {
		m, err := director.ReadMedia(opts.mediaPath)
		if err != nil {
			return nil, err
		}
		media = append(media, m...)
	}

	for _, path := range opts.imports {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		assets, err := loader.Import(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", path, err)
		}
		for _, a := range assets {
			media = append(media, director.Media{
				ID:       a.ID,
				Kind:     a.Kind,
				Source:   a.Source,
				Duration: a.Duration,
				Width:    a.Width,
				Height:   a.Height,
			})
		}
	}

	seen := make(map[string]bool, len(media))
	for _, m := range media {
		if seen[m.ID] {
			return nil, fmt.Errorf("%w: media id %q given twice", errs.ErrDuplicateAsset, m.ID)
		}
		seen[m.ID] = true
	}
	if len(media) == 0 {
		return nil, fmt.Errorf("%w: no media given (use --media or --import)", errs.ErrInvalidConfig)
	}
	return media, nil
}
