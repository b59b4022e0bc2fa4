package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/montage/internal/compose"
	"github.com/ivlev/montage/internal/config"
	"github.com/ivlev/montage/internal/engine"
	"github.com/ivlev/montage/internal/project"
	"github.com/ivlev/montage/internal/renderer"
	"github.com/ivlev/montage/internal/system"
)

const (
	projectsDir = "projects"
	outputDir   = "output"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "render [project]",
		Short: "Render a project to an MP4 file (default: latest project in projects/)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.logger(cmd)
			system.InitResourceLimits(logger)

			path, err := projectArg(args)
			if err != nil {
				return err
			}
			p, err := project.Load(path)
			if err != nil {
				return err
			}
			logger.Info("[*] project loaded", "path", path, "assets", len(p.AssetList()), "duration", p.Duration())

			plan, err := resolvePlan(cmd.Context(), cfg, p)
			if err != nil {
				return err
			}

			if output == "" {
				output = defaultOutput(p.Config().Name)
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			if err := engine.NewFFmpeg(cmd.Context(), cfg, logger).Render(cmd.Context(), plan, p.Assets(), output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[+] Rendered %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output video path (default: output/<name>_<timestamp>.mp4)")
	return cmd
}

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "plan [project]",
		Short: "Resolve a project and write its frame and audio plan as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := projectArg(args)
			if err != nil {
				return err
			}
			p, err := project.Load(path)
			if err != nil {
				return err
			}
			plan, err := resolvePlan(cmd.Context(), cfg, p)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				return plan.Encode(cmd.OutOrStdout())
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create plan file: %w", err)
			}
			if err := plan.Encode(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote plan with %d frames and %d audio clips to %s\n", len(plan.Frames), len(plan.Audio), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Plan file (default: stdout)")
	return cmd
}

func newValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [project]",
		Short: "Check that a project loads and resolves",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := projectArg(args)
			if err != nil {
				return err
			}
			p, err := project.Load(path)
			if err != nil {
				return err
			}
			plan, err := resolvePlan(cmd.Context(), cfg, p)
			if err != nil {
				return err
			}

			pc := p.Config()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project: %s (v%d)\n", pc.Name, pc.Version)
			fmt.Fprintf(out, "Output: %dx%d @ %d fps\n", pc.Width, pc.Height, pc.FPS)
			fmt.Fprintf(out, "Assets: %d\n", len(p.AssetList()))
			fmt.Fprintf(out, "Events: %d\n", p.Timeline().Len())
			fmt.Fprintf(out, "Duration: %.2fs (%d frames, %d audio clips)\n", plan.Duration, len(plan.Frames), len(plan.Audio))
			fmt.Fprintln(out, "Project valid")
			return nil
		},
	}
}

// projectArg returns the project named on the command line or the most
// recent one in projects/.
func projectArg(args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}
	latest, err := project.FindLatest(projectsDir)
	if err != nil {
		return "", fmt.Errorf("no project given and none found in %s/: %w", projectsDir, err)
	}
	return latest, nil
}

// resolvePlan places content with the same text metrics the renderer will
// draw with.
func resolvePlan(ctx context.Context, cfg *config.Config, p *project.Project) (*compose.Plan, error) {
	sizer, err := renderer.New(p.Assets(), nil, renderer.Options{
		Frame:      p.Config().Frame(),
		Background: cfg.Render.Background,
		Text:       cfg.Subtitles.Style(),
	})
	if err != nil {
		return nil, err
	}
	workers := cfg.Render.Workers
	if workers <= 0 {
		workers = system.Workers()
	}
	return p.Resolve(ctx, compose.WithWorkers(workers), compose.WithContentSizer(sizer.Sizer()))
}

func defaultOutput(name string) string {
	clean := strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	if clean == "" {
		clean = "montage"
	}
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(outputDir, fmt.Sprintf("%s_%s.mp4", clean, timestamp))
}
