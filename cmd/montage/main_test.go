package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivlev/montage/internal/errs"
	"github.com/ivlev/montage/internal/project"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, out, want string) {
	t.Helper()
	if !strings.Contains(out, want) {
		t.Fatalf("Expected output to contain %q, got:\n%s", want, out)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	target := filepath.Join(t.TempDir(), "montage.toml")

	out, _, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Error("Expected config init to refuse an existing file")
	}
	if _, _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Errorf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, "--config", target, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "bad.toml")
	writeFile(t, target, "[render]\nscaling = \"nearest\"\n")

	_, _, err := runCLI(t, "--config", target, "config", "validate")
	if !errors.Is(err, errs.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "none.toml")
	_, _, err := runCLI(t, "--config", cfg, "--log-level", "loud", "validate", "x.yaml")
	if !errors.Is(err, errs.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

const testManifest = `
- id: slide
  kind: image
  source: slide.png
  width: 1280
  height: 720
- id: logo
  kind: IMAGE
  source: logo.png
  width: 200
  height: 200
`

const testScript = `
title: Demo Reel
shots:
  - title: Intro
    subtitle: Welcome. This is a demo.
    start: 0
    end: 4
    media: [slide]
    effects: [zoom_in, fade_in]
  - title: Outro
    start: 4
    end: 6
    media: [logo]
`

func TestBuildValidatePlan(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "none.toml")
	manifest := filepath.Join(dir, "media.yaml")
	script := filepath.Join(dir, "script.yaml")
	projectPath := filepath.Join(dir, "projects", "demo.yaml")
	writeFile(t, manifest, testManifest)
	writeFile(t, script, testScript)

	out, _, err := runCLI(t, "--config", cfg, "--log-level", "error", "build",
		"--media", manifest,
		"--script", script,
		"--preset", "9:16",
		"--work-dir", filepath.Join(dir, "work"),
		"-o", projectPath)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	requireContains(t, out, "Project saved to "+projectPath)

	p, err := project.Load(projectPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if pc := p.Config(); pc.Name != "Demo Reel" || pc.Width != 720 || pc.Height != 1280 {
		t.Errorf("Unexpected project config: %+v", pc)
	}
	if p.Duration() != 6 {
		t.Errorf("Expected duration 6, got %.3f", p.Duration())
	}
	// slide, logo and two sentence subtitles
	if n := len(p.AssetList()); n != 4 {
		t.Errorf("Expected 4 assets, got %d", n)
	}

	out, _, err = runCLI(t, "--config", cfg, "validate", projectPath)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	requireContains(t, out, "Events: 2")
	requireContains(t, out, "180 frames")
	requireContains(t, out, "Project valid")

	planPath := filepath.Join(dir, "plan.yaml")
	out, _, err = runCLI(t, "--config", cfg, "plan", projectPath, "-o", planPath)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	requireContains(t, out, "180 frames")
	data, err := os.ReadFile(planPath)
	if err != nil {
		t.Fatalf("read plan: %v", err)
	}
	if !bytes.Contains(data, []byte("frames:")) {
		t.Errorf("Plan file lacks frames:\n%s", data[:min(len(data), 200)])
	}
}

func TestBuildRejects(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "none.toml")
	manifest := filepath.Join(dir, "media.yaml")
	writeFile(t, manifest, testManifest)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"no media", []string{"build"}, errs.ErrInvalidConfig},
		{"transcribe without narrate", []string{"build", "--media", manifest, "--transcribe"}, errs.ErrInvalidConfig},
		{"bad preset", []string{"build", "--media", manifest, "--preset", "1:1"}, errs.ErrInvalidConfig},
		{"unknown effect", []string{"build", "--media", manifest, "--effects", "spin"}, errs.ErrInvalidEffect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", cfg}, tt.args...)
			args = append(args, "--work-dir", filepath.Join(dir, "work"), "-o", filepath.Join(dir, "out.yaml"))
			if _, _, err := runCLI(t, args...); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if _, err := os.Stat(filepath.Join(dir, "out.yaml")); err == nil {
				t.Error("Failed build should not save a project")
			}
		})
	}
}

func TestRenderWithoutProject(t *testing.T) {
	t.Chdir(t.TempDir())
	_, _, err := runCLI(t, "--config", "none.toml", "render")
	if err == nil || !strings.Contains(err.Error(), "no project given") {
		t.Errorf("Expected a missing project error, got %v", err)
	}
}

func TestDefaultOutput(t *testing.T) {
	got := defaultOutput("My Reel")
	if !strings.HasPrefix(got, filepath.Join("output", "My_Reel_")) || filepath.Ext(got) != ".mp4" {
		t.Errorf("Unexpected default output %q", got)
	}
}
