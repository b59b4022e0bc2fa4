package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/montage/internal/system"
)

// Stats describes one render.
type Stats struct {
	Frames    int
	Duration  float64 // seconds of output
	Total     time.Duration
	Rasterize time.Duration
	Encode    time.Duration // time spent handing frames to the encoder
	Mux       time.Duration
	Memory    system.Memory // sampled at the end of the render
}

// FPS is the effective number of frames produced per wall-clock second.
func (s Stats) FPS() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Frames) / s.Total.Seconds()
}

// Report formats the stats as a block for the terminal.
func (s Stats) Report() string {
	var b strings.Builder
	b.WriteString("--- [PERFORMANCE REPORT] ---\n")
	fmt.Fprintf(&b, "Frames: %d (%.2fs of video)\n", s.Frames, s.Duration)
	fmt.Fprintf(&b, "Total Time: %.2fs\n", s.Total.Seconds())
	fmt.Fprintf(&b, "Rasterizing: %.2fs\n", s.Rasterize.Seconds())
	fmt.Fprintf(&b, "Encoding: %.2fs\n", s.Encode.Seconds())
	fmt.Fprintf(&b, "Audio Mux: %.2fs\n", s.Mux.Seconds())
	fmt.Fprintf(&b, "Effective FPS: %.2f\n", s.FPS())
	if s.Memory.Total > 0 {
		fmt.Fprintf(&b, "Memory: %d MiB used of %d MiB\n", s.Memory.Used>>20, s.Memory.Total>>20)
	}
	b.WriteString("----------------------------\n")
	return b.String()
}

// LogLine is the single-line form appended to the stats log.
func (s Stats) LogLine(now time.Time, output string) string {
	return fmt.Sprintf("[%s] Output: %s | Frames: %d | Total: %.2fs | Raster: %.2fs | Encode: %.2fs | Mux: %.2fs | FPS: %.2f\n",
		now.Format("2006-01-02 15:04:05"),
		filepath.Base(output),
		s.Frames,
		s.Total.Seconds(),
		s.Rasterize.Seconds(),
		s.Encode.Seconds(),
		s.Mux.Seconds(),
		s.FPS())
}

func (e *Engine) report(output string, s Stats) {
	e.logger.Info("[+] render complete", "output", output, "frames", s.Frames, "elapsed", s.Total.Round(time.Millisecond), "fps", fmt.Sprintf("%.2f", s.FPS()))
	if !e.opts.ShowStats {
		return
	}
	fmt.Print(s.Report())

	if e.opts.StatsLog == "" {
		return
	}
	f, err := os.OpenFile(e.opts.StatsLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		e.logger.Warn("[!] could not write stats log", "path", e.opts.StatsLog, "error", err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(s.LogLine(time.Now(), output)); err != nil {
		e.logger.Warn("[!] could not write stats log", "path", e.opts.StatsLog, "error", err)
	}
}
