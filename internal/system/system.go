// Package system sizes the render pipeline for the host and wraps the
// ffmpeg/ffprobe binaries.
package system

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const openFilesLimit = 2048

// Extension sets accepted by FindLatest.
var (
	AudioExtensions    = []string{".mp3", ".wav", ".m4a", ".ogg", ".aac", ".flac"}
	ImageExtensions    = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tif", ".tiff"}
	DocumentExtensions = []string{".pdf"}
	VideoExtensions    = []string{".mp4", ".mov", ".mkv", ".webm"}
	ProjectExtensions  = []string{".yaml", ".yml"}
)

// InitResourceLimits raises the open file limit; each ffmpeg child and
// decoded source keeps descriptors open.
func InitResourceLimits(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn("[!] could not read open file limit", "error", err)
		return
	}
	if rLimit.Cur >= openFilesLimit {
		return
	}

	rLimit.Cur = min(openFilesLimit, rLimit.Max)
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn("[!] could not raise open file limit", "error", err)
		return
	}
	logger.Debug("[*] open file limit raised", "limit", rLimit.Cur)
}

// Workers returns the default degree of parallelism: one worker per logical
// CPU.
func Workers() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// Memory is a point-in-time view of host memory, in bytes.
type Memory struct {
	Total     uint64
	Available uint64
	Used      float64 // percent
}

// MemoryStats reads host memory usage.
func MemoryStats() (Memory, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return Memory{}, fmt.Errorf("read memory stats: %w", err)
	}
	return Memory{Total: vm.Total, Available: vm.Available, Used: vm.UsedPercent}, nil
}

// FindLatest returns the most recently modified file in dir whose extension
// is one of exts. When path names a file, its directory is searched.
func FindLatest(path string, exts []string) (string, error) {
	dir := path
	if fi, err := os.Stat(path); err != nil {
		return "", err
	} else if !fi.IsDir() {
		dir = filepath.Dir(path)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(exts, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, e.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no %s files found in %s", strings.Join(exts, "/"), dir)
	}
	return latestFile, nil
}
