// Package assets inspects and prunes rendered output left in the asset
// directory between runs.
package assets

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sessionreel/internal/logging"
)

// managedExtensions are the suffixes written by the render adapter and by
// interrupted verified copies.
var managedExtensions = []string{".png", ".mp4", ".partial"}

// File describes one rendered artifact.
type File struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// CleanResult contains the outcome of a cleanup pass.
type CleanResult struct {
	Removed []string
	Freed   int64
	Errors  []CleanupError
}

// CleanupError pairs a file path with its removal error.
type CleanupError struct {
	Path  string
	Error error
}

func managed(name string) bool {
	for _, ext := range managedExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// List returns rendered artifacts in dir sorted by name. A missing or blank
// directory yields no files.
func List(dir string) ([]File, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []File
	for _, entry := range entries {
		if entry.IsDir() || !managed(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, File{
			Name:    entry.Name(),
			Path:    filepath.Join(dir, entry.Name()),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// CleanStale removes rendered artifacts older than maxAge. With dryRun the
// candidates are reported in Removed but left on disk.
func CleanStale(ctx context.Context, dir string, maxAge time.Duration, dryRun bool, logger *slog.Logger) CleanResult {
	result := CleanResult{}
	if logger == nil {
		logger = logging.NewNop()
	}

	files, err := List(dir)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		if !file.ModTime.Before(cutoff) {
			continue
		}
		if !dryRun {
			if err := os.Remove(file.Path); err != nil && !os.IsNotExist(err) {
				result.Errors = append(result.Errors, CleanupError{Path: file.Path, Error: err})
				logging.WarnWithContext(logger, "failed to remove stale asset", "asset_cleanup_failed",
					logging.String("path", file.Path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check asset_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
				continue
			}
			logger.Info("removed stale asset",
				logging.String("path", file.Path),
				logging.Duration("age", time.Since(file.ModTime).Round(time.Second)),
				logging.String(logging.FieldEventType, "asset_cleanup"),
			)
		}
		result.Removed = append(result.Removed, file.Path)
		result.Freed += file.Size
	}
	return result
}
