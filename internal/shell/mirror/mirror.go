// Package mirror persists artifact bundles into the directory layout a
// locally-running execution engine consumes.
// This is part of the Imperative Shell - handles filesystem I/O.
package mirror

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/dalproject/dald/internal/core/bundle"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrEngineUnavailable is returned when the engine directory cannot be
	// written. The result still carries the fully-assembled file set so the
	// caller can place it by other means; this is the partial-success
	// outcome, distinct from total failure.
	ErrEngineUnavailable = errors.New("local engine directory unavailable")

	// ErrConflictingPath is returned when a resolved dataset payload and a
	// bundle file target the same relative path.
	ErrConflictingPath = errors.New("conflicting path in save set")

	// ErrWriteFailed is returned when the write set could not be completed.
	ErrWriteFailed = errors.New("failed to write engine files")
)

// MirrorError wraps errors with additional context.
type MirrorError struct {
	Op      string
	Path    string
	Message string
	Err     error
}

func (e *MirrorError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *MirrorError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Mirror
// =============================================================================

// Mirror writes project snapshots under a per-project directory inside the
// engine root.
type Mirror struct {
	engineRoot string
	logger     *slog.Logger
}

// Config holds local mirror configuration.
type Config struct {
	// EngineRoot is the directory the execution engine watches. Empty
	// means no local engine is reachable from this process.
	EngineRoot string
}

// NewMirror creates a new local mirror.
func NewMirror(cfg Config, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		engineRoot: cfg.EngineRoot,
		logger:     logger,
	}
}

// =============================================================================
// Save
// =============================================================================

// SaveResult is the outcome of one save. Files always carries the full
// assembled set, written or not.
type SaveResult struct {
	// Path is the project directory under the engine root. Empty when the
	// engine was unavailable.
	Path string
	// SavedFiles lists relative paths actually written, sorted.
	SavedFiles []string
	// Files is the complete assembled file set.
	Files []bundle.FileEntry
	// Written reports whether the set reached the engine directory.
	Written bool
}

// SaveLocally assembles the bundle plus resolved dataset payloads and
// writes them into the project's engine directory. The whole write set is
// assembled in memory before the first byte hits the destination, so a
// concurrent reader never observes a half-new, half-old project directory
// on any platform, atomic rename or not.
//
// datasets maps bundle-relative paths to resolved payload bytes.
func (m *Mirror) SaveLocally(projectID string, b *bundle.Bundle, datasets map[string][]byte) (*SaveResult, error) {
	files, err := assemble(b, datasets)
	if err != nil {
		return nil, err
	}
	result := &SaveResult{Files: files}

	if !m.Available() {
		m.logger.Warn("engine root unavailable, returning assembled file set",
			"project_id", projectID,
			"files", len(files),
		)
		return result, ErrEngineUnavailable
	}

	projectDir := filepath.Join(m.engineRoot, projectID)
	for _, f := range files {
		dest := filepath.Join(projectDir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return result, &MirrorError{Op: "SaveLocally", Path: dest, Message: err.Error(), Err: ErrWriteFailed}
		}
		if err := os.WriteFile(dest, f.Content, 0o644); err != nil {
			return result, &MirrorError{Op: "SaveLocally", Path: dest, Message: err.Error(), Err: ErrWriteFailed}
		}
		result.SavedFiles = append(result.SavedFiles, f.Path)
	}

	result.Path = projectDir
	result.Written = true
	m.logger.Info("saved project for local engine",
		"project_id", projectID,
		"path", projectDir,
		"files", len(result.SavedFiles),
	)
	return result, nil
}

// Available reports whether the engine directory can be written right now.
func (m *Mirror) Available() bool {
	if m.engineRoot == "" {
		return false
	}
	if err := os.MkdirAll(m.engineRoot, 0o755); err != nil {
		return false
	}
	probe, err := os.CreateTemp(m.engineRoot, ".probe-*")
	if err != nil {
		return false
	}
	probe.Close()
	os.Remove(probe.Name())
	return true
}

// assemble merges bundle files with resolved dataset payloads into one
// sorted write set, rejecting path collisions.
func assemble(b *bundle.Bundle, datasets map[string][]byte) ([]bundle.FileEntry, error) {
	files := b.Files()

	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		seen[f.Path] = struct{}{}
	}

	paths := make([]string, 0, len(datasets))
	for path := range datasets {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if _, dup := seen[path]; dup {
			return nil, &MirrorError{Op: "assemble", Path: path, Message: "dataset payload collides with bundle file", Err: ErrConflictingPath}
		}
		files = append(files, bundle.FileEntry{
			Path:        path,
			Content:     datasets[path],
			ContentType: "application/octet-stream",
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
