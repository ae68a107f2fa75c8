package bundle

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dalproject/dald/internal/core/project"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrDuplicatePath is returned when two emitted files share a relative
	// path. A silent overwrite would make the bundle content-hash lie about
	// its inputs, so construction fails fast instead.
	ErrDuplicatePath = errors.New("duplicate path in bundle")

	// ErrEmptyPath is returned for a file entry without a relative path.
	ErrEmptyPath = errors.New("bundle file path is empty")
)

// =============================================================================
// File Entries
// =============================================================================

// Canonical relative paths of the files every consumer of a bundle relies
// on. These are the interoperability contract with the execution engine and
// must stay stable.
const (
	PathMetadata        = "ro-crate-metadata.json"
	PathProjectConfig   = "config/project.json"
	PathDatasetManifest = "datasets/manifest.json"
	PathALWorkflow      = "workflows/al_iteration.cwl"
	PathALInputs        = "workflows/inputs.yml"
)

// ALWorkflowName is the workflow entry consulted for a user-supplied
// definition before falling back to the rendered template.
const ALWorkflowName = "al_iteration"

// FileEntry is one file of a bundle.
type FileEntry struct {
	Path        string
	Content     []byte
	ContentType string
}

// =============================================================================
// Bundle
// =============================================================================

// Bundle is an ordered set of files representing one deployable snapshot.
// Files are kept sorted by path so iteration order (and therefore upload
// order and hashing) is stable.
type Bundle struct {
	files []FileEntry
	paths map[string]int
}

// New creates an empty bundle.
func New() *Bundle {
	return &Bundle{paths: make(map[string]int)}
}

// Add appends a file, rejecting empty and duplicate paths.
func (b *Bundle) Add(entry FileEntry) error {
	if entry.Path == "" {
		return ErrEmptyPath
	}
	if _, exists := b.paths[entry.Path]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicatePath, entry.Path)
	}
	b.paths[entry.Path] = len(b.files)
	b.files = append(b.files, entry)
	return nil
}

// Files returns the entries sorted by path.
func (b *Bundle) Files() []FileEntry {
	out := make([]FileEntry, len(b.files))
	copy(out, b.files)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// File returns the entry at the given path.
func (b *Bundle) File(path string) (FileEntry, bool) {
	i, ok := b.paths[path]
	if !ok {
		return FileEntry{}, false
	}
	return b.files[i], true
}

// Len returns the number of files.
func (b *Bundle) Len() int {
	return len(b.files)
}

// =============================================================================
// Dataset Paths
// =============================================================================

// DatasetPath returns the bundle-relative path a dataset payload resolves
// to. Part of the engine layout contract.
func DatasetPath(d project.Dataset) string {
	ext := strings.ToLower(d.Format)
	if ext == "" {
		ext = "dat"
	}
	return "datasets/" + d.Name + "." + ext
}
