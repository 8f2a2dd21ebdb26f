// Package materialize writes a pruned solution tree to disk.
//
// The tree is assembled in a staging directory next to the output and moved
// into place only after every file was written, so a failed run never leaves
// a half-written output behind and never destroys the previous one.
package materialize

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"slnprune/internal/paths"
	"slnprune/internal/slogutil"
)

// BuildSupportFiles are copied from every directory between the layout root
// and a retained project, when present.
var BuildSupportFiles = []string{
	"Directory.Build.props",
	"Directory.Build.targets",
	"Directory.Packages.props",
	"global.json",
	"NuGet.config",
}

// Plan describes one output tree.
type Plan struct {
	// ManifestPath is the original solution file; its directory anchors the layout.
	ManifestPath string
	// OutputDir receives the tree. An existing directory is replaced.
	OutputDir string
	// Manifest is the encoded replacement solution.
	Manifest []byte
	// Descriptors are the absolute paths of the retained project files.
	Descriptors []string
	// Files are the absolute paths of the selected source files.
	Files []string

	CopyBuildSupportFiles bool
	Archive               bool
	Logger                *slog.Logger
}

// Output reports what was written.
type Output struct {
	Dir          string
	ManifestPath string
	ArchivePath  string
	LayoutRoot   string
	Copied       []string // slash separated, relative to Dir
	Bytes        int64
	Warnings     []string // problems after the tree was committed
}

// Write materializes the plan. It does not observe cancellation: once copying
// starts the tree is finished or rolled back as a whole.
func Write(plan Plan) (*Output, error) {
	logger := plan.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if plan.ManifestPath == "" || plan.OutputDir == "" {
		return nil, fmt.Errorf("manifest path and output directory are required")
	}

	outputDir, err := filepath.Abs(plan.OutputDir)
	if err != nil {
		return nil, err
	}
	manifestDir := filepath.Dir(plan.ManifestPath)

	projectDirs := make([]string, 0, len(plan.Descriptors)+1)
	projectDirs = append(projectDirs, manifestDir)
	for _, d := range plan.Descriptors {
		projectDirs = append(projectDirs, filepath.Dir(d))
	}
	layoutRoot := paths.CommonRoot(projectDirs, plan.Files)
	if paths.IsWithin(layoutRoot, outputDir) {
		return nil, fmt.Errorf("output directory %s contains the sources being pruned", outputDir)
	}

	if err := os.MkdirAll(filepath.Dir(outputDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating output parent: %w", err)
	}
	staging, err := os.MkdirTemp(filepath.Dir(outputDir), filepath.Base(outputDir)+".staging-")
	if err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(staging)
		}
	}()

	w := &writer{root: layoutRoot, staging: staging, seen: make(map[string]bool)}

	for _, d := range plan.Descriptors {
		if err := w.copy(d); err != nil {
			return nil, err
		}
	}
	for _, f := range plan.Files {
		if err := w.copy(f); err != nil {
			return nil, err
		}
	}
	if plan.CopyBuildSupportFiles {
		for _, f := range supportFiles(layoutRoot, projectDirs) {
			if err := w.copy(f); err != nil {
				return nil, err
			}
		}
	}

	manifestRel, err := filepath.Rel(layoutRoot, plan.ManifestPath)
	if err != nil {
		return nil, err
	}
	if err := w.write(manifestRel, plan.Manifest); err != nil {
		return nil, err
	}

	// Archived from staging, before the previous output is replaced.
	var archiveTmp string
	var archiveSize int64
	if plan.Archive {
		archiveTmp = staging + ArchiveExt
		defer os.Remove(archiveTmp)
		if archiveSize, err = WriteArchive(staging, filepath.Base(outputDir), archiveTmp); err != nil {
			return nil, fmt.Errorf("writing archive: %w", err)
		}
	}

	if err := os.RemoveAll(outputDir); err != nil {
		return nil, fmt.Errorf("removing previous output: %w", err)
	}
	if err := os.Rename(staging, outputDir); err != nil {
		return nil, fmt.Errorf("moving output into place: %w", err)
	}
	committed = true

	out := &Output{
		Dir:          outputDir,
		ManifestPath: filepath.Join(outputDir, manifestRel),
		LayoutRoot:   layoutRoot,
		Copied:       w.copied,
		Bytes:        w.bytes,
	}
	sort.Strings(out.Copied)

	if archiveTmp != "" {
		archivePath := outputDir + ArchiveExt
		if err := os.Rename(archiveTmp, archivePath); err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("archive %s not written: %v", archivePath, err))
			logger.Warn("Archive not moved into place", "path", archivePath, "error", err)
		} else {
			out.ArchivePath = archivePath
			logger.Info("Archive written", "path", archivePath, "size", humanize.IBytes(uint64(archiveSize)))
		}
	}

	logger.Info("Output written",
		"dir", outputDir,
		"files", len(out.Copied),
		"size", humanize.IBytes(uint64(out.Bytes)),
	)
	return out, nil
}

type writer struct {
	root    string
	staging string
	seen    map[string]bool
	copied  []string
	bytes   int64
}

func (w *writer) target(src string) (string, string, error) {
	rel, err := filepath.Rel(w.root, src)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("%s lies outside the layout root %s", src, w.root)
	}
	return rel, filepath.Join(w.staging, rel), nil
}

func (w *writer) copy(src string) error {
	rel, dst, err := w.target(src)
	if err != nil {
		return err
	}
	key := paths.Key(rel)
	if w.seen[key] {
		return nil
	}
	w.seen[key] = true

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", rel, err)
	}
	n, err := copyFile(src, dst)
	if err != nil {
		return fmt.Errorf("copying %s: %w", rel, err)
	}
	w.copied = append(w.copied, filepath.ToSlash(rel))
	w.bytes += n
	return nil
}

func (w *writer) write(rel string, data []byte) error {
	dst := filepath.Join(w.staging, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	w.seen[paths.Key(rel)] = true
	w.copied = append(w.copied, filepath.ToSlash(rel))
	w.bytes += int64(len(data))
	return nil
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// supportFiles lists build-support files in every directory from root down to
// each of dirs, deduplicated and sorted.
func supportFiles(root string, dirs []string) []string {
	visited := make(map[string]bool)
	var found []string
	for _, dir := range dirs {
		for cur := filepath.Clean(dir); paths.IsWithin(cur, root); cur = filepath.Dir(cur) {
			if visited[cur] {
				break
			}
			visited[cur] = true
			found = append(found, supportFilesIn(cur)...)
			if cur == root {
				break
			}
		}
	}
	sort.Strings(found)
	return found
}

func supportFilesIn(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		for _, name := range BuildSupportFiles {
			if strings.EqualFold(e.Name(), name) {
				out = append(out, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	return out
}
