// Package paths converts between manifest-style (backslash) paths and host paths
// and computes the shared layout root of a pruned tree.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// CanonicalizePath converts an absolute path to a root-relative canonical path
// - Resolves symlinks to real paths
// - Makes path relative to root
// - Returns the relative path with forward slashes
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if os.IsNotExist(err) {
			rootResolved = root
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(relativePath), nil
}

// IsWithin reports whether path is root or lies below it. Both paths are cleaned
// lexically; symlinks are not resolved.
func IsWithin(path string, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// NormalizePath converts backslashes to forward slashes
func NormalizePath(path string) string {
	return strings.ReplaceAll(filepath.ToSlash(path), "\\", "/")
}

// FromManifest converts a path written in a solution or project file
// (backslash separated, relative to baseDir) into a clean absolute host path.
func FromManifest(baseDir string, manifestPath string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(manifestPath), "\\", "/")
	if filepath.IsAbs(normalized) {
		return filepath.Clean(filepath.FromSlash(normalized))
	}
	return JoinRoot(baseDir, normalized)
}

// ToManifest converts target into a backslash separated path relative to baseDir,
// the form Visual Studio writes into solution files.
func ToManifest(baseDir string, target string) (string, error) {
	rel, err := filepath.Rel(baseDir, target)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", "\\"), nil
}

// JoinRoot joins a root with a forward slash relative path
func JoinRoot(root string, canonicalPath string) string {
	normalizedPath := strings.ReplaceAll(canonicalPath, "\\", "/")
	parts := strings.Split(normalizedPath, "/")
	return filepath.Join(append([]string{root}, parts...)...)
}

// Key returns a comparison key for a path: cleaned, slash separated and
// lower-cased, since solution files are written on case-insensitive filesystems.
func Key(path string) string {
	return strings.ToLower(NormalizePath(filepath.Clean(path)))
}

// CommonRoot returns the deepest directory containing every given path.
// Paths must be absolute. Directories should be passed as themselves and files
// by their own path; a file path is treated as its parent directory.
func CommonRoot(dirs []string, files []string) string {
	candidates := make([]string, 0, len(dirs)+len(files))
	for _, d := range dirs {
		candidates = append(candidates, filepath.Clean(d))
	}
	for _, f := range files {
		candidates = append(candidates, filepath.Dir(filepath.Clean(f)))
	}
	if len(candidates) == 0 {
		return ""
	}

	root := candidates[0]
	for _, c := range candidates[1:] {
		for !IsWithin(c, root) {
			parent := filepath.Dir(root)
			if parent == root {
				return root
			}
			root = parent
		}
	}
	return root
}
