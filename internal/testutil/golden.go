package testutil

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// update rewrites golden files instead of comparing against them:
//
//	go test ./internal/prune -run TestRun_Layered -update
var update = flag.Bool("update", false, "update golden files")

// volatileKeys are dropped before comparison because they change between runs.
var volatileKeys = map[string]bool{
	"durationMs":   true,
	"bytesWritten": true,
}

// CompareGolden compares got, normalized and encoded as indented JSON, with
// expected/<name>.json of the fixture.
func CompareGolden(t *testing.T, fixture *FixtureContext, name string, got any) {
	t.Helper()

	data := MarshalNormalized(t, fixture, got)
	path := fixture.ExpectedPath(name)

	if *update {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("Failed to write golden file: %v", err)
		}
		t.Logf("Updated golden: %s", path)
		return
	}

	want, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden file %s: %v\n\nGot:\n%s", path, err, data)
	}
	if !bytes.Equal(want, data) {
		t.Fatalf("Golden mismatch for %s:\n%s\nRun with -update to refresh.", name, lineDiff(string(want), string(data)))
	}
}

// MarshalNormalized encodes v as JSON with sorted keys and two-space indent.
// The fixture root is replaced by <fixture>, separators become slashes and
// volatile keys are removed.
func MarshalNormalized(t *testing.T, fixture *FixtureContext, v any) []byte {
	t.Helper()

	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal golden data: %v", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("Failed to decode golden data: %v", err)
	}

	roots := []string{fixture.Root, filepath.ToSlash(fixture.Root)}
	if resolved, err := filepath.EvalSymlinks(fixture.Root); err == nil {
		roots = append(roots, resolved, filepath.ToSlash(resolved))
	}
	sort.Slice(roots, func(i, j int) bool { return len(roots[i]) > len(roots[j]) })

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(normalize(generic, roots)); err != nil {
		t.Fatalf("Failed to encode golden data: %v", err)
	}
	return buf.Bytes()
}

func normalize(v any, roots []string) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if !volatileKeys[k] {
				out[k] = normalize(inner, roots)
			}
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = normalize(inner, roots)
		}
		return out
	case string:
		for _, root := range roots {
			if root != "" {
				val = strings.ReplaceAll(val, root, "<fixture>")
			}
		}
		return strings.ReplaceAll(val, "\\", "/")
	default:
		return v
	}
}

// lineDiff lists the lines that differ, prefixed with their line number.
func lineDiff(want, got string) string {
	wl := strings.Split(want, "\n")
	gl := strings.Split(got, "\n")

	var b strings.Builder
	for i := 0; i < max(len(wl), len(gl)); i++ {
		var w, g string
		if i < len(wl) {
			w = wl[i]
		}
		if i < len(gl) {
			g = gl[i]
		}
		if w != g {
			fmt.Fprintf(&b, "%4d - %s\n%4d + %s\n", i+1, w, i+1, g)
		}
	}
	return b.String()
}
