package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanonicalizePath(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "src", "App", "Program.cs")
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, []byte("class P {}"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := CanonicalizePath(file, root)
	if err != nil {
		t.Fatalf("CanonicalizePath failed: %v", err)
	}
	if got != "src/App/Program.cs" {
		t.Errorf("CanonicalizePath = %q, want %q", got, "src/App/Program.cs")
	}

	missing := filepath.Join(root, "not", "there.cs")
	got, err = CanonicalizePath(missing, root)
	if err != nil {
		t.Fatalf("CanonicalizePath on missing file failed: %v", err)
	}
	if got != "not/there.cs" {
		t.Errorf("CanonicalizePath = %q, want %q", got, "not/there.cs")
	}
}

func TestIsWithin(t *testing.T) {
	root := filepath.FromSlash("/work/sln")
	tests := []struct {
		path string
		want bool
	}{
		{"/work/sln", true},
		{"/work/sln/App/App.csproj", true},
		{"/work/sln2/App", false},
		{"/work/other", false},
		{"/work", false},
		{"/work/sln/../x", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsWithin(filepath.FromSlash(tt.path), root); got != tt.want {
				t.Errorf("IsWithin(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestFromManifest(t *testing.T) {
	base := filepath.FromSlash("/work/sln")
	tests := []struct {
		in   string
		want string
	}{
		{`App\App.csproj`, "/work/sln/App/App.csproj"},
		{`..\Shared\Shared.csproj`, "/work/Shared/Shared.csproj"},
		{`  Lib/Lib.csproj `, "/work/sln/Lib/Lib.csproj"},
		{`/abs/Tool.csproj`, "/abs/Tool.csproj"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := FromManifest(base, tt.in); got != filepath.FromSlash(tt.want) {
				t.Errorf("FromManifest(%q) = %q, want %q", tt.in, got, filepath.FromSlash(tt.want))
			}
		})
	}
}

func TestToManifest(t *testing.T) {
	base := filepath.FromSlash("/work/sln")

	got, err := ToManifest(base, filepath.FromSlash("/work/sln/src/App/App.csproj"))
	if err != nil {
		t.Fatal(err)
	}
	if got != `src\App\App.csproj` {
		t.Errorf("ToManifest = %q, want %q", got, `src\App\App.csproj`)
	}

	got, err = ToManifest(base, filepath.FromSlash("/work/Shared/Shared.csproj"))
	if err != nil {
		t.Fatal(err)
	}
	if got != `..\Shared\Shared.csproj` {
		t.Errorf("ToManifest = %q, want %q", got, `..\Shared\Shared.csproj`)
	}
}

func TestKey(t *testing.T) {
	a := Key(filepath.FromSlash("/Work/Sln/App/App.csproj"))
	b := Key(filepath.FromSlash("/work/sln/app/./App.csproj"))
	if a != b {
		t.Errorf("Key mismatch: %q != %q", a, b)
	}
}

func TestCommonRoot(t *testing.T) {
	tests := []struct {
		name  string
		dirs  []string
		files []string
		want  string
	}{
		{
			name:  "all below manifest dir",
			dirs:  []string{"/w/sln"},
			files: []string{"/w/sln/App/A.cs", "/w/sln/Lib/B.cs"},
			want:  "/w/sln",
		},
		{
			name:  "linked file outside",
			dirs:  []string{"/w/sln", "/w/sln/App"},
			files: []string{"/w/shared/Common.cs"},
			want:  "/w",
		},
		{
			name: "single dir",
			dirs: []string{"/w/sln"},
			want: "/w/sln",
		},
		{
			name: "empty",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dirs, files []string
			for _, d := range tt.dirs {
				dirs = append(dirs, filepath.FromSlash(d))
			}
			for _, f := range tt.files {
				files = append(files, filepath.FromSlash(f))
			}
			if got := CommonRoot(dirs, files); got != filepath.FromSlash(tt.want) {
				t.Errorf("CommonRoot() = %q, want %q", got, filepath.FromSlash(tt.want))
			}
		})
	}
}
