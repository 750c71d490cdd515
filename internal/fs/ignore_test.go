package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewIgnoreMatcher(t *testing.T) {
	t.Run("skips blank lines comments and malformed patterns", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"", "  ", "# comment", "*.ovr", "[unclosed"})
		if len(m.patterns) != 1 {
			t.Fatalf("expected 1 pattern, got %d", len(m.patterns))
		}
		if m.patterns[0].pattern != "*.ovr" {
			t.Errorf("expected *.ovr, got %s", m.patterns[0].pattern)
		}
	})

	t.Run("trailing slash marks a directory name", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"scratch/"})
		if m.patterns[0].pattern != "scratch" || m.patterns[0].matchPath {
			t.Errorf("pattern = %+v, want basename pattern scratch", m.patterns[0])
		}
	})
}

func TestIgnoreMatcher_Match(t *testing.T) {
	tests := []struct {
		name         string
		patterns     []string
		relativePath string
		want         bool
	}{
		{"basename glob in root", []string{"*.aux.xml"}, "tile.aux.xml", true},
		{"basename glob in subdirectory", []string{"*.aux.xml"}, filepath.Join("2024", "tile.aux.xml"), true},
		{"basename glob other extension", []string{"*.aux.xml"}, "tile.tif", false},
		{"ignore file itself", defaultIgnorePatterns, IgnoreFileName, true},
		{"path pattern exact", []string{"raw/tmp"}, filepath.Join("raw", "tmp"), true},
		{"path pattern other parent", []string{"raw/tmp"}, filepath.Join("final", "tmp"), false},
		{"no patterns", nil, "tile.tif", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewIgnoreMatcher(tt.patterns)
			if got := m.Match(tt.relativePath); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.relativePath, got, tt.want)
			}
		})
	}
}

func TestParseIgnoreFile(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		patterns, err := ParseIgnoreFile(filepath.Join(t.TempDir(), IgnoreFileName))
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if patterns != nil {
			t.Errorf("ParseIgnoreFile() = %v, want nil", patterns)
		}
	})

	t.Run("reads lines", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), IgnoreFileName)
		if err := os.WriteFile(path, []byte("# previews\n*.jpg\nscratch/\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		patterns, err := ParseIgnoreFile(path)
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if len(patterns) != 3 || patterns[1] != "*.jpg" {
			t.Errorf("ParseIgnoreFile() = %v", patterns)
		}
	})
}
