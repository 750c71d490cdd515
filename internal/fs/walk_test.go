package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"

	"ivcs-go/internal/ivcs"
	"ivcs-go/internal/testutil"
)

func relPaths(files []ivcs.ScannedFile) []string {
	var out []string
	for _, f := range files {
		out = append(out, filepath.ToSlash(f.RelativePath))
	}
	return out
}

func TestScan_OrderAndExtensions(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "b.tif", "1")
	testutil.WriteFile(t, root, "a.img", "2")
	testutil.WriteFile(t, root, "notes.txt", "3")
	testutil.WriteFile(t, root, "UPPER.TIF", "4")
	testutil.WriteFile(t, root, "sub/z.tif", "5")
	testutil.WriteFile(t, root, "sub/deeper/c.img", "6")
	testutil.WriteFile(t, root, "c.tif", "7")

	res, err := NewOSFilesystemManager(nil).Scan(context.Background(), root, []string{".img", ".tif"})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	want := []string{"a.img", "b.tif", "c.tif", "sub/deeper/c.img", "sub/z.tif"}
	if got := relPaths(res.Files); !reflect.DeepEqual(got, want) {
		t.Errorf("Scan() files = %v, want %v", got, want)
	}
	wantDirs := []string{"sub", filepath.Join("sub", "deeper")}
	if !reflect.DeepEqual(res.Directories, wantDirs) {
		t.Errorf("Scan() directories = %v, want %v", res.Directories, wantDirs)
	}
	if res.Files[0].Extension != ".img" || res.Files[0].AbsPath != filepath.Join(root, "a.img") {
		t.Errorf("first file = %+v", res.Files[0])
	}
}

func TestScan_EmptyExtensionsMatchEverything(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "a.img", "1")
	testutil.WriteFile(t, root, "b.txt", "2")

	res, err := NewOSFilesystemManager(nil).Scan(context.Background(), root, nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(res.Files) != 2 {
		t.Errorf("Scan() found %d files, want 2", len(res.Files))
	}
}

func TestScan_Ignore(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, IgnoreFileName, "scratch/\n*.bak.tif\n")
	testutil.WriteFile(t, root, "keep.tif", "1")
	testutil.WriteFile(t, root, "old.bak.tif", "2")
	testutil.WriteFile(t, root, "scratch/tmp.tif", "3")
	testutil.WriteFile(t, root, "previews/p.tif", "4")

	res, err := NewOSFilesystemManager([]string{"previews"}).Scan(context.Background(), root, []string{".tif"})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if got := relPaths(res.Files); !reflect.DeepEqual(got, []string{"keep.tif"}) {
		t.Errorf("Scan() files = %v, want [keep.tif]", got)
	}
}

func TestScan_SymlinkCycleTerminates(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	testutil.WriteFile(t, root, "a/tile.tif", "1")
	if err := os.Symlink(root, filepath.Join(root, "a", "loop")); err != nil {
		t.Fatal(err)
	}

	res, err := NewOSFilesystemManager(nil).Scan(context.Background(), root, []string{".tif"})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if got := relPaths(res.Files); !reflect.DeepEqual(got, []string{"a/tile.tif"}) {
		t.Errorf("Scan() files = %v, want [a/tile.tif]", got)
	}
}

func TestScan_FollowsSymlinkedDirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	outside := t.TempDir()
	testutil.WriteFile(t, outside, "ext.img", "1")
	root := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "linked")); err != nil {
		t.Fatal(err)
	}

	res, err := NewOSFilesystemManager(nil).Scan(context.Background(), root, []string{".img"})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if got := relPaths(res.Files); !reflect.DeepEqual(got, []string{"linked/ext.img"}) {
		t.Errorf("Scan() files = %v, want [linked/ext.img]", got)
	}
}

func TestScan_UnreadableSubdirectoryIsSkipped(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	root := t.TempDir()
	testutil.WriteFile(t, root, "ok.tif", "1")
	testutil.WriteFile(t, root, "locked/hidden.tif", "2")
	locked := filepath.Join(root, "locked")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	res, err := NewOSFilesystemManager(nil).Scan(context.Background(), root, []string{".tif"})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if got := relPaths(res.Files); !reflect.DeepEqual(got, []string{"ok.tif"}) {
		t.Errorf("Scan() files = %v, want [ok.tif]", got)
	}
	if !reflect.DeepEqual(res.SkippedDirs, []string{"locked"}) {
		t.Errorf("SkippedDirs = %v, want [locked]", res.SkippedDirs)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("Warnings = %v, want one", res.Warnings)
	}
}

func TestScan_RootErrors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.tif")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		root string
	}{
		{"missing", filepath.Join(t.TempDir(), "nope")},
		{"not a directory", file},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOSFilesystemManager(nil).Scan(context.Background(), tt.root, nil)
			var scanErr *ivcs.ScanError
			if !errors.As(err, &scanErr) {
				t.Fatalf("Scan() error = %v, want *ivcs.ScanError", err)
			}
			if scanErr.Root != tt.root {
				t.Errorf("ScanError.Root = %q, want %q", scanErr.Root, tt.root)
			}
		})
	}
}

func TestWalk_StopsOnCallbackError(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "a.tif", "1")
	testutil.WriteFile(t, root, "b.tif", "2")

	stop := errors.New("stop")
	calls := 0
	_, err := NewOSFilesystemManager(nil).Walk(context.Background(), root, nil, func(ivcs.ScannedFile) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("Walk() error = %v, want stop", err)
	}
	if calls != 1 {
		t.Errorf("callback ran %d times, want 1", calls)
	}
}

func TestWalk_Cancelled(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "a.tif", "1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewOSFilesystemManager(nil).Walk(ctx, root, nil, func(ivcs.ScannedFile) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Walk() error = %v, want context.Canceled", err)
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	p, err := NewOSFilesystemManager(nil).Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	realDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsDir() || p.String() != realDir {
		t.Errorf("Resolve() = %v dir=%v", p.String(), p.IsDir())
	}

	if _, err := NewOSFilesystemManager(nil).Resolve(filepath.Join(dir, "missing")); err == nil {
		t.Error("Resolve() of missing path succeeded, want error")
	}
}

func TestResolve_CanonicalizesSymlinks(t *testing.T) {
	base, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	realDir := filepath.Join(base, "real")
	if err := os.MkdirAll(realDir, 0755); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(realDir, "tile.tif")
	if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	alias := filepath.Join(base, "alias")
	if err := os.Symlink(realDir, alias); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	fileLink := filepath.Join(realDir, "link.tif")
	if err := os.Symlink(target, fileLink); err != nil {
		t.Fatal(err)
	}

	m := NewOSFilesystemManager(nil)
	tests := []struct {
		name string
		path string
		want string
	}{
		{"directory alias", alias, realDir},
		{"file under directory alias", filepath.Join(alias, "tile.tif"), target},
		{"symlinked file keeps its name", fileLink, fileLink},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := m.Resolve(tt.path)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if p.String() != tt.want {
				t.Errorf("Resolve(%s) = %s, want %s", tt.path, p.String(), tt.want)
			}
		})
	}
}
