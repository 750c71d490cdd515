package ivcs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ivcs-go/internal/ivcs"
	"ivcs-go/internal/testutil"
)

type change struct {
	path string
	kind ivcs.ChangeKind
}

func changes(report *ivcs.ScanReport) []change {
	out := make([]change, 0, len(report.Entries))
	for _, e := range report.Entries {
		out = append(out, change{e.RelativePath, e.Kind})
	}
	return out
}

func assertChanges(t *testing.T, report *ivcs.ScanReport, want ...change) {
	t.Helper()
	got := changes(report)
	if len(got) != len(want) {
		t.Fatalf("changes = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("changes[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestScanAndDetect_Lifecycle(t *testing.T) {
	for _, method := range []ivcs.DetectionMethod{ivcs.DetectByHash, ivcs.DetectByModificationTime} {
		t.Run(string(method), func(t *testing.T) {
			h := newHarness(t, method)
			base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

			path := testutil.WriteFile(t, h.root, "scene.tif", "v1")
			testutil.SetModTime(t, path, base)
			assertChanges(t, h.scan(t), change{"scene.tif", ivcs.Added})

			asset := h.asset(t, "scene.tif")
			if asset.ContentHash != testutil.SHA256Hex([]byte("v1")) {
				t.Errorf("ContentHash = %q", asset.ContentHash)
			}
			if !asset.ModifiedAt.Equal(base) || !asset.OnDisk || asset.Size != 2 {
				t.Errorf("asset = %+v", asset)
			}

			testutil.WriteFile(t, h.root, "scene.tif", "v2")
			testutil.SetModTime(t, path, base.Add(time.Hour))
			assertChanges(t, h.scan(t), change{"scene.tif", ivcs.Modified})

			testutil.RemoveFile(t, path)
			assertChanges(t, h.scan(t), change{"scene.tif", ivcs.Deleted})
			if asset := h.asset(t, "scene.tif"); asset.OnDisk {
				t.Error("OnDisk = true after deletion")
			}

			// an absent asset produces no further entries
			assertChanges(t, h.scan(t))

			entries, err := h.svc.ListChangelist(h.project.ID, 0)
			if err != nil {
				t.Fatalf("ListChangelist() error = %v", err)
			}
			kinds := []int64{}
			for _, e := range entries {
				kinds = append(kinds, e.Kind)
			}
			if len(kinds) != 3 || kinds[0] != 0 || kinds[1] != 1 || kinds[2] != 2 {
				t.Errorf("changelist kinds = %v, want [0 1 2]", kinds)
			}
		})
	}
}

func TestScanAndDetect_Idempotent(t *testing.T) {
	h := newHarness(t, ivcs.DetectByHash)
	testutil.WriteFile(t, h.root, "a.tif", "a")
	testutil.WriteFile(t, h.root, "b/c.img", "c")
	testutil.WriteFile(t, h.root, "notes.txt", "ignored")

	first := h.scan(t)
	assertChanges(t, first, change{"a.tif", ivcs.Added}, change{filepath.Join("b", "c.img"), ivcs.Added})
	if first.Scanned != 2 {
		t.Errorf("Scanned = %d, want 2", first.Scanned)
	}

	for i := 0; i < 3; i++ {
		assertChanges(t, h.scan(t))
	}
	entries, _ := h.svc.ListChangelist(h.project.ID, 0)
	if len(entries) != 2 {
		t.Errorf("changelist has %d entries, want 2", len(entries))
	}
}

func TestScanAndDetect_TouchOnly(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		method ivcs.DetectionMethod
		want   []change
	}{
		{ivcs.DetectByHash, nil},
		{ivcs.DetectByModificationTime, []change{{"a.tif", ivcs.Modified}}},
	}

	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			h := newHarness(t, tt.method)
			path := testutil.WriteFile(t, h.root, "a.tif", "same")
			testutil.SetModTime(t, path, base)
			h.scan(t)

			testutil.SetModTime(t, path, base.Add(90*time.Second))
			assertChanges(t, h.scan(t), tt.want...)

			// the record's mtime is refreshed either way
			if got := h.asset(t, "a.tif").ModifiedAt; !got.Equal(base.Add(90 * time.Second)) {
				t.Errorf("ModifiedAt = %v, want %v", got, base.Add(90*time.Second))
			}
		})
	}
}

func TestScanAndDetect_ModificationTimeSkipsUnchangedReads(t *testing.T) {
	h := newHarness(t, ivcs.DetectByModificationTime)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	path := testutil.WriteFile(t, h.root, "a.tif", "original")
	testutil.SetModTime(t, path, base)
	h.scan(t)

	// same size, same mtime: the detector trusts the recorded hash
	testutil.WriteFile(t, h.root, "a.tif", "replaced")
	testutil.SetModTime(t, path, base)
	assertChanges(t, h.scan(t))
	if got := h.asset(t, "a.tif").ContentHash; got != testutil.SHA256Hex([]byte("original")) {
		t.Errorf("ContentHash = %q, want hash of original", got)
	}
}

func TestScanAndDetect_PresenceRestored(t *testing.T) {
	h := newHarness(t, ivcs.DetectByHash)
	path := testutil.WriteFile(t, h.root, "a.tif", "a")
	h.scan(t)
	testutil.RemoveFile(t, path)
	h.scan(t)

	testutil.WriteFile(t, h.root, "a.tif", "a")
	assertChanges(t, h.scan(t), change{"a.tif", ivcs.Added})
	if !h.asset(t, "a.tif").OnDisk {
		t.Error("OnDisk = false after the file returned")
	}
}

func TestScanAndDetect_MultipleDirectories(t *testing.T) {
	h := newHarness(t, ivcs.DetectByHash)
	second := t.TempDir()
	h.addDirectory(t, second)

	testutil.WriteFile(t, h.root, "a.tif", "a")
	testutil.WriteFile(t, second, "b.tif", "b")

	report := h.scan(t)
	if len(report.Entries) != 2 {
		t.Fatalf("Entries = %v, want 2", changes(report))
	}
	if report.Entries[0].DirectoryID == report.Entries[1].DirectoryID {
		t.Error("entries from different directories share a directory id")
	}

	assets, err := h.svc.ListAssets(h.project.ID)
	if err != nil {
		t.Fatalf("ListAssets() error = %v", err)
	}
	if len(assets) != 2 {
		t.Errorf("ListAssets() returned %d, want 2", len(assets))
	}
}

func TestScanAndDetect_MissingRootWritesNothing(t *testing.T) {
	h := newHarness(t, ivcs.DetectByHash)
	second := t.TempDir()
	h.addDirectory(t, second)
	testutil.WriteFile(t, h.root, "a.tif", "a")
	if err := os.RemoveAll(second); err != nil {
		t.Fatal(err)
	}

	_, err := h.svc.ScanAndDetect(context.Background(), h.project.ID)
	var scanErr *ivcs.ScanError
	if !errors.As(err, &scanErr) {
		t.Fatalf("ScanAndDetect() error = %v, want *ScanError", err)
	}

	entries, _ := h.svc.ListChangelist(h.project.ID, 0)
	if len(entries) != 0 {
		t.Errorf("changelist has %d entries after failed scan, want 0", len(entries))
	}
}

func TestScanAndDetect_Cancelled(t *testing.T) {
	h := newHarness(t, ivcs.DetectByHash)
	testutil.WriteFile(t, h.root, "a.tif", "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.svc.ScanAndDetect(ctx, h.project.ID); !errors.Is(err, context.Canceled) {
		t.Fatalf("ScanAndDetect() error = %v, want context.Canceled", err)
	}

	assets, _ := h.svc.ListAssets(h.project.ID)
	if len(assets) != 0 {
		t.Errorf("ListAssets() returned %d after cancelled scan, want 0", len(assets))
	}
}

func TestScanAndDetect_UnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files without permission bits")
	}
	h := newHarness(t, ivcs.DetectByHash)
	testutil.WriteFile(t, h.root, "ok.tif", "ok")
	locked := testutil.WriteFile(t, h.root, "locked.tif", "locked")
	h.scan(t)

	if err := os.Chmod(locked, 0); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0644) })
	testutil.WriteFile(t, h.root, "ok.tif", "changed")

	report := h.scan(t)
	assertChanges(t, report, change{"ok.tif", ivcs.Modified})
	if len(report.FileErrors) != 1 {
		t.Fatalf("FileErrors = %v, want 1", report.FileErrors)
	}
	if !h.asset(t, "locked.tif").OnDisk {
		t.Error("unreadable file was marked absent")
	}
}

func TestScanAndDetect_UnknownProject(t *testing.T) {
	h := newHarness(t, ivcs.DetectByHash)
	if _, err := h.svc.ScanAndDetect(context.Background(), "nope"); !ivcs.IsNotFound(err, "project") {
		t.Errorf("ScanAndDetect() error = %v, want project NotFoundError", err)
	}
}
