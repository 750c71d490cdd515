package ivcs_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"ivcs-go/internal/database"
	"ivcs-go/internal/ivcs"
	"ivcs-go/internal/testutil"
)

// Two users contend for one asset: the holder commits, the other is refused
// until the holder checks in.
func TestCommit_TwoUsers(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, ivcs.DetectByHash)
	testutil.WriteFile(t, h.root, "map.img", "draft")
	h.scan(t)
	asset := h.asset(t, "map.img")

	if err := h.svc.Checkout(ctx, asset.ID, "u1"); err != nil {
		t.Fatalf("Checkout(u1) error = %v", err)
	}

	var conflict *ivcs.ConflictError
	if err := h.svc.Checkout(ctx, asset.ID, "u2"); !errors.As(err, &conflict) || conflict.Holder != "u1" {
		t.Fatalf("Checkout(u2) error = %v, want ConflictError held by u1", err)
	}
	if _, err := h.svc.Commit(ctx, asset.ID, "u2", "sneaky"); !errors.As(err, &conflict) {
		t.Fatalf("Commit(u2) error = %v, want *ConflictError", err)
	}

	version, err := h.svc.Commit(ctx, asset.ID, "u1", "first draft")
	if err != nil {
		t.Fatalf("Commit(u1) error = %v", err)
	}
	if version.CommittedBy != "u1" || version.Message.String != "first draft" {
		t.Errorf("version = %+v", version)
	}
	if version.ContentKey != testutil.SHA256Hex([]byte("draft")) {
		t.Errorf("ContentKey = %q, want hash of content", version.ContentKey)
	}

	if err := h.svc.Checkin(ctx, asset.ID, "u1"); err != nil {
		t.Fatalf("Checkin(u1) error = %v", err)
	}
	if err := h.svc.Checkout(ctx, asset.ID, "u2"); err != nil {
		t.Fatalf("Checkout(u2) after checkin error = %v", err)
	}

	got, err := h.svc.GetVersion(ctx, version.ID)
	if err != nil {
		t.Fatalf("GetVersion() error = %v", err)
	}
	if string(got) != "draft" {
		t.Errorf("GetVersion() = %q, want draft", got)
	}
}

func TestCommit_RequiresCheckout(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, ivcs.DetectByHash)
	testutil.WriteFile(t, h.root, "a.tif", "a")
	h.scan(t)
	asset := h.asset(t, "a.tif")

	if _, err := h.svc.Commit(ctx, asset.ID, "u1", ""); !errors.Is(err, ivcs.ErrNotCheckedOut) {
		t.Errorf("Commit() error = %v, want ErrNotCheckedOut", err)
	}
	keys, _ := h.store.Keys(ctx)
	if len(keys) != 0 {
		t.Errorf("store holds %d blobs after refused commit, want 0", len(keys))
	}
}

func TestCommit_NothingToCommit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, ivcs.DetectByHash)
	testutil.WriteFile(t, h.root, "a.tif", "a")
	h.scan(t)
	asset := h.asset(t, "a.tif")
	if err := h.svc.Checkout(ctx, asset.ID, "u1"); err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}

	if _, err := h.svc.Commit(ctx, asset.ID, "u1", "one"); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if _, err := h.svc.Commit(ctx, asset.ID, "u1", "two"); !errors.Is(err, ivcs.ErrNothingToCommit) {
		t.Errorf("second Commit() error = %v, want ErrNothingToCommit", err)
	}
}

func TestCommit_DetectsUnscannedChange(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, ivcs.DetectByModificationTime)
	testutil.WriteFile(t, h.root, "a.tif", "v1")
	h.scan(t)
	asset := h.asset(t, "a.tif")
	if err := h.svc.Checkout(ctx, asset.ID, "u1"); err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	v1, err := h.svc.Commit(ctx, asset.ID, "u1", "v1")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	// edited without a rescan
	testutil.WriteFile(t, h.root, "a.tif", "v2 with more bytes")
	v2, err := h.svc.Commit(ctx, asset.ID, "u1", "v2")
	if err != nil {
		t.Fatalf("Commit() after edit error = %v", err)
	}
	if v1.ChangeID == v2.ChangeID {
		t.Error("second version reuses the first change")
	}

	entries, _ := h.svc.ListChangelist(h.project.ID, 0)
	if len(entries) != 2 || entries[1].Kind != int64(ivcs.Modified) || entries[1].ID != v2.ChangeID {
		t.Errorf("changelist = %+v, want Added then Modified owned by v2", entries)
	}
	if got := h.asset(t, "a.tif").ContentHash; got != testutil.SHA256Hex([]byte("v2 with more bytes")) {
		t.Errorf("asset ContentHash = %q, want hash of v2", got)
	}

	versions, err := h.svc.ListVersions(asset.ID)
	if err != nil {
		t.Fatalf("ListVersions() error = %v", err)
	}
	if len(versions) != 2 || versions[0].ID != v1.ID || versions[1].ID != v2.ID {
		t.Errorf("ListVersions() = %+v, want v1 then v2", versions)
	}

	for _, tc := range []struct {
		id   string
		want string
	}{{v1.ID, "v1"}, {v2.ID, "v2 with more bytes"}} {
		var buf bytes.Buffer
		if err := h.svc.RestoreVersion(ctx, tc.id, &buf); err != nil {
			t.Fatalf("RestoreVersion() error = %v", err)
		}
		if buf.String() != tc.want {
			t.Errorf("RestoreVersion(%s) = %q, want %q", tc.id, buf.String(), tc.want)
		}
	}
}

func TestCommit_AssetMissing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, ivcs.DetectByHash)
	path := testutil.WriteFile(t, h.root, "a.tif", "a")
	h.scan(t)
	asset := h.asset(t, "a.tif")
	if err := h.svc.Checkout(ctx, asset.ID, "u1"); err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}

	t.Run("removed since scan", func(t *testing.T) {
		testutil.RemoveFile(t, path)
		if _, err := h.svc.Commit(ctx, asset.ID, "u1", ""); !errors.Is(err, ivcs.ErrAssetMissing) {
			t.Errorf("Commit() error = %v, want ErrAssetMissing", err)
		}
	})

	t.Run("recorded as deleted", func(t *testing.T) {
		h.scan(t)
		if _, err := h.svc.Commit(ctx, asset.ID, "u1", ""); !errors.Is(err, ivcs.ErrAssetMissing) {
			t.Errorf("Commit() error = %v, want ErrAssetMissing", err)
		}
	})
}

func TestGetVersion_Errors(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, ivcs.DetectByHash)

	if _, err := h.svc.GetVersion(ctx, "missing"); !ivcs.IsNotFound(err, "version") {
		t.Errorf("GetVersion() error = %v, want version NotFoundError", err)
	}

	testutil.WriteFile(t, h.root, "a.tif", "a")
	h.scan(t)
	asset := h.asset(t, "a.tif")
	if err := h.svc.Checkout(ctx, asset.ID, "u1"); err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	version, err := h.svc.Commit(ctx, asset.ID, "u1", "")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if version.Message.Valid {
		t.Error("empty commit message stored as non-null")
	}

	if err := h.backend.DeleteBlob(ctx, version.ContentKey); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.GetVersion(ctx, version.ID); !ivcs.IsNotFound(err, "content") {
		t.Errorf("GetVersion() error = %v, want content NotFoundError", err)
	}
}

// interleavedDatabase runs hook once, just before the first scan batch is
// written.
type interleavedDatabase struct {
	*database.SQLiteDatabase
	once sync.Once
	hook func()
}

func (d *interleavedDatabase) ApplyScan(batch *ivcs.ScanBatch) error {
	d.once.Do(d.hook)
	return d.SQLiteDatabase.ApplyScan(batch)
}

// A commit landing between a scan's inventory read and its write wins; the
// scan redoes its pass instead of recording the same modification again.
func TestCommit_DuringScanIsRecordedOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, ivcs.DetectByHash)
	path := testutil.WriteFile(t, h.root, "a.tif", "one")
	h.scan(t)
	asset := h.asset(t, "a.tif")
	if err := h.svc.Checkout(ctx, asset.ID, "u1"); err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	if err := os.WriteFile(path, []byte("two"), 0644); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(time.Minute)

	var commitErr error
	db := &interleavedDatabase{SQLiteDatabase: h.db}
	db.hook = func() { _, commitErr = h.svc.Commit(ctx, asset.ID, "u1", "v2") }
	scanner := ivcs.NewIVCSService(db, h.store, h.fsmgr, ivcs.Settings{
		Extensions: []string{".img", ".tif"},
		Method:     ivcs.DetectByHash,
		Workers:    2,
	}, ivcs.NewNopLogger(), h.clock, testutil.NewPrefixedIDGenerator("scan"))

	report, err := scanner.ScanAndDetect(ctx, h.project.ID)
	if err != nil {
		t.Fatalf("ScanAndDetect() error = %v", err)
	}
	if commitErr != nil {
		t.Fatalf("Commit() inside scan error = %v", commitErr)
	}
	if len(report.Entries) != 0 {
		t.Errorf("scan recorded %d entries, want 0 after the commit took the change", len(report.Entries))
	}

	entries, err := h.svc.ListChangelist(h.project.ID, 0)
	if err != nil {
		t.Fatalf("ListChangelist() error = %v", err)
	}
	var kinds []ivcs.ChangeKind
	for _, e := range entries {
		kinds = append(kinds, ivcs.ChangeKind(e.Kind))
	}
	if len(kinds) != 2 || kinds[0] != ivcs.Added || kinds[1] != ivcs.Modified {
		t.Errorf("changelist kinds = %v, want [Added Modified]", kinds)
	}

	if _, err := h.svc.Commit(ctx, asset.ID, "u1", "again"); !errors.Is(err, ivcs.ErrNothingToCommit) {
		t.Errorf("second Commit() error = %v, want ErrNothingToCommit", err)
	}
}
