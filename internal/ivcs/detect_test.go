package ivcs

import (
	"testing"
	"time"

	"ivcs-go/internal/database/sqlc"
)

var t0 = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func prior(rel, hash string, mtime time.Time, onDisk bool) *sqlc.Asset {
	return &sqlc.Asset{ID: "a-" + rel, RelativePath: rel, ContentHash: hash, ModifiedAt: mtime, OnDisk: onDisk}
}

func observe(rel, hash string, mtime time.Time) Observation {
	return Observation{
		File:        ScannedFile{RelativePath: rel, Extension: ".tif"},
		Fingerprint: &Fingerprint{Hash: hash, ModTime: mtime},
	}
}

type verdict struct {
	rel  string
	kind ChangeKind
}

func verdicts(ts []Transition) []verdict {
	out := make([]verdict, 0, len(ts))
	for _, t := range ts {
		var rel string
		if t.Observed != nil {
			rel = t.Observed.File.RelativePath
		} else {
			rel = t.Prior.RelativePath
		}
		out = append(out, verdict{rel, t.Kind})
	}
	return out
}

func TestDetectChanges(t *testing.T) {
	later := t0.Add(time.Minute)
	subSecond := t0.Add(400 * time.Millisecond)

	tests := []struct {
		name     string
		method   DetectionMethod
		priors   []*sqlc.Asset
		observed []Observation
		gaps     ScanGaps
		want     []verdict
	}{
		{
			name:     "new file is added",
			method:   DetectByHash,
			observed: []Observation{observe("a.tif", "h1", t0)},
			want:     []verdict{{"a.tif", Added}},
		},
		{
			name:     "hash change is modified",
			method:   DetectByHash,
			priors:   []*sqlc.Asset{prior("a.tif", "h1", t0, true)},
			observed: []Observation{observe("a.tif", "h2", t0)},
			want:     []verdict{{"a.tif", Modified}},
		},
		{
			name:     "touch is unchanged under hash",
			method:   DetectByHash,
			priors:   []*sqlc.Asset{prior("a.tif", "h1", t0, true)},
			observed: []Observation{observe("a.tif", "h1", later)},
			want:     []verdict{{"a.tif", Unchanged}},
		},
		{
			name:     "touch is modified under modification_time",
			method:   DetectByModificationTime,
			priors:   []*sqlc.Asset{prior("a.tif", "h1", t0, true)},
			observed: []Observation{observe("a.tif", "h1", later)},
			want:     []verdict{{"a.tif", Modified}},
		},
		{
			name:     "content change within the same second is missed under modification_time",
			method:   DetectByModificationTime,
			priors:   []*sqlc.Asset{prior("a.tif", "h1", t0, true)},
			observed: []Observation{observe("a.tif", "h2", subSecond)},
			want:     []verdict{{"a.tif", Unchanged}},
		},
		{
			name:   "missing file is deleted",
			method: DetectByHash,
			priors: []*sqlc.Asset{prior("a.tif", "h1", t0, true)},
			want:   []verdict{{"a.tif", Deleted}},
		},
		{
			name:   "already absent file is not deleted again",
			method: DetectByHash,
			priors: []*sqlc.Asset{prior("a.tif", "h1", t0, false)},
			want:   []verdict{},
		},
		{
			name:     "returning file is added",
			method:   DetectByHash,
			priors:   []*sqlc.Asset{prior("a.tif", "h1", t0, false)},
			observed: []Observation{observe("a.tif", "h1", t0)},
			want:     []verdict{{"a.tif", Added}},
		},
		{
			name:   "files under a skipped directory or failed this pass are untouched",
			method: DetectByHash,
			priors: []*sqlc.Asset{
				prior("locked/a.tif", "h1", t0, true),
				prior("unreadable.tif", "h2", t0, true),
				prior("lockedness.tif", "h3", t0, true),
			},
			gaps: ScanGaps{SkippedDirs: []string{"locked"}, FailedFiles: []string{"unreadable.tif"}},
			want: []verdict{{"lockedness.tif", Deleted}},
		},
		{
			name:   "observed files keep scan order and deletions follow sorted",
			method: DetectByHash,
			priors: []*sqlc.Asset{
				prior("z.tif", "hz", t0, true),
				prior("m.tif", "hm", t0, true),
				prior("b.tif", "hb", t0, true),
				prior("a.tif", "ha", t0, true),
			},
			observed: []Observation{
				observe("sub/new.img", "hn", t0),
				observe("m.tif", "hm2", t0),
				observe("c.tif", "hc", t0),
			},
			want: []verdict{
				{"sub/new.img", Added},
				{"m.tif", Modified},
				{"c.tif", Added},
				{"a.tif", Deleted},
				{"b.tif", Deleted},
				{"z.tif", Deleted},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := verdicts(DetectChanges(tt.method, tt.priors, tt.observed, tt.gaps))
			if len(got) != len(tt.want) {
				t.Fatalf("DetectChanges() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("DetectChanges()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseDetectionMethod(t *testing.T) {
	for _, s := range []string{"hash", "modification_time"} {
		if m, err := ParseDetectionMethod(s); err != nil || string(m) != s {
			t.Errorf("ParseDetectionMethod(%q) = %q, %v", s, m, err)
		}
	}
	if _, err := ParseDetectionMethod("mtime"); err == nil {
		t.Error("ParseDetectionMethod(\"mtime\") should return error")
	}
}

func TestChangeKind_String(t *testing.T) {
	want := map[ChangeKind]string{Added: "added", Modified: "modified", Deleted: "deleted"}
	for k, s := range want {
		if k.String() != s {
			t.Errorf("%d.String() = %q, want %q", k, k.String(), s)
		}
	}
	if Added != 0 || Modified != 1 || Deleted != 2 {
		t.Error("change kind codes must be 0, 1, 2")
	}
}
