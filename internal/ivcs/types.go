package ivcs

import (
	"runtime"
	"time"
)

// ChangeKind classifies a changelist entry. The numeric values are persisted.
type ChangeKind int64

const (
	// Unchanged marks an observed asset that needs no changelist entry. Never persisted.
	Unchanged ChangeKind = -1
	Added     ChangeKind = 0
	Modified  ChangeKind = 1
	Deleted   ChangeKind = 2
)

func (k ChangeKind) String() string {
	switch k {
	case Unchanged:
		return "unchanged"
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// DetectionMethod selects how the change detector decides an asset was modified.
type DetectionMethod string

const (
	DetectByHash             DetectionMethod = "hash"
	DetectByModificationTime DetectionMethod = "modification_time"
)

// ParseDetectionMethod validates a configured detection method.
// Unknown values are rejected rather than defaulted.
func ParseDetectionMethod(s string) (DetectionMethod, error) {
	switch DetectionMethod(s) {
	case DetectByHash:
		return DetectByHash, nil
	case DetectByModificationTime:
		return DetectByModificationTime, nil
	default:
		return "", &ConfigError{
			Field: "change_detection",
			Value: s,
			Msg:   `must be "hash" or "modification_time"`,
		}
	}
}

// Settings is the tracking configuration threaded into the service at construction.
type Settings struct {
	Extensions []string
	Method     DetectionMethod
	// Workers bounds the fingerprinting pool. Zero means runtime.NumCPU().
	Workers int
}

// maxWriteAttempts bounds how often a scan or commit is redone after its
// inventory snapshot went stale.
const maxWriteAttempts = 3

func (s Settings) workers() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return runtime.NumCPU()
}

// ScanReport is the outcome of one ScanAndDetect pass over a project.
type ScanReport struct {
	ProjectID string
	Entries   []*ChangeEntry
	// FileErrors holds per-file fingerprint failures. Those files were skipped this pass.
	FileErrors []*IOError
	// Warnings holds subdirectories that could not be read.
	Warnings []ScanWarning
	Scanned  int
}

// ChangeEntry is a persisted changelist entry together with the asset path it refers to.
type ChangeEntry struct {
	ID           string
	ProjectID    string
	DirectoryID  string
	AssetID      string
	RelativePath string
	Kind         ChangeKind
	ChangedAt    time.Time
}
