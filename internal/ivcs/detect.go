package ivcs

import (
	"path/filepath"
	"sort"
	"strings"

	"ivcs-go/internal/database/sqlc"
)

// Observation pairs a scanned file with its fingerprint for this pass.
type Observation struct {
	File        ScannedFile
	Fingerprint *Fingerprint
}

// Transition is the detector's verdict for one asset path. Prior is nil for a
// never-seen file; Observed is nil for a deletion.
type Transition struct {
	Kind     ChangeKind
	Prior    *sqlc.Asset
	Observed *Observation
}

// ScanGaps names the parts of a root this pass could not look at.
// Priors inside a gap keep their state untouched.
type ScanGaps struct {
	SkippedDirs []string
	FailedFiles []string
}

func (g ScanGaps) covers(relativePath string) bool {
	for _, f := range g.FailedFiles {
		if f == relativePath {
			return true
		}
	}
	for _, d := range g.SkippedDirs {
		if strings.HasPrefix(relativePath, d+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// DetectChanges classifies observed files against the prior records of one
// directory. Observed files keep their scan order; deletions follow, sorted by
// relative path. Observed files that need no changelist entry are returned
// with Kind Unchanged so their record can be refreshed.
func DetectChanges(method DetectionMethod, priors []*sqlc.Asset, observed []Observation, gaps ScanGaps) []Transition {
	byPath := make(map[string]*sqlc.Asset, len(priors))
	for _, p := range priors {
		byPath[p.RelativePath] = p
	}

	seen := make(map[string]bool, len(observed))
	transitions := make([]Transition, 0, len(observed))
	for i := range observed {
		obs := &observed[i]
		rel := obs.File.RelativePath
		seen[rel] = true

		prior, ok := byPath[rel]
		switch {
		case !ok:
			transitions = append(transitions, Transition{Kind: Added, Observed: obs})
		case !prior.OnDisk:
			transitions = append(transitions, Transition{Kind: Added, Prior: prior, Observed: obs})
		case isModified(method, prior, obs.Fingerprint):
			transitions = append(transitions, Transition{Kind: Modified, Prior: prior, Observed: obs})
		default:
			transitions = append(transitions, Transition{Kind: Unchanged, Prior: prior, Observed: obs})
		}
	}

	var deleted []Transition
	for _, p := range priors {
		if seen[p.RelativePath] || !p.OnDisk || gaps.covers(p.RelativePath) {
			continue
		}
		deleted = append(deleted, Transition{Kind: Deleted, Prior: p})
	}
	sort.Slice(deleted, func(i, j int) bool {
		return deleted[i].Prior.RelativePath < deleted[j].Prior.RelativePath
	})

	return append(transitions, deleted...)
}

// isModified applies the detection method to a present prior record.
func isModified(method DetectionMethod, prior *sqlc.Asset, fp *Fingerprint) bool {
	if method == DetectByModificationTime {
		return prior.ModifiedAt.Unix() != fp.ModTime.Unix()
	}
	return prior.ContentHash != fp.Hash
}
