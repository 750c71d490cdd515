package ivcs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"ivcs-go/internal/database/sqlc"
)

// ScanAndDetect scans every directory of a project, fingerprints what it
// finds, classifies the changes against the recorded inventory and persists
// the resulting changelist entries and asset updates in one transaction.
//
// Any root that cannot be scanned fails the whole pass with a *ScanError and
// nothing is written. Files that cannot be read are reported in
// ScanReport.FileErrors and retried on the next pass. Cancelling ctx abandons
// the pass without writing.
//
// If a commit rewrites an asset between the pass reading the inventory and
// writing its batch, the pass is discarded and run again from the start.
func (s *IVCSService) ScanAndDetect(ctx context.Context, projectID string) (*ScanReport, error) {
	project, err := s.project(projectID)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		report, err := s.scanOnce(ctx, project)
		if !errors.Is(err, ErrInventoryChanged) || attempt == maxWriteAttempts {
			return report, err
		}
		s.logger.Debug("inventory changed during scan, rescanning", "project", project.Name, "attempt", attempt)
	}
}

func (s *IVCSService) scanOnce(ctx context.Context, project *sqlc.Project) (*ScanReport, error) {
	dirs, err := s.database.FindDirectoriesByProject(project)
	if err != nil {
		return nil, fmt.Errorf("listing directories: %w", err)
	}

	now := s.clock.Now()
	report := &ScanReport{ProjectID: project.ID}
	batch := &ScanBatch{}
	paths := make(map[string]string)

	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := s.fsmgr.Scan(ctx, dir.Path, s.settings.Extensions)
		if err != nil {
			s.logger.Error("scan failed", "project", project.Name, "root", dir.Path, "error", err)
			return nil, fmt.Errorf("scanning project %s: %w", project.Name, err)
		}
		for _, w := range result.Warnings {
			s.logger.Warn("directory skipped", "path", w.Path, "error", w.Err)
		}
		report.Warnings = append(report.Warnings, result.Warnings...)
		report.Scanned += len(result.Files)

		priors, err := s.database.FindAssetsByDirectory(dir)
		if err != nil {
			return nil, fmt.Errorf("loading assets for %s: %w", dir.Path, err)
		}

		observed, failed, err := s.fingerprintAll(ctx, result.Files, priors)
		if err != nil {
			return nil, err
		}
		gaps := ScanGaps{SkippedDirs: result.SkippedDirs}
		for _, f := range failed {
			s.logger.Warn("file skipped", "path", f.Path, "error", f.Err)
			gaps.FailedFiles = append(gaps.FailedFiles, f.relativePath)
			report.FileErrors = append(report.FileErrors, f.IOError)
		}

		transitions := DetectChanges(s.settings.Method, priors, observed, gaps)
		s.stageTransitions(batch, dir, transitions, now, paths)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !batch.Empty() {
		if err := s.database.ApplyScan(batch); err != nil {
			return nil, fmt.Errorf("recording scan: %w", err)
		}
	}

	for _, e := range batch.Entries {
		report.Entries = append(report.Entries, &ChangeEntry{
			ID:           e.ID,
			ProjectID:    e.ProjectID,
			DirectoryID:  e.DirectoryID,
			AssetID:      e.AssetID,
			RelativePath: paths[e.AssetID],
			Kind:         ChangeKind(e.Kind),
			ChangedAt:    e.ChangedAt,
		})
	}

	s.logger.Info("scan complete",
		"project", project.Name,
		"scanned", report.Scanned,
		"changes", len(report.Entries),
		"file_errors", len(report.FileErrors))
	return report, nil
}

type failedFile struct {
	*IOError
	relativePath string
}

// fingerprintAll fingerprints files on a bounded worker pool. Under the
// modification_time method a file whose mtime matches its present prior keeps
// the recorded hash and is not read. Results are returned in input order.
func (s *IVCSService) fingerprintAll(ctx context.Context, files []ScannedFile, priors []*sqlc.Asset) ([]Observation, []failedFile, error) {
	byPath := make(map[string]*sqlc.Asset, len(priors))
	for _, p := range priors {
		byPath[p.RelativePath] = p
	}

	fps := make([]*Fingerprint, len(files))
	errs := make([]*IOError, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.workers())
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fp, err := s.fingerprintOne(f, byPath[f.RelativePath])
			if err != nil {
				var ioErr *IOError
				if errors.As(err, &ioErr) {
					errs[i] = ioErr
					return nil
				}
				return err
			}
			fps[i] = fp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	observed := make([]Observation, 0, len(files))
	var failed []failedFile
	for i, f := range files {
		if errs[i] != nil {
			failed = append(failed, failedFile{IOError: errs[i], relativePath: f.RelativePath})
			continue
		}
		observed = append(observed, Observation{File: f, Fingerprint: fps[i]})
	}
	return observed, failed, nil
}

func (s *IVCSService) fingerprintOne(f ScannedFile, prior *sqlc.Asset) (*Fingerprint, error) {
	if s.settings.Method == DetectByModificationTime && prior != nil && prior.OnDisk {
		st, err := s.fsmgr.Stat(f.AbsPath)
		if err != nil {
			return nil, err
		}
		if st.ModTime.Unix() == prior.ModifiedAt.Unix() {
			st.Hash = prior.ContentHash
			return st, nil
		}
	}
	return s.fsmgr.Fingerprint(f.AbsPath)
}

// stageTransitions converts detector output into rows on the batch.
func (s *IVCSService) stageTransitions(batch *ScanBatch, dir *sqlc.Directory, transitions []Transition, now time.Time, paths map[string]string) {
	for _, t := range transitions {
		var asset *sqlc.Asset
		if t.Prior == nil {
			fp := t.Observed.Fingerprint
			asset = &sqlc.Asset{
				ID:            s.idgen.New(),
				ProjectID:     dir.ProjectID,
				DirectoryID:   dir.ID,
				RelativePath:  t.Observed.File.RelativePath,
				Extension:     t.Observed.File.Extension,
				Size:          fp.Size,
				ContentHash:   fp.Hash,
				ModifiedAt:    fp.ModTime,
				FirstSeenAt:   now,
				LastScannedAt: now,
				OnDisk:        true,
			}
			batch.NewAssets = append(batch.NewAssets, asset)
		} else {
			updated := *t.Prior
			asset = &updated
			if t.Observed != nil {
				fp := t.Observed.Fingerprint
				asset.Size = fp.Size
				asset.ContentHash = fp.Hash
				asset.ModifiedAt = fp.ModTime
				asset.OnDisk = true
			} else {
				asset.OnDisk = false
			}
			asset.LastScannedAt = now
			batch.UpdatedAssets = append(batch.UpdatedAssets, AssetUpdate{Prior: t.Prior, Updated: asset})
		}

		if t.Kind == Unchanged {
			continue
		}
		paths[asset.ID] = asset.RelativePath
		batch.Entries = append(batch.Entries, &sqlc.ChangelistEntry{
			ID:          s.idgen.New(),
			ProjectID:   dir.ProjectID,
			DirectoryID: dir.ID,
			AssetID:     asset.ID,
			Kind:        int64(t.Kind),
			ChangedAt:   now,
		})
	}
}
