package ivcs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"ivcs-go/internal/database/sqlc"
)

// Commit stores the current content of an asset as a new version.
//
// The user must hold the asset's active checkout. The file is fingerprinted
// again; if its hash no longer matches the record, a Modified entry is
// appended in the same transaction as the version. The version is attached
// to the asset's newest changelist entry, and ErrNothingToCommit is returned
// if that entry already has one. ErrAssetMissing is returned when the asset
// is not on disk.
//
// Content is stored before the database transaction. A failed transaction
// can leave an unreferenced blob, which garbage collection removes. If a
// scan rewrote the asset row while the file was being stored, the commit is
// redone against the fresh row.
func (s *IVCSService) Commit(ctx context.Context, assetID string, user string, message string) (*sqlc.Version, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		v, err := s.commitOnce(ctx, assetID, user, message)
		if !errors.Is(err, ErrInventoryChanged) || attempt == maxWriteAttempts {
			return v, err
		}
		s.logger.Debug("asset changed during commit, retrying", "asset", assetID, "attempt", attempt)
	}
}

func (s *IVCSService) commitOnce(ctx context.Context, assetID string, user string, message string) (*sqlc.Version, error) {
	asset, err := s.asset(assetID)
	if err != nil {
		return nil, err
	}
	if err := s.requireHolder(asset, user); err != nil {
		return nil, err
	}
	if !asset.OnDisk {
		return nil, fmt.Errorf("%w: %s", ErrAssetMissing, asset.RelativePath)
	}

	directory, err := s.database.FindDirectoryByID(asset.DirectoryID)
	if err != nil {
		return nil, fmt.Errorf("finding directory: %w", err)
	}
	if directory == nil {
		return nil, &NotFoundError{Kind: "directory", Key: asset.DirectoryID}
	}
	absPath := filepath.Join(directory.Path, asset.RelativePath)

	fp, err := s.fsmgr.Fingerprint(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAssetMissing, absPath)
		}
		return nil, err
	}

	key, err := s.storeFile(ctx, absPath)
	if err != nil {
		return nil, err
	}
	if key != fp.Hash {
		return nil, fmt.Errorf("file changed while committing: %s", absPath)
	}

	now := s.clock.Now()
	message = strings.TrimSpace(message)
	record := &CommitRecord{
		Holder: user,
		Version: &sqlc.Version{
			ID:          s.idgen.New(),
			ProjectID:   asset.ProjectID,
			DirectoryID: asset.DirectoryID,
			AssetID:     asset.ID,
			ContentKey:  key,
			Size:        fp.Size,
			Message:     sql.NullString{String: message, Valid: message != ""},
			CommittedBy: user,
			CreatedAt:   now,
		},
	}

	if fp.Hash != asset.ContentHash {
		updated := *asset
		updated.Size = fp.Size
		updated.ContentHash = fp.Hash
		updated.ModifiedAt = fp.ModTime
		record.Asset = &AssetUpdate{Prior: asset, Updated: &updated}
		record.Change = &sqlc.ChangelistEntry{
			ID:          s.idgen.New(),
			ProjectID:   asset.ProjectID,
			DirectoryID: asset.DirectoryID,
			AssetID:     asset.ID,
			Kind:        int64(Modified),
			ChangedAt:   now,
		}
		s.logger.Debug("change found at commit", "asset", asset.RelativePath)
	}

	if err := s.database.CreateVersion(record); err != nil {
		var conflict *ConflictError
		if errors.Is(err, ErrNothingToCommit) || errors.Is(err, ErrNotCheckedOut) ||
			errors.Is(err, ErrInventoryChanged) || errors.As(err, &conflict) {
			return nil, err
		}
		return nil, fmt.Errorf("recording version: %w", err)
	}

	s.logger.Info("version committed",
		"asset", asset.RelativePath,
		"version", record.Version.ID,
		"key", key,
		"user", user)
	return record.Version, nil
}

func (s *IVCSService) storeFile(ctx context.Context, absPath string) (string, error) {
	f, err := s.fsmgr.Open(absPath)
	if err != nil {
		return "", &IOError{Path: absPath, Err: err}
	}
	defer f.Close()

	key, err := s.store.Put(ctx, f)
	if err != nil {
		return "", fmt.Errorf("storing content: %w", err)
	}
	return key, nil
}
