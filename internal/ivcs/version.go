package ivcs

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"ivcs-go/internal/database/sqlc"
)

// GetVersion returns the full content of a committed version.
func (s *IVCSService) GetVersion(ctx context.Context, versionID string) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.RestoreVersion(ctx, versionID, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RestoreVersion streams the content of a committed version to w.
// A version whose content is missing from the store yields a
// *NotFoundError with Kind "content", which indicates store corruption.
func (s *IVCSService) RestoreVersion(ctx context.Context, versionID string, w io.Writer) error {
	version, err := s.version(versionID)
	if err != nil {
		return err
	}
	if err := s.store.Get(ctx, version.ContentKey, w); err != nil {
		if IsNotFound(err, "content") {
			s.logger.Error("version content missing", "version", version.ID, "key", version.ContentKey)
			return err
		}
		return fmt.Errorf("reading version %s: %w", version.ID, err)
	}
	return nil
}

// FindVersion returns a version's metadata.
func (s *IVCSService) FindVersion(versionID string) (*sqlc.Version, error) {
	return s.version(versionID)
}

// ListVersions returns an asset's versions, oldest first.
func (s *IVCSService) ListVersions(assetID string) ([]*sqlc.Version, error) {
	asset, err := s.asset(assetID)
	if err != nil {
		return nil, err
	}
	versions, err := s.database.FindVersionsByAsset(asset)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}
	return versions, nil
}

func (s *IVCSService) version(id string) (*sqlc.Version, error) {
	version, err := s.database.FindVersionByID(id)
	if err != nil {
		return nil, fmt.Errorf("finding version: %w", err)
	}
	if version == nil {
		return nil, &NotFoundError{Kind: "version", Key: id}
	}
	return version, nil
}
