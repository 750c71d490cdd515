package ivcs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ivcs-go/internal/database/sqlc"
)

// Checkout grants user exclusive edit rights on an asset. If another user
// holds the asset it returns a *ConflictError naming the holder. Checking
// out an asset the user already holds is a no-op.
func (s *IVCSService) Checkout(ctx context.Context, assetID string, user string) error {
	if err := validateUser(user); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	asset, err := s.asset(assetID)
	if err != nil {
		return err
	}

	active, err := s.database.AcquireCheckout(&sqlc.Checkout{
		ID:           s.idgen.New(),
		ProjectID:    asset.ProjectID,
		AssetID:      asset.ID,
		Holder:       user,
		CheckedOutAt: s.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("acquiring checkout: %w", err)
	}
	if active.Holder != user {
		s.logger.Warn("checkout refused", "asset", asset.RelativePath, "user", user, "holder", active.Holder)
		return &ConflictError{AssetID: asset.ID, Holder: active.Holder}
	}

	s.logger.Info("asset checked out", "asset", asset.RelativePath, "user", user)
	return nil
}

// Checkin releases user's checkout of an asset. It returns ErrNotCheckedOut
// when the asset has no active checkout and ErrNotHolder when someone else
// holds it.
func (s *IVCSService) Checkin(ctx context.Context, assetID string, user string) error {
	if err := validateUser(user); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	asset, err := s.asset(assetID)
	if err != nil {
		return err
	}

	active, err := s.database.FindActiveCheckout(asset)
	if err != nil {
		return fmt.Errorf("finding active checkout: %w", err)
	}
	if active == nil {
		return ErrNotCheckedOut
	}
	if active.Holder != user {
		return fmt.Errorf("%w: %s holds %s", ErrNotHolder, active.Holder, asset.RelativePath)
	}

	if err := s.database.ReleaseCheckout(active, s.clock.Now()); err != nil {
		if errors.Is(err, ErrNotCheckedOut) {
			return err
		}
		return fmt.Errorf("releasing checkout: %w", err)
	}

	s.logger.Info("asset checked in", "asset", asset.RelativePath, "user", user)
	return nil
}

// ActiveCheckout returns the open checkout of an asset, or nil if it is free.
func (s *IVCSService) ActiveCheckout(assetID string) (*sqlc.Checkout, error) {
	asset, err := s.asset(assetID)
	if err != nil {
		return nil, err
	}
	active, err := s.database.FindActiveCheckout(asset)
	if err != nil {
		return nil, fmt.Errorf("finding active checkout: %w", err)
	}
	return active, nil
}

// requireHolder checks that user holds the active checkout of asset.
func (s *IVCSService) requireHolder(asset *sqlc.Asset, user string) error {
	active, err := s.database.FindActiveCheckout(asset)
	if err != nil {
		return fmt.Errorf("finding active checkout: %w", err)
	}
	if active == nil {
		return ErrNotCheckedOut
	}
	if active.Holder != user {
		return &ConflictError{AssetID: asset.ID, Holder: active.Holder}
	}
	return nil
}

func validateUser(user string) error {
	if strings.TrimSpace(user) == "" {
		return fmt.Errorf("user must not be empty")
	}
	return nil
}
