package ivcs

import (
	"time"

	"ivcs-go/internal/database/sqlc"
)

// ScanBatch is everything one scan pass writes. It is applied in a single
// transaction so a failed or cancelled pass leaves no partial state.
type ScanBatch struct {
	NewAssets     []*sqlc.Asset
	UpdatedAssets []AssetUpdate
	Entries       []*sqlc.ChangelistEntry
}

// AssetUpdate rewrites an asset row only if it still matches Prior.
type AssetUpdate struct {
	Prior   *sqlc.Asset
	Updated *sqlc.Asset
}

// Empty reports whether the batch carries no writes.
func (b *ScanBatch) Empty() bool {
	return len(b.NewAssets) == 0 && len(b.UpdatedAssets) == 0 && len(b.Entries) == 0
}

// CommitRecord is everything one commit writes.
type CommitRecord struct {
	// Holder must own the active checkout of the asset when the record is applied.
	Holder string
	// Asset carries the refreshed fingerprint fields when Change is set.
	// Prior is the row Asset was derived from.
	Asset *AssetUpdate
	// Change is a Modified entry discovered at commit time, or nil to
	// version the newest existing changelist entry.
	Change *sqlc.ChangelistEntry
	// Version is inserted with ChangeID filled in by the database layer.
	Version *sqlc.Version
}

// Database provides metadata storage. Lookups return (nil, nil) when no row exists.
type Database interface {
	// Project operations

	CreateProject(project *sqlc.Project) error
	FindProjectByID(id string) (*sqlc.Project, error)
	FindProjectByName(name string) (*sqlc.Project, error)
	ListProjects() ([]*sqlc.Project, error)
	// DeleteProject removes the project and everything recorded under it.
	DeleteProject(project *sqlc.Project) error

	// Directory operations

	CreateDirectory(directory *sqlc.Directory) error
	FindDirectoryByID(id string) (*sqlc.Directory, error)
	FindDirectoriesByProject(project *sqlc.Project) ([]*sqlc.Directory, error)

	// FindDirectoriesContainingPath returns every registered directory, in any
	// project, that equals path or is an ancestor of it.
	FindDirectoriesContainingPath(path string) ([]*sqlc.Directory, error)

	// Asset operations

	FindAssetByID(id string) (*sqlc.Asset, error)
	FindAssetByPath(directory *sqlc.Directory, relativePath string) (*sqlc.Asset, error)
	FindAssetsByDirectory(directory *sqlc.Directory) ([]*sqlc.Asset, error)
	FindAssetsByProject(project *sqlc.Project) ([]*sqlc.Asset, error)

	// Changelist operations

	// ApplyScan writes a scan batch atomically. It returns
	// ErrInventoryChanged, writing nothing, if an updated asset no longer
	// matches its prior or a new asset's path was recorded meanwhile.
	ApplyScan(batch *ScanBatch) error

	// FindChangelistByProject returns entries in insertion order, newest last.
	// A limit of zero or less returns every entry.
	FindChangelistByProject(project *sqlc.Project, limit int) ([]*sqlc.ChangelistEntry, error)
	FindLatestChangeForAsset(asset *sqlc.Asset) (*sqlc.ChangelistEntry, error)

	// Version operations

	// CreateVersion applies a commit atomically. It returns ErrNotCheckedOut or
	// a *ConflictError if the holder lost the checkout, and ErrNothingToCommit
	// if the change being versioned already has a version. A refreshed
	// asset that no longer matches its prior yields ErrInventoryChanged.
	CreateVersion(record *CommitRecord) error
	FindVersionByID(id string) (*sqlc.Version, error)
	FindVersionsByAsset(asset *sqlc.Asset) ([]*sqlc.Version, error)
	// FindReferencedContentKeys returns the distinct content keys of all versions.
	FindReferencedContentKeys() ([]string, error)

	// Checkout operations

	// AcquireCheckout inserts checkout unless the asset already has an active
	// checkout. It returns the active checkout either way.
	AcquireCheckout(checkout *sqlc.Checkout) (*sqlc.Checkout, error)
	FindActiveCheckout(asset *sqlc.Asset) (*sqlc.Checkout, error)
	// ReleaseCheckout closes an active checkout. It returns ErrNotCheckedOut
	// if the checkout was already closed.
	ReleaseCheckout(checkout *sqlc.Checkout, at time.Time) error

	// Operation log

	CreateOperation(operation string, parameters string, startedAt time.Time) (*sqlc.Operation, error)
	FinishOperation(operation *sqlc.Operation, status string, finishedAt time.Time) error
	ListOperations(limit int) ([]*sqlc.Operation, error)

	// Close closes the database connection.
	Close() error
}
