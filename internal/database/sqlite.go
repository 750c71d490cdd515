package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"ivcs-go/internal/database/migrations"
	"ivcs-go/internal/database/sqlc"
	"ivcs-go/internal/ivcs"
)

var _ ivcs.Database = (*SQLiteDatabase)(nil)

// SQLiteDatabase implements ivcs.Database using SQLite.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *sqlc.Queries
	path    string
}

// NewSQLiteDatabase opens a SQLite database. path can be a file path or
// ":memory:". The schema is not touched; see Migrate and CheckMigrations.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		path:    path,
	}, nil
}

// NewSQLiteDatabaseFromDB wraps an open connection, typically one from
// OpenConnection with the schema already applied.
func NewSQLiteDatabaseFromDB(db *sql.DB, path string) *SQLiteDatabase {
	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		path:    path,
	}
}

// OpenConnection opens and configures a SQLite connection.
//
// The pool is pinned to a single connection. SQLite allows one writer at a
// time, and every transaction here is serialized through that connection,
// which is what makes checkout acquisition a compare-and-swap. A single
// connection also keeps a ":memory:" database alive for the pool's lifetime.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	return db, nil
}

// Migrate brings the schema up to date.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations returns an error unless the schema is at the latest version.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Path returns the database file path, or ":memory:".
func (s *SQLiteDatabase) Path() string {
	return s.path
}

func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}

// Project operations

func (s *SQLiteDatabase) CreateProject(project *sqlc.Project) error {
	err := s.queries.InsertProject(context.Background(), sqlc.InsertProjectParams{
		ID:        project.ID,
		Name:      project.Name,
		CreatedAt: project.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindProjectByID(id string) (*sqlc.Project, error) {
	project, err := s.queries.GetProjectByID(context.Background(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding project by id: %w", err)
	}
	return &project, nil
}

func (s *SQLiteDatabase) FindProjectByName(name string) (*sqlc.Project, error) {
	project, err := s.queries.GetProjectByName(context.Background(), name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding project by name: %w", err)
	}
	return &project, nil
}

func (s *SQLiteDatabase) ListProjects() ([]*sqlc.Project, error) {
	projects, err := s.queries.ListProjects(context.Background())
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return pointers(projects), nil
}

func (s *SQLiteDatabase) DeleteProject(project *sqlc.Project) error {
	if err := s.queries.DeleteProjectByID(context.Background(), project.ID); err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	return nil
}

// Directory operations

func (s *SQLiteDatabase) CreateDirectory(directory *sqlc.Directory) error {
	err := s.queries.InsertDirectory(context.Background(), sqlc.InsertDirectoryParams{
		ID:        directory.ID,
		ProjectID: directory.ProjectID,
		Path:      directory.Path,
		CreatedAt: directory.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("inserting directory: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindDirectoryByID(id string) (*sqlc.Directory, error) {
	dir, err := s.queries.GetDirectoryByID(context.Background(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding directory by id: %w", err)
	}
	return &dir, nil
}

func (s *SQLiteDatabase) FindDirectoriesByProject(project *sqlc.Project) ([]*sqlc.Directory, error) {
	dirs, err := s.queries.GetDirectoriesByProjectID(context.Background(), project.ID)
	if err != nil {
		return nil, fmt.Errorf("finding directories by project: %w", err)
	}
	return pointers(dirs), nil
}

func (s *SQLiteDatabase) FindDirectoriesContainingPath(path string) ([]*sqlc.Directory, error) {
	dirs, err := s.queries.ListDirectories(context.Background())
	if err != nil {
		return nil, fmt.Errorf("searching directories: %w", err)
	}

	sep := string(filepath.Separator)
	var matches []*sqlc.Directory
	for i := range dirs {
		dir := &dirs[i]
		if path == dir.Path || strings.HasPrefix(path, strings.TrimSuffix(dir.Path, sep)+sep) {
			matches = append(matches, dir)
		}
	}
	return matches, nil
}

// Asset operations

func (s *SQLiteDatabase) FindAssetByID(id string) (*sqlc.Asset, error) {
	asset, err := s.queries.GetAssetByID(context.Background(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding asset by id: %w", err)
	}
	return &asset, nil
}

func (s *SQLiteDatabase) FindAssetByPath(directory *sqlc.Directory, relativePath string) (*sqlc.Asset, error) {
	asset, err := s.queries.GetAssetByDirectoryAndPath(context.Background(), sqlc.GetAssetByDirectoryAndPathParams{
		DirectoryID:  directory.ID,
		RelativePath: relativePath,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding asset by path: %w", err)
	}
	return &asset, nil
}

func (s *SQLiteDatabase) FindAssetsByDirectory(directory *sqlc.Directory) ([]*sqlc.Asset, error) {
	assets, err := s.queries.GetAssetsByDirectoryID(context.Background(), directory.ID)
	if err != nil {
		return nil, fmt.Errorf("finding assets by directory: %w", err)
	}
	return pointers(assets), nil
}

func (s *SQLiteDatabase) FindAssetsByProject(project *sqlc.Project) ([]*sqlc.Asset, error) {
	assets, err := s.queries.GetAssetsByProjectID(context.Background(), project.ID)
	if err != nil {
		return nil, fmt.Errorf("finding assets by project: %w", err)
	}
	return pointers(assets), nil
}

// Changelist operations

// ApplyScan inserts new assets, rewrites updated ones and appends the
// changelist entries of one scan in a single transaction. Entries are
// inserted in batch order, which fixes their changelist order.
func (s *SQLiteDatabase) ApplyScan(batch *ivcs.ScanBatch) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	for _, a := range batch.NewAssets {
		if err := qtx.InsertAsset(ctx, insertAssetParams(a)); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("inserting asset %s: %w", a.RelativePath, ivcs.ErrInventoryChanged)
			}
			return fmt.Errorf("inserting asset %s: %w", a.RelativePath, err)
		}
	}
	for _, u := range batch.UpdatedAssets {
		if err := updateAsset(ctx, qtx, u); err != nil {
			return err
		}
	}
	for _, e := range batch.Entries {
		if err := qtx.InsertChangelistEntry(ctx, insertChangeParams(e)); err != nil {
			return fmt.Errorf("inserting changelist entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindChangelistByProject(project *sqlc.Project, limit int) ([]*sqlc.ChangelistEntry, error) {
	n := int64(limit)
	if n <= 0 {
		n = -1 // SQLite: no limit
	}
	entries, err := s.queries.GetRecentChangelistByProjectID(context.Background(), sqlc.GetRecentChangelistByProjectIDParams{
		ProjectID: project.ID,
		Limit:     n,
	})
	if err != nil {
		return nil, fmt.Errorf("finding changelist by project: %w", err)
	}

	// Query is newest first so LIMIT keeps the most recent entries.
	result := make([]*sqlc.ChangelistEntry, len(entries))
	for i := range entries {
		result[len(entries)-1-i] = &entries[i]
	}
	return result, nil
}

func (s *SQLiteDatabase) FindLatestChangeForAsset(asset *sqlc.Asset) (*sqlc.ChangelistEntry, error) {
	entry, err := s.queries.GetLatestChangeByAssetID(context.Background(), asset.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding latest change: %w", err)
	}
	return &entry, nil
}

// Version operations

// CreateVersion records a commit: it confirms the holder still owns the
// active checkout, appends the commit-time change if there is one, and
// attaches the version to the newest change of the asset.
func (s *SQLiteDatabase) CreateVersion(record *ivcs.CommitRecord) error {
	ctx := context.Background()
	v := record.Version

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	active, err := qtx.GetActiveCheckoutByAssetID(ctx, v.AssetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ivcs.ErrNotCheckedOut
		}
		return fmt.Errorf("finding active checkout: %w", err)
	}
	if active.Holder != record.Holder {
		return &ivcs.ConflictError{AssetID: v.AssetID, Holder: active.Holder}
	}

	if record.Change != nil {
		if record.Asset != nil {
			if err := updateAsset(ctx, qtx, *record.Asset); err != nil {
				return err
			}
		}
		if err := qtx.InsertChangelistEntry(ctx, insertChangeParams(record.Change)); err != nil {
			return fmt.Errorf("inserting changelist entry: %w", err)
		}
	}

	latest, err := qtx.GetLatestChangeByAssetID(ctx, v.AssetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ivcs.ErrNothingToCommit
		}
		return fmt.Errorf("finding latest change: %w", err)
	}
	if _, err := qtx.GetVersionByChangeID(ctx, latest.ID); err == nil {
		return ivcs.ErrNothingToCommit
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for existing version: %w", err)
	}

	v.ChangeID = latest.ID
	err = qtx.InsertVersion(ctx, sqlc.InsertVersionParams{
		ID:          v.ID,
		ProjectID:   v.ProjectID,
		DirectoryID: v.DirectoryID,
		AssetID:     v.AssetID,
		ChangeID:    v.ChangeID,
		ContentKey:  v.ContentKey,
		Size:        v.Size,
		Message:     v.Message,
		CommittedBy: v.CommittedBy,
		CreatedAt:   v.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("inserting version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindVersionByID(id string) (*sqlc.Version, error) {
	version, err := s.queries.GetVersionByID(context.Background(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding version by id: %w", err)
	}
	return &version, nil
}

func (s *SQLiteDatabase) FindVersionsByAsset(asset *sqlc.Asset) ([]*sqlc.Version, error) {
	versions, err := s.queries.GetVersionsByAssetID(context.Background(), asset.ID)
	if err != nil {
		return nil, fmt.Errorf("finding versions by asset: %w", err)
	}
	return pointers(versions), nil
}

func (s *SQLiteDatabase) FindReferencedContentKeys() ([]string, error) {
	keys, err := s.queries.GetReferencedContentKeys(context.Background())
	if err != nil {
		return nil, fmt.Errorf("finding referenced content keys: %w", err)
	}
	return keys, nil
}

// Checkout operations

func (s *SQLiteDatabase) AcquireCheckout(checkout *sqlc.Checkout) (*sqlc.Checkout, error) {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	active, err := qtx.GetActiveCheckoutByAssetID(ctx, checkout.AssetID)
	if err == nil {
		return &active, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("finding active checkout: %w", err)
	}

	err = qtx.InsertCheckout(ctx, sqlc.InsertCheckoutParams{
		ID:           checkout.ID,
		ProjectID:    checkout.ProjectID,
		AssetID:      checkout.AssetID,
		Holder:       checkout.Holder,
		CheckedOutAt: checkout.CheckedOutAt,
	})
	if err != nil {
		// The partial unique index rejects a second active checkout even if
		// another writer got in between.
		if isUniqueViolation(err) {
			tx.Rollback()
			holder, ferr := s.queries.GetActiveCheckoutByAssetID(ctx, checkout.AssetID)
			if ferr != nil {
				return nil, fmt.Errorf("finding active checkout after conflict: %w", ferr)
			}
			return &holder, nil
		}
		return nil, fmt.Errorf("inserting checkout: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	acquired := *checkout
	acquired.CheckedInAt = sql.NullTime{}
	return &acquired, nil
}

func (s *SQLiteDatabase) FindActiveCheckout(asset *sqlc.Asset) (*sqlc.Checkout, error) {
	checkout, err := s.queries.GetActiveCheckoutByAssetID(context.Background(), asset.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding active checkout: %w", err)
	}
	return &checkout, nil
}

func (s *SQLiteDatabase) ReleaseCheckout(checkout *sqlc.Checkout, at time.Time) error {
	n, err := s.queries.CloseCheckout(context.Background(), sqlc.CloseCheckoutParams{
		CheckedInAt: sql.NullTime{Time: at, Valid: true},
		ID:          checkout.ID,
	})
	if err != nil {
		return fmt.Errorf("closing checkout: %w", err)
	}
	if n == 0 {
		return ivcs.ErrNotCheckedOut
	}
	return nil
}

// Operation log

func (s *SQLiteDatabase) CreateOperation(operation string, parameters string, startedAt time.Time) (*sqlc.Operation, error) {
	ctx := context.Background()
	id, err := s.queries.InsertOperation(ctx, sqlc.InsertOperationParams{
		StartedAt:  startedAt,
		Operation:  operation,
		Parameters: parameters,
		Status:     "running",
	})
	if err != nil {
		return nil, fmt.Errorf("inserting operation: %w", err)
	}
	op, err := s.queries.GetOperationByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading operation: %w", err)
	}
	return &op, nil
}

func (s *SQLiteDatabase) FinishOperation(operation *sqlc.Operation, status string, finishedAt time.Time) error {
	err := s.queries.FinishOperation(context.Background(), sqlc.FinishOperationParams{
		FinishedAt: sql.NullTime{Time: finishedAt, Valid: true},
		Status:     status,
		ID:         operation.ID,
	})
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	operation.Status = status
	operation.FinishedAt = sql.NullTime{Time: finishedAt, Valid: true}
	return nil
}

func (s *SQLiteDatabase) ListOperations(limit int) ([]*sqlc.Operation, error) {
	n := int64(limit)
	if n <= 0 {
		n = -1
	}
	ops, err := s.queries.ListOperations(context.Background(), n)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return pointers(ops), nil
}

func insertAssetParams(a *sqlc.Asset) sqlc.InsertAssetParams {
	return sqlc.InsertAssetParams{
		ID:            a.ID,
		ProjectID:     a.ProjectID,
		DirectoryID:   a.DirectoryID,
		RelativePath:  a.RelativePath,
		Extension:     a.Extension,
		Size:          a.Size,
		ContentHash:   a.ContentHash,
		ModifiedAt:    a.ModifiedAt,
		FirstSeenAt:   a.FirstSeenAt,
		LastScannedAt: a.LastScannedAt,
		OnDisk:        a.OnDisk,
	}
}

// updateAsset rewrites u.Updated only if the stored row still has the
// fingerprint and presence of u.Prior.
func updateAsset(ctx context.Context, q *sqlc.Queries, u ivcs.AssetUpdate) error {
	n, err := q.UpdateAssetIfUnchanged(ctx, sqlc.UpdateAssetIfUnchangedParams{
		Size:          u.Updated.Size,
		ContentHash:   u.Updated.ContentHash,
		ModifiedAt:    u.Updated.ModifiedAt,
		LastScannedAt: u.Updated.LastScannedAt,
		OnDisk:        u.Updated.OnDisk,
		ID:            u.Prior.ID,
		Size_2:        u.Prior.Size,
		ContentHash_2: u.Prior.ContentHash,
		ModifiedAt_2:  u.Prior.ModifiedAt,
		OnDisk_2:      u.Prior.OnDisk,
	})
	if err != nil {
		return fmt.Errorf("updating asset %s: %w", u.Prior.RelativePath, err)
	}
	if n == 0 {
		return fmt.Errorf("updating asset %s: %w", u.Prior.RelativePath, ivcs.ErrInventoryChanged)
	}
	return nil
}

func insertChangeParams(e *sqlc.ChangelistEntry) sqlc.InsertChangelistEntryParams {
	return sqlc.InsertChangelistEntryParams{
		ID:          e.ID,
		ProjectID:   e.ProjectID,
		DirectoryID: e.DirectoryID,
		AssetID:     e.AssetID,
		Kind:        e.Kind,
		ChangedAt:   e.ChangedAt,
	}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func pointers[T any](rows []T) []*T {
	result := make([]*T, len(rows))
	for i := range rows {
		result[i] = &rows[i]
	}
	return result
}
