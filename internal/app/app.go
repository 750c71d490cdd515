package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ivcs-go/internal/config"
	"ivcs-go/internal/database"
	"ivcs-go/internal/database/sqlc"
	"ivcs-go/internal/encryption"
	"ivcs-go/internal/fs"
	"ivcs-go/internal/ivcs"
	"ivcs-go/internal/vault"
	"ivcs-go/internal/watch"
)

// Options adjusts how an IVCSApp is built for one CLI invocation.
type Options struct {
	// User overrides the configured username.
	User string
	// Stderr receives a copy of every log line. Defaults to os.Stderr.
	Stderr io.Writer
	Debug  bool
}

// IVCSApp is the application layer between the CLI and IVCSService.
// It constructs all dependencies from config, exposes high-level operations
// that accept project names and raw string paths, and manages the DB
// lifecycle on Close.
type IVCSApp struct {
	cfg       *config.Config
	db        *database.SQLiteDatabase
	store     *vault.Vault
	fsmgr     *fs.OSFilesystemManager
	encryptor ivcs.Encryptor
	service   *ivcs.IVCSService
	logger    *slog.Logger
	user      string
	op        *Operation
	dbOp      *sqlc.Operation
	logFile   *os.File
}

// NewIVCSApp creates a fully wired IVCSApp from the given config.
// operation identifies the CLI command being run (e.g. "Scan", "Commit").
// The caller must call Close when done.
func NewIVCSApp(ctx context.Context, cfg *config.Config, operation string, opts Options) (*IVCSApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}

	fsmgr := fs.NewOSFilesystemManager(cfg.Tracking.Ignore)

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}
	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("checking database schema: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	if enc != nil && !enc.IsConfigured() {
		db.Close()
		return nil, fmt.Errorf("encryption keys missing at %s, run `ivcs config init`", filepath.Dir(cfg.Encryption.PublicKeyPath))
	}

	store, err := vault.NewVaultFromConfig(ctx, cfg.Store, enc)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating store: %w", err)
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID, opts.Stderr, level)
	if err != nil {
		store.Close()
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	user := opts.User
	if user == "" {
		user = cfg.Username
	}
	if user == "" {
		user = DefaultUser()
	}

	svc := ivcs.NewIVCSService(db, store, fsmgr, settings, &slogAdapter{l: logger}, ivcs.RealClock{}, ivcs.UUIDGenerator{})

	return &IVCSApp{
		cfg:       cfg,
		db:        db,
		store:     store,
		fsmgr:     fsmgr,
		encryptor: enc,
		service:   svc,
		logger:    logger,
		user:      user,
		op:        NewOperation(operation, ""),
		logFile:   logFile,
	}, nil
}

// MigrateDatabase opens the configured database and applies pending migrations.
func MigrateDatabase(cfg *config.Config) error {
	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	return nil
}

// User returns the acting user for checkout and commit.
func (a *IVCSApp) User() string { return a.user }

// Service exposes the underlying service.
func (a *IVCSApp) Service() *ivcs.IVCSService { return a.service }

// NeedsPassphrase reports whether reading versions requires Unlock first.
func (a *IVCSApp) NeedsPassphrase() bool { return a.store.Encrypted() }

// Unlock decrypts the private key so stored versions can be read.
func (a *IVCSApp) Unlock(passphrase string) error {
	if a.encryptor == nil {
		return nil
	}
	dc, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking private key: %w", err)
	}
	a.store.Unlock(dc)
	return nil
}

// Fail marks the running operation as failed so Close records it that way.
func (a *IVCSApp) Fail(err error) {
	a.op.Fail(err)
}

// persistOperation saves the operation to the database, giving it an auto-increment ID.
// This should only be called for DB-mutating commands.
func (a *IVCSApp) persistOperation(params ...string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = strings.Join(params, " ")
	dbOp, err := a.db.CreateOperation(a.op.Name, a.op.Parameters, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	a.dbOp = dbOp
	return nil
}

// track records err against the operation and returns it.
func (a *IVCSApp) track(err error) error {
	a.op.Fail(err)
	return err
}

func (a *IVCSApp) project(name string) (*sqlc.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("project name required")
	}
	return a.service.FindProject(name)
}

// CreateProject registers a new project.
func (a *IVCSApp) CreateProject(name string) (*sqlc.Project, error) {
	if err := a.persistOperation(name); err != nil {
		return nil, err
	}
	p, err := a.service.CreateProject(name)
	return p, a.track(err)
}

// DeleteProject removes a project and everything recorded under it.
// Stored content is released for garbage collection.
func (a *IVCSApp) DeleteProject(name string) error {
	if err := a.persistOperation(name); err != nil {
		return err
	}
	p, err := a.project(name)
	if err != nil {
		return a.track(err)
	}
	return a.track(a.service.DeleteProject(p.ID))
}

func (a *IVCSApp) ListProjects() ([]*sqlc.Project, error) {
	return a.service.ListProjects()
}

// AddDirectory resolves the given path and registers it as a working
// directory of the project.
func (a *IVCSApp) AddDirectory(projectName, rawPath string) (*sqlc.Directory, error) {
	if err := a.persistOperation(projectName, rawPath); err != nil {
		return nil, err
	}
	p, err := a.project(projectName)
	if err != nil {
		return nil, a.track(err)
	}
	path, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, a.track(fmt.Errorf("resolving path: %w", err))
	}
	id, err := a.service.AddProjectDirectory(p.ID, path)
	if err != nil {
		return nil, a.track(err)
	}
	return &sqlc.Directory{ID: id, ProjectID: p.ID, Path: path.String()}, nil
}

func (a *IVCSApp) ListDirectories(projectName string) ([]*sqlc.Directory, error) {
	p, err := a.project(projectName)
	if err != nil {
		return nil, err
	}
	return a.service.ListDirectories(p.ID)
}

// Scan inventories the project's directories and records detected changes.
func (a *IVCSApp) Scan(ctx context.Context, projectName string) (*ivcs.ScanReport, error) {
	if err := a.persistOperation(projectName); err != nil {
		return nil, err
	}
	p, err := a.project(projectName)
	if err != nil {
		return nil, a.track(err)
	}
	report, err := a.service.ScanAndDetect(ctx, p.ID)
	return report, a.track(err)
}

// ChangeLine is a changelist entry joined with the asset's absolute path.
type ChangeLine struct {
	Entry *sqlc.ChangelistEntry
	Kind  ivcs.ChangeKind
	Path  string
}

// Changes returns the project's most recent changelist entries, oldest first.
func (a *IVCSApp) Changes(projectName string, limit int) ([]ChangeLine, error) {
	p, err := a.project(projectName)
	if err != nil {
		return nil, err
	}
	entries, err := a.service.ListChangelist(p.ID, limit)
	if err != nil {
		return nil, err
	}
	paths, err := a.assetPaths(p.ID)
	if err != nil {
		return nil, err
	}
	lines := make([]ChangeLine, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, ChangeLine{Entry: e, Kind: ivcs.ChangeKind(e.Kind), Path: paths[e.AssetID]})
	}
	return lines, nil
}

// AssetStatus is an asset with its absolute path and current checkout holder.
type AssetStatus struct {
	Asset  *sqlc.Asset
	Path   string
	Holder string
}

// Status lists every asset of the project with its checkout holder, if any.
func (a *IVCSApp) Status(projectName string) ([]AssetStatus, error) {
	p, err := a.project(projectName)
	if err != nil {
		return nil, err
	}
	assets, err := a.service.ListAssets(p.ID)
	if err != nil {
		return nil, err
	}
	dirs, err := a.directoryPaths(p.ID)
	if err != nil {
		return nil, err
	}
	statuses := make([]AssetStatus, 0, len(assets))
	for _, asset := range assets {
		co, err := a.service.ActiveCheckout(asset.ID)
		if err != nil {
			return nil, err
		}
		s := AssetStatus{Asset: asset, Path: filepath.Join(dirs[asset.DirectoryID], asset.RelativePath)}
		if co != nil {
			s.Holder = co.Holder
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}

// resolveAsset maps a raw path to its asset. The file need not exist on disk.
func (a *IVCSApp) resolveAsset(projectName, rawPath string) (*sqlc.Asset, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	// Directories are stored by real path.
	if parent, err := filepath.EvalSymlinks(filepath.Dir(absPath)); err == nil {
		absPath = filepath.Join(parent, filepath.Base(absPath))
	}
	var projectID string
	if projectName != "" {
		p, err := a.project(projectName)
		if err != nil {
			return nil, err
		}
		projectID = p.ID
	}
	return a.service.ResolveAsset(projectID, absPath)
}

// Checkout takes the exclusive edit lock on the asset at rawPath.
func (a *IVCSApp) Checkout(ctx context.Context, projectName, rawPath string) error {
	if err := a.persistOperation(rawPath, a.user); err != nil {
		return err
	}
	asset, err := a.resolveAsset(projectName, rawPath)
	if err != nil {
		return a.track(err)
	}
	return a.track(a.service.Checkout(ctx, asset.ID, a.user))
}

// Checkin releases the acting user's checkout of the asset at rawPath.
func (a *IVCSApp) Checkin(ctx context.Context, projectName, rawPath string) error {
	if err := a.persistOperation(rawPath, a.user); err != nil {
		return err
	}
	asset, err := a.resolveAsset(projectName, rawPath)
	if err != nil {
		return a.track(err)
	}
	return a.track(a.service.Checkin(ctx, asset.ID, a.user))
}

// Commit stores the current content of the asset at rawPath as a new version.
func (a *IVCSApp) Commit(ctx context.Context, projectName, rawPath, message string) (*sqlc.Version, error) {
	if err := a.persistOperation(rawPath, a.user); err != nil {
		return nil, err
	}
	asset, err := a.resolveAsset(projectName, rawPath)
	if err != nil {
		return nil, a.track(err)
	}
	v, err := a.service.Commit(ctx, asset.ID, a.user, message)
	return v, a.track(err)
}

// Log returns the versions of the asset at rawPath, oldest first.
func (a *IVCSApp) Log(projectName, rawPath string) ([]*sqlc.Version, error) {
	asset, err := a.resolveAsset(projectName, rawPath)
	if err != nil {
		return nil, err
	}
	return a.service.ListVersions(asset.ID)
}

// Restore writes the content of a version to w.
func (a *IVCSApp) Restore(ctx context.Context, versionID string, w io.Writer) error {
	return a.service.RestoreVersion(ctx, versionID, w)
}

// RestoreToFile writes a version to path via a temp file and rename, so an
// interrupted restore never leaves a truncated file behind.
func (a *IVCSApp) RestoreToFile(ctx context.Context, versionID, path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".ivcs-restore-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := a.Restore(ctx, versionID, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming restored file: %w", err)
	}
	return nil
}

// CollectGarbage deletes stored content no version references.
func (a *IVCSApp) CollectGarbage(ctx context.Context) (*ivcs.GCResult, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	result, err := a.service.CollectGarbage(ctx)
	return result, a.track(err)
}

// History returns the most recent recorded operations.
func (a *IVCSApp) History(limit int) ([]*sqlc.Operation, error) {
	return a.service.GetHistory(limit)
}

// Watch rescans the project on filesystem changes and on the configured
// interval until ctx is cancelled.
func (a *IVCSApp) Watch(ctx context.Context, projectName string, onReport func(*ivcs.ScanReport)) error {
	if err := a.persistOperation(projectName); err != nil {
		return err
	}
	p, err := a.project(projectName)
	if err != nil {
		return a.track(err)
	}
	dirs, err := a.service.ListDirectories(p.ID)
	if err != nil {
		return a.track(err)
	}
	interval, debounce, err := a.cfg.WatchIntervals()
	if err != nil {
		return a.track(err)
	}

	target := watch.Target{ProjectID: p.ID, Extensions: a.service.Settings().Extensions}
	for _, d := range dirs {
		target.Dirs = append(target.Dirs, d.Path)
	}
	w, err := watch.New(a.service, target, watch.Options{
		Interval: interval,
		Debounce: debounce,
		OnReport: onReport,
		Logger:   &slogAdapter{l: a.logger.With("component", "watch")},
	})
	if err != nil {
		return a.track(err)
	}
	return a.track(w.Run(ctx))
}

func (a *IVCSApp) directoryPaths(projectID string) (map[string]string, error) {
	dirs, err := a.service.ListDirectories(projectID)
	if err != nil {
		return nil, err
	}
	paths := make(map[string]string, len(dirs))
	for _, d := range dirs {
		paths[d.ID] = d.Path
	}
	return paths, nil
}

func (a *IVCSApp) assetPaths(projectID string) (map[string]string, error) {
	dirs, err := a.directoryPaths(projectID)
	if err != nil {
		return nil, err
	}
	assets, err := a.service.ListAssets(projectID)
	if err != nil {
		return nil, err
	}
	paths := make(map[string]string, len(assets))
	for _, asset := range assets {
		paths[asset.ID] = filepath.Join(dirs[asset.DirectoryID], asset.RelativePath)
	}
	return paths, nil
}

// Close finalizes the operation and closes all resources.
// Persisted operations get their finish time and status recorded first.
func (a *IVCSApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.db.FinishOperation(a.dbOp, a.op.Status, time.Now().UTC()); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}

	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
