package ivcs

import (
	"fmt"
	"path/filepath"
	"strings"

	"ivcs-go/internal/database/sqlc"
)

// IVCSService is the orchestration layer: it coordinates the scanner,
// fingerprinter, change detector, version store and checkout records to
// perform the operations the CLI exposes.
type IVCSService struct {
	database Database
	store    VersionStore
	fsmgr    FilesystemManager
	settings Settings
	logger   Logger
	clock    Clock
	idgen    IDGenerator
}

// NewIVCSService creates a new IVCSService with the provided dependencies.
func NewIVCSService(database Database, store VersionStore, fsmgr FilesystemManager, settings Settings, logger Logger, clock Clock, idgen IDGenerator) *IVCSService {
	return &IVCSService{
		database: database,
		store:    store,
		fsmgr:    fsmgr,
		settings: settings,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
	}
}

// Settings returns the tracking configuration the service was built with.
func (s *IVCSService) Settings() Settings { return s.settings }

// CreateProject registers a new project. Names are unique.
func (s *IVCSService) CreateProject(name string) (*sqlc.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("project name must not be empty")
	}

	existing, err := s.database.FindProjectByName(name)
	if err != nil {
		return nil, fmt.Errorf("checking for existing project: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("project already exists: %s", name)
	}

	project := &sqlc.Project{
		ID:        s.idgen.New(),
		Name:      name,
		CreatedAt: s.clock.Now(),
	}
	if err := s.database.CreateProject(project); err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}

	s.logger.Info("project created", "project", name, "id", project.ID)
	return project, nil
}

// FindProject looks a project up by name.
func (s *IVCSService) FindProject(name string) (*sqlc.Project, error) {
	project, err := s.database.FindProjectByName(name)
	if err != nil {
		return nil, fmt.Errorf("finding project: %w", err)
	}
	if project == nil {
		return nil, &NotFoundError{Kind: "project", Key: name}
	}
	return project, nil
}

func (s *IVCSService) ListProjects() ([]*sqlc.Project, error) {
	projects, err := s.database.ListProjects()
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// DeleteProject removes a project with its directories, assets, changelist,
// versions and checkouts. Stored blobs stay until the next garbage collection.
func (s *IVCSService) DeleteProject(projectID string) error {
	project, err := s.project(projectID)
	if err != nil {
		return err
	}
	if err := s.database.DeleteProject(project); err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	s.logger.Info("project deleted", "project", project.Name, "id", project.ID)
	return nil
}

// AddProjectDirectory registers a working directory for a project and returns
// the new directory's id. A directory equal to, inside, or containing one
// already registered for the project is rejected with ErrDirectoryOverlap.
func (s *IVCSService) AddProjectDirectory(projectID string, path *Path) (string, error) {
	if !path.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", path.String())
	}

	project, err := s.project(projectID)
	if err != nil {
		return "", err
	}

	existing, err := s.database.FindDirectoriesByProject(project)
	if err != nil {
		return "", fmt.Errorf("listing project directories: %w", err)
	}
	for _, d := range existing {
		if overlaps(d.Path, path.String()) {
			return "", fmt.Errorf("%w: %s overlaps %s", ErrDirectoryOverlap, path.String(), d.Path)
		}
	}

	directory := &sqlc.Directory{
		ID:        s.idgen.New(),
		ProjectID: project.ID,
		Path:      path.String(),
		CreatedAt: s.clock.Now(),
	}
	if err := s.database.CreateDirectory(directory); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}

	s.logger.Info("directory tracked", "project", project.Name, "path", directory.Path)
	return directory.ID, nil
}

func (s *IVCSService) ListDirectories(projectID string) ([]*sqlc.Directory, error) {
	project, err := s.project(projectID)
	if err != nil {
		return nil, err
	}
	dirs, err := s.database.FindDirectoriesByProject(project)
	if err != nil {
		return nil, fmt.Errorf("listing directories: %w", err)
	}
	return dirs, nil
}

// ResolveAsset finds the asset recorded for an absolute file path. When
// projectID is empty the path must fall inside exactly one project.
func (s *IVCSService) ResolveAsset(projectID string, absPath string) (*sqlc.Asset, error) {
	dirs, err := s.database.FindDirectoriesContainingPath(absPath)
	if err != nil {
		return nil, fmt.Errorf("searching for directory: %w", err)
	}

	var matches []*sqlc.Directory
	for _, d := range dirs {
		if projectID == "" || d.ProjectID == projectID {
			matches = append(matches, d)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("path is not within a tracked directory: %s", absPath)
	case 1:
	default:
		return nil, fmt.Errorf("path is tracked by %d projects, specify one: %s", len(matches), absPath)
	}

	directory := matches[0]
	rel, err := filepath.Rel(directory.Path, absPath)
	if err != nil {
		return nil, fmt.Errorf("calculating relative path: %w", err)
	}
	asset, err := s.database.FindAssetByPath(directory, rel)
	if err != nil {
		return nil, fmt.Errorf("finding asset: %w", err)
	}
	if asset == nil {
		return nil, &NotFoundError{Kind: "asset", Key: absPath}
	}
	return asset, nil
}

// ListAssets returns every asset recorded for a project, present or not.
func (s *IVCSService) ListAssets(projectID string) ([]*sqlc.Asset, error) {
	project, err := s.project(projectID)
	if err != nil {
		return nil, err
	}
	assets, err := s.database.FindAssetsByProject(project)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	return assets, nil
}

// ListChangelist returns the project's most recent changelist entries in
// insertion order. A limit of zero returns them all.
func (s *IVCSService) ListChangelist(projectID string, limit int) ([]*sqlc.ChangelistEntry, error) {
	project, err := s.project(projectID)
	if err != nil {
		return nil, err
	}
	entries, err := s.database.FindChangelistByProject(project, limit)
	if err != nil {
		return nil, fmt.Errorf("listing changelist: %w", err)
	}
	return entries, nil
}

func (s *IVCSService) project(id string) (*sqlc.Project, error) {
	project, err := s.database.FindProjectByID(id)
	if err != nil {
		return nil, fmt.Errorf("finding project: %w", err)
	}
	if project == nil {
		return nil, &NotFoundError{Kind: "project", Key: id}
	}
	return project, nil
}

func (s *IVCSService) asset(id string) (*sqlc.Asset, error) {
	asset, err := s.database.FindAssetByID(id)
	if err != nil {
		return nil, fmt.Errorf("finding asset: %w", err)
	}
	if asset == nil {
		return nil, &NotFoundError{Kind: "asset", Key: id}
	}
	return asset, nil
}

// overlaps reports whether one directory path equals or contains the other.
func overlaps(a, b string) bool {
	if a == b {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(b, strings.TrimSuffix(a, sep)+sep) ||
		strings.HasPrefix(a, strings.TrimSuffix(b, sep)+sep)
}
