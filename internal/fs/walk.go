package fs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"ivcs-go/internal/ivcs"
)

// WalkSummary describes the directories a walk went through.
type WalkSummary struct {
	Directories []string
	SkippedDirs []string
	Warnings    []ivcs.ScanWarning
}

// Scan enumerates matching files under root. See Walk for ordering and
// error semantics.
func (m *OSFilesystemManager) Scan(ctx context.Context, root string, extensions []string) (*ivcs.ScanResult, error) {
	result := &ivcs.ScanResult{Root: root}
	summary, err := m.Walk(ctx, root, extensions, func(f ivcs.ScannedFile) error {
		result.Files = append(result.Files, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Directories = summary.Directories
	result.SkippedDirs = summary.SkippedDirs
	result.Warnings = summary.Warnings
	return result, nil
}

// Walk calls fn for every regular file under root whose extension is in
// extensions, in depth-first order with each directory's entries sorted by
// name. Extensions are matched case-sensitively including the leading dot;
// an empty list matches every file.
//
// Symlinks are followed. A directory already visited through another path
// is not entered again, so link cycles terminate. A root that is missing,
// unreadable or not a directory returns *ivcs.ScanError. An unreadable
// subdirectory is skipped and reported in the summary. An error from fn
// stops the walk and is returned as is.
func (m *OSFilesystemManager) Walk(ctx context.Context, root string, extensions []string, fn func(ivcs.ScannedFile) error) (*WalkSummary, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &ivcs.ScanError{Root: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &ivcs.ScanError{Root: root, Err: fmt.Errorf("not a directory")}
	}

	matcher, err := m.matcherFor(root)
	if err != nil {
		return nil, &ivcs.ScanError{Root: root, Err: err}
	}

	w := &walker{
		ctx:     ctx,
		root:    root,
		matcher: matcher,
		allowed: extensionSet(extensions),
		visited: make(map[dirKey]bool),
		fn:      fn,
		summary: &WalkSummary{},
	}
	if key, err := identify(root, info); err == nil {
		w.visited[key] = true
	}
	if err := w.walkDir(root, ""); err != nil {
		return nil, err
	}
	return w.summary, nil
}

type walker struct {
	ctx     context.Context
	root    string
	matcher *IgnoreMatcher
	allowed map[string]bool
	visited map[dirKey]bool
	fn      func(ivcs.ScannedFile) error
	summary *WalkSummary
}

func (w *walker) walkDir(absDir, relDir string) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		if relDir == "" {
			return &ivcs.ScanError{Root: w.root, Err: err}
		}
		w.summary.SkippedDirs = append(w.summary.SkippedDirs, relDir)
		w.summary.Warnings = append(w.summary.Warnings, ivcs.ScanWarning{Path: absDir, Err: err})
		return nil
	}

	for _, e := range entries {
		absPath := filepath.Join(absDir, e.Name())
		relPath := filepath.Join(relDir, e.Name())
		if w.matcher.Match(relPath) {
			continue
		}

		mode := e.Type()
		var info fs.FileInfo
		if mode&fs.ModeSymlink != 0 || mode.IsDir() {
			info, err = os.Stat(absPath)
			if err != nil {
				// Dangling link, or the entry vanished mid-walk.
				continue
			}
			mode = info.Mode().Type()
		}

		switch {
		case mode.IsDir():
			key, err := identify(absPath, info)
			if err != nil {
				w.summary.SkippedDirs = append(w.summary.SkippedDirs, relPath)
				w.summary.Warnings = append(w.summary.Warnings, ivcs.ScanWarning{Path: absPath, Err: err})
				continue
			}
			if w.visited[key] {
				continue
			}
			w.visited[key] = true
			w.summary.Directories = append(w.summary.Directories, relPath)
			if err := w.walkDir(absPath, relPath); err != nil {
				return err
			}
		case mode.IsRegular():
			ext := filepath.Ext(e.Name())
			if w.allowed != nil && !w.allowed[ext] {
				continue
			}
			if err := w.fn(ivcs.ScannedFile{AbsPath: absPath, RelativePath: relPath, Extension: ext}); err != nil {
				return err
			}
		}
	}
	return nil
}

func extensionSet(extensions []string) map[string]bool {
	if len(extensions) == 0 {
		return nil
	}
	set := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		set[e] = true
	}
	return set
}
