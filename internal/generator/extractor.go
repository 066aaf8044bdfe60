package generator

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// sourceFile holds the doc comments of one Lua file.
type sourceFile struct {
	Path        string // repository-relative, slash separated
	Blocks      []commentBlock
	OutsideRoot bool // Path could not be made relative to the root
}

// Extractor reads Lua sources and collects their doc comments.
type Extractor struct {
	root    string
	files   map[string]sourceFile // relative path -> file
	workers int
}

// NewExtractor creates an extractor whose source paths are reported
// relative to root.
func NewExtractor(root string) *Extractor {
	if root == "" {
		root = "."
	}
	return &Extractor{
		root:    root,
		files:   make(map[string]sourceFile),
		workers: 8,
	}
}

// SetWorkers bounds the number of files read concurrently.
func (e *Extractor) SetWorkers(n int) {
	if n > 0 {
		e.workers = n
	}
}

// ParseDirectory parses every Lua file under dir, recursively.
// Hidden directories and package folders are skipped.
func (e *Extractor) ParseDirectory(ctx context.Context, dir string) error {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return &IOError{Path: path, Err: err}
		}
		if de.IsDir() {
			if path != dir && skipDirectory(de.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if isLuaFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return e.ParseFiles(ctx, paths)
}

// ParseFiles reads and scans the given files. Files are read concurrently;
// the first read failure aborts the whole batch.
func (e *Extractor) ParseFiles(ctx context.Context, paths []string) error {
	results := make([]sourceFile, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(path)
			if err != nil {
				return &IOError{Path: path, Err: err}
			}
			rel, ok := e.relativePath(path)
			results[i] = sourceFile{
				Path:        rel,
				Blocks:      scanDocComments(src),
				OutsideRoot: !ok,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, f := range results {
		e.files[f.Path] = f
	}
	return nil
}

// Files returns the parsed files in lexical path order.
func (e *Extractor) Files() []sourceFile {
	files := make([]sourceFile, 0, len(e.files))
	for _, f := range e.files {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files
}

// Reset forgets every parsed file.
func (e *Extractor) Reset() {
	e.files = make(map[string]sourceFile)
}

// relativePath reports path relative to the root. A path outside the root
// is returned cleaned, with ok false.
func (e *Extractor) relativePath(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err == nil {
		if absRoot, err := filepath.Abs(e.root); err == nil {
			rel, err := filepath.Rel(absRoot, abs)
			if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				return filepath.ToSlash(rel), true
			}
		}
	}
	return filepath.ToSlash(filepath.Clean(path)), false
}

func isLuaFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".lua" || ext == ".luau"
}

func skipDirectory(name string) bool {
	switch name {
	case "node_modules", "Packages", "DevPackages", "ServerPackages":
		return true
	}
	return strings.HasPrefix(name, ".")
}
