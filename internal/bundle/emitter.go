package bundle

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/example/luadoc-gen/internal/generator"
)

const (
	chunkSpace  = 1000
	moduleSpace = 100000
)

var assetFilePattern = regexp.MustCompile(`^[0-9a-f]{8}\.[0-9a-f]{8}\.js$`)

// IsAssetFile reports whether name is a bare asset file name.
func IsAssetFile(name string) bool {
	return filepath.Base(name) == name && assetFilePattern.MatchString(name)
}

// RenderedAsset is an asset body with its manifest entry.
type RenderedAsset struct {
	Entry ManifestEntry
	Data  []byte
}

// Result summarises one Emit call.
type Result struct {
	Manifest  Manifest
	Written   []string // files created or changed
	Unchanged []string
	Removed   []string // stale files of the previous build
	Bytes     int64
}

// Emitter writes documentation bundles to an output directory.
type Emitter struct {
	dir       string
	namespace string
	logger    *zap.Logger
}

// NewEmitter creates an emitter writing to dir.
func NewEmitter(dir string) *Emitter {
	return &Emitter{
		dir:       dir,
		namespace: DefaultNamespace,
		logger:    zap.NewNop(),
	}
}

// SetNamespace sets the loader chunk namespace.
func (e *Emitter) SetNamespace(ns string) {
	if ns != "" {
		e.namespace = ns
	}
}

// SetLogger sets the logger used to report written files.
func (e *Emitter) SetLogger(logger *zap.Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// Render serialises modules into assets without touching the filesystem.
// The output only depends on the input: identical modules always render to
// identical bytes.
func Render(namespace string, modules []generator.ModuleDoc) ([]RenderedAsset, Manifest, error) {
	manifest := Manifest{Namespace: namespace}

	sorted := make([]generator.ModuleDoc, len(modules))
	copy(sorted, modules)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	ids := make(map[string]string, len(sorted))
	chunks := make(map[int]bool, len(sorted))
	moduleIDs := make(map[int]bool, len(sorted))
	assets := make([]RenderedAsset, 0, len(sorted))

	for _, doc := range sorted {
		if doc.Name == "" {
			return nil, manifest, errors.New("module without a name")
		}
		sum := xxhash.Sum64String(doc.Name)
		id := hex8(sum)
		if prev, dup := ids[id]; dup {
			if prev == doc.Name {
				return nil, manifest, fmt.Errorf("module %s is emitted twice", doc.Name)
			}
			return nil, manifest, fmt.Errorf("bundle id %s is shared by %s and %s", id, prev, doc.Name)
		}
		ids[id] = doc.Name

		chunk := probe(chunks, int((sum>>32)%chunkSpace))
		module := probe(moduleIDs, int(sum%moduleSpace))

		data, err := EncodeAsset(namespace, chunk, module, doc)
		if err != nil {
			return nil, manifest, err
		}
		hash := ContentHash(id, data)
		entry := ManifestEntry{
			ID:     id,
			Name:   doc.Name,
			File:   id + "." + hash + ".js",
			Hash:   hash,
			Chunk:  chunk,
			Module: module,
		}
		manifest.Entries = append(manifest.Entries, entry)
		assets = append(assets, RenderedAsset{Entry: entry, Data: data})
	}
	manifest.sortEntries()
	return assets, manifest, nil
}

// Emit writes one asset per module plus the manifest. Files of the previous
// build that are not part of this one are removed.
func (e *Emitter) Emit(modules []generator.ModuleDoc) (*Result, error) {
	assets, manifest, err := Render(e.namespace, modules)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, &generator.IOError{Path: e.dir, Err: err}
	}

	var previous *Manifest
	if _, err := os.Stat(filepath.Join(e.dir, ManifestFile)); err == nil {
		if previous, err = ReadManifest(e.dir); err != nil {
			e.logger.Warn("ignoring unreadable previous manifest", zap.Error(err))
			previous = nil
		}
	}

	res := &Result{Manifest: manifest}
	current := make(map[string]bool, len(assets))
	for _, a := range assets {
		current[a.Entry.File] = true
		res.Bytes += int64(len(a.Data))
		changed, err := writeIfChanged(filepath.Join(e.dir, a.Entry.File), a.Data)
		if err != nil {
			return nil, err
		}
		if changed {
			res.Written = append(res.Written, a.Entry.File)
			e.logger.Debug("wrote asset", zap.String("file", a.Entry.File), zap.String("module", a.Entry.Name))
		} else {
			res.Unchanged = append(res.Unchanged, a.Entry.File)
		}
	}

	if previous != nil {
		for _, old := range previous.Entries {
			if current[old.File] {
				continue
			}
			if !IsAssetFile(old.File) {
				e.logger.Warn("not removing unexpected manifest file", zap.String("file", old.File))
				continue
			}
			path := filepath.Join(e.dir, old.File)
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return nil, &generator.IOError{Path: path, Err: err}
			}
			res.Removed = append(res.Removed, old.File)
			e.logger.Debug("removed stale asset", zap.String("file", old.File))
		}
	}

	data, err := encodeManifest(manifest)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if _, err := writeIfChanged(filepath.Join(e.dir, ManifestFile), data); err != nil {
		return nil, err
	}
	return res, nil
}

// writeIfChanged replaces path with data through a temporary file unless
// it already holds exactly data.
func writeIfChanged(path string, data []byte) (bool, error) {
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, data) {
		return false, nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return false, &generator.IOError{Path: path, Err: err}
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return false, &generator.IOError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return false, &generator.IOError{Path: path, Err: err}
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return false, &generator.IOError{Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return false, &generator.IOError{Path: path, Err: err}
	}
	return true, nil
}

// ContentHash fingerprints an asset body keyed by its bundle id.
func ContentHash(id string, data []byte) string {
	d := xxhash.New()
	_, _ = d.WriteString(id)
	_, _ = d.Write(data)
	return hex8(d.Sum64())
}

func hex8(v uint64) string {
	return fmt.Sprintf("%016x", v)[:8]
}

func probe(used map[int]bool, start int) int {
	n := start
	for used[n] {
		n++
	}
	used[n] = true
	return n
}
