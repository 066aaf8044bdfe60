package bundle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/example/luadoc-gen/internal/generator"
)

// ManifestFile is the name of the manifest written next to the assets.
const ManifestFile = "manifest.json"

// Manifest maps documentation ids to the assets of one build.
type Manifest struct {
	Namespace string          `json:"namespace" validate:"required"`
	Entries   []ManifestEntry `json:"entries" validate:"dive"`
}

// ManifestEntry describes one emitted asset.
type ManifestEntry struct {
	ID     string `json:"id" validate:"required,len=8,hexadecimal"`
	Name   string `json:"name" validate:"required"`
	File   string `json:"file" validate:"required"`
	Hash   string `json:"hash" validate:"required,len=8,hexadecimal"`
	Chunk  int    `json:"chunk" validate:"gte=0"`
	Module int    `json:"module" validate:"gte=0"`
}

// Lookup returns the entry with the given id.
func (m *Manifest) Lookup(id string) (ManifestEntry, bool) {
	i := sort.Search(len(m.Entries), func(i int) bool { return m.Entries[i].ID >= id })
	if i < len(m.Entries) && m.Entries[i].ID == id {
		return m.Entries[i], true
	}
	return ManifestEntry{}, false
}

func (m *Manifest) sortEntries() {
	sort.Slice(m.Entries, func(i, j int) bool {
		return m.Entries[i].ID < m.Entries[j].ID
	})
}

func encodeManifest(m Manifest) ([]byte, error) {
	if m.Entries == nil {
		m.Entries = []ManifestEntry{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadManifest loads the manifest of a bundle directory.
func ReadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &generator.IOError{Path: path, Err: err}
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	m.sortEntries()
	return &m, nil
}
