package bundle

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/luadoc-gen/internal/generator"
)

// Catalog is an explicit mapping from documentation id to ModuleDoc. It is
// built once and handed to whatever renders the documentation.
type Catalog struct {
	manifest Manifest
	docs     map[string]generator.ModuleDoc // id -> doc
	byName   map[string]string              // name -> id
}

// NewCatalog builds a catalog from a manifest and the decoded documents,
// keyed by manifest id.
func NewCatalog(manifest Manifest, docs map[string]generator.ModuleDoc) *Catalog {
	manifest.sortEntries()
	c := &Catalog{
		manifest: manifest,
		docs:     make(map[string]generator.ModuleDoc, len(docs)),
		byName:   make(map[string]string, len(docs)),
	}
	for _, e := range manifest.Entries {
		doc, ok := docs[e.ID]
		if !ok {
			continue
		}
		c.docs[e.ID] = doc
		c.byName[e.Name] = e.ID
	}
	return c
}

// CatalogFromRender builds a catalog straight from rendered assets without
// reading the filesystem.
func CatalogFromRender(modules []generator.ModuleDoc, manifest Manifest) *Catalog {
	byName := make(map[string]generator.ModuleDoc, len(modules))
	for _, m := range modules {
		byName[m.Name] = m
	}
	docs := make(map[string]generator.ModuleDoc, len(manifest.Entries))
	for _, e := range manifest.Entries {
		if m, ok := byName[e.Name]; ok {
			docs[e.ID] = m
		}
	}
	return NewCatalog(manifest, docs)
}

// LoadCatalog reads the manifest of dir and decodes every asset it lists.
func LoadCatalog(dir string) (*Catalog, error) {
	manifest, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	docs := make(map[string]generator.ModuleDoc, len(manifest.Entries))
	for _, e := range manifest.Entries {
		asset, err := ReadAsset(filepath.Join(dir, e.File))
		if err != nil {
			return nil, err
		}
		docs[e.ID] = asset.Doc
	}
	return NewCatalog(*manifest, docs), nil
}

// ReadAsset reads and decodes one asset file.
func ReadAsset(path string) (Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Asset{}, &generator.IOError{Path: path, Err: err}
	}
	asset, err := DecodeAsset(data)
	if err != nil {
		return Asset{}, fmt.Errorf("%s: %w", path, err)
	}
	return asset, nil
}

// Lookup returns the document with the given id.
func (c *Catalog) Lookup(id string) (generator.ModuleDoc, bool) {
	doc, ok := c.docs[id]
	return doc, ok
}

// ByName returns the document of the named module.
func (c *Catalog) ByName(name string) (generator.ModuleDoc, bool) {
	id, ok := c.byName[name]
	if !ok {
		return generator.ModuleDoc{}, false
	}
	return c.Lookup(id)
}

// IDs returns the documentation ids in ascending order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.docs))
	for _, e := range c.manifest.Entries {
		if _, ok := c.docs[e.ID]; ok {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// Entries returns the manifest entries backing the catalog.
func (c *Catalog) Entries() []ManifestEntry {
	return c.manifest.Entries
}

// Len returns the number of documents.
func (c *Catalog) Len() int {
	return len(c.docs)
}
