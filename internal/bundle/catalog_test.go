package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/luadoc-gen/internal/generator"
)

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	modules := []generator.ModuleDoc{sampleModule("Table"), sampleModule("Signal")}
	res, err := NewEmitter(dir).Emit(modules)
	require.NoError(t, err)

	catalog, err := LoadCatalog(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.Len())
	assert.Equal(t, res.Manifest.Entries, catalog.Entries())

	for _, m := range modules {
		doc, ok := catalog.ByName(m.Name)
		require.True(t, ok)
		if diff := cmp.Diff(m, doc); diff != "" {
			t.Errorf("ByName(%s) mismatch (-want +got):\n%s", m.Name, diff)
		}
	}

	for _, id := range catalog.IDs() {
		entry, ok := res.Manifest.Lookup(id)
		require.True(t, ok)
		doc, ok := catalog.Lookup(id)
		require.True(t, ok)
		assert.Equal(t, entry.Name, doc.Name)
	}

	_, ok := catalog.Lookup("ffffffff")
	assert.False(t, ok)
	_, ok = catalog.ByName("Missing")
	assert.False(t, ok)
}

func TestCatalogFromRenderMatchesLoad(t *testing.T) {
	dir := t.TempDir()
	modules := []generator.ModuleDoc{sampleModule("Table"), sampleModule("Signal")}
	_, err := NewEmitter(dir).Emit(modules)
	require.NoError(t, err)

	loaded, err := LoadCatalog(dir)
	require.NoError(t, err)

	_, manifest, err := Render(DefaultNamespace, modules)
	require.NoError(t, err)
	rendered := CatalogFromRender(modules, manifest)

	assert.Equal(t, loaded.IDs(), rendered.IDs())
	for _, id := range loaded.IDs() {
		a, _ := loaded.Lookup(id)
		b, _ := rendered.Lookup(id)
		assert.Equal(t, a, b)
	}
}

func TestLoadCatalogMissingAsset(t *testing.T) {
	dir := t.TempDir()
	res, err := NewEmitter(dir).Emit([]generator.ModuleDoc{sampleModule("Table")})
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, res.Written[0])))

	_, err = LoadCatalog(dir)
	require.Error(t, err)
	assert.True(t, generator.IsIOError(err))
}

func TestNewCatalogSkipsEntriesWithoutDocs(t *testing.T) {
	manifest := Manifest{
		Namespace: DefaultNamespace,
		Entries: []ManifestEntry{
			{ID: "bbbbbbbb", Name: "B"},
			{ID: "aaaaaaaa", Name: "A"},
		},
	}
	catalog := NewCatalog(manifest, map[string]generator.ModuleDoc{"bbbbbbbb": sampleModule("B")})

	assert.Equal(t, []string{"bbbbbbbb"}, catalog.IDs())
	assert.Equal(t, 1, catalog.Len())
	_, ok := catalog.ByName("A")
	assert.False(t, ok)
}
