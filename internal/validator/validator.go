// Package validator checks documentation records and emitted bundles.
package validator

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	playground "github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"

	"github.com/example/luadoc-gen/internal/bundle"
	"github.com/example/luadoc-gen/internal/generator"
)

var validate = playground.New(playground.WithRequiredStructEnabled())

// ValidateModules checks struct constraints and per-category name
// uniqueness of every module. All problems are reported together.
func ValidateModules(docs []generator.ModuleDoc) error {
	var result *multierror.Error
	names := make(map[string]bool, len(docs))
	for _, doc := range docs {
		if names[doc.Name] {
			result = multierror.Append(result, fmt.Errorf("module %s: declared more than once", doc.Name))
		}
		names[doc.Name] = true
		if err := ValidateModule(doc); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// ValidateModule checks one ModuleDoc.
func ValidateModule(doc generator.ModuleDoc) error {
	var result *multierror.Error

	if err := validate.Struct(doc); err != nil {
		var verrs playground.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				result = multierror.Append(result, fmt.Errorf("module %s: %s fails %q", doc.Name, fe.Namespace(), fe.Tag()))
			}
		} else {
			result = multierror.Append(result, fmt.Errorf("module %s: %w", doc.Name, err))
		}
	}

	checkUnique := func(category string, names []string) {
		seen := make(map[string]bool, len(names))
		for _, n := range names {
			if seen[n] {
				result = multierror.Append(result, fmt.Errorf("module %s: duplicate %s %s", doc.Name, category, n))
			}
			seen[n] = true
		}
	}

	fns := make([]string, len(doc.Functions))
	for i, f := range doc.Functions {
		fns[i] = f.Name
	}
	props := make([]string, len(doc.Properties))
	for i, p := range doc.Properties {
		props[i] = p.Name
	}
	types := make([]string, len(doc.Types))
	for i, t := range doc.Types {
		types[i] = t.Name
	}
	checkUnique("function", fns)
	checkUnique("property", props)
	checkUnique("type", types)

	return result.ErrorOrNil()
}

// ValidateBundleDir validates a bundle directory: the manifest, the file
// name and content hash of every asset, and the records inside them.
// Progress is written to out.
func ValidateBundleDir(dir string, out io.Writer) error {
	manifest, err := bundle.ReadManifest(dir)
	if err != nil {
		return err
	}
	if err := validate.Struct(manifest); err != nil {
		return fmt.Errorf("manifest validation failed: %w", err)
	}
	fmt.Fprintln(out, "✓ Manifest is valid")
	fmt.Fprintf(out, "✓ Found %d bundles\n", len(manifest.Entries))

	var result *multierror.Error
	docs := make([]generator.ModuleDoc, 0, len(manifest.Entries))
	for _, e := range manifest.Entries {
		doc, err := validateEntry(dir, manifest.Namespace, e)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("bundle %s: %w", e.File, err))
			continue
		}
		docs = append(docs, doc)
	}
	if err := ValidateModules(docs); err != nil {
		result = multierror.Append(result, err)
	}
	if err := checkStrayAssets(dir, manifest); err != nil {
		result = multierror.Append(result, err)
	}

	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	fmt.Fprintln(out, "\n✅ Bundle validation passed!")
	return nil
}

func validateEntry(dir, namespace string, e bundle.ManifestEntry) (generator.ModuleDoc, error) {
	if want := e.ID + "." + e.Hash + ".js"; e.File != want {
		return generator.ModuleDoc{}, fmt.Errorf("file name %s does not match id and hash (want %s)", e.File, want)
	}
	path := filepath.Join(dir, e.File)
	data, err := os.ReadFile(path)
	if err != nil {
		return generator.ModuleDoc{}, &generator.IOError{Path: path, Err: err}
	}
	if got := bundle.ContentHash(e.ID, data); got != e.Hash {
		return generator.ModuleDoc{}, fmt.Errorf("content hash is %s, manifest says %s", got, e.Hash)
	}
	asset, err := bundle.DecodeAsset(data)
	if err != nil {
		return generator.ModuleDoc{}, err
	}
	switch {
	case asset.Namespace != namespace:
		return asset.Doc, fmt.Errorf("namespace %s, manifest says %s", asset.Namespace, namespace)
	case asset.Chunk != e.Chunk || asset.Module != e.Module:
		return asset.Doc, fmt.Errorf("loader ids %d/%d, manifest says %d/%d", asset.Chunk, asset.Module, e.Chunk, e.Module)
	case asset.Doc.Name != e.Name:
		return asset.Doc, fmt.Errorf("module %s, manifest says %s", asset.Doc.Name, e.Name)
	}
	return asset.Doc, nil
}

// checkStrayAssets reports .js files that the manifest does not list.
func checkStrayAssets(dir string, manifest *bundle.Manifest) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &generator.IOError{Path: dir, Err: err}
	}
	listed := make(map[string]bool, len(manifest.Entries))
	for _, e := range manifest.Entries {
		listed[e.File] = true
	}
	var stray []string
	for _, de := range entries {
		if !de.IsDir() && strings.HasSuffix(de.Name(), ".js") && !listed[de.Name()] {
			stray = append(stray, de.Name())
		}
	}
	if len(stray) > 0 {
		return fmt.Errorf("assets not listed in the manifest: %s", strings.Join(stray, ", "))
	}
	return nil
}
