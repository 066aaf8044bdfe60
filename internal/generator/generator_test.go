package generator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// generateSources writes the given files into a temporary root and runs a
// full generation over it.
func generateSources(t *testing.T, files map[string]string) (*Generator, []ModuleDoc) {
	t.Helper()

	dir := t.TempDir()
	for name, src := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}

	gen := New(dir)
	require.NoError(t, gen.ParseDirectories(context.Background(), []string{dir}))
	return gen, gen.Generate()
}

func TestGenerateLengthFunction(t *testing.T) {
	gen, modules := generateSources(t, map[string]string{
		"Table.lua": `--[=[
	@class Table

	Table utilities.
]=]
local Table = {}

--[=[
	Returns the true length of a table.

	@param TableToCheck GenericTable -- The table to check.
	@return number -- The length of the table.
]=]
function Table.Length(TableToCheck)
	return #TableToCheck
end

return Table
`,
	})

	expected := []ModuleDoc{{
		Functions: []DocItem{{
			Name:         "Length",
			Desc:         "Returns the true length of a table.",
			Params:       []Param{{Name: "TableToCheck", Desc: "The table to check.", LuaType: "GenericTable"}},
			Returns:      []ReturnSpec{{Desc: "The length of the table.", LuaType: "number"}},
			FunctionType: FunctionStatic,
			Source:       Source{Line: 13, Path: "Table.lua"},
		}},
		Properties: []PropertyDoc{},
		Types:      []TypeDef{},
		Name:       "Table",
		Desc:       "Table utilities.",
		Source:     Source{Line: 5, Path: "Table.lua"},
	}}
	if diff := cmp.Diff(expected, modules); diff != "" {
		t.Errorf("Generate() mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, gen.Diagnostics(), 1)
	d := gen.Diagnostics()[0]
	assert.Equal(t, UnresolvedTypeReference, d.Kind)
	assert.Equal(t, "Table.lua", d.Path)
	assert.Equal(t, 13, d.Line)
	assert.Contains(t, d.Message, "GenericTable")
}

func TestGenerateSignalModule(t *testing.T) {
	gen := New("testdata/signal")
	require.NoError(t, gen.ParseDirectories(context.Background(), []string{"testdata/signal"}))
	modules := gen.Generate()

	expected := []ModuleDoc{{
		Functions: []DocItem{
			{
				Name:         "new",
				Desc:         "Creates a new signal.",
				Params:       []Param{},
				Returns:      []ReturnSpec{{LuaType: "Signal"}},
				FunctionType: FunctionStatic,
				Since:        "1.2.0",
				Source:       Source{Line: 34, Path: "Signal.luau"},
			},
			{
				Name:         "Connect",
				Desc:         "Connects a handler.",
				Params:       []Param{{Name: "Handler", Desc: "Called on every fire.", LuaType: "(...any) -> ()"}},
				Returns:      []ReturnSpec{{LuaType: "Connection"}},
				FunctionType: FunctionMethod,
				Errors:       []ErrorSpec{{LuaType: `"AlreadyDestroyed"`, Desc: "The signal was destroyed."}},
				Realm:        []string{RealmServer, RealmClient},
				Source:       Source{Line: 47, Path: "Signal.luau"},
			},
			{
				Name:         "Wait",
				Desc:         "Waits for the next fire.",
				Params:       []Param{},
				Returns:      []ReturnSpec{{LuaType: "...any"}},
				FunctionType: FunctionMethod,
				Yields:       true,
				Deprecated:   &Deprecation{Version: "2.0.0", Desc: "Use Signal:Once instead."},
				Source:       Source{Line: 57, Path: "Signal.luau"},
			},
			{
				Name:         "Destroy",
				Params:       []Param{},
				Returns:      []ReturnSpec{},
				FunctionType: FunctionMethod,
				Unreleased:   true,
				Source:       Source{Line: 66, Path: "Signal.luau"},
			},
		},
		Properties: []PropertyDoc{{
			Name:     "Name",
			Desc:     "Display name of the signal.",
			LuaType:  "string",
			Readonly: true,
			Realm:    []string{RealmClient},
			Source:   Source{Line: 18, Path: "Signal.luau"},
		}},
		Types: []TypeDef{{
			Name: "ConnectOptions",
			Desc: "Options accepted by Signal:Connect.",
			Fields: []InterfaceField{
				{Name: "Once", LuaType: "boolean", Desc: "Disconnect after the first fire."},
				{Name: "Priority", LuaType: "number?"},
			},
			Source: Source{Line: 27, Path: "Signal.luau"},
		}},
		Name:    "Signal",
		Desc:    "A lightweight signal implementation.",
		Private: true,
		Tags:    []string{"Events"},
		Source:  Source{Line: 9, Path: "Signal.luau"},
	}}
	if diff := cmp.Diff(expected, modules); diff != "" {
		t.Errorf("Generate() mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, gen.Diagnostics(), 1)
	assert.Equal(t, "Signal.luau:47: unresolved-type: unresolved type Connection", gen.Diagnostics()[0].String())
}

func TestGenerateGenericTypeDef(t *testing.T) {
	gen, modules := generateSources(t, map[string]string{
		"PromiseProxy.lua": `--[=[
	@type Promise<T> { andThen: (T) -> Promise<T> }
	@within PromiseProxy
]=]

--[=[
	@class PromiseProxy
]=]
local PromiseProxy = {}
return PromiseProxy
`,
	})

	require.Len(t, modules, 1)
	require.Len(t, modules[0].Types, 1)
	assert.Equal(t, "Promise<T>", modules[0].Types[0].Name)
	assert.Equal(t, "{ andThen: (T) -> Promise<T> }", modules[0].Types[0].LuaType)
	assert.Empty(t, gen.Diagnostics())
}

func TestGenerateEmptyModuleKeepsCollections(t *testing.T) {
	_, modules := generateSources(t, map[string]string{
		"Empty.lua": "--[=[\n\t@class Empty\n]=]\nreturn {}\n",
	})
	require.Len(t, modules, 1)

	data, err := json.Marshal(modules[0])
	require.NoError(t, err)
	assert.Equal(t, `{"functions":[],"properties":[],"types":[],"name":"Empty","desc":"","source":{"line":3,"path":"Empty.lua"}}`, string(data))
}

func TestGenerateDuplicateNames(t *testing.T) {
	gen, modules := generateSources(t, map[string]string{
		"Dup.lua": `--- @class Dup

--- First.
function Dup.Add(a: number): number
end

--- Second.
function Dup.Add(a: number): number
end
`,
	})

	require.Len(t, modules, 1)
	require.Len(t, modules[0].Functions, 1)
	assert.Equal(t, "First.", modules[0].Functions[0].Desc)

	require.Len(t, gen.Diagnostics(), 1)
	d := gen.Diagnostics()[0]
	assert.Equal(t, ParseWarning, d.Kind)
	assert.Equal(t, 7, d.Line)
	assert.Equal(t, "function Add is already documented in Dup", d.Message)
}

func TestGenerateAfterContinuedString(t *testing.T) {
	gen, modules := generateSources(t, map[string]string{
		"M.lua": "--- @class M\nlocal M = {}\nM.msg = \"a\\\nb\"\n\n--- Adds.\nfunction M.Add(a: number): number\nend\n",
	})

	assert.Empty(t, gen.Diagnostics())
	require.Len(t, modules, 1)
	require.Len(t, modules[0].Functions, 1)

	fn := modules[0].Functions[0]
	assert.Equal(t, "Add", fn.Name)
	assert.Equal(t, []Param{{Name: "a", LuaType: "number"}}, fn.Params)
	assert.Equal(t, Source{Line: 6, Path: "M.lua"}, fn.Source)
}

func TestGenerateWithinLaterClass(t *testing.T) {
	_, modules := generateSources(t, map[string]string{
		"a.lua": "--- @function Helper\n--- @within Zed\n--- Does a thing.\n",
		"b.lua": "--- @class Zed\n",
	})

	require.Len(t, modules, 1)
	assert.Equal(t, "Zed", modules[0].Name)
	require.Len(t, modules[0].Functions, 1)

	fn := modules[0].Functions[0]
	assert.Equal(t, "Helper", fn.Name)
	assert.Equal(t, "Does a thing.", fn.Desc)
	assert.Equal(t, FunctionStatic, fn.FunctionType)
	assert.Equal(t, Source{Line: 3, Path: "a.lua"}, fn.Source)
}

func TestGenerateParseWarnings(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		message string
		line    int
		modules []string
	}{
		{
			name:    "undeclared class",
			src:     "--- @function Orphan\n--- @within Nowhere\n",
			message: "@function belongs to undeclared class Nowhere",
			line:    2,
		},
		{
			name:    "conflicting kinds",
			src:     "--- @class A\n--- @function B\n",
			message: "doc comment has conflicting tags @class and @function",
			line:    2,
		},
		{
			name:    "unknown tag keeps block",
			src:     "--- @class A\n--- @frobnicate yes\n",
			message: "unknown tag @frobnicate",
			line:    2,
			modules: []string{"A"},
		},
		{
			name:    "nothing to document",
			src:     "--- Just prose.\nlocal x = 1\n",
			message: "doc comment does not document a class, function, property or type",
			line:    1,
		},
		{
			name:    "type without annotation",
			src:     "--- @class A\n\n--- @type Alias\n--- @within A\n",
			message: "@type Alias requires a type",
			line:    4,
			modules: []string{"A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, modules := generateSources(t, map[string]string{"src.lua": tt.src})

			var names []string
			for _, m := range modules {
				names = append(names, m.Name)
			}
			assert.Equal(t, tt.modules, names)

			require.Len(t, gen.Diagnostics(), 1)
			d := gen.Diagnostics()[0]
			assert.Equal(t, ParseWarning, d.Kind)
			assert.Equal(t, tt.message, d.Message)
			assert.Equal(t, tt.line, d.Line)
		})
	}
}

func TestGenerateIgnoreAndExternal(t *testing.T) {
	gen, modules := generateSources(t, map[string]string{
		"src.lua": `--- @class Hidden
--- @ignore

--- @external Janitor https://example.com/janitor

--- @class Visible

--- @prop Cleaner Janitor
--- @within Visible
`,
	})

	require.Len(t, modules, 1)
	assert.Equal(t, "Visible", modules[0].Name)
	assert.Empty(t, gen.Diagnostics())
}

func TestGenerateRegisteredExternalType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Spring.lua")
	require.NoError(t, os.WriteFile(path, []byte("--- @class Spring\n\n--- @prop Target Vector3 | Tween\n--- @within Spring\n"), 0o644))

	gen := New(dir)
	gen.RegisterExternalType("Tween")
	require.NoError(t, gen.ParseFiles(context.Background(), []string{path}))
	modules := gen.Generate()

	require.Len(t, modules, 1)
	assert.Equal(t, "Vector3 | Tween", modules[0].Properties[0].LuaType)
	assert.Empty(t, gen.Diagnostics())
}

func TestGenerateIsDeterministic(t *testing.T) {
	files := map[string]string{
		"b/Two.lua": "--- @class Two\n\n--- Second.\nfunction Two.run() end\n",
		"a/One.lua": "--- @class One\n\n--- First.\nfunction One.run() end\n",
		"c.luau":    "--- @class Three\n",
	}
	gen, first := generateSources(t, files)
	second := gen.Generate()

	assert.Equal(t, first, second)
	var names []string
	for _, m := range first {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"One", "Two", "Three"}, names)
}

func TestGeneratorReset(t *testing.T) {
	gen, modules := generateSources(t, map[string]string{"A.lua": "--- @class A\n"})
	require.Len(t, modules, 1)

	gen.Reset()
	assert.Empty(t, gen.Generate())
}

func TestParseFilesMissingFile(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	paths := []string{filepath.Join(dir, "missing.lua")}
	for _, name := range []string{"a.lua", "b.lua", "c.lua"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("--- @class "+name[:1]+"\n"), 0o644))
		paths = append(paths, path)
	}

	gen := New(dir)
	gen.SetWorkers(2)
	err := gen.ParseFiles(context.Background(), paths)

	require.Error(t, err)
	assert.True(t, IsIOError(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseDirectorySkipsPackages(t *testing.T) {
	_, modules := generateSources(t, map[string]string{
		"src/Kept.lua":              "--- @class Kept\n",
		"Packages/Dep.lua":          "--- @class Dep\n",
		".hidden/Secret.lua":        "--- @class Secret\n",
		"node_modules/x/Module.lua": "--- @class Module\n",
		"README.md":                 "--- @class Readme\n",
	})

	require.Len(t, modules, 1)
	assert.Equal(t, "Kept", modules[0].Name)
}

func TestParseFilesOutsideRoot(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "repo")
	require.NoError(t, os.MkdirAll(root, 0o755))
	outside := filepath.Join(base, "Far.lua")
	require.NoError(t, os.WriteFile(outside, []byte("--- @class Far\n"), 0o644))

	gen := New(root)
	require.NoError(t, gen.ParseFiles(context.Background(), []string{outside}))
	modules := gen.Generate()

	require.Len(t, modules, 1)
	assert.Equal(t, filepath.ToSlash(outside), modules[0].Source.Path)

	require.Len(t, gen.Diagnostics(), 1)
	d := gen.Diagnostics()[0]
	assert.Equal(t, ParseWarning, d.Kind)
	assert.Equal(t, filepath.ToSlash(outside), d.Path)
	assert.Contains(t, d.Message, "outside the root")
}

func TestRelativePathSiblingPrefix(t *testing.T) {
	e := NewExtractor("/work/repo")

	rel, ok := e.relativePath("/work/repo/src/A.lua")
	assert.True(t, ok)
	assert.Equal(t, "src/A.lua", rel)

	rel, ok = e.relativePath("/work/repo/..hidden.lua")
	assert.True(t, ok)
	assert.Equal(t, "..hidden.lua", rel)

	_, ok = e.relativePath("/work/repo-other/A.lua")
	assert.False(t, ok)
}
