package generator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Generator turns the doc comments of Lua sources into ModuleDoc records.
type Generator struct {
	extractor *Extractor
	logger    *zap.Logger
	externals map[string]bool

	// Rebuilt by every Generate call
	modules     []*ModuleDoc
	moduleIndex map[string]*ModuleDoc
	names       map[string]bool // module/category/name
	diagnostics []Diagnostic
}

// New creates a generator whose source paths are relative to root.
func New(root string) *Generator {
	return &Generator{
		extractor: NewExtractor(root),
		logger:    zap.NewNop(),
		externals: make(map[string]bool),
	}
}

// SetLogger sets the logger diagnostics are reported to.
func (g *Generator) SetLogger(logger *zap.Logger) {
	if logger != nil {
		g.logger = logger
	}
}

// SetWorkers bounds the number of files read concurrently.
func (g *Generator) SetWorkers(n int) {
	g.extractor.SetWorkers(n)
}

// RegisterExternalType marks a type name as resolvable.
func (g *Generator) RegisterExternalType(name string) {
	g.externals[name] = true
}

// ParseDirectories parses Lua source directories
func (g *Generator) ParseDirectories(ctx context.Context, dirs []string) error {
	for _, dir := range dirs {
		if err := g.extractor.ParseDirectory(ctx, dir); err != nil {
			return fmt.Errorf("failed to parse directory %s: %w", dir, err)
		}
	}
	return nil
}

// ParseFiles parses individual Lua source files
func (g *Generator) ParseFiles(ctx context.Context, files []string) error {
	if err := g.extractor.ParseFiles(ctx, files); err != nil {
		return fmt.Errorf("failed to parse files: %w", err)
	}
	return nil
}

// Reset forgets every parsed file so the generator can be reused for a
// fresh build.
func (g *Generator) Reset() {
	g.extractor.Reset()
}

// Diagnostics returns the warnings of the last Generate call.
func (g *Generator) Diagnostics() []Diagnostic {
	return g.diagnostics
}

// entry is a parsed comment block waiting to be attached to a module.
type entry struct {
	file  string
	raw   commentBlock
	block docBlock
	kind  string
	tag   docTag
}

var kindTags = map[string]bool{
	"class": true, "function": true, "method": true,
	"prop": true, "type": true, "interface": true,
}

var flagTags = map[string]bool{
	"within": true, "param": true, "return": true, "error": true,
	"yields": true, "private": true, "ignore": true, "readonly": true,
	"unreleased": true, "server": true, "client": true, "plugin": true,
	"tag": true, "since": true, "deprecated": true, "external": true,
	"index": true, "__index": true,
}

// Generate assembles the ModuleDocs from every parsed file. Modules appear
// in @class declaration order; the members of a module keep source order.
func (g *Generator) Generate() []ModuleDoc {
	g.modules = nil
	g.moduleIndex = make(map[string]*ModuleDoc)
	g.names = make(map[string]bool)
	g.diagnostics = nil

	entries := g.collectEntries()

	// Classes first so that @within may refer to a class declared later.
	for _, e := range entries {
		if e.kind == "class" {
			g.addClass(e)
		}
	}
	scope := g.buildScope(entries)
	for _, e := range entries {
		switch e.kind {
		case "function", "method":
			g.addFunction(e, scope)
		case "prop":
			g.addProperty(e, scope)
		case "type", "interface":
			g.addType(e, scope)
		}
	}

	out := make([]ModuleDoc, 0, len(g.modules))
	for _, m := range g.modules {
		out = append(out, *m)
	}
	return out
}

func (g *Generator) collectEntries() []entry {
	var entries []entry
	for _, f := range g.extractor.Files() {
		if f.OutsideRoot {
			g.warn(ParseWarning, f.Path, 1, "source file is outside the root %s", g.extractor.root)
		}
		for _, raw := range f.Blocks {
			block := parseDocBlock(raw.Lines)
			if hasTag(block, "ignore") {
				continue
			}
			e := entry{file: f.Path, raw: raw, block: block}

			var kinds []docTag
			for _, t := range block.Tags {
				switch {
				case kindTags[t.Name]:
					kinds = append(kinds, t)
				case flagTags[t.Name]:
					if t.Name == "external" {
						g.registerExternal(e, t)
					}
				default:
					g.warn(ParseWarning, e.file, raw.StartLine+t.Line, "unknown tag @%s", t.Name)
				}
			}

			switch len(kinds) {
			case 0:
				decl, ok := parseDeclaration(raw.Decl)
				if !ok {
					if !onlyExternals(block) {
						g.warn(ParseWarning, e.file, raw.EndLine, "doc comment does not document a class, function, property or type")
					}
					continue
				}
				e.kind = "function"
				if decl.FunctionType == FunctionMethod {
					e.kind = "method"
				}
			case 1:
				e.kind, e.tag = kinds[0].Name, kinds[0]
			default:
				g.warn(ParseWarning, e.file, raw.EndLine, "doc comment has conflicting tags @%s and @%s", kinds[0].Name, kinds[1].Name)
				continue
			}
			entries = append(entries, e)
		}
	}
	return entries
}

func (g *Generator) registerExternal(e entry, t docTag) {
	name, _ := splitName(t.Args)
	if name == "" {
		g.warn(ParseWarning, e.file, e.raw.StartLine+t.Line, "@external requires a type name")
		return
	}
	g.externals[baseName(name)] = true
}

func (g *Generator) addClass(e entry) {
	name, _ := splitName(e.tag.Args)
	if name == "" {
		g.warn(ParseWarning, e.file, e.raw.EndLine, "@class requires a name")
		return
	}
	if _, exists := g.moduleIndex[name]; exists {
		g.warn(ParseWarning, e.file, e.raw.EndLine, "class %s is already declared", name)
		return
	}
	m := &ModuleDoc{
		Functions:  []DocItem{},
		Properties: []PropertyDoc{},
		Types:      []TypeDef{},
		Name:       name,
		Desc:       e.block.Desc,
		Private:    hasTag(e.block, "private"),
		Tags:       tagValues(e.block, "tag"),
		Source:     Source{Line: e.raw.EndLine, Path: e.file},
	}
	g.modules = append(g.modules, m)
	g.moduleIndex[name] = m
}

// buildScope collects every name a lua_type may refer to.
func (g *Generator) buildScope(entries []entry) typeScope {
	known := make(map[string]bool)
	for name := range g.externals {
		known[name] = true
	}
	for name := range g.moduleIndex {
		known[name] = true
	}
	for _, e := range entries {
		if e.kind == "type" || e.kind == "interface" {
			if name, _ := splitName(e.tag.Args); name != "" {
				known[baseName(name)] = true
			}
		}
	}
	return typeScope{known: known}
}

// owner resolves the module an entry belongs to. @within wins over the
// owner inferred from the declaration.
func (g *Generator) owner(e entry, inferred string) (*ModuleDoc, bool) {
	name := inferred
	if within, ok := firstTag(e.block, "within"); ok {
		name = strings.TrimSpace(within.Args)
	}
	if name == "" {
		g.warn(ParseWarning, e.file, e.raw.EndLine, "@%s has no @within and no owner can be inferred", e.kind)
		return nil, false
	}
	m, ok := g.moduleIndex[name]
	if !ok {
		g.warn(ParseWarning, e.file, e.raw.EndLine, "@%s belongs to undeclared class %s", e.kind, name)
		return nil, false
	}
	return m, true
}

// claim reserves a name in a module category; duplicates are rejected.
func (g *Generator) claim(e entry, m *ModuleDoc, category, name string) bool {
	key := m.Name + "/" + category + "/" + name
	if g.names[key] {
		g.warn(ParseWarning, e.file, e.raw.EndLine, "%s %s is already documented in %s", category, name, m.Name)
		return false
	}
	g.names[key] = true
	return true
}

func (g *Generator) addFunction(e entry, scope typeScope) {
	decl, hasDecl := parseDeclaration(e.raw.Decl)

	item := DocItem{
		Desc:         e.block.Desc,
		Params:       []Param{},
		Returns:      []ReturnSpec{},
		FunctionType: FunctionStatic,
		Tags:         tagValues(e.block, "tag"),
		Yields:       hasTag(e.block, "yields"),
		Private:      hasTag(e.block, "private"),
		Unreleased:   hasTag(e.block, "unreleased"),
		Realm:        realms(e.block),
		Source:       Source{Line: e.raw.EndLine, Path: e.file},
	}
	if e.kind == "method" {
		item.FunctionType = FunctionMethod
	}

	inferredOwner := ""
	if e.tag.Name != "" {
		item.Name, _ = splitName(e.tag.Args)
		if item.Name == "" {
			g.warn(ParseWarning, e.file, e.raw.EndLine, "@%s requires a name", e.tag.Name)
			return
		}
		if hasDecl && baseName(decl.Name) == baseName(item.Name) {
			inferredOwner = decl.Owner
		}
	} else {
		item.Name = decl.Name
		item.FunctionType = decl.FunctionType
		inferredOwner = decl.Owner
	}

	for _, t := range e.block.Tags {
		switch t.Name {
		case "param":
			body, desc := splitDescription(t.Args)
			name, luaType := splitName(body)
			if name == "" {
				g.warn(ParseWarning, e.file, e.raw.StartLine+t.Line, "@param requires a name")
				return
			}
			item.Params = append(item.Params, Param{Name: name, Desc: desc, LuaType: luaType})
		case "return":
			luaType, desc := splitDescription(t.Args)
			if luaType == "" {
				g.warn(ParseWarning, e.file, e.raw.StartLine+t.Line, "@return requires a type")
				return
			}
			item.Returns = append(item.Returns, ReturnSpec{Desc: desc, LuaType: luaType})
		case "error":
			luaType, desc := splitDescription(t.Args)
			item.Errors = append(item.Errors, ErrorSpec{LuaType: luaType, Desc: desc})
		case "since":
			item.Since = strings.TrimSpace(t.Args)
		case "deprecated":
			item.Deprecated = parseDeprecation(t.Args)
		}
	}

	if hasDecl && decl.Typed && baseName(decl.Name) == baseName(item.Name) {
		if !hasTag(e.block, "param") {
			item.Params = append(item.Params, decl.Params...)
		}
		if !hasTag(e.block, "return") {
			item.Returns = append(item.Returns, decl.Returns...)
		}
	}

	m, ok := g.owner(e, inferredOwner)
	if !ok || !g.claim(e, m, "function", item.Name) {
		return
	}

	fnScope := scope.withGenerics(genericParams(item.Name)...)
	for _, p := range item.Params {
		g.checkTypes(e, p.LuaType, fnScope)
	}
	for _, r := range item.Returns {
		g.checkTypes(e, r.LuaType, fnScope)
	}
	for _, er := range item.Errors {
		g.checkTypes(e, er.LuaType, fnScope)
	}
	m.Functions = append(m.Functions, item)
}

func (g *Generator) addProperty(e entry, scope typeScope) {
	body, desc := splitDescription(e.tag.Args)
	name, luaType := splitName(body)
	if name == "" {
		g.warn(ParseWarning, e.file, e.raw.EndLine, "@prop requires a name")
		return
	}
	prop := PropertyDoc{
		Name:     name,
		Desc:     joinDesc(e.block.Desc, desc),
		LuaType:  luaType,
		Tags:     tagValues(e.block, "tag"),
		Private:  hasTag(e.block, "private"),
		Readonly: hasTag(e.block, "readonly"),
		Realm:    realms(e.block),
		Source:   Source{Line: e.raw.EndLine, Path: e.file},
	}
	if since, ok := firstTag(e.block, "since"); ok {
		prop.Since = strings.TrimSpace(since.Args)
	}
	if dep, ok := firstTag(e.block, "deprecated"); ok {
		prop.Deprecated = parseDeprecation(dep.Args)
	}

	m, ok := g.owner(e, "")
	if !ok || !g.claim(e, m, "property", prop.Name) {
		return
	}
	g.checkTypes(e, prop.LuaType, scope)
	m.Properties = append(m.Properties, prop)
}

func (g *Generator) addType(e entry, scope typeScope) {
	name, luaType := splitName(e.tag.Args)
	if name == "" {
		g.warn(ParseWarning, e.file, e.raw.EndLine, "@%s requires a name", e.kind)
		return
	}
	def := TypeDef{
		Name:    name,
		Desc:    e.block.Desc,
		Tags:    tagValues(e.block, "tag"),
		Private: hasTag(e.block, "private"),
		Source:  Source{Line: e.raw.EndLine, Path: e.file},
	}
	if e.kind == "type" {
		if luaType == "" {
			g.warn(ParseWarning, e.file, e.raw.EndLine, "@type %s requires a type", name)
			return
		}
		def.LuaType = luaType
	} else {
		def.Fields = e.block.Fields
	}

	m, ok := g.owner(e, "")
	if !ok || !g.claim(e, m, "type", def.Name) {
		return
	}

	defScope := scope.withGenerics(genericParams(def.Name)...)
	g.checkTypes(e, def.LuaType, defScope)
	for _, f := range def.Fields {
		g.checkTypes(e, f.LuaType, defScope)
	}
	m.Types = append(m.Types, def)
}

func (g *Generator) checkTypes(e entry, luaType string, scope typeScope) {
	for _, name := range unresolvedTypes(luaType, scope) {
		g.warn(UnresolvedTypeReference, e.file, e.raw.EndLine, "unresolved type %s", name)
	}
}

func (g *Generator) warn(kind DiagnosticKind, path string, line int, format string, args ...any) {
	d := Diagnostic{Kind: kind, Path: path, Line: line, Message: fmt.Sprintf(format, args...)}
	g.diagnostics = append(g.diagnostics, d)
	g.logger.Warn(d.Message,
		zap.String("kind", string(kind)),
		zap.String("path", path),
		zap.Int("line", line),
	)
}

func hasTag(b docBlock, name string) bool {
	_, ok := firstTag(b, name)
	return ok
}

func firstTag(b docBlock, name string) (docTag, bool) {
	for _, t := range b.Tags {
		if t.Name == name {
			return t, true
		}
	}
	return docTag{}, false
}

func tagValues(b docBlock, name string) []string {
	var values []string
	for _, t := range b.Tags {
		if t.Name == name && t.Args != "" {
			values = append(values, t.Args)
		}
	}
	return values
}

func onlyExternals(b docBlock) bool {
	if len(b.Tags) == 0 {
		return false
	}
	for _, t := range b.Tags {
		if t.Name != "external" {
			return false
		}
	}
	return true
}

func realms(b docBlock) []string {
	var out []string
	for _, t := range b.Tags {
		switch t.Name {
		case "server":
			out = append(out, RealmServer)
		case "client":
			out = append(out, RealmClient)
		case "plugin":
			out = append(out, RealmPlugin)
		}
	}
	return out
}

// parseDeprecation parses `version -- description`.
func parseDeprecation(args string) *Deprecation {
	body, desc := splitDescription(args)
	return &Deprecation{Version: body, Desc: desc}
}

func joinDesc(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}
