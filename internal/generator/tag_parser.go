package generator

import (
	"strings"
	"unicode"
)

// docTag is one @tag line of a doc comment.
type docTag struct {
	Name string
	Args string
	Line int // offset of the tag inside the block
}

// docBlock is a comment block split into description, tags and interface fields.
type docBlock struct {
	Desc   string
	Tags   []docTag
	Fields []InterfaceField
}

// parseDocBlock splits block lines into free text and tags. Lines starting
// with '.' after an @interface tag are interface fields; everything else that
// is not a tag is description text.
func parseDocBlock(lines []string) docBlock {
	var (
		block       docBlock
		desc        []string
		inInterface bool
	)
	for idx, l := range lines {
		trimmed := strings.TrimSpace(l)
		switch {
		case isTagLine(trimmed):
			name, args, _ := strings.Cut(trimmed[1:], " ")
			block.Tags = append(block.Tags, docTag{Name: name, Args: strings.TrimSpace(args), Line: idx})
			inInterface = name == "interface"
		case inInterface && strings.HasPrefix(trimmed, "."):
			block.Fields = append(block.Fields, parseInterfaceField(trimmed[1:]))
		default:
			desc = append(desc, l)
		}
	}
	block.Desc = strings.TrimSpace(strings.Join(desc, "\n"))
	return block
}

func isTagLine(s string) bool {
	return len(s) > 1 && s[0] == '@' && (unicode.IsLetter(rune(s[1])) || s[1] == '_')
}

// parseInterfaceField parses `name type -- desc`.
func parseInterfaceField(s string) InterfaceField {
	body, desc := splitDescription(s)
	name, luaType := splitName(body)
	return InterfaceField{Name: name, LuaType: luaType, Desc: desc}
}

// splitDescription splits `type -- description` at the first "--".
func splitDescription(s string) (string, string) {
	body, desc, _ := strings.Cut(s, "--")
	return strings.TrimSpace(body), strings.TrimSpace(desc)
}

// splitName reads a leading symbol name, including a generic parameter list
// such as Merge<A, B>, and returns it with the trimmed remainder.
func splitName(s string) (string, string) {
	s = strings.TrimSpace(s)
	depth := 0
	for i, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>':
			depth--
		case depth == 0 && unicode.IsSpace(r):
			return s[:i], strings.TrimSpace(s[i:])
		}
	}
	return s, ""
}

// baseName strips a generic parameter list: Promise<T> -> Promise.
func baseName(name string) string {
	if i := strings.IndexByte(name, '<'); i >= 0 {
		return strings.TrimSpace(name[:i])
	}
	return name
}

// genericParams returns the parameters declared by a generic name:
// Merge<A, B> -> [A B].
func genericParams(name string) []string {
	open := strings.IndexByte(name, '<')
	end := strings.LastIndexByte(name, '>')
	if open < 0 || end < open {
		return nil
	}
	var params []string
	for _, p := range strings.Split(name[open+1:end], ",") {
		p = strings.TrimSpace(p)
		// T... and T = default
		p, _, _ = strings.Cut(p, "=")
		p = strings.TrimSuffix(strings.TrimSpace(p), "...")
		if p != "" {
			params = append(params, p)
		}
	}
	return params
}
