package generator

import (
	"strings"
)

// declaration is what can be inferred from the code line after a doc block.
type declaration struct {
	Owner        string
	Name         string
	FunctionType string
	Params       []Param
	Returns      []ReturnSpec
	Typed        bool // the signature carries type annotations
}

// parseDeclaration recognises function declarations:
//
//	function Owner.Name(...)      static
//	function Owner:Name(...)      method
//	function Owner.Name<T>(...)   static, generic
//	Owner.Name = function(...)    static
//	local function Name(...)      static, owner from @within
func parseDeclaration(decl string) (declaration, bool) {
	decl = strings.TrimSpace(decl)
	if rest, ok := strings.CutPrefix(decl, "local "); ok {
		decl = strings.TrimSpace(rest)
	}

	var d declaration
	var path, generics, tail string

	if rest, ok := strings.CutPrefix(decl, "function "); ok {
		path, generics, tail, ok = splitFunctionHead(strings.TrimSpace(rest))
		if !ok {
			return declaration{}, false
		}
	} else {
		lhs, rhs, found := strings.Cut(decl, "=")
		if !found {
			return declaration{}, false
		}
		rhs = strings.TrimSpace(rhs)
		fn, ok := strings.CutPrefix(rhs, "function")
		if !ok {
			return declaration{}, false
		}
		path = strings.TrimSpace(lhs)
		if !isNamePath(path) {
			return declaration{}, false
		}
		fn = strings.TrimSpace(fn)
		if strings.HasPrefix(fn, "<") {
			end := strings.IndexByte(fn, '>')
			if end < 0 {
				return declaration{}, false
			}
			generics, fn = fn[:end+1], strings.TrimSpace(fn[end+1:])
		}
		if !strings.HasPrefix(fn, "(") {
			return declaration{}, false
		}
		tail = fn[1:]
	}

	d.FunctionType = FunctionStatic
	sep := strings.LastIndexAny(path, ".:")
	if sep >= 0 {
		d.Owner = path[:sep]
		if path[sep] == ':' {
			d.FunctionType = FunctionMethod
		}
		path = path[sep+1:]
	}
	if path == "" {
		return declaration{}, false
	}
	d.Name = path + generics

	paramList, after := splitClosingParen(tail)
	for _, raw := range splitTopLevel(paramList, ',') {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		name, luaType, typed := strings.Cut(raw, ":")
		name = strings.TrimSpace(name)
		if name == "self" {
			continue
		}
		if typed {
			d.Typed = true
		}
		d.Params = append(d.Params, Param{Name: name, LuaType: strings.TrimSpace(luaType)})
	}

	after = strings.TrimSpace(after)
	if ret, ok := strings.CutPrefix(after, ":"); ok {
		d.Typed = true
		d.Returns = splitReturnAnnotation(strings.TrimSpace(ret))
	}
	return d, true
}

// splitFunctionHead splits `Owner.Name<T>(args...` into its path, generic
// list and the text after the opening parenthesis.
func splitFunctionHead(s string) (path, generics, tail string, ok bool) {
	open := strings.IndexAny(s, "<(")
	if open < 0 {
		return "", "", "", false
	}
	path = strings.TrimSpace(s[:open])
	if !isNamePath(path) {
		return "", "", "", false
	}
	s = s[open:]
	if s[0] == '<' {
		end := strings.IndexByte(s, '>')
		if end < 0 {
			return "", "", "", false
		}
		generics = s[:end+1]
		s = strings.TrimSpace(s[end+1:])
		if !strings.HasPrefix(s, "(") {
			return "", "", "", false
		}
	}
	return path, generics, s[1:], true
}

func isNamePath(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		case (r == '.' || r == ':') && i > 0:
		default:
			return false
		}
	}
	return true
}

// splitClosingParen splits text after an opening parenthesis at its match.
func splitClosingParen(s string) (string, string) {
	depth := 1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[:i], s[i+1:]
			}
		}
	}
	return s, ""
}

// splitReturnAnnotation turns `(A, B)` into two returns and `T` into one.
// A parenthesised function type such as `(T) -> ()` stays a single return.
func splitReturnAnnotation(s string) []ReturnSpec {
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "(") {
		inner, rest := splitClosingParen(s[1:])
		if strings.TrimSpace(rest) == "" {
			var returns []ReturnSpec
			for _, part := range splitTopLevel(inner, ',') {
				if part = strings.TrimSpace(part); part != "" {
					returns = append(returns, ReturnSpec{LuaType: part})
				}
			}
			return returns
		}
	}
	return []ReturnSpec{{LuaType: s}}
}

// splitTopLevel splits s at sep characters that are not nested inside
// brackets. The '>' of an arrow does not close a generic list.
func splitTopLevel(s string, sep byte) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '(' || c == '{' || c == '[' || c == '<':
			depth++
		case c == '>' && i > 0 && s[i-1] == '-':
		case c == ')' || c == '}' || c == ']' || c == '>':
			depth--
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
