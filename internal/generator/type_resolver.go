package generator

import (
	"strings"
)

// builtinTypes are always resolvable: Luau primitives and common Roblox
// datatypes that the front end links to its own reference.
var builtinTypes = map[string]bool{
	// Luau
	"any": true, "nil": true, "boolean": true, "number": true, "string": true,
	"table": true, "thread": true, "userdata": true, "unknown": true,
	"never": true, "buffer": true, "vector": true, "true": true, "false": true,
	"function": true,
	// Roblox datatypes
	"Instance": true, "Vector2": true, "Vector3": true, "CFrame": true,
	"Color3": true, "UDim": true, "UDim2": true, "Enum": true, "EnumItem": true,
	"RBXScriptSignal": true, "RBXScriptConnection": true, "Player": true,
	"BrickColor": true, "TweenInfo": true, "Ray": true, "Region3": true,
	"NumberRange": true, "NumberSequence": true, "ColorSequence": true,
	"Rect": true, "DateTime": true, "Random": true, "Axes": true, "Faces": true,
}

// typeScope answers whether a name is a known type.
type typeScope struct {
	known    map[string]bool
	generics map[string]bool
}

func (s typeScope) resolves(name string) bool {
	if builtinTypes[name] || s.known[name] || s.generics[name] {
		return true
	}
	// Enum.Material, Class.Type: resolvable when the head is known.
	if head, _, ok := strings.Cut(name, "."); ok {
		return head == "Enum" || s.known[head]
	}
	return false
}

// withGenerics returns a scope that also resolves the given parameters.
func (s typeScope) withGenerics(params ...string) typeScope {
	if len(params) == 0 {
		return s
	}
	generics := make(map[string]bool, len(s.generics)+len(params))
	for k := range s.generics {
		generics[k] = true
	}
	for _, p := range params {
		generics[p] = true
	}
	return typeScope{known: s.known, generics: generics}
}

// unresolvedTypes returns the type names in luaType that the scope does not
// know, in order of appearance and without duplicates. Field and parameter
// names (identifiers followed by ':') and string literal types are ignored.
func unresolvedTypes(luaType string, scope typeScope) []string {
	var (
		out  []string
		seen = map[string]bool{}
	)
	for i := 0; i < len(luaType); {
		c := luaType[i]
		switch {
		case c == '"' || c == '\'':
			end := strings.IndexByte(luaType[i+1:], c)
			if end < 0 {
				return out
			}
			i += end + 2

		case isIdentStart(c):
			j := i
			for j < len(luaType) && (isIdentPart(luaType[j]) || luaType[j] == '.' && j+1 < len(luaType) && isIdentStart(luaType[j+1])) {
				j++
			}
			name := luaType[i:j]
			k := j
			for k < len(luaType) && luaType[k] == ' ' {
				k++
			}
			isLabel := k < len(luaType) && luaType[k] == ':'
			switch {
			case name == "typeof":
				if k < len(luaType) && luaType[k] == '(' {
					_, rest := splitClosingParen(luaType[k+1:])
					j = len(luaType) - len(rest)
				}
			case isLabel:
			case !scope.resolves(name) && !seen[name]:
				seen[name] = true
				out = append(out, name)
			}
			i = j

		default:
			i++
		}
	}
	return out
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}
