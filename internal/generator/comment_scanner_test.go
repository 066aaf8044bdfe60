package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanDocComments(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		expected []commentBlock
	}{
		{
			name: "long bracket block",
			src: `local Table = {}

--[=[
	Returns the true length of a table.

	@param TableToCheck GenericTable
	@return number
]=]
function Table.Length(TableToCheck)
end
`,
			expected: []commentBlock{{
				Lines: []string{
					"Returns the true length of a table.",
					"",
					"@param TableToCheck GenericTable",
					"@return number",
				},
				StartLine: 3,
				EndLine:   8,
				Decl:      "function Table.Length(TableToCheck)",
				DeclLine:  9,
			}},
		},
		{
			name: "triple dash run",
			src: `--- Adds two numbers.
--- @param a number
---   indented continuation
function add(a, b)
end
`,
			expected: []commentBlock{{
				Lines:     []string{"Adds two numbers.", "@param a number", "  indented continuation"},
				StartLine: 1,
				EndLine:   3,
				Decl:      "function add(a, b)",
				DeclLine:  4,
			}},
		},
		{
			name: "plain comments are ignored",
			src: `-- ordinary comment
--[[ ordinary
block ]]
------------------
local x = 1 --- trailing is not a doc comment
`,
			expected: nil,
		},
		{
			name: "markers inside strings are ignored",
			src: `local a = "--[=[ not a comment ]=]"
local b = [[
--- still a string
]]
local c = 'it\'s --- fine'
`,
			expected: nil,
		},
		{
			name: "blank line separates runs",
			src: `--- first

--- second
`,
			expected: []commentBlock{
				{Lines: []string{"first"}, StartLine: 1, EndLine: 1},
				{Lines: []string{"second"}, StartLine: 3, EndLine: 3},
			},
		},
		{
			name: "higher level bracket",
			src: `--[==[
	contains ]=] inside
]==]
`,
			expected: []commentBlock{{
				Lines:     []string{"contains ]=] inside"},
				StartLine: 1,
				EndLine:   3,
			}},
		},
		{
			name: "declaration spanning lines",
			src: `--[=[
	@within Table
]=]
function Table.Merge<A, B>(
	To: A,
	From: B
): A & B
end
`,
			expected: []commentBlock{{
				Lines:     []string{"@within Table"},
				StartLine: 1,
				EndLine:   3,
				Decl:      "function Table.Merge<A, B>( To: A, From: B ): A & B",
				DeclLine:  4,
			}},
		},
		{
			name: "string continued with escaped newline",
			src: "local s = \"first\\\nsecond\"\n--[=[\n\t@class M\n]=]\nlocal M = {}\n",
			expected: []commentBlock{{
				Lines:     []string{"@class M"},
				StartLine: 3,
				EndLine:   5,
				Decl:      "local M = {}",
				DeclLine:  6,
			}},
		},
		{
			name: "string continued with z escape",
			src: "local s = 'a\\z\n\n   b'\n--- Adds.\nfunction M.Add(a: number): number\n",
			expected: []commentBlock{{
				Lines:     []string{"Adds."},
				StartLine: 4,
				EndLine:   4,
				Decl:      "function M.Add(a: number): number",
				DeclLine:  5,
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := scanDocComments([]byte(tt.src))
			assert.Equal(t, tt.expected, blocks)
		})
	}
}

func TestScanDocCommentsUnterminated(t *testing.T) {
	blocks := scanDocComments([]byte("--[=[\n\t@class Broken\n"))
	require.Len(t, blocks, 1)
	assert.Equal(t, []string{"@class Broken"}, blocks[0].Lines)
	assert.Equal(t, 1, blocks[0].StartLine)
}

func TestDedent(t *testing.T) {
	lines := dedent([]string{"\t\tfoo", "", "\t\t\tbar", "\t\tbaz  "})
	assert.Equal(t, []string{"foo", "", "\tbar", "baz"}, lines)
}
