package generator

import (
	"bytes"
	"strings"
)

// commentBlock is a doc comment found in Lua source.
type commentBlock struct {
	Lines     []string // body lines with common indentation removed
	StartLine int
	EndLine   int
	Decl      string // code following the block, joined onto one line
	DeclLine  int
}

// scanDocComments returns the doc comments of a Lua source file in order.
// Doc comments are long comments with at least one '=' in the bracket
// (--[=[ ... ]=]) and runs of consecutive '---' line comments.
func scanDocComments(src []byte) []commentBlock {
	var (
		blocks  []commentBlock
		line    = 1
		hasCode bool // current line has non-comment content before the cursor
		run     *commentBlock
	)

	flushRun := func() {
		if run != nil {
			blocks = append(blocks, *run)
			run = nil
		}
	}

	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '\n':
			line++
			hasCode = false
			i++

		case c == '-' && i+1 < len(src) && src[i+1] == '-':
			start := line
			if i+2 < len(src) && src[i+2] == '[' {
				if level, ok := longBracketLevel(src, i+2); ok {
					bodyStart := i + 2 + level + 2
					bodyEnd, next := findLongBracketClose(src, bodyStart, level)
					body := src[bodyStart:bodyEnd]
					endLine := start + bytes.Count(src[i:next], []byte{'\n'})
					if level > 0 {
						flushRun()
						blocks = append(blocks, commentBlock{
							Lines:     dedent(splitBlockBody(string(body))),
							StartLine: start,
							EndLine:   endLine,
						})
					}
					line = endLine
					i = next
					continue
				}
			}

			eol := bytes.IndexByte(src[i:], '\n')
			if eol < 0 {
				eol = len(src) - i
			}
			text := string(src[i : i+eol])
			if !hasCode && isDocLineComment(text) {
				if run == nil || run.EndLine != line-1 {
					flushRun()
					run = &commentBlock{StartLine: line}
				}
				run.Lines = append(run.Lines, stripDocLinePrefix(text))
				run.EndLine = line
			} else {
				flushRun()
			}
			i += eol

		case c == '"' || c == '\'':
			hasCode = true
			flushRun()
			next := skipQuotedString(src, i)
			line += bytes.Count(src[i:next], []byte{'\n'})
			i = next

		case c == '[':
			hasCode = true
			flushRun()
			if level, ok := longBracketLevel(src, i); ok {
				_, next := findLongBracketClose(src, i+level+2, level)
				line += bytes.Count(src[i:next], []byte{'\n'})
				i = next
				continue
			}
			i++

		case c == ' ' || c == '\t' || c == '\r':
			i++

		default:
			hasCode = true
			flushRun()
			i++
		}
	}
	flushRun()

	attachDeclarations(src, blocks)
	return blocks
}

// longBracketLevel reports the level of a long bracket opening at src[i].
func longBracketLevel(src []byte, i int) (int, bool) {
	if i >= len(src) || src[i] != '[' {
		return 0, false
	}
	j := i + 1
	for j < len(src) && src[j] == '=' {
		j++
	}
	if j < len(src) && src[j] == '[' {
		return j - i - 1, true
	}
	return 0, false
}

// findLongBracketClose returns the end of the body and the index after the
// closing bracket. An unterminated bracket runs to the end of the source.
func findLongBracketClose(src []byte, from, level int) (int, int) {
	closing := "]" + strings.Repeat("=", level) + "]"
	idx := bytes.Index(src[from:], []byte(closing))
	if idx < 0 {
		return len(src), len(src)
	}
	return from + idx, from + idx + len(closing)
}

// skipQuotedString returns the index after a quoted string. Escaped
// newlines and the \z escape continue the string onto the next line.
func skipQuotedString(src []byte, i int) int {
	quote := src[i]
	i++
	for i < len(src) {
		switch src[i] {
		case '\\':
			i += 2
			if i-1 >= len(src) {
				continue
			}
			switch src[i-1] {
			case 'z':
				for i < len(src) && isLuaSpace(src[i]) {
					i++
				}
			case '\r':
				if i < len(src) && src[i] == '\n' {
					i++
				}
			}
			continue
		case quote:
			return i + 1
		case '\n':
			return i
		}
		i++
	}
	return len(src)
}

func isLuaSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

// isDocLineComment matches '---' comments but not '----' separators.
func isDocLineComment(text string) bool {
	if !strings.HasPrefix(text, "---") {
		return false
	}
	return len(text) == 3 || text[3] != '-'
}

func stripDocLinePrefix(text string) string {
	text = strings.TrimPrefix(text, "---")
	text = strings.TrimPrefix(text, " ")
	return strings.TrimRight(text, " \t\r")
}

func splitBlockBody(body string) []string {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// dedent removes the indentation shared by all non-blank lines.
func dedent(lines []string) []string {
	prefix := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if prefix < 0 || n < prefix {
			prefix = n
		}
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		l = strings.TrimRight(l, " \t\r")
		if len(l) >= prefix && prefix > 0 {
			l = l[prefix:]
		}
		out[i] = l
	}
	return out
}

// attachDeclarations fills Decl with the code that follows each block. A
// declaration whose parameter list spans several lines is joined.
func attachDeclarations(src []byte, blocks []commentBlock) {
	if len(blocks) == 0 {
		return
	}
	lines := strings.Split(strings.ReplaceAll(string(src), "\r\n", "\n"), "\n")
	for b := range blocks {
		for n := blocks[b].EndLine; n < len(lines); n++ {
			text := strings.TrimSpace(lines[n])
			if text == "" {
				continue
			}
			if strings.HasPrefix(text, "--") {
				break
			}
			blocks[b].DeclLine = n + 1
			blocks[b].Decl = joinDeclaration(lines[n:])
			break
		}
	}
}

const maxDeclarationLines = 32

func joinDeclaration(lines []string) string {
	var (
		parts  []string
		depth  int
		opened bool
	)
	for i, l := range lines {
		if i == maxDeclarationLines {
			break
		}
		text := strings.TrimSpace(l)
		parts = append(parts, text)
		for _, r := range text {
			switch r {
			case '(':
				depth++
				opened = true
			case ')':
				depth--
			}
		}
		if !opened || depth <= 0 {
			break
		}
	}
	return strings.Join(parts, " ")
}
