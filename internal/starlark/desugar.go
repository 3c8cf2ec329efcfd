package starlark

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// StateGlobal is the global through which story variables are reached.
const StateGlobal = "State"

// operatorWords maps story-script operator words to Starlark operators.
var operatorWords = map[string]string{
	"to":    "=",
	"is":    "==",
	"isnot": "!=",
	"eq":    "==",
	"neq":   "!=",
	"gt":    ">",
	"gte":   ">=",
	"lt":    "<",
	"lte":   "<=",
}

// Desugar rewrites story-script source into Starlark:
//
//	$name        -> State.name
//	to, is, eq…  -> =, ==, ==…
//	===, !==     -> ==, !=
//	&&, ||, !x   -> and, or, not x
//
// String literals are copied unchanged.
func Desugar(src string) string {
	var b strings.Builder
	b.Grow(len(src) + 16)

	i := 0
	for i < len(src) {
		c := src[i]
		r, size := utf8.DecodeRuneInString(src[i:])

		switch {
		case c == '"' || c == '\'':
			end := scanString(src, i)
			b.WriteString(src[i:end])
			i = end

		case c == '#':
			// Comment: copy to end of line.
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				end = len(src) - i
			}
			b.WriteString(src[i : i+end])
			i += end

		case c == '$' && i+1 < len(src) && isIdentStart(firstRune(src[i+1:])):
			end := scanIdent(src, i+1)
			b.WriteString(StateGlobal)
			b.WriteByte('.')
			b.WriteString(src[i+1 : end])
			i = end

		case strings.HasPrefix(src[i:], "==="):
			b.WriteString("==")
			i += 3

		case strings.HasPrefix(src[i:], "!=="):
			b.WriteString("!=")
			i += 3

		case strings.HasPrefix(src[i:], "&&"):
			b.WriteString(" and ")
			i += 2

		case strings.HasPrefix(src[i:], "||"):
			b.WriteString(" or ")
			i += 2

		case c == '!' && !strings.HasPrefix(src[i:], "!="):
			b.WriteString("not ")
			i++

		case isIdentStart(r) && (i == 0 || !isIdentPart(lastRune(src[:i])) && src[i-1] != '.'):
			end := scanIdent(src, i)
			word := src[i:end]
			if op, ok := operatorWords[word]; ok {
				b.WriteString(op)
			} else {
				b.WriteString(word)
			}
			i = end

		default:
			b.WriteString(src[i : i+size])
			i += size
		}
	}

	return b.String()
}

// scanString returns the index just past the string literal starting at i.
// Triple-quoted literals are supported; an unterminated literal runs to the
// end of src.
func scanString(src string, i int) int {
	quote := src[i]
	if strings.HasPrefix(src[i:], strings.Repeat(string(quote), 3)) {
		delim := strings.Repeat(string(quote), 3)
		end := strings.Index(src[i+3:], delim)
		if end < 0 {
			return len(src)
		}
		return i + 3 + end + 3
	}

	j := i + 1
	for j < len(src) {
		switch src[j] {
		case '\\':
			j += 2
			continue
		case quote:
			return j + 1
		case '\n':
			return j
		}
		j++
	}
	return len(src)
}

// scanIdent returns the index just past the identifier starting at i.
func scanIdent(src string, i int) int {
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		if !isIdentPart(r) {
			break
		}
		i += size
	}
	return i
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}

func lastRune(s string) rune {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}
