package starlark

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
)

// ArgKind identifies the lexical form of a macro argument.
type ArgKind int

// ArgKind constants.
const (
	ArgBareword   ArgKind = iota // literal word, number, keyword or $variable
	ArgString                    // "quoted" or 'quoted'
	ArgExpression                // `backquoted expression`
)

// ArgToken is one raw macro argument.
type ArgToken struct {
	Kind ArgKind
	Text string // token text including any quotes or backquotes
}

// ArgSyntaxError reports malformed macro argument text.
type ArgSyntaxError struct {
	Raw     string
	Message string
}

func (e *ArgSyntaxError) Error() string {
	return fmt.Sprintf("%s in arguments %q", e.Message, e.Raw)
}

// SplitArgs splits macro argument text into tokens. Whitespace and commas
// separate tokens; quoted strings and backquoted expressions are kept whole.
func SplitArgs(raw string) ([]ArgToken, error) {
	var tokens []ArgToken

	i := 0
	for i < len(raw) {
		c := raw[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ',':
			i++

		case c == '"' || c == '\'':
			end := scanString(raw, i)
			if end > len(raw) || end-i < 2 || raw[end-1] != c {
				return nil, &ArgSyntaxError{Raw: raw, Message: "unterminated quoted string"}
			}
			tokens = append(tokens, ArgToken{Kind: ArgString, Text: raw[i:end]})
			i = end

		case c == '`':
			end := strings.IndexByte(raw[i+1:], '`')
			if end < 0 {
				return nil, &ArgSyntaxError{Raw: raw, Message: "unterminated backquote expression"}
			}
			tokens = append(tokens, ArgToken{Kind: ArgExpression, Text: raw[i : i+end+2]})
			i += end + 2

		default:
			start := i
			for i < len(raw) && !strings.ContainsRune(" \t\n\r,\"'`", rune(raw[i])) {
				i++
			}
			tokens = append(tokens, ArgToken{Kind: ArgBareword, Text: raw[start:i]})
		}
	}

	return tokens, nil
}

// EvalArgs splits and evaluates macro argument text. Quoted strings become
// strings, backquoted text is evaluated as an expression, and barewords
// become numbers, booleans, None, the value of a $variable, or otherwise
// the word itself as a string.
func (s *State) EvalArgs(raw, filename string, line int) ([]starlark.Value, error) {
	tokens, err := SplitArgs(raw)
	if err != nil {
		return nil, err
	}

	values := make([]starlark.Value, 0, len(tokens))
	for _, tok := range tokens {
		v, err := s.evalArg(tok, filename, line)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func (s *State) evalArg(tok ArgToken, filename string, line int) (starlark.Value, error) {
	switch tok.Kind {
	case ArgString:
		return s.EvalExpr(tok.Text, filename, line)
	case ArgExpression:
		return s.EvalExpr(tok.Text[1:len(tok.Text)-1], filename, line)
	}

	word := tok.Text
	switch word {
	case "true":
		return starlark.True, nil
	case "false":
		return starlark.False, nil
	case "null", "undefined":
		return starlark.None, nil
	case "NaN":
		return starlark.Float(math.NaN()), nil
	}

	if strings.HasPrefix(word, "$") {
		return s.EvalExpr(word, filename, line)
	}
	if i, err := strconv.ParseInt(word, 10, 64); err == nil {
		return starlark.MakeInt64(i), nil
	}
	if f, err := strconv.ParseFloat(word, 64); err == nil {
		return starlark.Float(f), nil
	}
	return starlark.String(word), nil
}
