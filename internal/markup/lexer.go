package markup

import (
	"strings"
	"unicode/utf8"
)

// TokenType identifies the type of token.
type TokenType int

// TokenType constants for markup token types.
const (
	TokenText  TokenType = iota // Literal story text
	TokenMacro                  // <<name args>>, <</name>> or <<endname>>
	TokenBad                    // Unterminated macro tag
	TokenEOF                    // End of input
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "TEXT"
	case TokenMacro:
		return "MACRO"
	case TokenBad:
		return "BAD"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Token represents a lexical token. Start and End are byte offsets into
// the lexer input; Value is always input[Start:End].
type Token struct {
	Type   TokenType
	Value  string
	Name   string // macro name, including a leading "/" for closing tags
	Args   string // raw argument text, untrimmed
	Err    string // message for TokenBad
	Pos    Position
	EndPos Position
	Start  int
	End    int
}

// Lexer tokenizes story markup.
type Lexer struct {
	input    string
	file     string
	pos      int // current position in input
	line     int // current line number (1-based)
	col      int // current column number (1-based)
	lastLine int // line at start of current token
	lastCol  int // column at start of current token
	lastPos  int // offset at start of current token
}

// NewLexer creates a new lexer for input that starts at base. A zero base
// means line 1, column 1 of an unnamed file.
func NewLexer(input string, base Position) *Lexer {
	if base.Line == 0 {
		base.Line, base.Column = 1, 1
	}
	return &Lexer{
		input: input,
		file:  base.File,
		line:  base.Line,
		col:   base.Column,
	}
}

// Tokenize converts the input into a slice of tokens ending with TokenEOF.
// Malformed tags become TokenBad tokens rather than errors.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token

	for {
		tok := l.nextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}

	return tokens
}

// nextToken returns the next token from the input.
func (l *Lexer) nextToken() Token {
	l.markStart()

	if l.pos >= len(l.input) {
		return l.emit(TokenEOF)
	}

	if l.atTag() {
		return l.scanMacro()
	}

	return l.scanText()
}

// scanText scans literal text until a macro tag or EOF.
func (l *Lexer) scanText() Token {
	for l.pos < len(l.input) && !l.atTag() {
		l.advance()
	}
	return l.emit(TokenText)
}

// scanMacro scans a <<name args>> tag. Quoted strings and backquoted
// expressions in the arguments may contain ">>".
func (l *Lexer) scanMacro() Token {
	// Skip <<
	l.pos += 2
	l.col += 2

	nameStart := l.pos
	if l.peek() == '/' {
		l.advance()
	}
	if r := l.peek(); r == '=' || r == '-' {
		l.advance()
	} else {
		for l.pos < len(l.input) && isNamePart(l.input[l.pos]) {
			l.advance()
		}
	}
	name := l.input[nameStart:l.pos]

	argsStart := l.pos
	var quote byte
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch {
		case quote != 0:
			if c == '\\' && quote != '`' {
				l.advance()
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case l.matchString(">>"):
			args := l.input[argsStart:l.pos]
			l.pos += 2
			l.col += 2
			tok := l.emit(TokenMacro)
			tok.Name = name
			tok.Args = args
			return tok
		}
		l.advance()
	}

	// Unterminated: either an open quote swallowed the closing >>, or
	// there is no closing >> at all. Resynchronise after the first plain
	// ">>" when there is one, otherwise after the tag name.
	msg := "unclosed macro tag <<" + name + ">>"
	if end := strings.Index(l.input[argsStart:], ">>"); end >= 0 {
		msg = "unterminated quoted string in arguments of <<" + name + ">>"
		l.reset(argsStart + end + 2)
	} else {
		l.reset(argsStart)
	}
	tok := l.emit(TokenBad)
	tok.Name = strings.TrimPrefix(name, "/")
	tok.Err = msg
	return tok
}

// Helper methods

// atTag reports whether a macro tag starts at the current position.
func (l *Lexer) atTag() bool {
	if !l.matchString("<<") {
		return false
	}
	rest := l.input[l.pos+2:]
	if rest == "" {
		return false
	}
	if rest[0] == '=' || rest[0] == '-' {
		return true
	}
	rest = strings.TrimPrefix(rest, "/")
	return rest != "" && isNameStart(rest[0])
}

// peek returns the current rune without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

// advance moves to the next rune, updating position tracking.
func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

// reset rewinds to the token start and advances to offset.
func (l *Lexer) reset(offset int) {
	l.pos, l.line, l.col = l.lastPos, l.lastLine, l.lastCol
	for l.pos < offset {
		l.advance()
	}
}

// matchString checks if the input at current position matches s.
func (l *Lexer) matchString(s string) bool {
	return strings.HasPrefix(l.input[l.pos:], s)
}

// markStart records the start position for the current token.
func (l *Lexer) markStart() {
	l.lastLine = l.line
	l.lastCol = l.col
	l.lastPos = l.pos
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{File: l.file, Line: l.line, Column: l.col}
}

// startPosition returns the position where the current token started.
func (l *Lexer) startPosition() Position {
	return Position{File: l.file, Line: l.lastLine, Column: l.lastCol}
}

// emit builds a token spanning from the last mark to the current position.
func (l *Lexer) emit(typ TokenType) Token {
	return Token{
		Type:   typ,
		Value:  l.input[l.lastPos:l.pos],
		Pos:    l.startPosition(),
		EndPos: l.position(),
		Start:  l.lastPos,
		End:    l.pos,
	}
}

func isNameStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isNamePart(c byte) bool {
	return isNameStart(c) || c >= '0' && c <= '9' || c == '_' || c == '-'
}

// advancePos returns the position reached after reading s from pos.
func advancePos(pos Position, s string) Position {
	for _, r := range s {
		if r == '\n' {
			pos.Line++
			pos.Column = 1
		} else {
			pos.Column++
		}
	}
	return pos
}
