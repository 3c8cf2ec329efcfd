package markup

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapstory/internal/macro"
)

// Grammar resolves macro names during parsing. *macro.Registry satisfies it.
type Grammar interface {
	Lookup(name string) (*macro.Definition, bool)
	Parents(name string) []string
}

// Parser converts tokens into a Document.
type Parser struct {
	src     string
	file    string
	tokens  []Token
	grammar Grammar
	pos     int
}

// NewParser creates a parser for src starting at base.
func NewParser(src string, base Position, g Grammar) *Parser {
	return &Parser{
		src:     src,
		file:    base.File,
		tokens:  NewLexer(src, base).Tokenize(),
		grammar: g,
	}
}

// Parse is a convenience function that parses src in one call.
// Malformed markup becomes BadNodes; parsing itself never fails.
func Parse(src string, base Position, g Grammar) *Document {
	return NewParser(src, base, g).Parse()
}

// Parse builds the document.
func (p *Parser) Parse() *Document {
	doc := &Document{File: p.file}

	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]

		switch tok.Type {
		case TokenEOF:
			return doc
		case TokenText:
			doc.Nodes = append(doc.Nodes, &TextNode{nodeBase: nodeBase{pos: tok.Pos}, Text: tok.Value})
			p.pos++
		case TokenBad:
			err := macro.Errorf(tok.Name, "%s", tok.Err)
			doc.Nodes = append(doc.Nodes, badNode(err, tok.Value, tok.Pos))
			p.pos++
		case TokenMacro:
			doc.Nodes = append(doc.Nodes, p.parseMacro())
		}
	}

	return doc
}

// parseMacro parses the invocation whose opening tag is the current token.
func (p *Parser) parseMacro() Node {
	tok := p.tokens[p.pos]
	p.pos++

	if name, ok := closerName(p.grammar, tok.Name); ok {
		return badNode(macro.Errorf(name, "closing tag %s has no matching opening tag", tok.Value), tok.Value, tok.Pos)
	}

	def, ok := p.grammar.Lookup(tok.Name)
	if !ok {
		if parents := p.grammar.Parents(tok.Name); len(parents) > 0 {
			return badNode(orphanTagError(tok.Name, parents), tok.Value, tok.Pos)
		}
		// Unknown names are reported by the renderer.
		return p.leaf(tok)
	}
	if !def.Container {
		return p.leaf(tok)
	}

	end := p.findClose(tok.Name)
	if end < 0 {
		err := macro.Errorf(tok.Name, "cannot find a closing tag for macro <<%s>>", tok.Name)
		return badNode(err, tok.Value, tok.Pos)
	}
	closeTok := p.tokens[end]
	p.pos = end + 1

	source := p.src[tok.Start:closeTok.End]
	body := p.src[tok.End:closeTok.Start]

	clauses, err := SplitClauses(p.grammar, def, tok.Args, body, tok.EndPos)
	if err != nil {
		return badNode(macro.AsError(nil, err), source, tok.Pos)
	}
	clauses[0].MarkerPos = tok.Pos

	return &MacroNode{
		nodeBase: nodeBase{pos: tok.Pos},
		Name:     tok.Name,
		Args:     tok.Args,
		Clauses:  clauses,
		Source:   source,
	}
}

func (p *Parser) leaf(tok Token) *MacroNode {
	return &MacroNode{
		nodeBase: nodeBase{pos: tok.Pos},
		Name:     tok.Name,
		Args:     tok.Args,
		Source:   tok.Value,
	}
}

// findClose returns the index of the token closing the container name
// opened just before the current token, or -1.
func (p *Parser) findClose(name string) int {
	var open []string
	for i := p.pos; i < len(p.tokens); i++ {
		tok := p.tokens[i]
		if tok.Type != TokenMacro {
			continue
		}
		if closed, ok := closerName(p.grammar, tok.Name); ok {
			switch {
			case len(open) > 0 && open[len(open)-1] == closed:
				open = open[:len(open)-1]
			case closed == name:
				return i
			}
			continue
		}
		if isContainer(p.grammar, tok.Name) {
			open = append(open, tok.Name)
		}
	}
	return -1
}

// SplitClauses splits the body of a container invocation into its clause
// list. The primary clause carries args and the text before the first
// sibling tag of def found at the top nesting level; every such tag starts
// a new clause. pos is the position of the first byte of body.
//
// A child tag that belongs to another container is a structural error.
// Concatenating Marker and Raw of every clause reproduces body exactly.
func SplitClauses(g Grammar, def *macro.Definition, args, body string, pos Position) (macro.Clauses, error) {
	tokens := NewLexer(body, pos).Tokenize()

	clauses := macro.Clauses{{Name: def.Name, Args: macro.Args{Raw: args}}}
	rawStart, rawPos := 0, pos

	var open []string
	for _, tok := range tokens {
		if tok.Type != TokenMacro {
			continue
		}

		if closed, ok := closerName(g, tok.Name); ok {
			if len(open) > 0 && open[len(open)-1] == closed {
				open = open[:len(open)-1]
			}
			continue
		}

		if len(open) == 0 {
			if def.HasTag(tok.Name) {
				finishClause(&clauses[len(clauses)-1], body[rawStart:tok.Start], rawPos)
				clauses = append(clauses, macro.Clause{
					Name:      tok.Name,
					Args:      macro.Args{Raw: tok.Args},
					Marker:    tok.Value,
					MarkerPos: tok.Pos,
				})
				rawStart, rawPos = tok.End, tok.EndPos
				continue
			}
			if _, ok := g.Lookup(tok.Name); !ok && len(g.Parents(tok.Name)) > 0 {
				return nil, macro.Errorf(def.Name, "<<%s>> is not a valid child tag of <<%s>>", tok.Name, def.Name)
			}
		}

		if isContainer(g, tok.Name) {
			open = append(open, tok.Name)
		}
	}

	finishClause(&clauses[len(clauses)-1], body[rawStart:], rawPos)
	return clauses, nil
}

func finishClause(c *macro.Clause, raw string, pos Position) {
	c.Raw = raw
	c.Contents = strings.TrimSpace(raw)
	c.Pos = advancePos(pos, raw[:len(raw)-len(strings.TrimLeft(raw, " \t\r\n\f\v"))])
}

// closerName reports whether name closes a container, returning the
// container's name. Both <</name>> and <<endname>> close name.
func closerName(g Grammar, name string) (string, bool) {
	if rest, ok := strings.CutPrefix(name, "/"); ok {
		return rest, true
	}
	if rest, ok := strings.CutPrefix(name, "end"); ok {
		if _, isMacro := g.Lookup(name); isMacro {
			return "", false
		}
		if isContainer(g, rest) {
			return rest, true
		}
	}
	return "", false
}

func isContainer(g Grammar, name string) bool {
	def, ok := g.Lookup(name)
	return ok && def.Container
}

func orphanTagError(name string, parents []string) *macro.Error {
	if len(parents) == 1 {
		return macro.Errorf(name, "must only be used in conjunction with its parent macro <<%s>>", parents[0])
	}
	quoted := make([]string, len(parents))
	for i, parent := range parents {
		quoted[i] = fmt.Sprintf("<<%s>>", parent)
	}
	return macro.Errorf(name, "must only be used in conjunction with one of its parent macros %s", strings.Join(quoted, ", "))
}

func badNode(err *macro.Error, source string, pos Position) *BadNode {
	if err.Source == "" {
		err.Source = source
	}
	if err.Pos == (Position{}) {
		err.Pos = pos
	}
	return &BadNode{nodeBase: nodeBase{pos: pos}, Err: err}
}
