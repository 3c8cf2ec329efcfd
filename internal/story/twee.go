// Package story loads story passages from Twee 3 source files.
package story

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Passage is one named block of story markup.
type Passage struct {
	Name     string
	Tags     []string
	Metadata map[string]any
	Text     string
	File     string
	Line     int // line of the first text line
}

// HasTag reports whether the passage carries tag.
func (p *Passage) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ParseError reports malformed Twee source.
type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
}

// ParseTwee parses Twee 3 source. Text before the first passage header is
// ignored.
func ParseTwee(file string, src []byte) ([]*Passage, error) {
	var (
		passages []*Passage
		current  *Passage
		body     []string
	)

	flush := func() {
		if current != nil {
			current.Text = strings.TrimRight(strings.Join(body, "\n"), "\n")
			passages = append(passages, current)
		}
		body = nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(src))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSuffix(scanner.Text(), "\r")

		if header, ok := strings.CutPrefix(text, "::"); ok {
			flush()
			p, err := parseHeader(header)
			if err != nil {
				return nil, &ParseError{File: file, Line: line, Message: err.Error()}
			}
			p.File = file
			p.Line = line + 1
			current = p
			continue
		}

		if current != nil {
			// A leading backslash escapes a line that would read as a header.
			if strings.HasPrefix(text, `\::`) {
				text = text[1:]
			}
			body = append(body, text)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	flush()

	return passages, nil
}

// parseHeader parses "Name [tags] {metadata}" after the leading "::".
func parseHeader(header string) (*Passage, error) {
	header = strings.TrimSpace(header)
	p := &Passage{}

	name, rest := splitName(header)
	p.Name = unescapeName(strings.TrimSpace(name))
	if p.Name == "" {
		return nil, fmt.Errorf("passage header has no name")
	}

	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, fmt.Errorf("passage %q: unterminated tag block", p.Name)
		}
		p.Tags = strings.Fields(rest[1:end])
		rest = strings.TrimSpace(rest[end+1:])
	}

	if strings.HasPrefix(rest, "{") {
		dec := json.NewDecoder(strings.NewReader(rest))
		dec.UseNumber()
		if err := dec.Decode(&p.Metadata); err != nil {
			return nil, fmt.Errorf("passage %q: invalid metadata: %w", p.Name, err)
		}
		rest = ""
	}

	if rest != "" {
		return nil, fmt.Errorf("passage %q: unexpected text %q in header", p.Name, rest)
	}
	return p, nil
}

// splitName returns the name part of a header and the remainder starting
// at the first unescaped '[' or '{'.
func splitName(header string) (string, string) {
	for i := 0; i < len(header); i++ {
		switch header[i] {
		case '\\':
			i++
		case '[', '{':
			return header[:i], header[i:]
		}
	}
	return header, ""
}

func unescapeName(name string) string {
	if !strings.Contains(name, `\`) {
		return name
	}
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		if name[i] == '\\' && i+1 < len(name) {
			i++
		}
		b.WriteByte(name[i])
	}
	return b.String()
}
