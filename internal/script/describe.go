package script

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.starlark.net/syntax"
)

// FunctionDoc describes one exported helper function.
type FunctionDoc struct {
	Name      string   `json:"name"`
	Params    []string `json:"params"` // with defaults, e.g. "count=1"
	Docstring string   `json:"docstring,omitempty"`
	Line      int      `json:"line"`
}

// Signature returns a human-readable call signature.
func (f *FunctionDoc) Signature() string {
	return f.Name + "(" + strings.Join(f.Params, ", ") + ")"
}

// Summary returns the first line of the docstring.
func (f *FunctionDoc) Summary() string {
	first, _, _ := strings.Cut(f.Docstring, "\n")
	return strings.TrimSpace(first)
}

// ModuleDoc describes a helper file without executing it.
type ModuleDoc struct {
	Namespace string         `json:"namespace"`
	Path      string         `json:"path"`
	Functions []*FunctionDoc `json:"functions"`
}

// Describe statically parses a .star file and lists its exported functions.
func Describe(filename string, content []byte) (*ModuleDoc, error) {
	f, err := syntax.Parse(filename, content, 0)
	if err != nil {
		return nil, &LoadError{File: filename, Message: err.Error()}
	}

	doc := &ModuleDoc{
		Namespace: strings.TrimSuffix(filepath.Base(filename), ".star"),
		Path:      filename,
	}

	for _, stmt := range f.Stmts {
		def, ok := stmt.(*syntax.DefStmt)
		if !ok || strings.HasPrefix(def.Name.Name, "_") {
			continue
		}
		doc.Functions = append(doc.Functions, &FunctionDoc{
			Name:      def.Name.Name,
			Params:    paramStrings(def.Params),
			Docstring: docstring(def.Body),
			Line:      int(def.Name.NamePos.Line),
		})
	}

	return doc, nil
}

// DescribeDir describes every .star file in dir, sorted by namespace.
// A missing directory yields no modules and no error.
func DescribeDir(dir string) ([]*ModuleDoc, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.star"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan scripts directory: %w", err)
	}
	sort.Strings(files)

	docs := make([]*ModuleDoc, 0, len(files))
	for _, file := range files {
		content, err := os.ReadFile(file) //nolint:gosec // G304: path comes from a glob within the scripts directory
		if err != nil {
			return nil, &LoadError{File: file, Message: fmt.Sprintf("failed to read file: %v", err)}
		}
		doc, err := Describe(file, content)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func paramStrings(params []syntax.Expr) []string {
	var out []string
	for _, param := range params {
		switch p := param.(type) {
		case *syntax.Ident:
			out = append(out, p.Name)
		case *syntax.BinaryExpr:
			if ident, ok := p.X.(*syntax.Ident); ok && p.Op == syntax.EQ {
				out = append(out, ident.Name+"="+exprString(p.Y))
			}
		case *syntax.UnaryExpr:
			prefix := "*"
			if p.Op == syntax.STARSTAR {
				prefix = "**"
			}
			if ident, ok := p.X.(*syntax.Ident); ok {
				out = append(out, prefix+ident.Name)
			} else {
				out = append(out, prefix)
			}
		}
	}
	return out
}

func docstring(body []syntax.Stmt) string {
	if len(body) == 0 {
		return ""
	}
	exprStmt, ok := body[0].(*syntax.ExprStmt)
	if !ok {
		return ""
	}
	lit, ok := exprStmt.X.(*syntax.Literal)
	if !ok || lit.Token != syntax.STRING {
		return ""
	}
	s, _ := lit.Value.(string)
	return strings.TrimSpace(s)
}

func exprString(expr syntax.Expr) string {
	switch e := expr.(type) {
	case *syntax.Literal:
		return e.Raw
	case *syntax.Ident:
		return e.Name
	case *syntax.ListExpr:
		return "[]"
	case *syntax.DictExpr:
		return "{}"
	case *syntax.TupleExpr:
		return "()"
	case *syntax.UnaryExpr:
		if e.Op == syntax.MINUS {
			return "-" + exprString(e.X)
		}
		return exprString(e.X)
	default:
		return "..."
	}
}
