package macro

import "strings"

// Node is one piece of rendered output.
type Node interface {
	node() // marker method to restrict implementation
}

// TextNode is a run of rendered text.
type TextNode struct {
	Text string
}

// MarkerNode is a visible error marker left by a failed invocation.
type MarkerNode struct {
	Err *Error
}

func (*TextNode) node()   {}
func (*MarkerNode) node() {}

// Output is an in-memory output sink. A fresh Output that is never
// appended to another one acts as a detached sink.
type Output struct {
	nodes []Node
}

// NewOutput creates an empty output sink.
func NewOutput() *Output {
	return &Output{}
}

// WriteString appends text, merging with a trailing text node.
func (o *Output) WriteString(s string) {
	if s == "" {
		return
	}
	if n := len(o.nodes); n > 0 {
		if last, ok := o.nodes[n-1].(*TextNode); ok {
			last.Text += s
			return
		}
	}
	o.nodes = append(o.nodes, &TextNode{Text: s})
}

// WriteError appends an error marker.
func (o *Output) WriteError(err *Error) {
	if err == nil {
		return
	}
	o.nodes = append(o.nodes, &MarkerNode{Err: err})
}

// Append moves the nodes of other onto the end of o.
func (o *Output) Append(other *Output) {
	if other == nil {
		return
	}
	for _, n := range other.nodes {
		switch v := n.(type) {
		case *TextNode:
			o.WriteString(v.Text)
		default:
			o.nodes = append(o.nodes, n)
		}
	}
	other.nodes = nil
}

// Nodes returns the rendered nodes in document order.
func (o *Output) Nodes() []Node {
	return o.nodes
}

// Len returns the number of nodes.
func (o *Output) Len() int {
	return len(o.nodes)
}

// Errors returns the error markers in document order.
func (o *Output) Errors() []*Error {
	var errs []*Error
	for _, n := range o.nodes {
		if m, ok := n.(*MarkerNode); ok {
			errs = append(errs, m.Err)
		}
	}
	return errs
}

// MapText rewrites every text node in place.
func (o *Output) MapText(fn func(string) string) {
	for _, n := range o.nodes {
		if t, ok := n.(*TextNode); ok {
			t.Text = fn(t.Text)
		}
	}
}

// Text returns the rendered text without error markers.
func (o *Output) Text() string {
	var b strings.Builder
	for _, n := range o.nodes {
		if t, ok := n.(*TextNode); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// String returns the rendered text with error markers inlined as
// "Error: <<name>>: message".
func (o *Output) String() string {
	var b strings.Builder
	for _, n := range o.nodes {
		switch v := n.(type) {
		case *TextNode:
			b.WriteString(v.Text)
		case *MarkerNode:
			b.WriteString("Error: ")
			b.WriteString(v.Err.Error())
		}
	}
	return b.String()
}
