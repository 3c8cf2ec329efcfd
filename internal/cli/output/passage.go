package output

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapstory/internal/macro"
)

// PassageOutput is the JSON form of a rendered passage.
type PassageOutput struct {
	Passage string      `json:"passage,omitempty"`
	Text    string      `json:"text"`
	Errors  []ErrorInfo `json:"errors"`
}

// ErrorInfo is the JSON form of an error marker.
type ErrorInfo struct {
	Kind     string `json:"kind"`
	Macro    string `json:"macro,omitempty"`
	Message  string `json:"message"`
	Position string `json:"position"`
	Source   string `json:"source,omitempty"`
}

// NewPassageOutput converts rendered output to its JSON form.
func NewPassageOutput(name string, out *macro.Output) PassageOutput {
	po := PassageOutput{
		Passage: name,
		Text:    out.Text(),
		Errors:  []ErrorInfo{},
	}
	for _, err := range out.Errors() {
		po.Errors = append(po.Errors, NewErrorInfo(err))
	}
	return po
}

// NewErrorInfo converts a macro error to its JSON form.
func NewErrorInfo(err *macro.Error) ErrorInfo {
	return ErrorInfo{
		Kind:     err.Kind.String(),
		Macro:    err.Macro,
		Message:  err.Message,
		Position: err.Pos.String(),
		Source:   err.Source,
	}
}

// Passage writes rendered passage output. Error markers are highlighted
// in text mode and emphasized in markdown.
func (r *Renderer) Passage(name string, out *macro.Output) error {
	mode := r.EffectiveMode()
	if mode == ModeJSON {
		return r.JSON(NewPassageOutput(name, out))
	}

	if name != "" {
		if mode == ModeMarkdown {
			r.Println(FormatHeader(2, name))
			r.Println("")
		} else {
			r.Println(r.styles.Passage.Render(name))
		}
	}

	var b strings.Builder
	for _, n := range out.Nodes() {
		switch node := n.(type) {
		case *macro.TextNode:
			b.WriteString(node.Text)
		case *macro.MarkerNode:
			marker := "Error: " + node.Err.Error()
			if mode == ModeMarkdown {
				b.WriteString("**" + marker + "**")
			} else {
				b.WriteString(r.styles.Marker.Render(marker))
			}
		}
	}
	text := b.String()
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	r.Printf("%s", text)
	return nil
}

// Table writes rows under header: a box table in text mode and a markdown
// table otherwise.
func (r *Renderer) Table(header []string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	t.AppendHeader(headerRow)

	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, cell := range row {
			tr[i] = cell
		}
		t.AppendRow(tr)
	}

	if r.EffectiveMode() == ModeMarkdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}
