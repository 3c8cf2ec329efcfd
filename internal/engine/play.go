package engine

import (
	"fmt"

	"github.com/leapstack-labs/leapstory/internal/macro"
	"github.com/leapstack-labs/leapstory/internal/markup"
	"github.com/leapstack-labs/leapstory/internal/state"
)

// Play enters the named passage: the current variables are recorded as a
// history moment and the passage is rendered against them.
func (e *Engine) Play(name string) (*macro.Output, error) {
	return e.visit(name, true)
}

// Render renders the named passage without entering it.
func (e *Engine) Render(name string) (*macro.Output, error) {
	p := e.story.Get(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrPassageNotFound, name)
	}
	return e.renderPassage(name), nil
}

// RenderString renders ad-hoc markup in a fresh pass.
func (e *Engine) RenderString(src, file string) *macro.Output {
	return e.renderer.RenderString(src, file)
}

func (e *Engine) visit(name string, record bool) (*macro.Output, error) {
	if e.story.Get(name) == nil {
		return nil, fmt.Errorf("%w: %q", ErrPassageNotFound, name)
	}

	snap, err := e.state.Vars.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot variables: %w", err)
	}

	if record && e.store != nil {
		if _, err := e.store.RecordMoment(name, snap); err != nil {
			return nil, err
		}
	}

	e.current = name
	e.entry = snap
	e.logger.Debug("passage entered", "passage", name, "variables", len(snap))

	return e.renderPassage(name), nil
}

func (e *Engine) renderPassage(name string) *macro.Output {
	p := e.story.Get(name)
	out := macro.NewOutput()
	// A top-level pass never exceeds the budget.
	_ = e.renderer.Render(p.Text, markup.Position{File: name, Line: 1, Column: 1}, out)

	if !e.cfg.Nobr && p.HasTag(NobrTag) {
		out.MapText(markup.Nobr)
	}
	if errs := out.Errors(); len(errs) > 0 {
		e.logger.Debug("passage rendered with errors", "passage", name, "errors", len(errs))
	}
	return out
}

// History returns the recorded moments, oldest first.
func (e *Engine) History() ([]*state.Moment, error) {
	if e.store == nil {
		return nil, ErrNoStateStore
	}
	return e.store.History()
}

// Resume restores the most recent moment and renders its passage
// without recording a new moment.
func (e *Engine) Resume() (*macro.Output, error) {
	if e.store == nil {
		return nil, ErrNoStateStore
	}
	m, err := e.store.LatestMoment()
	if err != nil {
		return nil, err
	}
	if err := e.state.Vars.Restore(m.Variables); err != nil {
		return nil, fmt.Errorf("failed to restore moment %s: %w", m.ID, err)
	}
	return e.visit(m.Passage, false)
}

// Save stores the current passage and the variables it was entered with.
func (e *Engine) Save(slot int, title string) (*state.Save, error) {
	if e.store == nil {
		return nil, ErrNoStateStore
	}
	if e.current == "" {
		return nil, fmt.Errorf("nothing to save: no passage has been played")
	}
	return e.store.SaveSlot(slot, title, e.current, e.entry)
}

// Load restores a save slot and re-enters its passage.
func (e *Engine) Load(slot int) (*macro.Output, error) {
	if e.store == nil {
		return nil, ErrNoStateStore
	}
	save, err := e.store.LoadSlot(slot)
	if err != nil {
		return nil, err
	}
	if err := e.state.Vars.Restore(save.Variables); err != nil {
		return nil, fmt.Errorf("failed to restore slot %d: %w", slot, err)
	}
	return e.visit(save.Passage, true)
}

// Eval evaluates an expression against the narrative state.
func (e *Engine) Eval(expr string) (string, error) {
	return e.state.EvalExprString(expr, "repl", 1)
}

// Exec executes statements against the narrative state.
func (e *Engine) Exec(stmt string) error {
	return e.state.ExecStmt(stmt, "repl", 1)
}
