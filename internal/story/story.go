package story

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Special passage names.
const (
	TitlePassage = "StoryTitle"
	DataPassage  = "StoryData"
	// DefaultStart is used when StoryData names no start passage.
	DefaultStart = "Start"
)

// Data is the content of the StoryData passage.
type Data struct {
	IFID          string         `json:"ifid"`
	Format        string         `json:"format"`
	FormatVersion string         `json:"format-version"`
	Start         string         `json:"start"`
	TagColors     map[string]any `json:"tag-colors"`
	Zoom          float64        `json:"zoom"`
}

// Story is the set of passages of one story.
type Story struct {
	Title string
	Data  Data

	passages map[string]*Passage
	order    []string
}

// New creates an empty story.
func New() *Story {
	return &Story{passages: make(map[string]*Passage)}
}

// Add adds passages in order. StoryTitle and StoryData are consumed into
// Title and Data. Duplicate names are rejected.
func (s *Story) Add(passages ...*Passage) error {
	for _, p := range passages {
		switch p.Name {
		case TitlePassage:
			s.Title = strings.TrimSpace(p.Text)
			continue
		case DataPassage:
			if err := json.Unmarshal([]byte(p.Text), &s.Data); err != nil {
				return &ParseError{File: p.File, Line: p.Line, Message: fmt.Sprintf("invalid StoryData: %v", err)}
			}
			continue
		}

		if existing, ok := s.passages[p.Name]; ok {
			return &ParseError{
				File:    p.File,
				Line:    p.Line - 1,
				Message: fmt.Sprintf("passage %q already defined at %s:%d", p.Name, existing.File, existing.Line-1),
			}
		}
		s.passages[p.Name] = p
		s.order = append(s.order, p.Name)
	}
	return nil
}

// Get returns the named passage, or nil.
func (s *Story) Get(name string) *Passage {
	return s.passages[name]
}

// Passage returns the text of the named passage.
func (s *Story) Passage(name string) (string, bool) {
	p, ok := s.passages[name]
	if !ok {
		return "", false
	}
	return p.Text, true
}

// Names returns the passage names in source order.
func (s *Story) Names() []string {
	return append([]string(nil), s.order...)
}

// Len returns the number of passages.
func (s *Story) Len() int {
	return len(s.passages)
}

// Start returns the name of the start passage.
func (s *Story) Start() string {
	if s.Data.Start != "" {
		return s.Data.Start
	}
	return DefaultStart
}

// IsSourceFile reports whether path names a Twee source file.
func IsSourceFile(path string) bool {
	switch filepath.Ext(path) {
	case ".twee", ".tw":
		return true
	}
	return false
}

// Load parses every Twee file under dir concurrently and merges them in
// path order.
func Load(ctx context.Context, dir string, logger *slog.Logger) (*Story, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if IsSourceFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan story directory: %w", err)
	}
	sort.Strings(files)

	parsed := make([][]*Passage, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			passages, err := ParseTwee(path, src)
			if err != nil {
				return err
			}
			parsed[i] = passages
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := New()
	for i, passages := range parsed {
		if err := s.Add(passages...); err != nil {
			return nil, err
		}
		logger.Debug("loaded story file", "file", files[i], "passages", len(passages))
	}

	logger.Info("story loaded", "dir", dir, "files", len(files), "passages", s.Len())
	return s, nil
}
