// Package plagiarism turns pairs of matching file excerpts into a rendered
// report document.
package plagiarism

import (
	"fmt"
	"strconv"

	"github.com/WaterCountry/CodeGra.de/internal/document"
)

// Alignment controls how the two sides of a match are laid out.
type Alignment string

const (
	// AlignNewPage puts each side on its own page.
	AlignNewPage Alignment = "newpage"
	// AlignSideBySide puts the sides in two columns.
	AlignSideBySide Alignment = "sidebyside"
	// AlignSequential puts the sides one after another.
	AlignSequential Alignment = "sequential"
)

// Alignments lists every recognized alignment.
var Alignments = []Alignment{AlignNewPage, AlignSideBySide, AlignSequential}

// UnsupportedAlignmentError is returned for an Alignment outside Alignments.
// It indicates a caller error, not bad match data.
type UnsupportedAlignmentError struct {
	Align Alignment
}

func (e *UnsupportedAlignmentError) Error() string {
	return fmt.Sprintf("unknown matches align: %q", string(e.Align))
}

// FileMatch is one side of a match. StartLine is the 0-based index of the
// first matching line and EndLine the exclusive end, both into Lines, which
// holds the full file.
type FileMatch struct {
	StartLine int      `json:"start_line"`
	EndLine   int      `json:"end_line"`
	Lines     []string `json:"lines"`
	Name      string   `json:"name"`
	Owner     string   `json:"owner,omitempty"`
}

// Match is a pair of similar excerpts and the color used to mark them.
type Match struct {
	A     FileMatch `json:"match_a"`
	B     FileMatch `json:"match_b"`
	Color RGB       `json:"color"`
}

// Options tune how a report is built.
type Options struct {
	// ContextLines are shown before and after each match. Ignored when
	// EntireFiles is set.
	ContextLines int `json:"context_lines"`

	MatchesAlign Alignment `json:"matches_align"`

	// EntireFiles renders every file in full. Matches may not line up as
	// nicely in this mode.
	EntireFiles bool `json:"entire_files"`

	// Intro is optional Markdown rendered before the first match.
	Intro string `json:"intro,omitempty"`
}

// Builder builds plagiarism reports for one backend.
type Builder struct {
	backend string
	ids     *document.IDAllocator
}

// NewBuilder returns a builder rendering with the named backend. Highlight
// ids come from ids, or from a private allocator when ids is nil.
func NewBuilder(backend string, ids *document.IDAllocator) *Builder {
	if ids == nil {
		ids = &document.IDAllocator{}
	}
	return &Builder{backend: backend, ids: ids}
}

// Backend returns the name of the backend the builder renders with.
func (b *Builder) Backend() string { return b.backend }

// Build assembles the report document without rendering it.
func (b *Builder) Build(matches []Match, opts Options) (document.Root, error) {
	var nodes []document.Node
	if opts.Intro != "" {
		if intro := document.ParseMarkdown(opts.Intro); intro.Len() > 0 {
			nodes = append(nodes, intro)
		}
	}
	for i, m := range matches {
		section, err := b.section(i, m, opts)
		if err != nil {
			return document.Root{}, err
		}
		nodes = append(nodes, section)
	}
	return document.EmptyRoot().AddChildren(nodes...), nil
}

// Render builds the report and renders it. An unknown backend fails before
// anything is built.
func (b *Builder) Render(matches []Match, opts Options) ([]byte, error) {
	if _, err := document.Lookup(b.backend); err != nil {
		return nil, err
	}
	root, err := b.Build(matches, opts)
	if err != nil {
		return nil, err
	}
	return document.Render(b.backend, root)
}

func (b *Builder) section(index int, m Match, opts Options) (*document.Section, error) {
	bg, fg := Colors(m.Color)
	h := b.ids.NewHighlight(bg, fg)
	blockA := codeBlock(m.A, h, opts)
	blockB := codeBlock(m.B, h, opts)

	var children []document.SectionChild
	switch opts.MatchesAlign {
	case AlignSideBySide:
		children = []document.SectionChild{document.Columns(blockA, blockB)}
	case AlignSequential:
		children = []document.SectionChild{blockA, blockB}
	case AlignNewPage:
		children = []document.SectionChild{blockA, document.NewPage{}, blockB, document.NewPage{}}
	default:
		return nil, &UnsupportedAlignmentError{Align: opts.MatchesAlign}
	}

	return &document.Section{
		Heading:  "Match " + strconv.Itoa(index+1),
		Children: children,
	}, nil
}

// codeBlock cuts the window around a match out of its file.
func codeBlock(m FileMatch, h *document.Highlight, opts Options) *document.CodeBlock {
	start, end := 0, len(m.Lines)
	if !opts.EntireFiles {
		start = clamp(m.StartLine-opts.ContextLines, 0, len(m.Lines))
		end = clamp(m.EndLine+opts.ContextLines, start, len(m.Lines))
	}

	caption := captionFor(m)
	return &document.CodeBlock{
		FirstLine: start + 1,
		Lines:     append([]string(nil), m.Lines[start:end]...),
		Highlights: []document.HighlightRange{{
			Start:     m.StartLine + 1,
			End:       m.EndLine,
			Highlight: h,
		}},
		Caption: &caption,
	}
}

func captionFor(m FileMatch) document.ContentBlock {
	chunks := []document.ContentChunk{
		document.Text("File "),
		document.Monospace(document.Text(m.Name)),
	}
	if m.Owner != "" {
		chunks = append(chunks, document.Text(" of "), document.NonBreaking{m.Owner})
	}
	return document.NewContentBlock(chunks...)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
