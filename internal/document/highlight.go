package document

import (
	"fmt"
	"strconv"
	"sync/atomic"
)

// Color is an 8-bit RGB triple.
type Color struct {
	Red   uint8 `json:"red"`
	Green uint8 `json:"green"`
	Blue  uint8 `json:"blue"`
}

// Hex returns the color as RRGGBB.
func (c Color) Hex() string {
	return fmt.Sprintf("%02x%02x%02x", c.Red, c.Green, c.Blue)
}

// HighlightID identifies a Highlight for the lifetime of the process that
// allocated it.
type HighlightID uint64

func (id HighlightID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Highlight is a background/foreground color pair. Two highlights with the
// same colors are still distinct.
type Highlight struct {
	id         HighlightID
	Background Color
	Foreground Color
}

// ID returns the identifier assigned at construction.
func (h *Highlight) ID() HighlightID { return h.id }

// IDAllocator hands out highlight ids. It is safe for concurrent use and
// never reuses an id.
type IDAllocator struct {
	next atomic.Uint64
}

// NewHighlight creates a highlight with a fresh id.
func (a *IDAllocator) NewHighlight(background, foreground Color) *Highlight {
	return &Highlight{
		id:         HighlightID(a.next.Add(1) - 1),
		Background: background,
		Foreground: foreground,
	}
}

var processIDs IDAllocator

// NewHighlight creates a highlight with an id from the process-wide
// allocator.
func NewHighlight(background, foreground Color) *Highlight {
	return processIDs.NewHighlight(background, foreground)
}

// HighlightRange binds an inclusive, 1-based line span to a highlight.
// Ranges of one code block must not overlap.
type HighlightRange struct {
	Start     int
	End       int
	Highlight *Highlight
}

// Covers reports whether line falls inside the range.
func (r HighlightRange) Covers(line int) bool {
	return line >= r.Start && line <= r.End
}

// highlightSet collects highlights in first-seen order, keyed by id.
type highlightSet struct {
	seen  map[HighlightID]struct{}
	order []*Highlight
}

func newHighlightSet() *highlightSet {
	return &highlightSet{seen: make(map[HighlightID]struct{})}
}

func (s *highlightSet) add(h *Highlight) {
	if h == nil {
		return
	}
	if _, ok := s.seen[h.id]; ok {
		return
	}
	s.seen[h.id] = struct{}{}
	s.order = append(s.order, h)
}
