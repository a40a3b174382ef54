package document

import "fmt"

// ContentChunk is one inline piece of a ContentBlock. The set of variants is
// closed: Text, Wrapped and NonBreaking.
type ContentChunk interface {
	acceptChunk(v ChunkVisitor) error
}

// ChunkVisitor is implemented by every backend that renders inline content.
type ChunkVisitor interface {
	VisitText(t Text) error
	VisitWrapped(w Wrapped) error
	VisitNonBreaking(nb NonBreaking) error
}

// Text is a plain run of text.
type Text string

func (t Text) acceptChunk(v ChunkVisitor) error { return v.VisitText(t) }

// WrapStyle selects the styling a Wrapped chunk applies to its content.
type WrapStyle int

const (
	StyleEmphasized WrapStyle = iota + 1
	StyleBold
	StyleMonospace
)

func (s WrapStyle) String() string {
	switch s {
	case StyleEmphasized:
		return "emphasized"
	case StyleBold:
		return "bold"
	case StyleMonospace:
		return "monospace"
	}
	return fmt.Sprintf("WrapStyle(%d)", int(s))
}

// Wrapped applies a style to a nested ContentBlock. Nesting must be finite;
// a block can not contain itself.
type Wrapped struct {
	Style   WrapStyle
	Content ContentBlock
}

func (w Wrapped) acceptChunk(v ChunkVisitor) error { return v.VisitWrapped(w) }

// Emphasized wraps content in emphasis (usually italics).
func Emphasized(chunks ...ContentChunk) Wrapped {
	return Wrapped{Style: StyleEmphasized, Content: NewContentBlock(chunks...)}
}

// Bold wraps content in a bold face.
func Bold(chunks ...ContentChunk) Wrapped {
	return Wrapped{Style: StyleBold, Content: NewContentBlock(chunks...)}
}

// Monospace wraps content in a fixed width font.
func Monospace(chunks ...ContentChunk) Wrapped {
	return Wrapped{Style: StyleMonospace, Content: NewContentBlock(chunks...)}
}

// NonBreaking asks the backend to keep its strings on one line when the
// output format supports it. The strings are joined with a non-breaking
// space.
type NonBreaking []string

func (nb NonBreaking) acceptChunk(v ChunkVisitor) error { return v.VisitNonBreaking(nb) }

// ContentBlock is an ordered sequence of inline chunks.
type ContentBlock struct {
	chunks []ContentChunk
}

// NewContentBlock copies chunks into a new block.
func NewContentBlock(chunks ...ContentChunk) ContentBlock {
	return ContentBlock{chunks: append([]ContentChunk(nil), chunks...)}
}

// Chunks returns a copy of the block's chunks.
func (b ContentBlock) Chunks() []ContentChunk {
	return append([]ContentChunk(nil), b.chunks...)
}

// Len returns the number of chunks.
func (b ContentBlock) Len() int { return len(b.chunks) }

// Walk visits every chunk in order and stops at the first error.
func (b ContentBlock) Walk(v ChunkVisitor) error {
	for _, c := range b.chunks {
		if err := c.acceptChunk(v); err != nil {
			return err
		}
	}
	return nil
}

// PlainText flattens the block, dropping all styling.
func (b ContentBlock) PlainText() string {
	var p plainText
	_ = b.Walk(&p)
	return string(p)
}

type plainText []byte

func (p *plainText) VisitText(t Text) error {
	*p = append(*p, t...)
	return nil
}

func (p *plainText) VisitWrapped(w Wrapped) error { return w.Content.Walk(p) }

func (p *plainText) VisitNonBreaking(nb NonBreaking) error {
	for i, s := range nb {
		if i > 0 {
			*p = append(*p, ' ')
		}
		*p = append(*p, s...)
	}
	return nil
}
