package document

// Node is a structural element of a document.
type Node interface {
	Accept(v NodeVisitor) error
}

// NodeVisitor has one method per node variant. A new variant gets a new
// method here, so every backend has to handle it before it compiles.
type NodeVisitor interface {
	VisitCodeBlock(b *CodeBlock) error
	VisitContent(b ContentBlock) error
	VisitNewPage(p NewPage) error
	VisitSection(s *Section) error
	VisitSubSection(s *SubSection) error
	VisitColumns(c ColumnLayout) error
}

// Block is a leaf render unit: a CodeBlock, ContentBlock or NewPage.
type Block interface {
	Node
	SectionChild
	ColumnItem
	block()
}

// SectionChild may appear inside a Section: a Block, a SubSection or a
// ColumnLayout.
type SectionChild interface {
	Node
	sectionChild()
}

// ColumnItem may appear inside a ColumnLayout.
type ColumnItem interface {
	Node
	columnItem()
}

// CodeBlock is a listing of source lines with optional highlighted ranges.
type CodeBlock struct {
	// FirstLine is the line number of Lines[0], at least 1.
	FirstLine int
	Lines     []string
	// Highlights must lie within the block's line span and not overlap.
	Highlights []HighlightRange
	Caption    *ContentBlock
}

// LastLine returns the number of the block's final line.
func (b *CodeBlock) LastLine() int { return b.FirstLine + len(b.Lines) - 1 }

func (b *CodeBlock) Accept(v NodeVisitor) error { return v.VisitCodeBlock(b) }
func (b *CodeBlock) block()                     {}
func (b *CodeBlock) sectionChild()              {}
func (b *CodeBlock) columnItem()                {}

func (b ContentBlock) Accept(v NodeVisitor) error { return v.VisitContent(b) }
func (b ContentBlock) block()                     {}
func (b ContentBlock) sectionChild()              {}
func (b ContentBlock) columnItem()                {}

// NewPage forces a hard page (or column) break.
type NewPage struct{}

func (p NewPage) Accept(v NodeVisitor) error { return v.VisitNewPage(p) }
func (p NewPage) block()                     {}
func (p NewPage) sectionChild()              {}
func (p NewPage) columnItem()                {}

// SubSection is a headed group of blocks inside a Section.
type SubSection struct {
	Heading  string
	Children []Block
}

func (s *SubSection) Accept(v NodeVisitor) error { return v.VisitSubSection(s) }
func (s *SubSection) sectionChild()              {}

// Section is a headed group of blocks and subsections.
type Section struct {
	Heading  string
	Children []SectionChild
}

func (s *Section) Accept(v NodeVisitor) error { return v.VisitSection(s) }
func (s *Section) columnItem()                {}

// ColumnLayout places its items side by side, one column per item.
type ColumnLayout struct {
	Items []ColumnItem
}

// Columns builds a ColumnLayout from items.
func Columns(items ...ColumnItem) ColumnLayout {
	return ColumnLayout{Items: append([]ColumnItem(nil), items...)}
}

func (c ColumnLayout) Accept(v NodeVisitor) error { return v.VisitColumns(c) }
func (c ColumnLayout) sectionChild()              {}

// Root is the immutable top level of a document. Build it with EmptyRoot
// and AddChildren; a published Root never changes.
type Root struct {
	children []Node
}

// EmptyRoot returns a document without any children.
func EmptyRoot() Root { return Root{} }

// AddChildren returns a new Root holding r's children followed by nodes.
// r itself is left untouched.
func (r Root) AddChildren(nodes ...Node) Root {
	children := make([]Node, 0, len(r.children)+len(nodes))
	children = append(children, r.children...)
	children = append(children, nodes...)
	return Root{children: children}
}

// Children returns a copy of the top-level nodes.
func (r Root) Children() []Node {
	return append([]Node(nil), r.children...)
}

// Len returns the number of top-level nodes.
func (r Root) Len() int { return len(r.children) }

// Walk visits the top-level nodes in document order.
func (r Root) Walk(v NodeVisitor) error {
	for _, n := range r.children {
		if err := n.Accept(v); err != nil {
			return err
		}
	}
	return nil
}
