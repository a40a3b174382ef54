package document

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ParseMarkdown converts a small Markdown text into inline content.
// Emphasis becomes Emphasized, strong emphasis becomes Bold and code spans
// become Monospace. Block structure is flattened: blocks are separated by
// a blank line and soft line breaks turn into spaces.
func ParseMarkdown(src string) ContentBlock {
	source := []byte(src)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	b := &chunkBuilder{}
	first := true
	var walkBlocks func(n ast.Node)
	walkBlocks = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch node := c.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				b.separate(&first)
				b.inlines(node, source)
			case *ast.Heading:
				b.separate(&first)
				inner := &chunkBuilder{}
				inner.inlines(node, source)
				b.add(Wrapped{Style: StyleBold, Content: inner.block()})
			case *ast.FencedCodeBlock, *ast.CodeBlock:
				b.separate(&first)
				b.add(Monospace(Text(strings.TrimRight(blockLines(node, source), "\n"))))
			case *ast.ThematicBreak, *ast.HTMLBlock:
				// Nothing to render inline.
			default:
				walkBlocks(node)
			}
		}
	}
	walkBlocks(doc)
	return b.block()
}

func blockLines(n ast.Node, source []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(source))
	}
	return sb.String()
}

// chunkBuilder merges adjacent text so the result stays compact.
type chunkBuilder struct {
	chunks []ContentChunk
}

func (b *chunkBuilder) block() ContentBlock { return ContentBlock{chunks: b.chunks} }

func (b *chunkBuilder) add(c ContentChunk) {
	b.chunks = append(b.chunks, c)
}

func (b *chunkBuilder) text(s string) {
	if s == "" {
		return
	}
	if n := len(b.chunks); n > 0 {
		if prev, ok := b.chunks[n-1].(Text); ok {
			b.chunks[n-1] = prev + Text(s)
			return
		}
	}
	b.chunks = append(b.chunks, Text(s))
}

func (b *chunkBuilder) separate(first *bool) {
	if !*first {
		b.text("\n\n")
	}
	*first = false
}

func (b *chunkBuilder) inlines(n ast.Node, source []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			b.text(string(node.Segment.Value(source)))
			switch {
			case node.HardLineBreak():
				b.text("\n")
			case node.SoftLineBreak():
				b.text(" ")
			}
		case *ast.String:
			b.text(string(node.Value))
		case *ast.Emphasis:
			inner := &chunkBuilder{}
			inner.inlines(node, source)
			style := StyleEmphasized
			if node.Level >= 2 {
				style = StyleBold
			}
			b.add(Wrapped{Style: style, Content: inner.block()})
		case *ast.CodeSpan:
			inner := &chunkBuilder{}
			inner.inlines(node, source)
			b.add(Wrapped{Style: StyleMonospace, Content: inner.block()})
		case *ast.AutoLink:
			b.text(string(node.URL(source)))
		case *ast.RawHTML:
		default:
			b.inlines(node, source)
		}
	}
}
