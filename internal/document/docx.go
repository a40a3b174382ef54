package document

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCXBackend renders a document as an Office Open XML word-processing file.
//
// Column layouts are rendered one item after another and NonBreaking runs
// may still wrap; both are accepted approximations of this format.
type DOCXBackend struct{}

func (*DOCXBackend) Name() string { return BackendDOCX }

const (
	monoFont = "Courier New"

	styleHeading2 = "Heading2"
	styleHeading3 = "Heading3"
	sizeHeading2  = "28"
	sizeHeading3  = "26"

	// A4 in twentieths of a point, with half inch margins.
	pageWidth   = 11906
	pageHeight  = 16838
	pageMargin  = 720
	headerSpace = 360
)

// Render implements Backend.
func (b *DOCXBackend) Render(root Root) ([]byte, error) {
	w := &docxWriter{f: docx.New().WithDefaultTheme()}

	children := root.children
	if len(children) == 0 {
		w.f.AddParagraph()
	}
	for i, node := range children {
		var header int
		if s, ok := node.(*Section); ok {
			header = w.parts.addHeader(s.Heading)
			for _, child := range s.Children {
				if err := child.Accept(w); err != nil {
					return nil, err
				}
			}
		} else {
			header = w.parts.blankHeader()
			if err := node.Accept(w); err != nil {
				return nil, err
			}
		}

		props := newSectionProperties(header)
		if i < len(children)-1 {
			w.f.Document.Body.Items = append(w.f.Document.Body.Items, &sectionBreak{
				Properties: sectionBreakProperties{Section: props},
			})
		} else {
			w.f.Document.Body.Items = append(w.f.Document.Body.Items, props)
		}
	}

	return w.parts.pack(w.f)
}

// sectionProperties is a w:sectPr carrying a default header reference.
// go-docx has no header support, so the element is marshalled here and the
// header part is added when the archive is packed.
type sectionProperties struct {
	XMLName xml.Name         `xml:"w:sectPr"`
	Header  *headerReference `xml:"w:headerReference,omitempty"`
	PgSz    *docx.PgSz       `xml:"w:pgSz,omitempty"`
	PgMar   *docx.PgMar      `xml:"w:pgMar,omitempty"`
}

type headerReference struct {
	Type string `xml:"w:type,attr"`
	ID   string `xml:"r:id,attr"`
}

// sectionBreak is the empty paragraph that closes every section but the last.
type sectionBreak struct {
	XMLName    xml.Name               `xml:"w:p"`
	Properties sectionBreakProperties `xml:"w:pPr"`
}

type sectionBreakProperties struct {
	Section *sectionProperties
}

func newSectionProperties(header int) *sectionProperties {
	return &sectionProperties{
		Header: &headerReference{Type: "default", ID: headerRelID(header)},
		PgSz:   &docx.PgSz{W: pageWidth, H: pageHeight},
		PgMar: &docx.PgMar{
			Top:    pageMargin,
			Left:   pageMargin,
			Bottom: pageMargin,
			Right:  pageMargin,
			Header: headerSpace,
			Footer: headerSpace,
		},
	}
}

type docxWriter struct {
	f     *docx.Docx
	parts docxParts
}

// runStyle accumulates formatting while descending into wrapped content.
type runStyle struct {
	bold   bool
	italic bool
	mono   bool
	size   string
	color  string
	shade  string
}

func (w *docxWriter) addRun(p *docx.Paragraph, text string, st runStyle) *docx.Run {
	run := &docx.Run{
		RunProperties: &docx.RunProperties{},
		Children:      runChildren(text),
	}
	p.Children = append(p.Children, run)

	if st.mono {
		run.Font(monoFont, monoFont, monoFont, "")
	}
	if st.bold {
		run.Bold()
	}
	if st.italic {
		run.Italic()
	}
	if st.color != "" {
		run.Color(st.color)
	}
	if st.size != "" {
		run.Size(st.size)
	}
	if st.shade != "" {
		run.Shade("clear", "auto", st.shade)
	}
	return run
}

// runChildren splits text on tabs and newlines. Text elements keep their
// whitespace, which matters for indented source lines.
func runChildren(text string) []interface{} {
	var children []interface{}
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			children = append(children, &docx.BarterRabbet{})
		}
		for j, part := range strings.Split(line, "\t") {
			if j > 0 {
				children = append(children, &docx.Tab{})
			}
			if part != "" {
				children = append(children, &docx.Text{Text: part, XMLSpace: "preserve"})
			}
		}
	}
	return children
}

func (w *docxWriter) heading(text, style, size string) {
	p := w.f.AddParagraph().Style(style)
	w.addRun(p, text, runStyle{bold: true, size: size})
}

// VisitSection handles sections that are not at the top level, which only
// happens inside a ColumnLayout. Their heading becomes a paragraph.
func (w *docxWriter) VisitSection(s *Section) error {
	w.heading(s.Heading, styleHeading2, sizeHeading2)
	for _, child := range s.Children {
		if err := child.Accept(w); err != nil {
			return err
		}
	}
	return nil
}

func (w *docxWriter) VisitSubSection(s *SubSection) error {
	w.heading(s.Heading, styleHeading3, sizeHeading3)
	for _, child := range s.Children {
		if err := child.Accept(w); err != nil {
			return err
		}
	}
	return nil
}

func (w *docxWriter) VisitColumns(c ColumnLayout) error {
	for _, item := range c.Items {
		if err := item.Accept(w); err != nil {
			return err
		}
	}
	return nil
}

func (w *docxWriter) VisitContent(b ContentBlock) error {
	p := w.f.AddParagraph()
	return b.Walk(&docxInline{w: w, p: p})
}

func (w *docxWriter) VisitNewPage(NewPage) error {
	w.f.AddParagraph().AddPageBreaks()
	return nil
}

func (w *docxWriter) VisitCodeBlock(b *CodeBlock) error {
	shading := make(map[int]string)
	colors := make(map[int]string)
	for _, r := range b.Highlights {
		if r.Highlight == nil {
			continue
		}
		bg, fg := r.Highlight.Background.Hex(), r.Highlight.Foreground.Hex()
		for line := r.Start; line <= r.End; line++ {
			shading[line] = bg
			colors[line] = fg
		}
	}

	numID := strconv.Itoa(w.parts.addNumbering(b.FirstLine))
	for offset, line := range b.Lines {
		lnum := b.FirstLine + offset
		p := w.f.AddParagraph().NumPr(numID, "0")
		w.addRun(p, line, runStyle{
			mono:  true,
			color: colors[lnum],
			shade: shading[lnum],
		})
	}

	if b.Caption != nil {
		p := w.f.AddParagraph().Justification("center")
		if err := b.Caption.Walk(&docxInline{w: w, p: p}); err != nil {
			return err
		}
	}
	return nil
}

// docxInline renders chunks as runs of one paragraph.
type docxInline struct {
	w     *docxWriter
	p     *docx.Paragraph
	style runStyle
}

func (r *docxInline) VisitText(t Text) error {
	r.w.addRun(r.p, string(t), r.style)
	return nil
}

func (r *docxInline) VisitNonBreaking(nb NonBreaking) error {
	for i, s := range nb {
		if i > 0 {
			s = "\u00a0" + s
		}
		r.w.addRun(r.p, s, r.style)
	}
	return nil
}

func (r *docxInline) VisitWrapped(wr Wrapped) error {
	inner := *r
	switch wr.Style {
	case StyleEmphasized:
		inner.style.italic = true
	case StyleBold:
		inner.style.bold = true
	case StyleMonospace:
		inner.style.mono = true
	default:
		return &UnsupportedWrapperError{Style: wr.Style, Backend: BackendDOCX}
	}
	return wr.Content.Walk(&inner)
}
