package document

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/beevik/etree"
	"github.com/fumiama/go-docx"
	"github.com/hidez8891/zip"
)

const (
	nsMain = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsRels = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	relTypeNumbering = nsRels + "/numbering"
	relTypeHeader    = nsRels + "/header"

	ctNumbering = "application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"
	ctHeader    = "application/vnd.openxmlformats-officedocument.wordprocessingml.header+xml"

	contentTypesPart = "[Content_Types].xml"
	documentRelsPart = "word/_rels/document.xml.rels"
	numberingPart    = "word/numbering.xml"
	stylesPart       = "word/styles.xml"

	// Numbering indentation, in twentieths of a point.
	numberIndent  = 720
	numberHanging = 260
)

// docxParts collects the parts go-docx can not produce itself: one
// numbering definition per code block and one header per section.
type docxParts struct {
	numberingStarts []int
	headers         []string
	blank           int
}

// addNumbering registers a decimal list starting at start and returns its
// numId.
func (p *docxParts) addNumbering(start int) int {
	p.numberingStarts = append(p.numberingStarts, start)
	return len(p.numberingStarts)
}

// addHeader registers a header showing text and returns its index.
func (p *docxParts) addHeader(text string) int {
	p.headers = append(p.headers, text)
	return len(p.headers) - 1
}

// blankHeader returns the index of a shared empty header, so that sections
// without a heading do not inherit the previous section's header.
func (p *docxParts) blankHeader() int {
	if p.blank == 0 {
		p.blank = p.addHeader("") + 1
	}
	return p.blank - 1
}

func headerRelID(i int) string { return "rIdHeader" + strconv.Itoa(i+1) }
func headerTarget(i int) string { return "header" + strconv.Itoa(i+1) + ".xml" }
func headerPartName(i int) string { return "word/" + headerTarget(i) }
func numberingRelID() string { return "rIdNumbering" }
func partPath(name string) string { return "/" + name }

// pack serialises f and rewrites the archive with the extra parts added.
func (p *docxParts) pack(f *docx.Docx) ([]byte, error) {
	var raw bytes.Buffer
	if _, err := f.WriteTo(&raw); err != nil {
		return nil, fmt.Errorf("write document: %w", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(raw.Bytes()), int64(raw.Len()))
	if err != nil {
		return nil, fmt.Errorf("reopen document: %w", err)
	}

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, file := range zr.File {
		switch file.Name {
		case contentTypesPart:
			err = patchPart(zw, file, p.addContentTypes)
		case documentRelsPart:
			err = patchPart(zw, file, p.addRelationships)
		case stylesPart:
			err = patchPart(zw, file, addHeadingStyles)
		default:
			err = zw.CopyFile(file)
		}
		if err != nil {
			return nil, fmt.Errorf("copy %s: %w", file.Name, err)
		}
	}

	if len(p.numberingStarts) > 0 {
		if err := writePart(zw, numberingPart, p.numberingXML()); err != nil {
			return nil, err
		}
	}
	for i, text := range p.headers {
		if err := writePart(zw, headerPartName(i), headerXML(text)); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return out.Bytes(), nil
}

func patchPart(zw *zip.Writer, file *zip.File, patch func(root *etree.Element)) error {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return err
	}
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("%s has no root element", file.Name)
	}
	patch(root)
	return writePart(zw, file.Name, doc)
}

func writePart(zw *zip.Writer, name string, doc *etree.Document) error {
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return fmt.Errorf("serialise %s: %w", name, err)
	}
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (p *docxParts) addContentTypes(types *etree.Element) {
	override := func(part, contentType string) {
		el := types.CreateElement("Override")
		el.CreateAttr("PartName", partPath(part))
		el.CreateAttr("ContentType", contentType)
	}
	if len(p.numberingStarts) > 0 {
		override(numberingPart, ctNumbering)
	}
	for i := range p.headers {
		override(headerPartName(i), ctHeader)
	}
}

func (p *docxParts) addRelationships(rels *etree.Element) {
	relation := func(id, typ, target string) {
		el := rels.CreateElement("Relationship")
		el.CreateAttr("Id", id)
		el.CreateAttr("Type", typ)
		el.CreateAttr("Target", target)
	}
	if len(p.numberingStarts) > 0 {
		relation(numberingRelID(), relTypeNumbering, "numbering.xml")
	}
	for i := range p.headers {
		relation(headerRelID(i), relTypeHeader, headerTarget(i))
	}
}

// headingStyle is a paragraph style the default go-docx template lacks.
type headingStyle struct {
	id, name string
	outline  int
	size     string
}

var headingStyles = []headingStyle{
	{id: styleHeading2, name: "heading 2", outline: 1, size: sizeHeading2},
	{id: styleHeading3, name: "heading 3", outline: 2, size: sizeHeading3},
}

// addHeadingStyles declares the heading styles section and subsection
// headings refer to. The outline level puts them in the navigation pane.
func addHeadingStyles(styles *etree.Element) {
	defined := make(map[string]bool)
	for _, el := range styles.SelectElements("w:style") {
		defined[el.SelectAttrValue("w:styleId", "")] = true
	}
	for _, h := range headingStyles {
		if defined[h.id] {
			continue
		}
		style := styles.CreateElement("w:style")
		style.CreateAttr("w:type", "paragraph")
		style.CreateAttr("w:styleId", h.id)
		style.CreateElement("w:name").CreateAttr("w:val", h.name)
		style.CreateElement("w:basedOn").CreateAttr("w:val", "a")
		style.CreateElement("w:next").CreateAttr("w:val", "a")
		style.CreateElement("w:qFormat")

		pPr := style.CreateElement("w:pPr")
		pPr.CreateElement("w:keepNext")
		spacing := pPr.CreateElement("w:spacing")
		spacing.CreateAttr("w:before", "240")
		spacing.CreateAttr("w:after", "120")
		pPr.CreateElement("w:outlineLvl").CreateAttr("w:val", strconv.Itoa(h.outline))

		rPr := style.CreateElement("w:rPr")
		rPr.CreateElement("w:b")
		rPr.CreateElement("w:sz").CreateAttr("w:val", h.size)
	}
}

func newPartDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	return doc
}

// numberingXML declares every abstract list before the instances that
// reference them, as the schema requires.
func (p *docxParts) numberingXML() *etree.Document {
	doc := newPartDocument()
	numbering := doc.CreateElement("w:numbering")
	numbering.CreateAttr("xmlns:w", nsMain)

	for i, start := range p.numberingStarts {
		abstract := numbering.CreateElement("w:abstractNum")
		abstract.CreateAttr("w:abstractNumId", strconv.Itoa(i))
		abstract.CreateElement("w:multiLevelType").CreateAttr("w:val", "singleLevel")

		lvl := abstract.CreateElement("w:lvl")
		lvl.CreateAttr("w:ilvl", "0")
		lvl.CreateElement("w:start").CreateAttr("w:val", strconv.Itoa(start))
		lvl.CreateElement("w:numFmt").CreateAttr("w:val", "decimal")
		lvl.CreateElement("w:lvlText").CreateAttr("w:val", "%1")
		lvl.CreateElement("w:lvlJc").CreateAttr("w:val", "left")
		ind := lvl.CreateElement("w:pPr").CreateElement("w:ind")
		ind.CreateAttr("w:left", strconv.Itoa(numberIndent))
		ind.CreateAttr("w:hanging", strconv.Itoa(numberHanging))
	}

	for i := range p.numberingStarts {
		num := numbering.CreateElement("w:num")
		num.CreateAttr("w:numId", strconv.Itoa(i+1))
		num.CreateElement("w:abstractNumId").CreateAttr("w:val", strconv.Itoa(i))
	}
	return doc
}

func headerXML(text string) *etree.Document {
	doc := newPartDocument()
	hdr := doc.CreateElement("w:hdr")
	hdr.CreateAttr("xmlns:w", nsMain)
	hdr.CreateAttr("xmlns:r", nsRels)

	para := hdr.CreateElement("w:p")
	if text != "" {
		t := para.CreateElement("w:r").CreateElement("w:t")
		t.CreateAttr("xml:space", "preserve")
		t.SetText(text)
	}
	return doc
}
