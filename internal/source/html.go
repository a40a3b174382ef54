package source

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLLoader extracts the visible text of an HTML file. Block elements and
// <br> start new lines; whitespace inside <pre> is kept as is.
type HTMLLoader struct{}

func (l *HTMLLoader) Lines(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var out htmlLines
	var walk func(n *html.Node, pre bool)
	walk = func(n *html.Node, pre bool) {
		switch n.Type {
		case html.TextNode:
			out.text(n.Data, pre)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "head", "title", "noscript":
				return
			case "br":
				out.newline(true)
				return
			case "pre":
				pre = true
			}
		}

		block := n.Type == html.ElementNode && isBlock(n.Data)
		if block {
			out.newline(false)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, pre)
		}
		if block {
			out.newline(false)
		}
	}
	walk(doc, false)
	out.newline(false)

	if out.lines == nil {
		return []string{}, nil
	}
	return out.lines, nil
}

type htmlLines struct {
	lines []string
	cur   strings.Builder
}

// newline ends the current line. Blank lines are only kept when keep is
// set, so nested block elements do not produce runs of empty lines.
func (h *htmlLines) newline(keep bool) {
	line := strings.TrimRight(h.cur.String(), " \t")
	h.cur.Reset()
	if keep || strings.TrimSpace(line) != "" {
		h.lines = append(h.lines, line)
	}
}

func (h *htmlLines) text(s string, pre bool) {
	if pre {
		for i, part := range strings.Split(s, "\n") {
			if i > 0 {
				h.newline(true)
			}
			h.cur.WriteString(strings.TrimSuffix(part, "\r"))
		}
		return
	}
	s = collapseSpace(s)
	if h.cur.Len() == 0 {
		s = strings.TrimLeft(s, " ")
	}
	h.cur.WriteString(s)
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "li", "tr", "pre", "blockquote", "section", "article",
		"h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "table", "body":
		return true
	}
	return false
}

// collapseSpace folds every whitespace run into one space, keeping a
// single leading or trailing space where the input had one.
func collapseSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s == "" {
			return ""
		}
		return " "
	}
	out := strings.Join(fields, " ")
	if strings.TrimLeft(s, " \t\r\n") != s {
		out = " " + out
	}
	if strings.TrimRight(s, " \t\r\n") != s {
		out += " "
	}
	return out
}
