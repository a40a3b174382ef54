package document

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// LaTeXBackend renders a document as LaTeX source. Compiling the source is
// left to the caller's toolchain.
type LaTeXBackend struct{}

func (*LaTeXBackend) Name() string { return BackendLaTeX }

// latexEscaper maps every character LaTeX treats specially in text mode.
var latexEscaper = strings.NewReplacer(
	`{`, `\{`,
	`}`, `\}`,
	`\`, `\textbackslash{}`,
	`#`, `\#`,
	`$`, `\$`,
	`%`, `\%`,
	`&`, `\&`,
	`^`, `\textasciicircum{}`,
	`_`, `\_`,
	`~`, `\textasciitilde{}`,
)

var (
	reLaTeXWhitespace = regexp.MustCompile(`[ \t]+`)
	reEndListing      = regexp.MustCompile(`\\end\{lstlisting\}`)
)

// EscapeLaTeX escapes s for use in LaTeX running text.
func EscapeLaTeX(s string) string {
	return latexEscaper.Replace(s)
}

const latexPreamble = `\documentclass{article}
\usepackage{listings}
\usepackage{xcolor}
\usepackage[T1]{fontenc}
\usepackage[utf8]{inputenc}
\usepackage{textcomp}
\usepackage{paracol}
\usepackage[margin=0.5in]{geometry}

% Newer versions of listings break lstlinebgrd ("Numbers none unknown"). The
% block between START fix and END fix works around that. If lstlinebgrd gets
% fixed upstream, delete the block and uncomment the next line.
%\usepackage{lstlinebgrd}
% START fix
\makeatletter
\let\old@lstKV@SwitchCases\lstKV@SwitchCases
\def\lstKV@SwitchCases#1#2#3{}
\makeatother
\usepackage{lstlinebgrd}
\makeatletter
\let\lstKV@SwitchCases\old@lstKV@SwitchCases

\lst@Key{numbers}{none}{%
    \def\lst@PlaceNumber{\lst@linebgrd}%
    \lstKV@SwitchCases{#1}%
    {none:\\%
     left:\def\lst@PlaceNumber{\llap{\normalfont
                \lst@numberstyle{\thelstnumber}\kern\lst@numbersep}\lst@linebgrd}\\%
     right:\def\lst@PlaceNumber{\rlap{\normalfont
                \kern\linewidth \kern\lst@numbersep
                \lst@numberstyle{\thelstnumber}}\lst@linebgrd}%
    }{\PackageError{Listings}{Numbers #1 unknown}\@ehc}}
\makeatother
% END fix
`

const latexListingSetup = `\lstset{
    numbers=left,
    columns=fullflexible,
    showspaces=false,
    showtabs=false,
    breaklines=true,
    showstringspaces=false,
    breakatwhitespace=false,
    commentstyle=\color[rgb]{0, 0.5, 0},
    keywordstyle=\color[rgb]{0.13, 0.13, 1},
    stringstyle=\color[rgb]{0.9, 0, 0},
    numberstyle=\color[rgb]{0.5, 0.5, 0.5},
    basicstyle=\ttfamily\footnotesize,
    xleftmargin=12pt,
    rulesepcolor=\color[rgb]{0.5, 0.5, 0.5},
    tabsize=4,
    captionpos=b,
    frame=L,
    upquote=true
}
`

// Render implements Backend.
func (b *LaTeXBackend) Render(root Root) ([]byte, error) {
	w := &latexWriter{highlights: newHighlightSet()}
	if err := root.Walk(w); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(latexPreamble)
	buf.WriteByte('\n')
	buf.WriteString("% Only the background colors are used by the listings.\n")
	for _, h := range w.highlights.order {
		writeColorDefinition(&buf, "bg", h.id, h.Background)
		writeColorDefinition(&buf, "fg", h.id, h.Foreground)
	}
	buf.WriteByte('\n')
	buf.WriteString(latexListingSetup)
	buf.WriteString("\n\\begin{document}\n")
	for _, line := range w.lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	buf.WriteString("\\end{document}\n")
	return buf.Bytes(), nil
}

func writeColorDefinition(buf *bytes.Buffer, kind string, id HighlightID, c Color) {
	fmt.Fprintf(buf, "\\definecolor{%s-color-%s}{RGB}{%d, %d, %d}\n", kind, id, c.Red, c.Green, c.Blue)
}

// latexWriter walks the document and accumulates body lines plus every
// highlight it encounters.
type latexWriter struct {
	lines      []string
	highlights *highlightSet
}

func (w *latexWriter) emit(lines ...string) {
	w.lines = append(w.lines, lines...)
}

func (w *latexWriter) VisitSection(s *Section) error {
	w.emit(`\section{` + EscapeLaTeX(s.Heading) + `}`)
	for _, child := range s.Children {
		if err := child.Accept(w); err != nil {
			return err
		}
	}
	return nil
}

func (w *latexWriter) VisitSubSection(s *SubSection) error {
	w.emit(`\subsection{` + EscapeLaTeX(s.Heading) + `}`)
	for _, child := range s.Children {
		if err := child.Accept(w); err != nil {
			return err
		}
	}
	return nil
}

func (w *latexWriter) VisitColumns(c ColumnLayout) error {
	w.emit(`\begin{paracol}{` + strconv.Itoa(len(c.Items)) + `}`)
	for i, item := range c.Items {
		if i > 0 {
			w.emit(`\switchcolumn`)
		}
		if err := item.Accept(w); err != nil {
			return err
		}
	}
	w.emit(`\end{paracol}`)
	return nil
}

func (w *latexWriter) VisitContent(b ContentBlock) error {
	s, err := renderLaTeXInline(b)
	if err != nil {
		return err
	}
	w.emit(s)
	return nil
}

func (w *latexWriter) VisitNewPage(NewPage) error {
	w.emit(`\clearpage{}`)
	return nil
}

func (w *latexWriter) VisitCodeBlock(b *CodeBlock) error {
	opts := []string{
		"    firstnumber=" + strconv.Itoa(b.FirstLine),
		"    linebackgroundcolor={" + compileHighlights(b.Highlights) + "}",
	}
	if b.Caption != nil {
		caption, err := renderLaTeXInline(*b.Caption)
		if err != nil {
			return err
		}
		opts = append(opts, "    caption={"+caption+"}")
	}

	w.emit(`\begin{lstlisting}[`)
	w.emit(strings.Join(opts, ",\n") + "]")
	for _, line := range b.Lines {
		w.emit(reEndListing.ReplaceAllLiteralString(line, `\end {lstlisting}`))
	}
	w.emit(`\end{lstlisting}`)

	for _, r := range b.Highlights {
		w.highlights.add(r.Highlight)
	}
	return nil
}

// compileHighlights turns the ranges into nested \ifnum tests on the current
// listing line. The ranges are sorted by end line on a copy; since they do
// not overlap, testing "line <= end" first and "line >= start" second picks
// the only range that can match.
func compileHighlights(ranges []HighlightRange) string {
	sorted := make([]HighlightRange, 0, len(ranges))
	for _, r := range ranges {
		if r.Highlight != nil {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].End < sorted[j].End })
	return compileSortedHighlights(sorted)
}

func compileSortedHighlights(ranges []HighlightRange) string {
	if len(ranges) == 0 {
		return ""
	}
	cur, rest := ranges[0], ranges[1:]

	var b strings.Builder
	fmt.Fprintf(&b, "\\ifnum\\value{lstnumber}<%d%%\n", cur.End+1)
	fmt.Fprintf(&b, "    \\ifnum\\value{lstnumber}>%d%%\n", cur.Start-1)
	fmt.Fprintf(&b, "        \\color{bg-color-%s}%%\n", cur.Highlight.ID())
	b.WriteString("    \\fi%\n")
	if len(rest) > 0 {
		b.WriteString("\\else%\n")
		b.WriteString("    " + compileSortedHighlights(rest) + "%\n")
	}
	b.WriteString(`\fi`)
	return b.String()
}

func renderLaTeXInline(b ContentBlock) (string, error) {
	var r latexInline
	if err := b.Walk(&r); err != nil {
		return "", err
	}
	return r.String(), nil
}

type latexInline struct {
	strings.Builder
}

func (r *latexInline) VisitText(t Text) error {
	r.WriteString(EscapeLaTeX(string(t)))
	return nil
}

func (r *latexInline) VisitNonBreaking(nb NonBreaking) error {
	parts := make([]string, len(nb))
	for i, s := range nb {
		parts[i] = EscapeLaTeX(s)
	}
	r.WriteString(reLaTeXWhitespace.ReplaceAllLiteralString(strings.Join(parts, "~"), "~"))
	return nil
}

func (r *latexInline) VisitWrapped(w Wrapped) error {
	var cmd string
	switch w.Style {
	case StyleEmphasized:
		cmd = `\emph{`
	case StyleBold:
		cmd = `\textbf{`
	case StyleMonospace:
		cmd = `\texttt{`
	default:
		return &UnsupportedWrapperError{Style: w.Style, Backend: BackendLaTeX}
	}
	r.WriteString(cmd)
	if err := w.Content.Walk(r); err != nil {
		return err
	}
	r.WriteString("}")
	return nil
}
