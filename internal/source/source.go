// Package source turns uploaded submission files into the line arrays a
// plagiarism match refers to.
package source

import (
	"io"
	"path/filepath"
	"strings"
)

// Loader reads a file and returns its lines.
type Loader interface {
	Lines(r io.Reader) ([]string, error)
}

// Formats lists the extensions with a dedicated loader. Anything else is
// read as plain text.
var Formats = map[string]bool{
	".html": true,
	".htm":  true,
	".pdf":  true,
	".docx": true,
}

// Options configure the loaders returned by ForFile.
type Options struct {
	// PDFFallback runs pdftotext when the PDF library can not read a file.
	PDFFallback bool
}

// ForFile returns the loader for a filename.
func ForFile(filename string, opts Options) Loader {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm":
		return &HTMLLoader{}
	case ".pdf":
		return &PDFLoader{FallbackPdftotext: opts.PDFFallback}
	case ".docx":
		return &DOCXLoader{}
	default:
		return &TextLoader{}
	}
}

// IsDocumentFormat reports whether filename is decoded by something other
// than the plain text loader.
func IsDocumentFormat(filename string) bool {
	return Formats[strings.ToLower(filepath.Ext(filename))]
}

// splitLines splits text on newlines, drops carriage returns and a single
// trailing newline.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return []string{}
	}
	return strings.Split(text, "\n")
}
