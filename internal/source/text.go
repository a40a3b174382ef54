package source

import (
	"bufio"
	"io"
	"strings"
)

// TextLoader reads plain text. Lines are kept verbatim, blank ones
// included, so line numbers match the original file.
type TextLoader struct{}

func (l *TextLoader) Lines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lines := []string{}
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
