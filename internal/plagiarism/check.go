package plagiarism

import (
	"fmt"

	"go.uber.org/multierr"
)

// CheckMatches reports every match whose ranges do not fit its files or
// whose color has a channel outside [0, 255]. The builder itself trusts its
// input; callers accepting matches from outside run this first.
func CheckMatches(matches []Match) error {
	var err error
	for i, m := range matches {
		for c, v := range m.Color {
			if v < 0 || v > 255 {
				err = multierr.Append(err, fmt.Errorf("match %d: color channel %d out of range: %d", i+1, c, v))
			}
		}
		err = multierr.Append(err, checkFile(i, "a", m.A))
		err = multierr.Append(err, checkFile(i, "b", m.B))
	}
	return err
}

func checkFile(index int, side string, f FileMatch) error {
	switch {
	case f.StartLine < 0:
		return fmt.Errorf("match %d side %s: negative start line %d", index+1, side, f.StartLine)
	case f.EndLine <= f.StartLine:
		return fmt.Errorf("match %d side %s: end line %d not after start line %d", index+1, side, f.EndLine, f.StartLine)
	case f.EndLine > len(f.Lines):
		return fmt.Errorf("match %d side %s: end line %d beyond %d lines of %s", index+1, side, f.EndLine, len(f.Lines), f.Name)
	}
	return nil
}
