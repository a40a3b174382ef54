package api

import (
	"github.com/WaterCountry/CodeGra.de/internal/plagiarism"
)

type reportRequest struct {
	Backend string         `json:"backend" validate:"omitempty,backend"`
	Matches []matchRequest `json:"matches" validate:"required,min=1,dive"`
	Options optionsRequest `json:"options"`
}

type optionsRequest struct {
	ContextLines int    `json:"context_lines" validate:"gte=0,lte=1000"`
	MatchesAlign string `json:"matches_align" validate:"required,oneof=newpage sidebyside sequential"`
	EntireFiles  bool   `json:"entire_files"`
	Intro        string `json:"intro" validate:"max=20000"`
}

type matchRequest struct {
	A     fileMatchRequest `json:"match_a"`
	B     fileMatchRequest `json:"match_b"`
	Color []int            `json:"color" validate:"len=3,dive,gte=0,lte=255"`
}

type fileMatchRequest struct {
	StartLine int      `json:"start_line" validate:"gte=0"`
	EndLine   int      `json:"end_line" validate:"gtfield=StartLine"`
	Lines     []string `json:"lines" validate:"required"`
	Name      string   `json:"name" validate:"required,max=512"`
	Owner     string   `json:"owner" validate:"max=512"`
}

func (r fileMatchRequest) toFileMatch() plagiarism.FileMatch {
	return plagiarism.FileMatch{
		StartLine: r.StartLine,
		EndLine:   r.EndLine,
		Lines:     r.Lines,
		Name:      r.Name,
		Owner:     r.Owner,
	}
}

// backend returns the requested backend or fallback when none was given.
func (r reportRequest) backend(fallback string) string {
	if r.Backend == "" {
		return fallback
	}
	return r.Backend
}

func (r reportRequest) matches() []plagiarism.Match {
	out := make([]plagiarism.Match, len(r.Matches))
	for i, m := range r.Matches {
		out[i] = plagiarism.Match{
			A:     m.A.toFileMatch(),
			B:     m.B.toFileMatch(),
			Color: plagiarism.RGB{m.Color[0], m.Color[1], m.Color[2]},
		}
	}
	return out
}

func (r reportRequest) options() plagiarism.Options {
	return plagiarism.Options{
		ContextLines: r.Options.ContextLines,
		MatchesAlign: plagiarism.Alignment(r.Options.MatchesAlign),
		EntireFiles:  r.Options.EntireFiles,
		Intro:        r.Options.Intro,
	}
}
