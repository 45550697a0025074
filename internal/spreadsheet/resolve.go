package spreadsheet

import (
	"strings"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"
	"golang.org/x/text/cases"
)

// ResolutionStatus describes how (or whether) a requested sheet name was
// matched against the workbook's actual sheet names.
type ResolutionStatus string

const (
	ResolvedExact       ResolutionStatus = "exact"
	ResolvedCasefold    ResolutionStatus = "casefold"
	ResolutionAmbiguous ResolutionStatus = "ambiguous"
	ResolutionNotFound  ResolutionStatus = "not_found"
)

// SheetResolution is the outcome of matching a requested sheet name.
// Candidates is populated for ambiguous outcomes, Suggestions for
// not-found outcomes (closest names by fuzzy match).
type SheetResolution struct {
	Requested   string           `json:"requested"`
	Resolved    string           `json:"resolved,omitempty"`
	Status      ResolutionStatus `json:"status"`
	Candidates  []string         `json:"candidates,omitempty"`
	Suggestions []string         `json:"suggestions,omitempty"`
}

// Matched reports whether resolution produced a single sheet.
func (r SheetResolution) Matched() bool {
	return r.Status == ResolvedExact || r.Status == ResolvedCasefold
}

const maxSuggestions = 3

// ResolveSheet maps a user-supplied sheet name onto one of the workbook's
// actual sheet names. Matching order:
//  1. exact match (case-sensitive, no trimming)
//  2. trimmed + casefolded match, if unique
//  3. multiple casefold matches -> ambiguous, with the colliding candidates
//  4. no match -> not found, with fuzzy suggestions
func ResolveSheet(requested string, available []string) SheetResolution {
	res := SheetResolution{Requested: requested}

	for _, name := range available {
		if name == requested {
			res.Resolved = name
			res.Status = ResolvedExact
			return res
		}
	}

	folder := cases.Fold()
	want := folder.String(strings.TrimSpace(requested))
	var hits []string
	for _, name := range available {
		if folder.String(strings.TrimSpace(name)) == want {
			hits = append(hits, name)
		}
	}
	switch len(hits) {
	case 1:
		res.Resolved = hits[0]
		res.Status = ResolvedCasefold
		return res
	case 0:
		res.Status = ResolutionNotFound
		res.Suggestions = suggestSheets(requested, available)
		return res
	default:
		res.Status = ResolutionAmbiguous
		res.Candidates = hits
		return res
	}
}

// suggestSheets finds the closest real sheet names. Fuzzy matching
// needs every pattern rune present in a candidate, so a single wrong
// trailing character would kill all suggestions; shorten the pattern
// from the right until something matches.
func suggestSheets(requested string, available []string) []string {
	pattern := strings.TrimSpace(requested)
	for pattern != "" {
		matches := fuzzy.Find(pattern, available)
		if len(matches) > 0 {
			var out []string
			for i, m := range matches {
				if i >= maxSuggestions {
					break
				}
				out = append(out, m.Str)
			}
			return out
		}
		_, size := utf8.DecodeLastRuneInString(pattern)
		pattern = pattern[:len(pattern)-size]
	}
	return nil
}
