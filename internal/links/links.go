package links

import (
	"fmt"
	"sort"
	"strings"

	"github.com/c-c-k/progirl/internal/apperr"
)

// Link is a link found on one line. Start and End are byte offsets into
// that line, not rune counts.
type Link struct {
	Kind   Kind   `json:"kind"`
	Target string `json:"target"`
	Name   string `json:"name,omitempty"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// Contains reports whether col falls in [Start, End).
func (l Link) Contains(col int) bool {
	return l.Start <= col && col < l.End
}

// ExtractLine returns the links of line using the Markdown grammar.
func ExtractLine(line string) []Link {
	return Markdown.ExtractLine(line)
}

// ExtractLine returns the non-overlapping links of line ordered by offset.
// Each match is blanked out before the next scan so later matches keep
// their original offsets. A full-line match ends the scan.
func (g Grammar) ExtractLine(line string) []Link {
	var out []Link
	for {
		l, r, ok := g.find(line)
		if !ok || l.End <= l.Start {
			break
		}
		out = append(out, l)
		if r.FullLine {
			break
		}
		line = line[:l.Start] + strings.Repeat(" ", l.End-l.Start) + line[l.End:]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// LineLinks pairs a line number with its links.
type LineLinks struct {
	Line  int
	Links []Link
}

// ExtractAll returns the links of every line that has any.
func ExtractAll(lines []string) []LineLinks {
	var out []LineLinks
	for i, line := range lines {
		if ls := ExtractLine(line); len(ls) > 0 {
			out = append(out, LineLinks{Line: i, Links: ls})
		}
	}
	return out
}

// Targets returns every actionable target in lines with reference sources
// resolved against the definitions found in the same lines. Definitions
// themselves and unresolvable references are skipped.
func Targets(lines []string) []string {
	refs := ScanRefTargets(lines)
	var out []string
	for _, ll := range ExtractAll(lines) {
		for _, l := range ll.Links {
			switch l.Kind {
			case Direct:
				out = append(out, l.Target)
			case RefSource:
				if t, ok := refs[l.Target]; ok {
					out = append(out, t)
				}
			}
		}
	}
	return out
}

func lineAt(lines []string, line int) (string, error) {
	if line < 0 || line >= len(lines) {
		return "", fmt.Errorf("links: line %d: %w", line, apperr.ErrNoLink)
	}
	return lines[line], nil
}
