// Package parser extracts frontmatter, title, tags and link targets from
// note content.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c-c-k/progirl/internal/links"
)

var (
	titleLineRe = regexp.MustCompile(`^#([^#].*)$`)
	tagsLineRe  = regexp.MustCompile(`^[<>!-\\#/* \t]*@tags: *(.*)$`)
)

// Result holds the output of parsing a note.
type Result struct {
	Frontmatter map[string]any
	Body        string
	// Links are raw link targets, references already resolved.
	Links []string
	Tags  []string
	Title string
}

// Parse extracts frontmatter, body, link targets, tags and title from raw
// note bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(body, "\n")

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Links:       dedupe(links.Targets(lines)),
		Tags:        extractTags(lines, fm),
		Title:       deriveTitle(fm, lines),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the body. Without valid frontmatter the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data), nil
	}
	return fm, body, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// extractTags collects tags from the frontmatter "tags" field, a list or
// a comma separated string, and from the first "@tags: a, b" line.
func extractTags(lines []string, fm map[string]any) []string {
	var raw []string
	switch v := fm["tags"].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case string:
		raw = append(raw, strings.Split(v, ",")...)
	}
	for _, line := range lines {
		if m := tagsLineRe.FindStringSubmatch(line); m != nil {
			raw = append(raw, strings.Split(m[1], ",")...)
			break
		}
	}
	return dedupe(raw)
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise "".
func deriveTitle(fm map[string]any, lines []string) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	for _, line := range lines {
		if m := titleLineRe.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}
