// Package links finds, classifies and resolves Markdown links in buffer lines.
//
// Link spans and cursor columns are byte offsets into the line, the unit
// editors report cursor columns in. Word boundaries use Unicode letter and
// digit classes.
package links

import (
	"fmt"
	"regexp"
)

// Kind classifies a link.
type Kind int

const (
	// Direct links carry their target inline.
	Direct Kind = iota
	// RefSource links name a reference target instead of a target.
	RefSource
	// RefTarget links are "[name]: target" definition lines.
	RefTarget
)

func (k Kind) String() string {
	switch k {
	case Direct:
		return "direct"
	case RefSource:
		return "ref_source"
	case RefTarget:
		return "ref_target"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for _, c := range []Kind{Direct, RefSource, RefTarget} {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("links: unknown kind %q", b)
}

// Rule is one link shape of the grammar.
type Rule struct {
	Pattern     *regexp.Regexp
	Kind        Kind
	TargetGroup string
	// NameGroup is empty for shapes without a name.
	NameGroup string
	// FullLine rules consume the rest of the line.
	FullLine bool
	// SpanGroup, when set, bounds the link instead of the whole match.
	SpanGroup string
}

// Grammar is an ordered rule list; the first rule that matches wins.
type Grammar []Rule

var (
	// RefTargetRule matches "[name]: target" at the start of a line.
	RefTargetRule = Rule{
		Pattern:     regexp.MustCompile(`^\[(?P<name>[^\]]+)\]: (?P<target>.*)`),
		Kind:        RefTarget,
		TargetGroup: "target",
		NameGroup:   "name",
		FullLine:    true,
	}
	// InlineRule matches "[name](target)".
	InlineRule = Rule{
		Pattern:     regexp.MustCompile(`\[(?P<name>[^\]]+)\]\((?P<target>[^)]*)\)`),
		Kind:        Direct,
		TargetGroup: "target",
		NameGroup:   "name",
	}
	// RefSourceRule matches "[name][target]".
	RefSourceRule = Rule{
		Pattern:     regexp.MustCompile(`\[(?P<name>[^\]]+)\]\[(?P<target>[^\]]*)\]`),
		Kind:        RefSource,
		TargetGroup: "target",
		NameGroup:   "name",
	}
	// ShortRefRule matches "[name]" where name is digits or at least two characters.
	ShortRefRule = Rule{
		Pattern:     regexp.MustCompile(`\[(?P<name>\d+|[^\]]{2,})\]`),
		Kind:        RefSource,
		TargetGroup: "name",
		NameGroup:   "name",
	}
	// ChevronURLRule matches "<http(s)://...>".
	ChevronURLRule = Rule{
		Pattern:     regexp.MustCompile(`<(?P<target>https?://[^>]+)>`),
		Kind:        Direct,
		TargetGroup: "target",
	}
	// BareURLRule matches a bare http(s) URL not preceded by a letter,
	// digit or underscore.
	BareURLRule = Rule{
		Pattern:     regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])(?P<target>https?://\S+)`),
		Kind:        Direct,
		TargetGroup: "target",
		SpanGroup:   "target",
	}
)

// Markdown is the default link grammar.
var Markdown = Grammar{
	RefTargetRule,
	InlineRule,
	RefSourceRule,
	ShortRefRule,
	ChevronURLRule,
	BareURLRule,
}

// refTargets holds only the definition rule.
var refTargets = Grammar{RefTargetRule}

// Match applies r to line and returns the leftmost link, if any.
func (r Rule) Match(line string) (Link, bool) {
	m := r.Pattern.FindStringSubmatchIndex(line)
	if m == nil {
		return Link{}, false
	}
	l := Link{
		Kind:   r.Kind,
		Target: group(r.Pattern, line, m, r.TargetGroup),
		Start:  m[0],
		End:    m[1],
	}
	if i := r.Pattern.SubexpIndex(r.SpanGroup); r.SpanGroup != "" && i > 0 {
		l.Start, l.End = m[2*i], m[2*i+1]
	}
	if r.NameGroup != "" {
		l.Name = group(r.Pattern, line, m, r.NameGroup)
	}
	return l, true
}

func group(re *regexp.Regexp, s string, m []int, name string) string {
	i := re.SubexpIndex(name)
	if i < 0 || m[2*i] < 0 {
		return ""
	}
	return s[m[2*i]:m[2*i+1]]
}

// find returns the first link matched by the grammar, in rule order.
func (g Grammar) find(line string) (Link, Rule, bool) {
	for _, r := range g {
		if l, ok := r.Match(line); ok {
			return l, r, true
		}
	}
	return Link{}, Rule{}, false
}
