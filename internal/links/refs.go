package links

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/c-c-k/progirl/internal/apperr"
	"github.com/c-c-k/progirl/internal/buffer"
)

// RefTargetsVar is the buffer variable caching the reference target map.
const RefTargetsVar = "progirl_markdown_ref_targets"

// RefTargets maps reference names to targets.
type RefTargets map[string]string

// ScanRefTargets builds the reference map of lines. Later definitions of
// the same name win.
func ScanRefTargets(lines []string) RefTargets {
	refs := make(RefTargets)
	for _, line := range lines {
		if l, _, ok := refTargets.find(line); ok {
			refs[l.Name] = l.Target
		}
	}
	return refs
}

// BuildRefTargets rescans buf and stores the result in its cache variable.
func BuildRefTargets(buf buffer.Buffer) RefTargets {
	refs := ScanRefTargets(buf.Lines())
	buf.SetVar(RefTargetsVar, refs)
	return refs
}

// cachedRefTargets returns the cached map, which may be stale.
func cachedRefTargets(buf buffer.Buffer) (RefTargets, bool) {
	v, ok := buf.Var(RefTargetsVar)
	if !ok {
		return nil, false
	}
	refs, ok := v.(RefTargets)
	return refs, ok
}

// lookupRef resolves name from the cache, rebuilding it once on a miss.
func lookupRef(buf buffer.Buffer, name string) (string, bool) {
	if refs, ok := cachedRefTargets(buf); ok {
		if t, ok := refs[name]; ok {
			return t, true
		}
	}
	t, ok := BuildRefTargets(buf)[name]
	return t, ok
}

// Resolve turns a reference source into a direct link. Other kinds are
// returned unchanged.
func Resolve(buf buffer.Buffer, l Link) (Link, error) {
	if l.Kind != RefSource {
		return l, nil
	}
	target, ok := lookupRef(buf, l.Target)
	if !ok {
		return Link{}, fmt.Errorf("links: reference %q: %w", l.Target, apperr.ErrNoLink)
	}
	return Link{Kind: Direct, Target: target, Name: l.Name, Start: l.Start, End: l.End}, nil
}

// LinkAt returns the resolved link covering byte column col of line.
// It fails with apperr.ErrNoLink when there is none.
func LinkAt(buf buffer.Buffer, line, col int) (Link, error) {
	text, err := lineAt(buf.Lines(), line)
	if err != nil {
		return Link{}, err
	}
	for _, l := range ExtractLine(text) {
		if l.Contains(col) {
			return Resolve(buf, l)
		}
	}
	return Link{}, fmt.Errorf("links: line %d col %d: %w", line, col, apperr.ErrNoLink)
}

// LinkAtCursor is LinkAt at the buffer cursor.
func LinkAtCursor(buf buffer.Buffer) (Link, error) {
	line, col := buf.Cursor()
	return LinkAt(buf, line, col)
}

// CleanDescription strips square brackets from a link description.
func CleanDescription(desc string) string {
	return strings.NewReplacer("[", "", "]", "").Replace(desc)
}

// nextIndex returns the smallest non-negative integer not used as a key.
func nextIndex(refs RefTargets) string {
	for i := 0; ; i++ {
		key := strconv.Itoa(i)
		if _, used := refs[key]; !used {
			return key
		}
	}
}

// AddRefLink appends "[i]: target" to buf and inserts "[desc][i]" after
// the cursor, as a single edit. It returns the reference index used.
func AddRefLink(buf buffer.Buffer, desc, target string) (string, error) {
	refs, ok := cachedRefTargets(buf)
	if !ok {
		refs = BuildRefTargets(buf)
	}
	index := nextIndex(refs)
	desc = CleanDescription(desc)

	line, col := buf.Cursor()
	err := buf.Apply(buffer.Edit{
		Insert: &buffer.Insertion{
			Line: line,
			Col:  col + 1,
			Text: "[" + desc + "][" + index + "]",
		},
		Append: []string{"[" + index + "]: " + target},
	})
	if err != nil {
		return "", fmt.Errorf("links: add reference: %w", err)
	}

	updated := make(RefTargets, len(refs)+1)
	for k, v := range refs {
		updated[k] = v
	}
	updated[index] = target
	buf.SetVar(RefTargetsVar, updated)
	return index, nil
}
