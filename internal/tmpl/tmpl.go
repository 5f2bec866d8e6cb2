// Package tmpl implements the small "$NAME" / "${NAME}" placeholder
// language used by filename and note content templates.
package tmpl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/c-c-k/progirl/internal/apperr"
)

// Groups: 1 escaped "$$", 2 bare name, 3 braced name, 4 invalid.
var placeholderRe = regexp.MustCompile(`\$(?:(\$)|([_A-Za-z][_A-Za-z0-9]*)|\{([_A-Za-z][_A-Za-z0-9]*)\}|())`)

// Substitute replaces every placeholder with its value from params.
// Unknown or malformed placeholders are an error.
func Substitute(template string, params map[string]string) (string, error) {
	return render(template, params, true)
}

// SafeSubstitute replaces known placeholders and leaves everything else
// in place.
func SafeSubstitute(template string, params map[string]string) string {
	out, _ := render(template, params, false)
	return out
}

// Placeholders returns the names referenced by template in order of
// first appearance.
func Placeholders(template string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		name := m[2] + m[3]
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// References reports whether template uses the named placeholder.
func References(template, name string) bool {
	for _, n := range Placeholders(template) {
		if n == name {
			return true
		}
	}
	return false
}

func render(template string, params map[string]string, strict bool) (string, error) {
	var b strings.Builder
	last := 0
	for _, loc := range placeholderRe.FindAllStringSubmatchIndex(template, -1) {
		b.WriteString(template[last:loc[0]])
		last = loc[1]
		whole := template[loc[0]:loc[1]]

		switch {
		case loc[2] >= 0:
			b.WriteByte('$')
		case loc[4] >= 0 || loc[6] >= 0:
			name := group(template, loc, 2) + group(template, loc, 3)
			v, ok := params[name]
			if !ok {
				if strict {
					return "", fmt.Errorf("tmpl: unknown placeholder %q: %w", name, apperr.ErrTemplate)
				}
				b.WriteString(whole)
				continue
			}
			b.WriteString(v)
		default:
			if strict {
				return "", fmt.Errorf("tmpl: invalid placeholder at offset %d: %w", loc[0], apperr.ErrTemplate)
			}
			b.WriteString(whole)
		}
	}
	b.WriteString(template[last:])
	return b.String(), nil
}

func group(s string, loc []int, i int) string {
	if loc[2*i] < 0 {
		return ""
	}
	return s[loc[2*i]:loc[2*i+1]]
}

// ExpandTime expands strftime directives in template using t. "%s"
// becomes seconds since the Unix epoch.
func ExpandTime(template string, t time.Time) string {
	var b strings.Builder
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '%' || i+1 == len(template) {
			b.WriteByte(c)
			continue
		}
		switch template[i+1] {
		case 's':
			b.WriteString(strconv.FormatInt(t.Unix(), 10))
			i++
		case '%':
			b.WriteString("%%")
			i++
		default:
			b.WriteByte(c)
		}
	}
	return strftime.Format(b.String(), t)
}
