//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(_ *sql.DB) error {
	// Without FTS5, search runs LIKE queries over notes.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _ string, _ []string) error {
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

// Search returns notes whose title, body or tags contain every term of
// query, case-insensitively for ASCII. Snippets surround the first match
// in the body.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	terms := searchTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	var (
		where []string
		args  []any
	)
	for _, t := range terms {
		like := "%" + escapeLike(t) + "%"
		where = append(where, `(title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	}
	args = append(args, limit)

	rows, err := db.conn.Query(`
		SELECT uri, path, title, body
		FROM notes
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY uri
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var (
			r    SearchResult
			body string
		)
		if err := rows.Scan(&r.URI, &r.Path, &r.Title, &body); err != nil {
			return nil, err
		}
		r.Snippet = snippet(body, terms, 64)
		out = append(out, r)
	}
	return out, rows.Err()
}

// asciiLower lowercases ASCII letters only, keeping byte offsets stable.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// snippet returns up to width bytes of body on each side of the first
// term found, marked like FTS5 snippets.
func snippet(body string, terms []string, width int) string {
	lower := asciiLower(body)
	for _, t := range terms {
		i := strings.Index(lower, asciiLower(t))
		if i < 0 {
			continue
		}
		start, end := max(0, i-width), min(len(body), i+len(t)+width)
		var b strings.Builder
		if start > 0 {
			b.WriteString("...")
		}
		b.WriteString(body[start:i])
		b.WriteString("<b>" + body[i:i+len(t)] + "</b>")
		b.WriteString(body[i+len(t) : end])
		if end < len(body) {
			b.WriteString("...")
		}
		return strings.ToValidUTF8(b.String(), "")
	}
	if len(body) > 2*width {
		return strings.ToValidUTF8(body[:2*width], "") + "..."
	}
	return body
}
