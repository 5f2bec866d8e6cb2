//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
			uri UNINDEXED,
			title,
			body,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, uri, title, body string, tags []string) error {
	_, _ = tx.Exec(`DELETE FROM notes_fts WHERE uri = ?`, uri)
	_, err := tx.Exec(`INSERT INTO notes_fts (uri, title, body, tags) VALUES (?, ?, ?, ?)`,
		uri, title, body, strings.Join(tags, " "))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, uri string) {
	_, _ = tx.Exec(`DELETE FROM notes_fts WHERE uri = ?`, uri)
}

// matchQuery turns user input into an FTS5 query: every term is quoted,
// so punctuation such as "pkb-wiki" is not parsed as syntax, and the last
// term matches as a prefix.
func matchQuery(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}
	quoted[len(quoted)-1] += "*"
	return strings.Join(quoted, " ")
}

// Search performs an FTS5 full-text search ranked by bm25 and returns hits
// with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	terms := searchTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}
	rows, err := db.conn.Query(`
		SELECT notes_fts.uri,
		       notes.path,
		       notes_fts.title,
		       snippet(notes_fts, 2, '<b>', '</b>', '...', 64)
		FROM notes_fts
		JOIN notes ON notes.uri = notes_fts.uri
		WHERE notes_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, matchQuery(terms), limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.URI, &r.Path, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
