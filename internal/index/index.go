package index

import "strings"

// NoteIndex is the set of index operations used by the note service.
type NoteIndex interface {
	UpsertNote(n NoteRow, body string, links []string) error
	DeleteNote(uri string) error
	GetChecksum(uri string) (string, error)
	GetNote(uri string) (*NoteRow, error)
	ListNotes(collection string) ([]NoteRow, error)
	Search(query string, limit int) ([]SearchResult, error)
	Backlinks(target string) ([]string, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

var _ NoteIndex = (*DB)(nil)

// searchTerms splits a user query into its whitespace separated terms.
// Double quotes are dropped so terms can be quoted safely.
func searchTerms(query string) []string {
	return strings.Fields(strings.ReplaceAll(query, `"`, " "))
}
