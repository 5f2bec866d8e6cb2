// Package notes creates notes from free-form title words.
package notes

import (
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/c-c-k/progirl/internal/collection"
	"github.com/c-c-k/progirl/internal/uri"
)

// Info describes a note derived from title arguments.
type Info struct {
	CollectionID string  `json:"collection_id"`
	Dir          string  `json:"directory"`
	Title        string  `json:"title"`
	BaseFilename string  `json:"base_filename"`
	Extension    string  `json:"extension"`
	Filename     string  `json:"filename"`
	Path         string  `json:"path"`
	URI          uri.URI `json:"uri"`
	// Created is false when the note already existed.
	Created bool `json:"created"`

	collection *collection.Collection
}

// ID is the note id, the body of its URI.
func (i *Info) ID() string {
	return i.URI.Body
}

// Collection returns the collection the note belongs to.
func (i *Info) Collection() *collection.Collection {
	return i.collection
}

// Tags derives tags from the directories of the note id, root first, and
// adds "index" when the note is named after its directory.
func Tags(i *Info) []string {
	var tags []string
	if i.URI.Protocol != "" {
		for dir := path.Dir(i.ID()); dir != "/" && dir != "."; dir = path.Dir(dir) {
			tags = append(tags, CleanTag(path.Base(dir)))
		}
	}
	for l, r := 0, len(tags)-1; l < r; l, r = l+1, r-1 {
		tags[l], tags[r] = tags[r], tags[l]
	}
	if filepath.Base(filepath.Dir(i.Path)) == i.BaseFilename {
		tags = append(tags, "index")
	}
	return tags
}

// contentParams returns the parameters available to content templates.
func contentParams(i *Info, extra map[string]string) map[string]string {
	params := map[string]string{
		"TITLE":       i.Title,
		"TAGS":        strings.Join(Tags(i), ", "),
		"TITLE_UPPER": strings.ToUpper(i.Title),
		"NOTE_ID":     i.ID(),
	}
	for k, v := range extra {
		params[k] = v
	}
	return params
}

// Request holds the inputs of one note creation.
type Request struct {
	// Args are the title words. The first may select a collection and
	// directory ("pkb-work:/projects") and the last an extension (".txt").
	Args []string
	// BufferPath is the file being edited, if any.
	BufferPath string
	// UseBuffer lets BufferPath pick the collection and directory.
	UseBuffer bool
	// Now defaults to the creator clock.
	Now time.Time
	// Params are extra content template parameters.
	Params map[string]string
}
