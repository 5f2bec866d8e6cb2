package mcpserver

// URIFormat describes how notes are addressed and linked, for LLM
// consumers that read or edit notes through the tools.
const URIFormat = `# progirl Note URIs

A note URI is ` + "`" + `<protocol>:<body>` + "`" + `. The protocol names a collection
(` + "`" + `pkb-<name>` + "`" + `), the local file system (` + "`" + `file` + "`" + `), or is omitted.

## Forms

| URI                     | Meaning                                            |
|-------------------------|----------------------------------------------------|
| ` + "`" + `pkb-wiki:/plans/q1.md` + "`" + `  | Path below the notes directory of collection wiki  |
| ` + "`" + `pkb-wiki:plans/q1.md` + "`" + `   | Relative to the current note, or the notes root   |
| ` + "`" + `file:/tmp/a.md` + "`" + `         | Absolute local path                                |
| ` + "`" + `../other.md` + "`" + `            | Relative to the directory of the current note      |
| ` + "`" + `/plans/q1.md` + "`" + `           | Path below the notes directory of the current note |
| ` + "`" + `~/notes/a.md` + "`" + `           | Home-relative path                                 |

Only the first colon separates protocol and body, and a protocol may only
contain letters, digits, underscore and hyphen. Anything else is a plain path.

## Links

Three Markdown link shapes are recognised:

1. Direct: ` + "`" + `[description](target)` + "`" + `
2. Reference source: ` + "`" + `[description][name]` + "`" + `
3. Reference target: ` + "`" + `[name]: target` + "`" + ` at the start of a line

A reference source resolves to the target of the reference with the same
name in the same note. ` + "`" + `add_ref_link` + "`" + ` appends the next free numeric
reference. Notes in the same collection are linked by id (` + "`" + `/plans/q1.md` + "`" + `),
notes elsewhere by full URI.

## Creating notes

` + "`" + `create_note` + "`" + ` builds the filename from the collection filename template and
the title, e.g. ` + "`" + `1700000000-my_idea.md` + "`" + `. When a note with that filename
exists it is returned unchanged with ` + "`" + `created: false` + "`" + `.
`
