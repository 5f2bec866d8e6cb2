package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/c-c-k/progirl/internal"
	"github.com/c-c-k/progirl/internal/apperr"
	"github.com/c-c-k/progirl/internal/buffer"
	"github.com/c-c-k/progirl/internal/notes"
)

type sessionAction func(ctx context.Context, cmd *cli.Command, s *internal.Session) error

// withSession opens a session for the duration of one command. Errors are
// reduced to their user-facing message.
func withSession(action sessionAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := internal.Open(internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
		if err != nil {
			return err
		}
		defer s.Close()
		if err := action(ctx, cmd, s); err != nil {
			return cli.Exit(apperr.Message(err), 1)
		}
		return nil
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// cursorFlags locate a position in a note file. Line and column are
// zero-based; the column counts bytes.
func cursorFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Note file", Required: true},
		&cli.IntFlag{Name: "line", Aliases: []string{"l"}, Usage: "Zero-based cursor line"},
		&cli.IntFlag{Name: "col", Usage: "Zero-based cursor byte column"},
	}
}

func openCursor(cmd *cli.Command) (*buffer.File, error) {
	return buffer.OpenFile(cmd.String("file"), int(cmd.Int("line")), int(cmd.Int("col")))
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Print the path a URI resolves to",
		ArgsUsage: "URI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "context", Usage: "Directory relative URIs are resolved against"},
		},
		Action: withSession(func(ctx context.Context, cmd *cli.Command, s *internal.Session) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("resolve: expected one URI")
			}
			path, err := s.Service.Resolve(ctx, cmd.Args().First(), cmd.String("context"))
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		}),
	}
}

func gotoCommand() *cli.Command {
	return &cli.Command{
		Name:  "goto",
		Usage: "Resolve the link under the cursor, create the file if missing and print its path",
		Flags: cursorFlags(),
		Action: withSession(func(ctx context.Context, cmd *cli.Command, s *internal.Session) error {
			buf, err := openCursor(cmd)
			if err != nil {
				return err
			}
			path, err := s.Service.Goto(ctx, buf)
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		}),
	}
}

func exCommand() *cli.Command {
	return &cli.Command{
		Name:  "ex",
		Usage: "Print the link under the cursor rewritten for an external opener",
		Flags: cursorFlags(),
		Action: withSession(func(ctx context.Context, cmd *cli.Command, s *internal.Session) error {
			buf, err := openCursor(cmd)
			if err != nil {
				return err
			}
			target, err := s.Service.Ex(ctx, buf)
			if err != nil {
				return err
			}
			fmt.Println(target)
			return nil
		}),
	}
}

// noteFlags select the buffer a new note is created relative to and extra
// template parameters.
func noteFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "buffer", Aliases: []string{"b"}, Usage: "File being edited; picks the collection and directory"},
		&cli.StringSliceFlag{Name: "param", Aliases: []string{"p"}, Usage: "Extra template parameter KEY=VALUE"},
	}
}

func noteRequest(cmd *cli.Command) (notes.Request, error) {
	req := notes.Request{
		Args:       cmd.Args().Slice(),
		BufferPath: cmd.String("buffer"),
		UseBuffer:  cmd.String("buffer") != "",
	}
	for _, kv := range cmd.StringSlice("param") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return req, fmt.Errorf("param %q: expected KEY=VALUE", kv)
		}
		if req.Params == nil {
			req.Params = make(map[string]string)
		}
		req.Params[k] = v
	}
	return req, nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "new",
		Usage:     "Create a note, or find the existing one, and print its path",
		ArgsUsage: "[COLLECTION:DIR] TITLE... [.EXT]",
		Flags:     noteFlags(),
		Action: withSession(func(ctx context.Context, cmd *cli.Command, s *internal.Session) error {
			req, err := noteRequest(cmd)
			if err != nil {
				return err
			}
			info, err := s.Service.CreateNote(ctx, req)
			if err != nil {
				return err
			}
			fmt.Println(info.Path)
			return nil
		}),
	}
}

func linkCommand() *cli.Command {
	return &cli.Command{
		Name:      "link",
		Usage:     "Create a note and insert a numbered reference link to it at the cursor",
		ArgsUsage: "[COLLECTION:DIR] TITLE... [.EXT]",
		Flags:     append(cursorFlags(), noteFlags()[1]),
		Action: withSession(func(ctx context.Context, cmd *cli.Command, s *internal.Session) error {
			buf, err := openCursor(cmd)
			if err != nil {
				return err
			}
			req, err := noteRequest(cmd)
			if err != nil {
				return err
			}
			req.UseBuffer = true
			res, err := s.Service.AddNoteRefLink(ctx, buf, req)
			if err != nil {
				return err
			}
			return printJSON(res)
		}),
	}
}

func refsCommand() *cli.Command {
	return &cli.Command{
		Name:  "refs",
		Usage: "Print the reference targets of a note",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Note file", Required: true},
		},
		Action: withSession(func(ctx context.Context, cmd *cli.Command, s *internal.Session) error {
			buf, err := buffer.OpenFile(cmd.String("file"), 0, 0)
			if err != nil {
				return err
			}
			return printJSON(s.Service.RefTargets(buf))
		}),
	}
}

func idCommand() *cli.Command {
	return &cli.Command{
		Name:  "id",
		Usage: "Consume and print the next auto id",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Usage: "Directory the id is for (default: collection notes root)"},
		},
		Action: withSession(func(ctx context.Context, cmd *cli.Command, s *internal.Session) error {
			id, err := s.Service.AllocateID(ctx, cmd.String("collection"), cmd.String("dir"))
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		}),
	}
}

func collectionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "collections",
		Usage: "List the configured collections",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print JSON"},
		},
		Action: withSession(func(ctx context.Context, cmd *cli.Command, s *internal.Session) error {
			cols := s.Service.Collections()
			if cmd.Bool("json") {
				return printJSON(cols)
			}
			for _, c := range cols {
				mark := " "
				if c.Active {
					mark = "*"
				}
				fmt.Printf("%s %s\t%s\n", mark, c.ID, c.NotesPath)
			}
			return nil
		}),
	}
}

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Bring the search index up to date with every collection",
		Action: withSession(func(ctx context.Context, cmd *cli.Command, s *internal.Session) error {
			return s.Service.Sync()
		}),
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Full-text search through indexed notes",
		ArgsUsage: "QUERY...",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Usage: "Maximum number of results", Value: 20},
		},
		Action: withSession(func(ctx context.Context, cmd *cli.Command, s *internal.Session) error {
			query := strings.Join(cmd.Args().Slice(), " ")
			if query == "" {
				return fmt.Errorf("search: query is required")
			}
			results, err := s.Service.Search(ctx, query, int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Printf("%s\t%s\n", r.URI, r.Title)
			}
			return nil
		}),
	}
}

func backlinksCommand() *cli.Command {
	return &cli.Command{
		Name:      "backlinks",
		Usage:     "List indexed notes linking to a note",
		ArgsUsage: "URI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "context", Usage: "Directory relative URIs are resolved against"},
		},
		Action: withSession(func(ctx context.Context, cmd *cli.Command, s *internal.Session) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("backlinks: expected one URI")
			}
			bl, err := s.Service.Backlinks(ctx, cmd.Args().First(), cmd.String("context"))
			if err != nil {
				return err
			}
			for _, u := range bl {
				fmt.Println(u)
			}
			return nil
		}),
	}
}
