package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/harp/internal/actions"
	"github.com/hpungsan/harp/internal/config"
	"github.com/hpungsan/harp/internal/editor"
	"github.com/hpungsan/harp/internal/errors"
	"github.com/hpungsan/harp/internal/protocol"
	"github.com/hpungsan/harp/internal/store"
	"github.com/hpungsan/harp/internal/terminal"
)

// PickOutput reports what an interactive session did to the editor.
type PickOutput struct {
	Action        string     `json:"action"`
	Section       string     `json:"section"`
	Relativity    string     `json:"relativity"`
	Reciprocation string     `json:"reciprocation"`
	Buffer        string     `json:"buffer,omitempty"`
	Line          int        `json:"line"`
	Column        int        `json:"column"`
	Cwd           string     `json:"cwd"`
	Opened        []string   `json:"opened,omitempty"`
	Executed      []string   `json:"executed,omitempty"`
	Pasted        [][]string `json:"pasted,omitempty"`
	Status        string     `json:"status,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// pickCmd creates the pick command: an interactive resolve prompt read key
// by key from the terminal.
func pickCmd(backend store.Backend, cfg *config.Config, cwd string) *cli.Command {
	return &cli.Command{
		Name:      "pick",
		Usage:     "Run an action's resolve prompt interactively",
		ArgsUsage: "<file|relative_file|cwd|search|register|command|mark>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "buffer", Aliases: []string{"b"}, Usage: "File to load as the current buffer"},
			&cli.StringFlag{Name: "cwd", Usage: "Working directory (default: current directory)"},
			&cli.IntFlag{Name: "line", Value: 1, Usage: "Cursor line (1-based)"},
			&cli.IntFlag{Name: "column", Value: 1, Usage: "Cursor column (1-based)"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "get", Usage: "Initial reciprocation: get|set|delete"},
			&cli.StringSliceFlag{Name: "yank", Usage: "Values in the default yank register"},
			&cli.StringFlag{Name: "search", Usage: "Last search pattern"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("action argument is required"))
			}
			if cfg == nil {
				cfg = config.DefaultConfig()
			}

			catalog, err := actions.NewCatalog(cfg)
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}
			def, err := catalog.Lookup(c.Args().First())
			if err != nil {
				return outputError(err)
			}
			rec, err := protocol.ParseReciprocation(c.String("mode"))
			if err != nil {
				return outputError(err)
			}

			keys, err := terminal.Open(os.Stdin)
			if err != nil {
				return outputError(err)
			}
			defer keys.Close()

			ed, err := pickEditor(c, cwd, crlf{os.Stderr})
			if err != nil {
				return outputError(err)
			}

			out, err := runPick(c.Context, backend, cfg, def, rec, ed, keys)
			keys.Close()
			if out != nil {
				if jsonErr := outputJSON(out); jsonErr != nil {
					return jsonErr
				}
			}
			if err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// pickEditor builds the headless editor the session acts on.
func pickEditor(c *cli.Context, cwd string, out io.Writer) (*editor.Headless, error) {
	ed := editor.NewHeadless(out)
	if dir := c.String("cwd"); dir != "" {
		if err := ed.SetWorkingDir(dir); err != nil {
			return nil, errors.NewInvalidRequest(err.Error())
		}
	} else if cwd != "" {
		ed.Cwd = cwd
	}

	if path := c.String("buffer"); path != "" {
		scope := editor.NewFixedScope(path, ed.Cwd, "")
		buf, err := editor.LoadBuffer(scope.Path)
		if err != nil {
			return nil, errors.NewIO("load buffer", err)
		}
		ed.Buf = buf
	}
	_ = ed.SetCursor(c.Int("line")-1, c.Int("column")-1)

	if yank := c.StringSlice("yank"); len(yank) > 0 {
		_ = ed.Regs.Write(ed.Yank, yank)
	}
	if pattern := c.String("search"); pattern != "" {
		_ = ed.Regs.Push('/', pattern)
	}
	return ed, nil
}

// runPick drives one session until it ends. Interrupts and end of input
// cancel the prompt without an error.
func runPick(ctx context.Context, backend store.Backend, cfg *config.Config, def actions.Definition, rec protocol.Reciprocation, ed *editor.Headless, keys protocol.KeySource) (*PickOutput, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := store.Open(backend)
	if err != nil {
		return nil, err
	}

	session := def.Session(conn, ed, protocol.HotkeysFrom(cfg.Hotkeys), rec)
	err = session.Run(ctx, keys)
	if err == io.EOF || err == context.Canceled {
		err = nil
	}

	row, col := ed.Buf.Cursor()
	out := &PickOutput{
		Action:        def.Name,
		Section:       session.Section(),
		Relativity:    session.Relativity().String(),
		Reciprocation: session.Reciprocation().String(),
		Buffer:        ed.Buf.FilePath,
		Line:          row + 1,
		Column:        col + 1,
		Cwd:           ed.Cwd,
		Opened:        ed.Opened,
		Executed:      ed.Executed,
		Pasted:        ed.Pasted,
		Status:        ed.Status,
		Error:         ed.Err,
	}
	return out, err
}

// crlf restores carriage returns on newlines for a terminal in raw mode.
type crlf struct {
	w io.Writer
}

func (c crlf) Write(p []byte) (int, error) {
	s := strings.ReplaceAll(string(p), "\r\n", "\n")
	if _, err := io.WriteString(c.w, strings.ReplaceAll(s, "\n", "\r\n")); err != nil {
		return 0, err
	}
	return len(p), nil
}
