package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/harp/internal/config"
	"github.com/hpungsan/harp/internal/editor"
	"github.com/hpungsan/harp/internal/errors"
	"github.com/hpungsan/harp/internal/ops"
	"github.com/hpungsan/harp/internal/store"
	"github.com/hpungsan/harp/internal/web"
)

// newCLIApp creates the CLI application with all commands. cwd is the
// directory relative sections resolve against unless --cwd overrides it.
func newCLIApp(backend store.Backend, cfg *config.Config, cwd string) *cli.App {
	app := &cli.App{
		Name:    "harp",
		Usage:   "Persistent namespaced registers",
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "verbose", Aliases: []string{"V"}, Usage: "Log verbosity on stderr (glog -v)"},
		},
		Before: func(c *cli.Context) error {
			if n := c.Int("verbose"); n > 0 {
				return flag.Set("v", strconv.Itoa(n))
			}
			return nil
		},
		Commands: []*cli.Command{
			getCmd(backend, cwd),
			setCmd(backend, cwd),
			delCmd(backend, cwd),
			clearCmd(backend, cwd),
			listCmd(backend, cwd),
			sectionsCmd(backend),
			pickCmd(backend, cfg, cwd),
			exportCmd(backend, cfg),
			importCmd(backend, cfg),
			mcpCmd(backend, cfg, cwd),
			serveCmd(backend),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// scopeFlags describe the editor context relative sections resolve against.
func scopeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "buffer", Aliases: []string{"b"}, Usage: "Buffer path for buffer-relative sections"},
		&cli.StringFlag{Name: "cwd", Usage: "Working directory for directory-relative sections (default: current directory)"},
		&cli.StringFlag{Name: "language", Aliases: []string{"l"}, Usage: "Filetype for filetype-relative sections (default: guessed from --buffer)"},
	}
}

// addressFlags select how the section argument is resolved.
func addressFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "relativity", Aliases: []string{"r"}, Usage: "Relativity: global|buffer|directory|filetype (default: remembered)"},
		&cli.BoolFlag{Name: "exact", Aliases: []string{"e"}, Usage: "Use the section name verbatim"},
	}
}

func scopeFrom(c *cli.Context, cwd string) editor.FixedScope {
	dir := c.String("cwd")
	if dir == "" {
		dir = cwd
	}
	return editor.NewFixedScope(c.String("buffer"), dir, c.String("language"))
}

// addressFrom reads <section> <register> and the address flags.
func addressFrom(c *cli.Context) (ops.Address, error) {
	if c.NArg() < 2 {
		return ops.Address{}, errors.NewInvalidRequest("section and register arguments are required")
	}
	return ops.Address{
		Section:    c.Args().Get(0),
		Register:   c.Args().Get(1),
		Relativity: c.String("relativity"),
		Exact:      c.Bool("exact"),
	}, nil
}

// getCmd creates the get command.
func getCmd(backend store.Backend, cwd string) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Read one register",
		ArgsUsage: "<section> <register>",
		Flags:     append(addressFlags(), scopeFlags()...),
		Action: func(c *cli.Context) error {
			addr, err := addressFrom(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Get(backend, scopeFrom(c, cwd), ops.GetInput{Address: addr})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// setCmd creates the set command.
func setCmd(backend store.Backend, cwd string) *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Record path"},
		&cli.IntFlag{Name: "line", Usage: "Record line (1-based)"},
		&cli.IntFlag{Name: "column", Usage: "Record column (1-based)"},
		&cli.StringFlag{Name: "extra", Usage: "Record extra text"},
	}
	flags = append(flags, addressFlags()...)
	flags = append(flags, scopeFlags()...)

	return &cli.Command{
		Name:      "set",
		Usage:     "Write one register: values as arguments, stdin, or a record via --path/--line/--column/--extra",
		ArgsUsage: "<section> <register> [value...]",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			addr, err := addressFrom(c)
			if err != nil {
				return outputError(err)
			}

			input := ops.SetInput{Address: addr}
			record, err := recordFrom(c)
			if err != nil {
				return outputError(err)
			}

			switch {
			case record != nil:
				if c.NArg() > 2 {
					return outputError(errors.NewInvalidRequest("values and record flags are mutually exclusive"))
				}
				input.Record = record
			case c.NArg() > 2:
				input.Values = c.Args().Slice()[2:]
			case stdinHasData():
				value, err := readStdin()
				if err != nil {
					return outputError(errors.NewIO("read stdin", err))
				}
				input.Values = []string{value}
			default:
				return outputError(errors.NewInvalidRequest("values, stdin or record flags are required"))
			}

			output, err := ops.Set(backend, scopeFrom(c, cwd), input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// recordFrom builds a record from the record flags, or nil when none is set.
func recordFrom(c *cli.Context) (*store.Record, error) {
	var r store.Record
	set := false
	if c.IsSet("path") {
		r.Path = store.Str(c.String("path"))
		set = true
	}
	for _, name := range []string{"line", "column"} {
		if !c.IsSet(name) {
			continue
		}
		n := c.Int(name)
		if n < 1 {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("--%s must be at least 1", name))
		}
		if name == "line" {
			r.Line = store.Int(n - 1)
		} else {
			r.Column = store.Int(n - 1)
		}
		set = true
	}
	if c.IsSet("extra") {
		r.Extra = store.Str(c.String("extra"))
		set = true
	}
	if !set {
		return nil, nil
	}
	return &r, nil
}

// delCmd creates the del command.
func delCmd(backend store.Backend, cwd string) *cli.Command {
	return &cli.Command{
		Name:      "del",
		Usage:     "Delete one register",
		ArgsUsage: "<section> <register>",
		Flags:     append(addressFlags(), scopeFlags()...),
		Action: func(c *cli.Context) error {
			addr, err := addressFrom(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Delete(backend, scopeFrom(c, cwd), ops.DeleteInput{Address: addr})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// clearCmd creates the clear command.
func clearCmd(backend store.Backend, cwd string) *cli.Command {
	return &cli.Command{
		Name:      "clear",
		Usage:     "Delete every register of one section",
		ArgsUsage: "<section>",
		Flags:     append(addressFlags(), scopeFlags()...),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("section argument is required"))
			}

			output, err := ops.Clear(backend, scopeFrom(c, cwd), ops.ClearInput{
				Section:    c.Args().First(),
				Relativity: c.String("relativity"),
				Exact:      c.Bool("exact"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(backend store.Backend, cwd string) *cli.Command {
	flags := []cli.Flag{
		&cli.IntFlag{Name: "limit", Value: ops.DefaultListLimit, Usage: "Maximum registers to return"},
		&cli.IntFlag{Name: "offset", Value: 0, Usage: "Number of registers to skip"},
	}
	flags = append(flags, addressFlags()...)
	flags = append(flags, scopeFlags()...)

	return &cli.Command{
		Name:      "list",
		Usage:     "List the registers of one section",
		ArgsUsage: "<section>",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("section argument is required"))
			}

			output, err := ops.List(backend, scopeFrom(c, cwd), ops.ListInput{
				Section:    c.Args().First(),
				Relativity: c.String("relativity"),
				Exact:      c.Bool("exact"),
				Limit:      c.Int("limit"),
				Offset:     c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// sectionsCmd creates the sections command.
func sectionsCmd(backend store.Backend) *cli.Command {
	return &cli.Command{
		Name:      "sections",
		Usage:     "List sections",
		ArgsUsage: "[prefix]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "Include relativity bookkeeping sections"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Sections(backend, ops.SectionsInput{
				Prefix:             c.Args().First(),
				IncludeBookkeeping: c.Bool("all"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(backend store.Backend, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export sections to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.harp/exports/<prefix>-<timestamp>.jsonl)"},
			&cli.StringFlag{Name: "prefix", Usage: "Only export sections starting with this prefix"},
			&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "Include relativity bookkeeping sections"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, backend, cfg, ops.ExportInput{
				Path:               c.String("path"),
				Prefix:             c.String("prefix"),
				IncludeBookkeeping: c.Bool("all"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(backend store.Backend, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import sections from a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace|merge"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(backend, cfg, ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// mcpCmd creates the mcp command, the explicit form of piped no-argument mode.
func mcpCmd(backend store.Backend, cfg *config.Config, cwd string) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve harp tools over MCP on stdio",
		Action: func(c *cli.Context) error {
			if err := serveMCP(backend, cfg, cwd); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(backend store.Backend) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Browse sections in a web browser",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 7725, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(backend, Version, c.String("bind"), c.Int("port"))
			if err := web.Run(srv); err != nil {
				glog.Errorf("[harp]web server: %v\n", err)
				return outputError(errors.NewIO("serve", err))
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if harpErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", harpErr.Code, harpErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin, dropping one trailing newline.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	s := strings.TrimSuffix(string(data), "\n")
	return strings.TrimSuffix(s, "\r"), nil
}
