// Package actions defines the harp consumers: what each one stores, how it
// previews stored values, and what get and set do in the editor.
package actions

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/golang/glog"

	"github.com/hpungsan/harp/internal/config"
	"github.com/hpungsan/harp/internal/editor"
	"github.com/hpungsan/harp/internal/errors"
	"github.com/hpungsan/harp/internal/protocol"
	"github.com/hpungsan/harp/internal/relativity"
	"github.com/hpungsan/harp/internal/store"
)

// Action names.
const (
	File         = "file"
	RelativeFile = "relative_file"
	Cwd          = "cwd"
	Search       = "search"
	Register     = "register"
	Command      = "command"
	Mark         = "mark"
)

// SetStatus is shown after a successful set.
const SetStatus = "harped!"

// Placeholder marks the spots of a pasted register template to type over.
const Placeholder = "█"

// Definition is one harp consumer.
type Definition struct {
	Name       string
	Title      string
	Section    string
	Relativity relativity.Relativity
	// Contract is what Get needs from a stored record.
	Contract store.Contract
	// Positional maps list-form entries written by hand or by older
	// versions onto record fields.
	Positional []store.Field

	Width  func(r store.Record) int
	Format func(r store.Record, rel relativity.Relativity, width int) (string, bool)
	Get    func(ed editor.Editor, v store.View) error
	Set    func(ed editor.Editor) (store.Record, error)
}

// Catalog holds every definition, configured.
type Catalog struct {
	defs map[string]Definition
}

// NewCatalog builds the definitions with cfg's default relativities and
// newline marker.
func NewCatalog(cfg *config.Config) (*Catalog, error) {
	newline := cfg.NewlineChar
	if newline == "" {
		newline = config.DefaultConfig().NewlineChar
	}

	defaults := map[string]string{
		File:         cfg.Relativity.File,
		RelativeFile: cfg.Relativity.RelativeFile,
		Cwd:          cfg.Relativity.Cwd,
		Search:       cfg.Relativity.Search,
		Register:     cfg.Relativity.Register,
		Command:      cfg.Relativity.Command,
		Mark:         cfg.Relativity.Mark,
	}

	c := &Catalog{defs: map[string]Definition{}}
	for _, def := range definitions(newline) {
		if name := defaults[def.Name]; name != "" {
			rel, err := relativity.Parse(name)
			if err != nil {
				return nil, fmt.Errorf("relativity.%s: %w", def.Name, err)
			}
			def.Relativity = rel
		}
		c.defs[def.Name] = def
	}
	return c, nil
}

// Names lists the action names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.defs))
	for name := range c.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named definition.
func (c *Catalog) Lookup(name string) (Definition, error) {
	def, ok := c.defs[name]
	if !ok {
		return Definition{}, errors.NewInvalidRequest(fmt.Sprintf("unknown action %q (want one of %s)", name, strings.Join(c.Names(), ", ")))
	}
	return def, nil
}

// Prompt wires def into a resolve prompt acting on ed.
func (def Definition) Prompt(ed editor.Editor, rec protocol.Reciprocation) protocol.Prompt {
	return protocol.Prompt{
		Name:          def.Title,
		Base:          def.Section,
		Relativity:    def.Relativity,
		Reciprocation: rec,
		Width: func(e *store.Entry) int {
			r, ok := def.record(e)
			if !ok || def.Width == nil {
				return 0
			}
			return def.Width(r)
		},
		Format: func(e *store.Entry, rel relativity.Relativity, width int) (string, bool) {
			r, ok := def.record(e)
			if !ok {
				return "", false
			}
			return def.Format(r, rel, width)
		},
		Action: def.Action(ed),
	}
}

// Session opens a resolve prompt for def on conn.
func (def Definition) Session(conn *store.Connection, ed editor.Editor, hotkeys protocol.Hotkeys, rec protocol.Reciprocation) *protocol.Session {
	return protocol.NewSession(conn, def.Prompt(ed, rec), hotkeys, editor.Scope{Editor: ed}, ed)
}

// Action performs get or set on a resolved register.
func (def Definition) Action(ed editor.Editor) protocol.Action {
	return func(conn *store.Connection, rec protocol.Reciprocation, section, register string) error {
		switch rec {
		case protocol.Get:
			v, err := def.Lookup(conn, section, register)
			if err != nil {
				return err
			}
			return def.Get(ed, v)
		case protocol.Set:
			r, err := def.Set(ed)
			if err != nil {
				return err
			}
			if err := conn.SetRecord(section, register, r); err != nil {
				return err
			}
			if err := conn.Save(); err != nil {
				return err
			}
			glog.V(1).Infof("[harp]%s set %s/%s\n", def.Name, section, register)
			ed.SetStatus(SetStatus)
			return nil
		}
		return errors.NewInternal(fmt.Errorf("%s: no action for %s", def.Name, rec))
	}
}

// Lookup reads a register through def's contract. List-form entries are
// read positionally.
func (def Definition) Lookup(conn *store.Connection, section, register string) (store.View, error) {
	e, ok := conn.Entry(section, register)
	if !ok {
		return store.View{}, errors.NewRegisterUnset(section, register)
	}
	if !e.IsRecord() && len(def.Positional) > 0 {
		r, err := def.fromList(section, register, e.Values())
		if err != nil {
			return store.View{}, err
		}
		e = store.NewRecordEntry(r)
	}
	return e.View(section, register, def.Contract)
}

func (def Definition) record(e *store.Entry) (store.Record, bool) {
	if r, ok := e.Record(); ok {
		return r, true
	}
	r, err := def.fromList("", "", e.Values())
	return r, err == nil
}

func (def Definition) fromList(section, register string, values []string) (store.Record, error) {
	var r store.Record
	for i, field := range def.Positional {
		if i >= len(values) {
			break
		}
		v := values[i]
		switch field {
		case store.FieldPath:
			r.Path = store.Str(v)
		case store.FieldExtra:
			r.Extra = store.Str(v)
		case store.FieldLine, store.FieldColumn:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return store.Record{}, errors.NewArityMismatch(section, register, []string{string(field)})
			}
			if field == store.FieldLine {
				r.Line = store.Int(n)
			} else {
				r.Column = store.Int(n)
			}
		}
	}
	return r, nil
}

func definitions(newline string) []Definition {
	family := func(r store.Record, _ relativity.Relativity, _ int) (string, bool) {
		if r.Path == nil {
			return "", false
		}
		return happyFamily(*r.Path)
	}
	text := func(search bool) func(store.Record, relativity.Relativity, int) (string, bool) {
		return func(r store.Record, _ relativity.Relativity, _ int) (string, bool) {
			if r.Extra == nil {
				return "", false
			}
			return registerText(*r.Extra, newline, search)
		}
	}

	return []Definition{
		{
			Name:       File,
			Title:      "file",
			Section:    "harp_files",
			Contract:   store.PathContract(),
			Positional: []store.Field{store.FieldPath},
			Format:     family,
			Get: func(ed editor.Editor, v store.View) error {
				return ed.Open(v.Path)
			},
			Set: func(ed editor.Editor) (store.Record, error) {
				path, ok := ed.Document().Path()
				if !ok {
					return store.Record{}, errors.NewUnpathedBuffer()
				}
				return store.Record{Path: store.Str(path)}, nil
			},
		},
		{
			Name:       RelativeFile,
			Title:      "relative",
			Section:    "harp_relative_files",
			Relativity: relativity.Directory,
			Contract:   store.PathContract(),
			Positional: []store.Field{store.FieldPath},
			Format:     family,
			Get: func(ed editor.Editor, v store.View) error {
				path := v.Path
				if !filepath.IsAbs(path) {
					path = filepath.Join(ed.WorkingDir(), path)
				}
				return ed.Open(path)
			},
			Set: func(ed editor.Editor) (store.Record, error) {
				path, ok := ed.Document().Path()
				if !ok {
					return store.Record{}, errors.NewUnpathedBuffer()
				}
				return store.Record{Path: store.Str(relativeTo(path, ed.WorkingDir()))}, nil
			},
		},
		{
			Name:       Cwd,
			Title:      "cwd",
			Section:    "harp_dirs",
			Contract:   store.PathContract(),
			Positional: []store.Field{store.FieldPath},
			Format:     family,
			Get: func(ed editor.Editor, v store.View) error {
				if err := ed.SetWorkingDir(v.Path); err != nil {
					return err
				}
				ed.SetStatus("harp: cwd is now " + v.Path)
				return nil
			},
			Set: func(ed editor.Editor) (store.Record, error) {
				return store.Record{Path: store.Str(ed.WorkingDir())}, nil
			},
		},
		{
			Name:       Search,
			Title:      "search",
			Section:    "harp_searches",
			Contract:   store.ExtraContract(),
			Positional: []store.Field{store.FieldExtra},
			Format:     text(true),
			Get: func(ed editor.Editor, v store.View) error {
				if err := ed.Registers().Push('/', v.Extra); err != nil {
					return err
				}
				return ed.SearchNext()
			},
			Set: func(ed editor.Editor) (store.Record, error) {
				pattern, ok := ed.Registers().Last('/')
				if !ok || pattern == "" {
					return store.Record{}, errors.NewWriteTargetUnavailable("register /")
				}
				return store.Record{Extra: store.Str(pattern)}, nil
			},
		},
		{
			Name:       Register,
			Title:      "register",
			Section:    "harp_registers",
			Contract:   store.ExtraContract(),
			Positional: []store.Field{store.FieldExtra},
			Format:     text(false),
			Get: func(ed editor.Editor, v store.View) error {
				if ed.InsertMode() {
					return pasteTemplate(ed, v.Extra)
				}
				if err := ed.Registers().Write(ed.DefaultYankRegister(), []string{v.Extra}); err != nil {
					return fmt.Errorf("harp: couldn't write to default register: %w", err)
				}
				ed.SetStatus(fmt.Sprintf("harp: get `%s`", v.Extra))
				return nil
			},
			Set: func(ed editor.Editor) (store.Record, error) {
				values := ed.Registers().Read(ed.DefaultYankRegister())
				if len(values) == 0 {
					return store.Record{}, errors.NewWriteTargetUnavailable("default register")
				}
				return store.Record{Extra: store.Str(strings.Join(values, "\n"))}, nil
			},
		},
		{
			Name:       Command,
			Title:      "command",
			Section:    "harp_commands",
			Relativity: relativity.Directory,
			Contract:   store.ExtraContract(),
			Positional: []store.Field{store.FieldExtra},
			Format: func(r store.Record, _ relativity.Relativity, _ int) (string, bool) {
				if r.Extra == nil {
					return "", false
				}
				return *r.Extra, true
			},
			Get: func(ed editor.Editor, v store.View) error {
				regs := ed.Registers()
				// History is not deduplicated, so don't stack repeats.
				if last, ok := regs.Last(':'); !ok || last != v.Extra {
					if err := regs.Push(':', v.Extra); err != nil {
						glog.V(1).Infof("[harp]command history not updated: %v\n", err)
					}
				}
				return ed.Execute(v.Extra)
			},
			Set: func(ed editor.Editor) (store.Record, error) {
				last, ok := ed.Registers().Last(':')
				if !ok || last == "" {
					return store.Record{}, errors.NewWriteTargetUnavailable("command register")
				}
				return store.Record{Extra: store.Str(last)}, nil
			},
		},
		{
			Name:       Mark,
			Title:      "mark",
			Section:    "harp_marks",
			Relativity: relativity.Buffer,
			Contract:   store.PositionContract(),
			Positional: []store.Field{store.FieldPath, store.FieldLine, store.FieldColumn, store.FieldExtra},
			Width: func(r store.Record) int {
				if r.Path == nil {
					return 0
				}
				family, _ := happyFamily(*r.Path)
				return utf8.RuneCountInString(family)
			},
			Format: formatMark,
			Get: func(ed editor.Editor, v store.View) error {
				if err := ed.Open(v.Path); err != nil {
					return err
				}
				return ed.SetCursor(v.Line, v.Column)
			},
			Set: func(ed editor.Editor) (store.Record, error) {
				doc := ed.Document()
				path, ok := doc.Path()
				if !ok {
					return store.Record{}, errors.NewUnpathedBuffer()
				}
				line, column := doc.Cursor()
				return store.Record{
					Path:   store.Str(path),
					Line:   store.Int(line),
					Column: store.Int(column),
					Extra:  store.Str(truncate(strings.TrimSpace(doc.Line(line)), markTextLimit)),
				}, nil
			},
		},
	}
}

// pasteTemplate pastes text and, when it holds placeholders, replaces each
// with a cursor in insert mode.
func pasteTemplate(ed editor.Editor, text string) error {
	if err := ed.Paste([]string{text}); err != nil {
		return err
	}
	if !strings.Contains(text, Placeholder) {
		return nil
	}
	ok, err := ed.SelectMatches(regexp.QuoteMeta(Placeholder))
	if err != nil {
		return err
	}
	if !ok {
		ed.SetError("nothing selected")
	}
	return ed.ChangeSelection()
}

const markTextLimit = 50

// formatMark shows the 1-based line, the path aligned to the widest path in
// the section, and the marked line's text. Buffer-relative marks all share
// one path, so it is left out.
func formatMark(r store.Record, rel relativity.Relativity, width int) (string, bool) {
	if r.Path == nil || r.Line == nil {
		return "", false
	}
	family, ok := happyFamily(*r.Path)
	if !ok {
		return "", false
	}
	text := ""
	if r.Extra != nil {
		text = *r.Extra
	}
	line := strconv.Itoa(*r.Line + 1)
	if rel == relativity.Buffer {
		return fmt.Sprintf("%-4s %s", line, text), true
	}
	pad := width - utf8.RuneCountInString(family)
	return fmt.Sprintf("%-4s %s%s  %s", line, family, strings.Repeat(" ", max(pad, 0)), text), true
}

// relativeTo strips dir from the front of path when path lies under it.
func relativeTo(path, dir string) string {
	if dir == "" {
		return path
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}
