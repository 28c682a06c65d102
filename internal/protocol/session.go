// Package protocol runs the interactive resolve prompt: one key at a time it
// switches relativity, flips between get and set, deletes registers, or hands
// a register key to the caller's action.
package protocol

import (
	"context"
	"fmt"

	"github.com/golang/glog"

	"github.com/hpungsan/harp/internal/editor"
	"github.com/hpungsan/harp/internal/errors"
	"github.com/hpungsan/harp/internal/relativity"
	"github.com/hpungsan/harp/internal/store"
)

// Formatter renders one entry for the preview. Returning false hides it.
// width is the largest WidthFunc result over the previewed section.
type Formatter func(e *store.Entry, rel relativity.Relativity, width int) (string, bool)

// WidthFunc measures one entry for preview alignment.
type WidthFunc func(e *store.Entry) int

// Action runs when a register key is pressed in get or set mode.
type Action func(conn *store.Connection, rec Reciprocation, section, register string) error

// KeySource delivers one normalized key chord at a time.
type KeySource interface {
	NextKey(ctx context.Context) (string, error)
}

// Prompt describes one harp consumer.
type Prompt struct {
	// Name is shown in the title ("file", "mark").
	Name string
	// Base is the logical section ("harp_files").
	Base string
	// Relativity applies until the user picks one, which is then remembered.
	Relativity    relativity.Relativity
	Reciprocation Reciprocation
	Width         WidthFunc
	Format        Formatter
	Action        Action
}

// Session is the explicit state of a resolve prompt.
type Session struct {
	prompt  Prompt
	hotkeys Hotkeys
	conn    *store.Connection
	scope   relativity.Context
	ui      editor.UI

	rel     relativity.Relativity
	rec     Reciprocation
	section string
	done    bool
	err     error
}

// NewSession prepares a prompt on conn. The starting relativity is the one
// remembered for the prompt's base section, or the prompt's default.
func NewSession(conn *store.Connection, p Prompt, hotkeys Hotkeys, scope relativity.Context, ui editor.UI) *Session {
	return &Session{
		prompt:  p,
		hotkeys: hotkeys,
		conn:    conn,
		scope:   scope,
		ui:      ui,
		rel:     relativity.Remembered(conn, p.Base, p.Relativity),
		rec:     p.Reciprocation,
	}
}

func (s *Session) Relativity() relativity.Relativity { return s.rel }
func (s *Session) Reciprocation() Reciprocation      { return s.rec }
func (s *Session) Section() string                   { return s.section }
func (s *Session) Done() bool                        { return s.done }

// Err returns the error that ended the session, if any.
func (s *Session) Err() error { return s.err }

// Title is the popup title for the current state.
func (s *Session) Title() string {
	return fmt.Sprintf("%s %s (%s)", s.prompt.Name, s.rec, s.rel)
}

// Start renders the first prompt and reports whether the session already ended.
// A remembered relativity that can't resolve here (buffer relativity in an
// unpathed buffer) gives way to the prompt's default for this session only.
func (s *Session) Start() bool {
	if s.rel != s.prompt.Relativity {
		if _, err := relativity.Resolve(s.prompt.Base, s.rel, s.scope); err != nil {
			glog.V(1).Infof("[harp]%s: remembered %s unusable (%v), starting %s\n", s.prompt.Name, s.rel, err, s.prompt.Relativity)
			s.rel = s.prompt.Relativity
		}
	}
	s.render()
	return s.done
}

// HandleKey applies one key and reports whether the session is over.
func (s *Session) HandleKey(key string) bool {
	if s.done {
		return true
	}
	s.ui.ClearInfo()
	glog.V(2).Infof("[harp]%s key %q (%s, %s)\n", s.prompt.Name, key, s.rec, s.rel)

	h := s.hotkeys
	switch key {
	case h.Global:
		s.switchTo(relativity.Global)
	case h.Buffer:
		s.switchTo(relativity.Buffer)
	case h.Directory:
		s.switchTo(relativity.Directory)
	case h.Filetype:
		s.switchTo(relativity.Filetype)
	case h.Switch:
		s.rec = s.rec.Toggle()
	case h.DeleteAll:
		n := s.conn.ClearSection(s.section)
		s.save()
		glog.V(1).Infof("[harp]cleared %s (%d registers)\n", s.section, n)
		s.rec = Set
	case h.Escape, "<esc>":
		s.done = true
		return true
	case h.Delete:
		s.rec = Delete
	default:
		if s.rec == Delete {
			s.conn.Remove(s.section, key)
			s.save()
			s.rec = s.rec.Toggle()
			break
		}
		s.done = true
		if err := s.prompt.Action(s.conn, s.rec, s.section, key); err != nil {
			s.fail(err)
		}
		return true
	}

	s.render()
	return s.done
}

// Run drives the session from src until it ends. Each key re-enters
// HandleKey from this loop, so long delete sessions don't grow the stack.
func (s *Session) Run(ctx context.Context, src KeySource) error {
	if s.Start() {
		return s.err
	}
	for {
		if err := ctx.Err(); err != nil {
			s.ui.ClearInfo()
			return err
		}
		key, err := src.NextKey(ctx)
		if err != nil {
			s.ui.ClearInfo()
			return err
		}
		if s.HandleKey(key) {
			return s.err
		}
	}
}

func (s *Session) switchTo(rel relativity.Relativity) {
	s.rel = rel
	changed, err := relativity.Remember(s.conn, s.prompt.Base, rel)
	if err != nil {
		s.ui.SetError(errors.Message(err))
		return
	}
	if changed {
		s.save()
	}
}

// save persists the connection. A failure is shown and the session goes on.
func (s *Session) save() {
	if err := s.conn.Save(); err != nil {
		s.ui.SetError(errors.Message(err))
	}
}

func (s *Session) fail(err error) {
	s.err = err
	s.done = true
	s.ui.SetError(errors.Message(err))
}

func (s *Session) render() {
	section, err := relativity.Resolve(s.prompt.Base, s.rel, s.scope)
	if err != nil {
		s.fail(err)
		return
	}
	s.section = section

	title := s.Title()
	rows := Preview(s.conn.Section(section), s.rel, max(len(title)-4, 0), s.prompt.Width, s.prompt.Format)
	s.ui.ShowInfo(title, rows)
}
