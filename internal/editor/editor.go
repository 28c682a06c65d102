// Package editor declares what harp needs from its host editor: the current
// document, the working directory, a register file, command execution and a
// status line. Headless implements it for the command line and tests.
package editor

import "path/filepath"

// Document is the buffer harp reads paths and positions from.
type Document interface {
	// Path is the backing file, if the document has one.
	Path() (string, bool)
	// Language is the detected language name, if any.
	Language() (string, bool)
	// Cursor returns the zero-based line and column of the primary cursor.
	Cursor() (line, column int)
	// Line returns the text of a zero-based line, or "" past the end.
	Line(n int) string
}

// Registers is a named multi-slot register store keyed by a single rune.
type Registers interface {
	Read(name rune) []string
	Write(name rune, values []string) error
	Push(name rune, value string) error
	Last(name rune) (string, bool)
}

// Editor is the host harp acts on.
type Editor interface {
	Document() Document
	Open(path string) error
	SetCursor(line, column int) error

	WorkingDir() string
	SetWorkingDir(dir string) error

	Registers() Registers
	DefaultYankRegister() rune
	InsertMode() bool
	Paste(values []string) error
	// SelectMatches narrows the selection to the matches of pattern inside
	// it and reports whether anything matched.
	SelectMatches(pattern string) (bool, error)
	// ChangeSelection deletes the selected text without yanking it and
	// leaves a cursor at each deletion, in insert mode.
	ChangeSelection() error

	// Execute runs a literal command line.
	Execute(commandLine string) error
	// SearchNext jumps to the next match of the search register.
	SearchNext() error

	UI
}

// UI is the part of the editor a prompt talks to.
type UI interface {
	SetStatus(msg string)
	SetError(msg string)
	ShowInfo(title string, rows []InfoRow)
	ClearInfo()
}

// InfoRow is one key/value line of an info popup.
type InfoRow struct {
	Key   string
	Value string
}

// Scope adapts an editor to the relativity resolver.
type Scope struct {
	Editor Editor
}

// BufferPath returns the current document's path.
func (s Scope) BufferPath() (string, bool) {
	return s.Editor.Document().Path()
}

// WorkingDir returns the editor's working directory.
func (s Scope) WorkingDir() string {
	return s.Editor.WorkingDir()
}

// LanguageName returns the current document's language.
func (s Scope) LanguageName() (string, bool) {
	return s.Editor.Document().Language()
}

// FixedScope is a relativity context that does not come from a live editor,
// for the command line and servers.
type FixedScope struct {
	Path string
	Cwd  string
	Lang string
}

// NewFixedScope describes path under cwd, guessing the language from the
// extension when lang is empty.
func NewFixedScope(path, cwd, lang string) FixedScope {
	if path != "" && !filepath.IsAbs(path) && cwd != "" {
		path = filepath.Join(cwd, path)
	}
	if lang == "" && path != "" {
		lang = LanguageFor(path)
	}
	return FixedScope{Path: path, Cwd: cwd, Lang: lang}
}

func (s FixedScope) BufferPath() (string, bool)   { return s.Path, s.Path != "" }
func (s FixedScope) WorkingDir() string           { return s.Cwd }
func (s FixedScope) LanguageName() (string, bool) { return s.Lang, s.Lang != "" }
