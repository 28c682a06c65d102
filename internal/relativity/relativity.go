// Package relativity derives concrete section names from a logical section
// name and a scope: the whole machine, the current buffer, the working
// directory or the buffer's language.
package relativity

import (
	"fmt"
	"strings"

	"github.com/hpungsan/harp/internal/errors"
	"github.com/hpungsan/harp/internal/store"
)

// Relativity selects the scope a section name is derived for.
type Relativity int

const (
	Global Relativity = iota
	Buffer
	Directory
	Filetype
)

// DefaultLanguageName stands in for buffers without a detected language.
const DefaultLanguageName = "text"

// All lists every relativity in token order.
var All = []Relativity{Global, Buffer, Directory, Filetype}

// String returns the relativity name.
func (r Relativity) String() string {
	switch r {
	case Global:
		return "global"
	case Buffer:
		return "buffer"
	case Directory:
		return "directory"
	case Filetype:
		return "filetype"
	}
	return fmt.Sprintf("relativity(%d)", int(r))
}

// Token returns the one-character token that selects r inline.
func (r Relativity) Token() rune {
	switch r {
	case Buffer:
		return ','
	case Directory:
		return '.'
	case Filetype:
		return ';'
	}
	return '\''
}

// FromToken maps an inline token to its relativity.
func FromToken(c rune) (Relativity, bool) {
	switch c {
	case '\'':
		return Global, true
	case ',':
		return Buffer, true
	case '.':
		return Directory, true
	case ';':
		return Filetype, true
	}
	return Global, false
}

// Parse accepts a relativity name (case-insensitive) or its token.
func Parse(s string) (Relativity, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for _, r := range All {
		if s == r.String() || s == string(r.Token()) {
			return r, nil
		}
	}
	return Global, errors.NewInvalidRequest(fmt.Sprintf("unknown relativity %q (want global, buffer, directory or filetype)", s))
}

// Context supplies what the current editor state contributes to a section name.
type Context interface {
	// BufferPath is the current document's backing file, if it has one.
	BufferPath() (string, bool)
	// WorkingDir is the process working directory.
	WorkingDir() string
	// LanguageName is the current document's language, if detected.
	LanguageName() (string, bool)
}

// Resolve derives the concrete section name for base under r.
func Resolve(base string, r Relativity, ctx Context) (string, error) {
	switch r {
	case Buffer:
		path, ok := ctx.BufferPath()
		if !ok || path == "" {
			return "", errors.NewUnpathedBuffer()
		}
		return base + "_" + path, nil
	case Directory:
		return base + "_" + ctx.WorkingDir(), nil
	case Filetype:
		lang, ok := ctx.LanguageName()
		if !ok || lang == "" {
			lang = DefaultLanguageName
		}
		return base + "!" + lang, nil
	}
	return base, nil
}

// Bookkeeping register holding the last chosen relativity of a logical section.
const (
	bookkeepingSuffix = "!!relativity"
	CurrentRegister   = "current"
)

// BookkeepingSection names the section remembering base's relativity.
func BookkeepingSection(base string) string {
	return base + bookkeepingSuffix
}

// Remembered returns the relativity last chosen for base, or fallback.
func Remembered(conn *store.Connection, base string, fallback Relativity) Relativity {
	e, ok := conn.Entry(BookkeepingSection(base), CurrentRegister)
	if !ok {
		return fallback
	}
	token, ok := e.First()
	if !ok {
		return fallback
	}
	for _, c := range token {
		if r, ok := FromToken(c); ok {
			return r
		}
		break
	}
	return fallback
}

// Remember records r as base's relativity in memory and reports whether it
// changed. The caller decides when to save.
func Remember(conn *store.Connection, base string, r Relativity) (bool, error) {
	if e, ok := conn.Entry(BookkeepingSection(base), CurrentRegister); ok {
		if token, ok := e.First(); ok && e.Len() == 1 && token == string(r.Token()) {
			return false, nil
		}
	}
	if err := conn.Replace(BookkeepingSection(base), CurrentRegister, string(r.Token())); err != nil {
		return false, err
	}
	return true, nil
}
