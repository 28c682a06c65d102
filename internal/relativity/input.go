package relativity

import (
	"unicode/utf8"

	"github.com/hpungsan/harp/internal/errors"
	"github.com/hpungsan/harp/internal/store"
)

// Target is a fully resolved register address.
type Target struct {
	Section    string
	Register   string
	Relativity Relativity
	// DefaultChanged is set when a leading token changed the remembered
	// relativity on the connection. The caller saves.
	DefaultChanged bool
}

// ResolveInput resolves typed prompt input for base.
//
// A leading relativity token selects that relativity for the rest of the
// input and becomes base's remembered default. Without a token the
// remembered relativity (or fallback) applies. A bare token only changes the
// default: ok is false and the caller should wait for more input. The new
// default is only written to conn; saving is left to the caller, so an
// operation that also writes a register saves both at once.
// Empty input is rejected and nothing is written.
func ResolveInput(conn *store.Connection, base, input string, fallback Relativity, ctx Context) (Target, bool, error) {
	if input == "" {
		return Target{}, false, errors.NewInvalidRequest("empty register input")
	}

	first, size := utf8.DecodeRuneInString(input)
	r, prefixed := FromToken(first)
	register := input
	changed := false
	if prefixed {
		register = input[size:]
		var err error
		if changed, err = Remember(conn, base, r); err != nil {
			return Target{}, false, err
		}
		if register == "" {
			return Target{DefaultChanged: changed}, false, nil
		}
	} else {
		r = Remembered(conn, base, fallback)
	}

	section, err := Resolve(base, r, ctx)
	if err != nil {
		return Target{DefaultChanged: changed}, false, err
	}
	return Target{Section: section, Register: register, Relativity: r, DefaultChanged: changed}, true, nil
}
