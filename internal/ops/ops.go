// Package ops implements the store-level operations shared by the CLI, the
// MCP server and the web browser. Every operation opens a fresh connection,
// works on it, and saves at most once.
package ops

import (
	"strings"

	"github.com/hpungsan/harp/internal/errors"
	"github.com/hpungsan/harp/internal/relativity"
	"github.com/hpungsan/harp/internal/store"
)

// Pagination limits
const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Address names a register the way callers type it.
//
// Section is a logical section ("harp_files") resolved through relativity,
// unless Exact is set, in which case it is used verbatim. Relativity, when
// given, overrides the remembered one; otherwise Register may start with a
// relativity token (",a") exactly like interactive input.
type Address struct {
	Section    string `json:"section"`
	Register   string `json:"register"`
	Relativity string `json:"relativity,omitempty"`
	Exact      bool   `json:"exact,omitempty"`
}

// Target is a resolved Address.
type Target struct {
	Section    string `json:"section"`
	Register   string `json:"register"`
	Relativity string `json:"relativity"`
}

// resolveAddress turns addr into a concrete section and register. ok is false
// when the input only changed the remembered relativity. dirty reports that a
// relativity token changed the remembered default on conn; the caller folds
// it into its own save, or calls saveDirty when it writes nothing else.
// A default changed by input that then fails to resolve is left unsaved.
func resolveAddress(conn *store.Connection, scope relativity.Context, addr Address) (t Target, ok, dirty bool, err error) {
	base := strings.TrimSpace(addr.Section)
	if base == "" {
		return Target{}, false, false, errors.NewInvalidRequest("section is required")
	}

	if addr.Exact {
		if addr.Register == "" {
			return Target{}, false, false, errors.NewInvalidRequest("register is required")
		}
		return Target{Section: base, Register: addr.Register, Relativity: "exact"}, true, false, nil
	}

	if addr.Relativity != "" {
		rel, err := relativity.Parse(addr.Relativity)
		if err != nil {
			return Target{}, false, false, err
		}
		if addr.Register == "" {
			return Target{}, false, false, errors.NewInvalidRequest("register is required")
		}
		section, err := relativity.Resolve(base, rel, scope)
		if err != nil {
			return Target{}, false, false, err
		}
		return Target{Section: section, Register: addr.Register, Relativity: rel.String()}, true, false, nil
	}

	rt, ok, err := relativity.ResolveInput(conn, base, addr.Register, relativity.Global, scope)
	if err != nil {
		return Target{}, false, false, err
	}
	if !ok {
		return Target{}, false, rt.DefaultChanged, nil
	}
	return Target{Section: rt.Section, Register: rt.Register, Relativity: rt.Relativity.String()}, true, rt.DefaultChanged, nil
}

// saveDirty saves conn when resolving changed the remembered relativity.
func saveDirty(conn *store.Connection, dirty bool) error {
	if !dirty {
		return nil
	}
	return conn.Save()
}

// resolveSection resolves a section without a register: Exact verbatim,
// otherwise through the given or remembered relativity.
func resolveSection(conn *store.Connection, scope relativity.Context, section, rel string, exact bool) (string, error) {
	base := strings.TrimSpace(section)
	if base == "" {
		return "", errors.NewInvalidRequest("section is required")
	}
	if exact {
		return base, nil
	}
	r := relativity.Remembered(conn, base, relativity.Global)
	if rel != "" {
		var err error
		if r, err = relativity.Parse(rel); err != nil {
			return "", err
		}
	}
	return relativity.Resolve(base, r, scope)
}

// EntryData is the wire form of an entry: exactly one of Values or Record.
type EntryData struct {
	Values []string      `json:"values,omitempty"`
	Record *store.Record `json:"record,omitempty"`
}

func entryData(e *store.Entry) EntryData {
	if r, ok := e.Record(); ok {
		return EntryData{Record: &r}
	}
	values := e.Values()
	if values == nil {
		values = []string{}
	}
	return EntryData{Values: values}
}

// IsBookkeeping reports whether a section only remembers a relativity.
func IsBookkeeping(section string) bool {
	return strings.HasSuffix(section, relativity.BookkeepingSection(""))
}

func open(backend store.Backend) (*store.Connection, error) {
	if backend == nil {
		return nil, errors.NewInternal(nil)
	}
	return store.Open(backend)
}
