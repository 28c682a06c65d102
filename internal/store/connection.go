package store

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/hpungsan/harp/internal/errors"
)

// Backend loads and saves a whole Store.
type Backend interface {
	// Load returns the persisted store. A missing document is an empty store.
	Load() (Store, error)
	// Save replaces the persisted store with st. On failure the previous
	// content must survive.
	Save(st Store) error
	// Location describes where the store lives, for messages.
	Location() string
}

// Connection is a short-lived handle on a Store: loaded on Open, mutated in
// memory, written back wholesale by Save. Nothing is cached across connections.
type Connection struct {
	backend Backend
	store   Store
}

// Open loads the store from backend.
func Open(backend Backend) (*Connection, error) {
	st, err := backend.Load()
	if err != nil {
		return nil, err
	}
	glog.V(2).Infof("[harp]opened %s (%d sections)\n", backend.Location(), len(st))
	return &Connection{backend: backend, store: st.normalize()}, nil
}

// Location returns the backend location.
func (c *Connection) Location() string {
	return c.backend.Location()
}

// Sections returns every section name in lexicographic order.
func (c *Connection) Sections() []string {
	return c.store.Names()
}

// Section returns the named section, or an empty one if absent. The empty
// section is not attached to the store.
func (c *Connection) Section(name string) Section {
	if sec, ok := c.store[name]; ok {
		return sec
	}
	return Section{}
}

// HasSection reports whether the section exists.
func (c *Connection) HasSection(name string) bool {
	_, ok := c.store[name]
	return ok
}

// SectionMut returns the named section, creating it in memory if absent.
func (c *Connection) SectionMut(name string) Section {
	sec, ok := c.store[name]
	if !ok {
		sec = Section{}
		c.store[name] = sec
	}
	return sec
}

// Entry looks up a register without creating anything.
func (c *Connection) Entry(section, register string) (*Entry, bool) {
	sec, ok := c.store[section]
	if !ok {
		return nil, false
	}
	return sec.Get(register)
}

// EntryMut returns the register's entry, creating an empty list-form entry
// (and its section) if absent, so callers can Clear and Append idempotently.
func (c *Connection) EntryMut(section, register string) (*Entry, error) {
	if err := validateAddress(section, register); err != nil {
		return nil, err
	}
	sec := c.SectionMut(section)
	e, ok := sec[register]
	if !ok {
		e = &Entry{}
		sec[register] = e
	}
	return e, nil
}

// Replace clears the register and appends values.
func (c *Connection) Replace(section, register string, values ...string) error {
	e, err := c.EntryMut(section, register)
	if err != nil {
		return err
	}
	e.Clear()
	e.Append(values...)
	return nil
}

// SetRecord stores r in the register, replacing whatever was there.
func (c *Connection) SetRecord(section, register string, r Record) error {
	e, err := c.EntryMut(section, register)
	if err != nil {
		return err
	}
	e.SetRecord(r)
	return nil
}

// Remove deletes a register, reporting whether it existed.
func (c *Connection) Remove(section, register string) bool {
	sec, ok := c.store[section]
	if !ok {
		return false
	}
	return sec.Remove(register)
}

// ClearSection removes every register of one section. Other sections,
// including siblings of the same base name, are untouched.
func (c *Connection) ClearSection(section string) int {
	sec, ok := c.store[section]
	if !ok {
		return 0
	}
	n := sec.Len()
	sec.Clear()
	return n
}

// Lookup reads a register through a contract.
func (c *Connection) Lookup(section, register string, contract Contract) (View, error) {
	e, ok := c.Entry(section, register)
	if !ok {
		return View{}, errors.NewRegisterUnset(section, register)
	}
	return e.View(section, register, contract)
}

// ListExactly returns a list entry's values, requiring exactly n of them.
func (c *Connection) ListExactly(section, register string, n int) ([]string, error) {
	values, err := c.list(section, register)
	if err != nil {
		return nil, err
	}
	if len(values) != n {
		return nil, errors.NewCountMismatch(section, register, fmt.Sprintf("%d", n), len(values))
	}
	return values, nil
}

// ListAtLeast returns a list entry's values, requiring at least n of them.
func (c *Connection) ListAtLeast(section, register string, n int) ([]string, error) {
	values, err := c.list(section, register)
	if err != nil {
		return nil, err
	}
	if len(values) < n {
		return nil, errors.NewCountMismatch(section, register, fmt.Sprintf(">= %d", n), len(values))
	}
	return values, nil
}

func (c *Connection) list(section, register string) ([]string, error) {
	e, ok := c.Entry(section, register)
	if !ok {
		return nil, errors.NewRegisterUnset(section, register)
	}
	return e.Values(), nil
}

// Save writes the whole store back through the backend.
func (c *Connection) Save() error {
	if err := c.backend.Save(c.store); err != nil {
		glog.Infof("[harp]save %s failed = %s\n", c.backend.Location(), err)
		return err
	}
	glog.V(2).Infof("[harp]saved %s (%d sections)\n", c.backend.Location(), len(c.store))
	return nil
}

func validateAddress(section, register string) error {
	if section == "" {
		return errors.NewInvalidRequest("section must not be empty")
	}
	if register == "" {
		return errors.NewInvalidRequest("register must not be empty")
	}
	return nil
}
