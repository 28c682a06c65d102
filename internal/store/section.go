package store

import "sort"

// Section maps register names to entries.
type Section map[string]*Entry

// Keys returns the register names in lexicographic order.
func (s Section) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the entry for register.
func (s Section) Get(register string) (*Entry, bool) {
	e, ok := s[register]
	return e, ok
}

// Remove deletes register, reporting whether it existed.
func (s Section) Remove(register string) bool {
	if _, ok := s[register]; !ok {
		return false
	}
	delete(s, register)
	return true
}

// Clear removes every register.
func (s Section) Clear() {
	clear(s)
}

// Len returns the number of registers.
func (s Section) Len() int {
	return len(s)
}

// Store maps section names to sections. It is the unit of persistence.
type Store map[string]Section

// Names returns the section names in lexicographic order.
func (st Store) Names() []string {
	names := make([]string, 0, len(st))
	for n := range st {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// normalize replaces null sections and entries left by hand-edited documents.
func (st Store) normalize() Store {
	if st == nil {
		return Store{}
	}
	for name, sec := range st {
		if sec == nil {
			st[name] = Section{}
			continue
		}
		for reg, e := range sec {
			if e == nil {
				sec[reg] = &Entry{}
			}
		}
	}
	return st
}
