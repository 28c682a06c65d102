// Package store holds the harp registry: sections of registers, each register
// holding one Entry, loaded and saved wholesale through a Backend.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is the structured entry shape. Every field is optional; a Contract
// decides which ones a reader needs.
type Record struct {
	Path   *string `json:"path,omitempty"`
	Line   *int    `json:"line,omitempty"`
	Column *int    `json:"column,omitempty"`
	Extra  *string `json:"extra,omitempty"`
}

// Entry is the payload of one register: either an ordered list of strings or
// a Record. A register never holds both.
type Entry struct {
	values []string
	record *Record
}

// NewListEntry returns a list-form entry holding values.
func NewListEntry(values ...string) *Entry {
	e := &Entry{}
	e.Append(values...)
	return e
}

// NewRecordEntry returns a record-form entry.
func NewRecordEntry(r Record) *Entry {
	e := &Entry{}
	e.SetRecord(r)
	return e
}

// Clear empties the entry and resets it to list form.
func (e *Entry) Clear() {
	e.values = nil
	e.record = nil
}

// Append adds values to the list. A record-form entry is converted to an
// empty list first.
func (e *Entry) Append(values ...string) {
	e.record = nil
	e.values = append(e.values, values...)
}

// Values returns a copy of the list values. Record-form entries have none.
func (e *Entry) Values() []string {
	if len(e.values) == 0 {
		return nil
	}
	out := make([]string, len(e.values))
	copy(out, e.values)
	return out
}

// First returns the first list value.
func (e *Entry) First() (string, bool) {
	if len(e.values) == 0 {
		return "", false
	}
	return e.values[0], true
}

// Len returns the number of list values.
func (e *Entry) Len() int {
	return len(e.values)
}

// SetRecord replaces the entry with a record.
func (e *Entry) SetRecord(r Record) {
	e.values = nil
	e.record = r.clone()
}

// Record returns the record and whether the entry is in record form.
func (e *Entry) Record() (Record, bool) {
	if e.record == nil {
		return Record{}, false
	}
	return *e.record.clone(), true
}

// IsRecord reports whether the entry is in record form.
func (e *Entry) IsRecord() bool {
	return e.record != nil
}

// Empty reports whether the entry holds no value and no record field.
func (e *Entry) Empty() bool {
	if e.record != nil {
		return e.record.IsZero()
	}
	return len(e.values) == 0
}

// Equal reports whether two entries hold the same shape and content.
func (e *Entry) Equal(other *Entry) bool {
	if e.IsRecord() != other.IsRecord() {
		return false
	}
	if e.IsRecord() {
		return e.record.equal(other.record)
	}
	if len(e.values) != len(other.values) {
		return false
	}
	for i := range e.values {
		if e.values[i] != other.values[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes list form as an array and record form as an object.
func (e *Entry) MarshalJSON() ([]byte, error) {
	if e.record != nil {
		return json.Marshal(e.record)
	}
	if e.values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(e.values)
}

// UnmarshalJSON accepts either an array of strings or a record object.
func (e *Entry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	e.Clear()
	if len(data) == 0 {
		return fmt.Errorf("empty entry")
	}
	switch data[0] {
	case 'n':
		return nil
	case '[':
		var values []string
		if err := json.Unmarshal(data, &values); err != nil {
			return err
		}
		e.values = values
		return nil
	case '{':
		var r Record
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		e.record = &r
		return nil
	default:
		return fmt.Errorf("entry must be a list of strings or a record, got %s", data)
	}
}

// IsZero reports whether no field of the record is set.
func (r Record) IsZero() bool {
	return r.Path == nil && r.Line == nil && r.Column == nil && r.Extra == nil
}

func (r Record) clone() *Record {
	out := Record{}
	if r.Path != nil {
		v := *r.Path
		out.Path = &v
	}
	if r.Line != nil {
		v := *r.Line
		out.Line = &v
	}
	if r.Column != nil {
		v := *r.Column
		out.Column = &v
	}
	if r.Extra != nil {
		v := *r.Extra
		out.Extra = &v
	}
	return &out
}

func (r *Record) equal(o *Record) bool {
	return eqPtr(r.Path, o.Path) && eqPtr(r.Line, o.Line) &&
		eqPtr(r.Column, o.Column) && eqPtr(r.Extra, o.Extra)
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Str returns a pointer to s, for building Records.
func Str(s string) *string { return &s }

// Int returns a pointer to n, for building Records.
func Int(n int) *int { return &n }
