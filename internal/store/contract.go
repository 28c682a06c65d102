package store

import (
	"github.com/hpungsan/harp/internal/errors"
)

// Field names one Record field.
type Field string

const (
	FieldPath   Field = "path"
	FieldLine   Field = "line"
	FieldColumn Field = "column"
	FieldExtra  Field = "extra"
)

// Contract is the set of Record fields a reader requires.
type Contract struct {
	fields []Field
}

// NewContract returns a contract requiring fields (duplicates ignored).
func NewContract(fields ...Field) Contract {
	seen := make(map[Field]bool, len(fields))
	c := Contract{}
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			c.fields = append(c.fields, f)
		}
	}
	return c
}

// PathContract requires a path.
func PathContract() Contract { return NewContract(FieldPath) }

// ExtraContract requires the free-form extra field.
func ExtraContract() Contract { return NewContract(FieldExtra) }

// PositionContract requires path, line and column.
func PositionContract() Contract { return NewContract(FieldPath, FieldLine, FieldColumn) }

// Requires reports whether f is part of the contract.
func (c Contract) Requires(f Field) bool {
	for _, have := range c.fields {
		if have == f {
			return true
		}
	}
	return false
}

// Fields returns the required fields in declaration order.
func (c Contract) Fields() []Field {
	out := make([]Field, len(c.fields))
	copy(out, c.fields)
	return out
}

// View is an Entry read through a Contract. Fields outside the contract are
// filled when present and left zero otherwise; required fields are always real.
type View struct {
	Path   string
	Line   int
	Column int
	Extra  string

	HasPath   bool
	HasLine   bool
	HasColumn bool
	HasExtra  bool
}

// Missing returns the contract fields the entry lacks. A list-form entry lacks
// every field.
func (e *Entry) Missing(c Contract) []string {
	var missing []string
	for _, f := range c.fields {
		if e.record == nil || !e.record.has(f) {
			missing = append(missing, string(f))
		}
	}
	return missing
}

// View builds a View of the entry against c, failing with ARITY_MISMATCH if a
// required field is absent. No zero-fill happens for required fields.
func (e *Entry) View(section, register string, c Contract) (View, error) {
	if missing := e.Missing(c); len(missing) > 0 {
		return View{}, errors.NewArityMismatch(section, register, missing)
	}
	v := View{}
	if e.record == nil {
		return v, nil
	}
	r := e.record
	if r.Path != nil {
		v.Path, v.HasPath = *r.Path, true
	}
	if r.Line != nil {
		v.Line, v.HasLine = *r.Line, true
	}
	if r.Column != nil {
		v.Column, v.HasColumn = *r.Column, true
	}
	if r.Extra != nil {
		v.Extra, v.HasExtra = *r.Extra, true
	}
	return v, nil
}

func (r *Record) has(f Field) bool {
	switch f {
	case FieldPath:
		return r.Path != nil
	case FieldLine:
		return r.Line != nil
	case FieldColumn:
		return r.Column != nil
	case FieldExtra:
		return r.Extra != nil
	}
	return false
}
