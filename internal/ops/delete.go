package ops

import (
	"github.com/golang/glog"

	"github.com/hpungsan/harp/internal/errors"
	"github.com/hpungsan/harp/internal/relativity"
	"github.com/hpungsan/harp/internal/store"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	Address
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Target
	Deleted bool `json:"deleted"`
}

// Delete removes one register and saves.
func Delete(backend store.Backend, scope relativity.Context, input DeleteInput) (*DeleteOutput, error) {
	conn, err := open(backend)
	if err != nil {
		return nil, err
	}

	target, ok, dirty, err := resolveAddress(conn, scope, input.Address)
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := saveDirty(conn, dirty); err != nil {
			return nil, err
		}
		return nil, errors.NewInvalidRequest("register is required")
	}

	if !conn.Remove(target.Section, target.Register) {
		if err := saveDirty(conn, dirty); err != nil {
			return nil, err
		}
		return nil, errors.NewRegisterUnset(target.Section, target.Register)
	}
	if err := conn.Save(); err != nil {
		return nil, err
	}
	glog.V(1).Infof("[harp]deleted %s/%s\n", target.Section, target.Register)

	return &DeleteOutput{
		Target:  target,
		Deleted: true,
	}, nil
}

// ClearInput contains parameters for the Clear operation.
type ClearInput struct {
	Section    string
	Relativity string
	Exact      bool
}

// ClearOutput contains the result of the Clear operation.
type ClearOutput struct {
	Section string `json:"section"`
	Cleared int    `json:"cleared"`
}

// Clear removes every register of one resolved section and saves. Sibling
// sections of the same logical name are untouched.
func Clear(backend store.Backend, scope relativity.Context, input ClearInput) (*ClearOutput, error) {
	conn, err := open(backend)
	if err != nil {
		return nil, err
	}

	section, err := resolveSection(conn, scope, input.Section, input.Relativity, input.Exact)
	if err != nil {
		return nil, err
	}

	n := conn.ClearSection(section)
	if err := conn.Save(); err != nil {
		return nil, err
	}
	glog.V(1).Infof("[harp]cleared %s (%d registers)\n", section, n)

	return &ClearOutput{
		Section: section,
		Cleared: n,
	}, nil
}
