package ops

import (
	"github.com/golang/glog"

	"github.com/hpungsan/harp/internal/errors"
	"github.com/hpungsan/harp/internal/relativity"
	"github.com/hpungsan/harp/internal/store"
)

// SetInput contains parameters for the Set operation.
// Exactly one of Values and Record must be given.
type SetInput struct {
	Address
	Values []string
	Record *store.Record
}

// SetOutput contains the result of the Set operation.
type SetOutput struct {
	Target
	// Replaced is true when the register already held a value.
	Replaced          bool `json:"replaced"`
	RelativityChanged bool `json:"relativity_changed,omitempty"`
}

// Set writes one register and saves.
func Set(backend store.Backend, scope relativity.Context, input SetInput) (*SetOutput, error) {
	if (input.Values == nil) == (input.Record == nil) {
		return nil, errors.NewInvalidRequest("exactly one of values or record is required")
	}
	if input.Values != nil && len(input.Values) == 0 {
		return nil, errors.NewInvalidRequest("values must not be empty")
	}
	if input.Record != nil && input.Record.IsZero() {
		return nil, errors.NewInvalidRequest("record must set at least one field")
	}

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
		return &SetOutput{RelativityChanged: true}, nil
	}

	_, replaced := conn.Entry(target.Section, target.Register)
	if input.Record != nil {
		err = conn.SetRecord(target.Section, target.Register, *input.Record)
	} else {
		err = conn.Replace(target.Section, target.Register, input.Values...)
	}
	if err != nil {
		return nil, err
	}
	if err := conn.Save(); err != nil {
		return nil, err
	}
	glog.V(1).Infof("[harp]set %s/%s\n", target.Section, target.Register)

	return &SetOutput{
		Target:   target,
		Replaced: replaced,
	}, nil
}
