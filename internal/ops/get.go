package ops

import (
	"github.com/hpungsan/harp/internal/errors"
	"github.com/hpungsan/harp/internal/relativity"
	"github.com/hpungsan/harp/internal/store"
)

// GetInput contains parameters for the Get operation.
type GetInput struct {
	Address
}

// GetOutput contains the result of the Get operation.
type GetOutput struct {
	Target
	Entry EntryData `json:"entry"`
	// RelativityChanged is set when the input was a bare relativity token:
	// the remembered relativity changed and nothing was read.
	RelativityChanged bool `json:"relativity_changed,omitempty"`
}

// Get reads one register.
func Get(backend store.Backend, scope relativity.Context, input GetInput) (*GetOutput, error) {
	conn, err := open(backend)
	if err != nil {
		return nil, err
	}

	target, ok, dirty, err := resolveAddress(conn, scope, input.Address)
	if err != nil {
		return nil, err
	}
	if err := saveDirty(conn, dirty); err != nil {
		return nil, err
	}
	if !ok {
		return &GetOutput{RelativityChanged: true}, nil
	}

	e, found := conn.Entry(target.Section, target.Register)
	if !found {
		return nil, errors.NewRegisterUnset(target.Section, target.Register)
	}

	return &GetOutput{
		Target: target,
		Entry:  entryData(e),
	}, nil
}
