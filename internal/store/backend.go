package store

import (
	"fmt"

	"github.com/hpungsan/harp/internal/config"
)

// NewBackend builds the backend cfg selects under baseDir. The returned
// closer releases backend resources and is never nil.
func NewBackend(cfg *config.Config, baseDir string) (Backend, func() error, error) {
	switch cfg.Backend {
	case "", config.BackendJSON:
		return NewJSONFile(cfg.StoreLocation(baseDir)), func() error { return nil }, nil
	case config.BackendSQLite:
		s, err := OpenSQLite(baseDir)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q (want %q or %q)", cfg.Backend, config.BackendJSON, config.BackendSQLite)
	}
}
