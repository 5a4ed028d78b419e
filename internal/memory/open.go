package memory

import (
	"fmt"

	"go.uber.org/zap"
)

// Driver names accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
	DriverNone   = "none"
)

// Open returns the store for driver at path. DriverNone returns a nil
// Store, which callers treat as "do not record".
func Open(driver, path string, logger *zap.Logger) (Store, error) {
	switch driver {
	case DriverSQLite:
		s, err := NewSQLiteStore(path, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverBadger:
		s, err := NewBadgerStore(BadgerOptions{Path: path}, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("open %q: %w", driver, ErrUnknownDriver)
	}
}
