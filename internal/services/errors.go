package services

import (
	"errors"
	"fmt"

	"bendahara/internal/core"
)

// asCoreErr keeps the tagged error kinds intact and folds everything else
// (driver errors, I/O failures) into ErrStorageUnavailable so no raw storage
// error crosses the service boundary.
func asCoreErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrRecordNotFound),
		errors.Is(err, core.ErrValidationFailed),
		errors.Is(err, core.ErrStorageUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %v", core.ErrStorageUnavailable, err)
	}
}
