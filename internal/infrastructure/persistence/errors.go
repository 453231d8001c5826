package persistence

import (
	"fmt"

	"github.com/orderly/backend/internal/domain/shared"
)

// storageErr tags a database failure with the STORAGE_UNAVAILABLE sentinel
// so handlers answer 503 instead of a generic 500. Not-found and version
// conflict outcomes are mapped to their own sentinels before this is
// reached.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%v: %w", err, shared.ErrStorageUnavailable)
}
