package usecases

import (
	"errors"
	"github.com/practice-sem-2/mtp-service/internal/catalog"
	storage "github.com/practice-sem-2/mtp-service/internal/storages"
)

// wrapError picks the status reported for a store error. Errors outside the
// table are reported with fallback.
func wrapError(err error, fallback catalog.Status) catalog.Status {
	errorMapper := []struct {
		from error
		to   catalog.Status
	}{
		{storage.ErrLoginAlreadyExists, catalog.Conflict},
		{storage.ErrUserAlreadyExists, catalog.Conflict},
		{storage.ErrMissingFlow, catalog.NotFound},
		{storage.ErrNotFound, catalog.NotFound},
	}

	for _, mapping := range errorMapper {
		if errors.Is(err, mapping.from) {
			return mapping.to
		}
	}
	return fallback
}

// storeFailure logs an unexpected store error and builds its report.
func (e *Engine) storeFailure(reqType string, err error, fallback catalog.Status) (catalog.Status, string) {
	status := wrapError(err, fallback)
	if status != catalog.NotFound && status != catalog.Conflict {
		e.logger.
			WithError(err).
			WithField("type", reqType).
			Warn("record store failure")
	}
	return status, err.Error()
}
