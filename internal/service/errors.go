package service

import (
	"errors"
	"fmt"

	"github.com/sunenergyxt/service-portal/internal/repository"
	apperrors "github.com/sunenergyxt/service-portal/pkg/util"
)

// storeError converts repository sentinels into API-facing domain errors.
func storeError(err error, resource, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConflict(fmt.Sprintf("%s was modified concurrently; reload and retry", resource), map[string]any{"id": id})
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(fmt.Sprintf("%s already exists", resource), map[string]any{"id": id})
	default:
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) {
			return domainErr
		}
		return apperrors.NewInternalError(fmt.Errorf("%s %s: %w", resource, id, err))
	}
}
