package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/sunenergyxt/service-portal/internal/api/dto"
	"github.com/sunenergyxt/service-portal/internal/auth"
	"github.com/sunenergyxt/service-portal/internal/domain"
	apperrors "github.com/sunenergyxt/service-portal/pkg/util"
)

func currentActor(c *fiber.Ctx) (*domain.User, error) {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return actor, nil
}

// bind parses the JSON body into req and runs its validation tags.
func bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", map[string]any{"reason": err.Error()})
	}
	return dto.Validate(req)
}

// bindOptional is bind for endpoints whose body may be empty.
func bindOptional(c *fiber.Ctx, req any) error {
	if len(c.Body()) == 0 {
		return dto.Validate(req)
	}
	return bind(c, req)
}

// versionFrom prefers the If-Match header over the body value.
func versionFrom(c *fiber.Ctx, bodyVersion int64) (int64, error) {
	header := c.Get(fiber.HeaderIfMatch)
	if header == "" {
		return bodyVersion, nil
	}
	v, err := strconv.ParseInt(header, 10, 64)
	if err != nil || v < 0 {
		return 0, apperrors.NewValidationError("If-Match must be a ticket version", map[string]any{"value": header})
	}
	return v, nil
}
