package usecase

import (
	"waste-marketplace/pkg/apperror"
	"waste-marketplace/pkg/utils"

	"github.com/google/uuid"
)

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := utils.ParseUUID(raw)
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid "+field, map[string]any{field: raw})
	}
	return id, nil
}

func validate(req any) error {
	errs := utils.ValidateStruct(req)
	if len(errs) == 0 {
		return nil
	}

	details := make(map[string]any, len(errs))
	for field, msg := range errs {
		details[field] = msg
	}
	return apperror.Validation("validation failed: "+utils.FormatValidationErrors(errs), details)
}
