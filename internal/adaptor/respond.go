package adaptor

import (
	"encoding/json"
	"net/http"

	"waste-marketplace/internal/data/entity"
	"waste-marketplace/internal/dto/request"
	"waste-marketplace/pkg/apperror"
	"waste-marketplace/pkg/utils"

	"go.uber.org/zap"
)

// handleServiceError maps an engine error onto the response envelope by its kind.
func handleServiceError(log *zap.Logger, w http.ResponseWriter, err error, operation string) {
	appErr := apperror.AsAppError(err)
	fields := []zap.Field{
		zap.Error(err),
		zap.String("operation", operation),
		zap.String("kind", string(appErr.Kind)),
	}

	switch appErr.Kind {
	case apperror.KindValidation:
		log.Warn(operation+" validation failed", fields...)
		utils.ResponseBadRequest(w, appErr.Message, appErr.Details)

	case apperror.KindNotFound:
		log.Warn(operation+" failed - not found", fields...)
		utils.ResponseNotFound(w, appErr.Message)

	case apperror.KindForbidden:
		log.Warn(operation+" failed - forbidden", fields...)
		utils.ResponseForbidden(w, appErr.Message)

	case apperror.KindInvalidState, apperror.KindConflict:
		log.Warn(operation+" failed - "+string(appErr.Kind), fields...)
		utils.ResponseConflict(w, appErr.Message, map[string]any{
			"code":    appErr.Kind,
			"details": appErr.Details,
		})

	default:
		log.Error("Failed to "+operation, fields...)
		utils.ResponseInternalError(w, "Internal server error")
	}
}

func principalFrom(w http.ResponseWriter, r *http.Request) (entity.Principal, bool) {
	principal, ok := utils.GetPrincipalFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
	}
	return principal, ok
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

func pageFromQuery(r *http.Request) request.PaginatedRequest {
	query := r.URL.Query()
	return request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), utils.DefaultPerPage),
	}
}
