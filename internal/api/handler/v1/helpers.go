package v1

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/tickethub/helpdesk-api/internal/api/handler/v1/response"
	"github.com/tickethub/helpdesk-api/internal/api/middleware"
	"github.com/tickethub/helpdesk-api/internal/domain"
	"github.com/tickethub/helpdesk-api/internal/service"
)

func getUserFromContext(ctx *gin.Context, svc UserService) (domain.User, *response.Err) {
	userID := ctx.GetUint(middleware.ContextKeyUserID)
	if userID == 0 {
		return domain.User{}, response.ErrUnauthorized(response.ErrMissingToken.Error())
	}

	user, err := svc.GetUser(ctx.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return domain.User{}, response.ErrUnauthorized("unknown user")
		}

		err = fmt.Errorf("v1.getUserFromContext -> svc.GetUser -> %w", err)

		return domain.User{}, response.ErrInternalServerError(err)
	}

	return user, nil
}
