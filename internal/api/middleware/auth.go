package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tickethub/helpdesk-api/internal/api/handler/v1/response"
	"github.com/tickethub/helpdesk-api/internal/domain"
	"github.com/tickethub/helpdesk-api/internal/pkg/jwthelper"
)

// ContextKeyUserID is where VerifyJWT stores the authenticated user's
// id on the gin context.
const ContextKeyUserID = "userID"

type Authenticator struct {
	signingKey string
}

func NewAuthenticator(signingKey string) *Authenticator {
	return &Authenticator{
		signingKey: signingKey,
	}
}

func (a *Authenticator) VerifyJWT() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := extractToken(ctx)
		if token == "" {
			response.RenderErr(ctx, response.ErrUnauthorized(response.ErrMissingToken.Error()))

			return
		}

		claims, err := jwthelper.ParseToken([]byte(a.signingKey), token)
		if err != nil {
			response.RenderErr(ctx, response.ErrUnauthorized("invalid or expired token"))

			return
		}

		ctx.Set(ContextKeyUserID, claims.UserID)
		ctx.Next()
	}
}

// extractToken looks in the Authorization header first, then falls back
// to the "token" query parameter. The query form exists for websocket
// upgrades, where browsers cannot set custom headers.
func extractToken(ctx *gin.Context) string {
	header := ctx.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	return ctx.Query("token")
}

type UserGetter interface {
	GetUser(ctx context.Context, id uint) (domain.User, error)
}

// RequireAdmin gates a route group to admin users. It runs after
// VerifyJWT, so the user id is already on the context.
func RequireAdmin(svc UserGetter) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userID := ctx.GetUint(ContextKeyUserID)

		user, err := svc.GetUser(ctx.Request.Context(), userID)
		if err != nil {
			response.RenderErr(ctx, response.ErrUnauthorized("unknown user"))

			return
		}

		if !user.IsAdmin {
			response.RenderErr(ctx, response.ErrForbidden())

			return
		}

		ctx.Next()
	}
}
