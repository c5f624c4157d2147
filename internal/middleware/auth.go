package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/auth"
	"github.com/property-shares/backend/internal/config"
	"github.com/property-shares/backend/internal/http/dto"
)

const (
	CtxHolderID = "holder_id"
	CtxService  = "service"
)

// PermissionChecker answers role checks against the ledger settings.
type PermissionChecker interface {
	Can(holder, permission string) bool
}

func AuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "missing authorization header")
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return unauthorized(c, "invalid authorization format")
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return unauthorized(c, "invalid or expired token")
		}

		c.Locals(CtxHolderID, claims.HolderID)
		c.Locals(CtxService, claims.Service)

		return c.Next()
	}
}

func GetHolderID(c *fiber.Ctx) string {
	id, _ := c.Locals(CtxHolderID).(string)
	return id
}

func IsService(c *fiber.Ctx) bool {
	s, _ := c.Locals(CtxService).(bool)
	return s
}

// RequirePermission rejects callers whose ledger roles lack permission.
// Service tokens pass when the service holder was granted the role.
func RequirePermission(checker PermissionChecker, permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !checker.Can(GetHolderID(c), permission) {
			reqID := GetRequestID(c)
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error:     permission + " permission required",
				Code:      "unauthorized",
				RequestID: reqID,
			})
		}
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, msg string) error {
	reqID := GetRequestID(c)
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: msg, RequestID: reqID})
}
