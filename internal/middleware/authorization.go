package middleware

import (
	"net/http"

	"UD_referral_bot/internal/service"
	"UD_referral_bot/pkg/auth"
	"UD_referral_bot/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type Authorization struct {
	userService service.UserServiceI
}

func NewAuthorization(userService service.UserServiceI) *Authorization {
	return &Authorization{
		userService: userService,
	}
}

// OwnerOnly lets a request through only when the :telegram_id path parameter is the
// authenticated sender and that sender is registered.
func (a *Authorization) OwnerOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		telegramUser, ok := auth.UserFromContext(c)
		if !ok {
			log.Error("telegram user data not found in context")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if c.Param("telegram_id") != telegramUser.ID {
			log.Info("access attempt to another user's resource",
				zap.String("telegram_id", telegramUser.ID),
				zap.String("requested_id", c.Param("telegram_id")))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access to another user's data is forbidden"})
			return
		}

		exists, err := a.userService.UserExists(c.Request.Context(), telegramUser.ID)
		if err != nil {
			log.Error("failed to check user", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if !exists {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}

		c.Next()
	}
}
