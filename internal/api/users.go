package api

import (
	"errors"
	"net/http"

	"UD_referral_bot/internal/middleware"
	"UD_referral_bot/internal/model"
	"UD_referral_bot/internal/service"
	"UD_referral_bot/pkg/auth"
	"UD_referral_bot/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type userRoutes struct {
	us service.UserServiceI
	rs service.ReferralServiceI
}

func NewUserRoutes(
	handler *gin.RouterGroup,
	us service.UserServiceI,
	rs service.ReferralServiceI,
	a *auth.TelegramAuth,
	authz *middleware.Authorization,
) {
	r := &userRoutes{us: us, rs: rs}
	h := handler.Group("/users")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.POST("", r.RegisterUser)

		owner := h.Group("/:telegram_id", authz.OwnerOnly())
		owner.GET("", r.GetUserByTelegramID)
		owner.GET("/referrals", r.GetUserReferrals)
		owner.GET("/referral-info", r.GetReferralInfo)
		owner.PUT("/referral-info", r.UpdateReferralInfo)
	}
}

type RegisterUserRequest struct {
	Referrer    *string `json:"referrer"`
	UserURL     string  `json:"user_url"`
	ReferralURL string  `json:"referral_url"`
}

type userResponse struct {
	TelegramID             string `json:"telegram_id"`
	Username               string `json:"username"`
	Name                   string `json:"name"`
	RegistrationDate       string `json:"registration_date"`
	UserURL                string `json:"user_url,omitempty"`
	ReferralURL            string `json:"referral_url"`
	ReferralMessageChanged bool   `json:"referral_message_changed"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{
		TelegramID:             u.TelegramID,
		Username:               u.Username,
		Name:                   u.Name,
		RegistrationDate:       u.RegistrationDate.Format(dateLayout),
		UserURL:                u.UserURL,
		ReferralURL:            u.ReferralURL,
		ReferralMessageChanged: u.ReferralMessageChanged,
	}
}

func (r *userRoutes) RegisterUser(c *gin.Context) {
	log := logger.Logger()

	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, ok := auth.UserFromContext(c)
	if !ok {
		log.Error("telegram user data not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if req.Referrer != nil && *req.Referrer == "" {
		req.Referrer = nil
	}

	u := &model.User{
		TelegramID:       user.ID,
		Username:         user.Username,
		Name:             user.FullName(),
		RegistrationDate: user.AuthDate,
		UserURL:          req.UserURL,
		IsReferral:       req.Referrer != nil,
		ReferralURL:      req.ReferralURL,
	}

	err := r.us.RegisterUser(c.Request.Context(), u, req.Referrer)
	if err != nil {
		if errors.Is(err, service.ErrInvalidUser) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid referrer"})
			return
		}
		log.Error("failed to register user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"telegram_id":  u.TelegramID,
		"referral_url": u.ReferralURL,
	})
}

func (r *userRoutes) GetUserByTelegramID(c *gin.Context) {
	log := logger.Logger()

	user, err := r.us.GetUserByTelegramID(c.Request.Context(), c.Param("telegram_id"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no user associated with the provided telegram_id"})
			return
		}
		log.Error("failed to get user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user"})
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

type userReferrals struct {
	Referrals []string `json:"referrals"`
	URLs      []string `json:"urls"`
}

// GetUserReferrals lists who receives the user's content plan broadcasts.
func (r *userRoutes) GetUserReferrals(c *gin.Context) {
	log := logger.Logger()
	telegramID := c.Param("telegram_id")

	ids, err := r.rs.ResolveReferrals(c.Request.Context(), telegramID)
	if err != nil {
		log.Error("failed to resolve referrals", zap.String("telegram_id", telegramID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user referrals"})
		return
	}

	urls, err := r.rs.ReferralURLs(c.Request.Context(), telegramID)
	if err != nil {
		log.Error("failed to get referral urls", zap.String("telegram_id", telegramID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user referrals"})
		return
	}

	out := userReferrals{Referrals: ids, URLs: urls}
	if out.Referrals == nil {
		out.Referrals = []string{}
	}
	if out.URLs == nil {
		out.URLs = []string{}
	}

	c.JSON(http.StatusOK, out)
}

func (r *userRoutes) GetReferralInfo(c *gin.Context) {
	view := r.rs.GetReferralInfo(c.Request.Context(), c.Param("telegram_id"))
	if view.Status == service.ReferralInfoError {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get referral info"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"real_name": view.RealName,
		"url":       view.URL,
		"status":    view.Status.String(),
	})
}

type UpdateReferralInfoRequest struct {
	RealName          string `json:"real_name" binding:"required"`
	UserURLForMessage string `json:"user_url_for_message" binding:"required"`
}

// UpdateReferralInfo sets the welcome message shown to the user's referrals.
func (r *userRoutes) UpdateReferralInfo(c *gin.Context) {
	log := logger.Logger()

	var req UpdateReferralInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	err := r.rs.UpdateWelcomeMessage(c.Request.Context(), c.Param("telegram_id"), model.ReferralInfo{
		RealName:          req.RealName,
		UserURLForMessage: req.UserURLForMessage,
	})
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		log.Error("failed to update referral info", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update referral info"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"real_name":            req.RealName,
		"user_url_for_message": req.UserURLForMessage,
	})
}
