package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ringi/internal/app/dto"
	"ringi/internal/app/middleware"
)

// GetMe текущий пользователь
// @Summary Текущий пользователь
// @Description Возвращает e-mail, под которым работает запрос
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.SuccessResponse{data=dto.UserResponse}
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/auth/me [get]
func (h *Handler) GetMe(c *gin.Context) {
	user := middleware.GetUserFromContext(c)
	if user == nil {
		h.errorResponse(c, http.StatusUnauthorized, "unauthorized", "пользователь не авторизован")
		return
	}

	h.successResponse(c, http.StatusOK, "", dto.UserResponse{
		Email:    user.Email,
		AuthMode: user.AuthMode,
	})
}

// LogoutUser выход пользователя из системы
// @Summary Выход из системы
// @Description Завершение сеанса пользователя с добавлением токена в blacklist
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/auth/logout [post]
func (h *Handler) LogoutUser(c *gin.Context) {
	if h.Config.Auth.Mode != middleware.ModeJWT {
		// при заголовке от прокси или dev-режиме сессией управляет не сервис
		h.successResponse(c, http.StatusOK, "сессия не используется", nil)
		return
	}
	if h.Revoker == nil {
		h.errorResponse(c, http.StatusServiceUnavailable, "logout_unavailable", "blacklist токенов не настроен")
		return
	}

	tokenString := middleware.BearerToken(c)
	claims, err := middleware.ParseJWT(tokenString, h.Config.JWT)
	if err != nil {
		h.errorResponse(c, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	// Вычисление TTL до истечения токена
	ttl := time.Until(time.Unix(claims.ExpiresAt, 0))
	if claims.ExpiresAt == 0 {
		ttl = h.Config.JWT.ExpiresIn
	}
	if ttl <= 0 {
		// Токен уже истек
		h.successResponse(c, http.StatusOK, "пользователь успешно вышел из системы", nil)
		return
	}

	// Добавление токена в blacklist
	if err = h.Revoker.WriteJWTToBlacklist(c.Request.Context(), tokenString, ttl); err != nil {
		h.workflowError(c, err)
		return
	}

	h.successResponse(c, http.StatusOK, "пользователь успешно вышел из системы", nil)
}
