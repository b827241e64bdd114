package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"ringi/internal/app/metrics"
	"ringi/internal/app/middleware"
)

// RegisterAPIRoutes регистрирует все REST API маршруты с авторизацией
func (h *Handler) RegisterAPIRoutes(router *gin.Engine, authMiddleware *middleware.AuthMiddleware) {
	// REST API маршруты
	api := router.Group("/api")
	api.Use(authMiddleware.WithAuthCheck())

	// ============ Заявки (Approvals) - для авторизованных пользователей ============
	approvals := api.Group("/approvals")
	{
		approvals.POST("", h.CreateApproval)                 // POST создание
		approvals.GET("", h.GetApprovals)                    // GET список с пагинацией
		approvals.GET("/:id", h.GetApproval)                 // GET одна заявка
		approvals.PUT("/:id", h.EditApproval)                // PUT изменение (заявитель)
		approvals.PUT("/:id/status", h.UpdateApprovalStatus) // PUT решение (согласующий)
		approvals.PUT("/:id/withdraw", h.WithdrawApproval)   // PUT отзыв (заявитель)
	}
	api.GET("/approvers", h.GetApprovers)

	// ============ Аутентификация ============
	auth := api.Group("/auth")
	{
		auth.GET("/me", h.GetMe)
		auth.POST("/logout", h.LogoutUser)
	}

	// Ping эндпоинт для проверки
	router.GET("/ping", h.Ping)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// Ping проверяет работоспособность API
// @Summary Проверка работоспособности
// @Description Возвращает простой ответ для проверки работы сервера
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /ping [get]
func (h *Handler) Ping(ctx *gin.Context) {
	ctx.JSON(200, gin.H{"message": "pong"})
}
