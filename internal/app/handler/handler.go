package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ringi/internal/app/config"
	"ringi/internal/app/ds"
	"ringi/internal/app/dto"
	"ringi/internal/app/middleware"
	"ringi/internal/app/workflow"
)

// TokenRevoker - blacklist отозванных JWT (redis.Client)
type TokenRevoker interface {
	WriteJWTToBlacklist(ctx context.Context, jwtStr string, jwtTTL time.Duration) error
}

// Handler содержит обработчики REST API
type Handler struct {
	Workflow *workflow.Service
	Revoker  TokenRevoker
	Config   *config.Config
}

func NewHandler(wf *workflow.Service, revoker TokenRevoker, cfg *config.Config) *Handler {
	return &Handler{
		Workflow: wf,
		Revoker:  revoker,
		Config:   cfg,
	}
}

// ============ Вспомогательные функции ============

func (h *Handler) errorResponse(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.ErrorResponse{
		Status:  "fail",
		Code:    code,
		Message: message,
	})
}

func (h *Handler) successResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	response := dto.SuccessResponse{
		Status:  "success",
		Message: message,
	}
	if data != nil {
		response.Data = data
	}
	c.JSON(statusCode, response)
}

// workflowError переводит ошибку сервиса в HTTP-статус
func (h *Handler) workflowError(c *gin.Context, err error) {
	code := workflow.Result(err)
	switch code {
	case "validation":
		h.errorResponse(c, http.StatusBadRequest, code, err.Error())
	case "forbidden":
		h.errorResponse(c, http.StatusForbidden, code, "нет прав на это действие")
	case "not_found":
		h.errorResponse(c, http.StatusNotFound, code, "заявка не найдена")
	case "invalid_state":
		h.errorResponse(c, http.StatusConflict, code, "заявка уже не в статусе pending")
	case "lock_timeout":
		// повторяемая ошибка
		c.Header("Retry-After", "1")
		h.errorResponse(c, http.StatusServiceUnavailable, code, "лист занят, повторите запрос")
	case "store_unavailable":
		c.Header("Retry-After", "5")
		h.errorResponse(c, http.StatusServiceUnavailable, code, "хранилище заявок недоступно")
	default:
		logrus.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		h.errorResponse(c, http.StatusInternalServerError, code, "внутренняя ошибка сервера")
	}
}

// bindError - тело или параметры запроса не разобрались
func (h *Handler) bindError(c *gin.Context, err error) {
	h.errorResponse(c, http.StatusBadRequest, "validation", err.Error())
}

// currentUser - e-mail из middleware; пустая строка, если авторизации нет
func (h *Handler) currentUser(c *gin.Context) string {
	if user := middleware.GetUserFromContext(c); user != nil {
		return user.Email
	}
	return ""
}

func toApprovalResponse(req *ds.ApprovalRequest) dto.ApprovalResponse {
	return dto.ApprovalResponse{
		ID:              req.ID,
		Title:           req.Title,
		Applicant:       req.Applicant,
		Approver:        req.Approver,
		Status:          string(req.Status),
		Amount:          req.Amount,
		Description:     req.Description,
		Benefits:        req.Benefits,
		AvoidableRisks:  req.AvoidableRisks,
		CreatedAt:       req.CreatedAt,
		ApprovedAt:      req.ApprovedAt,
		RejectionReason: req.RejectionReason,
		ApproverComment: req.ApproverComment,
	}
}

func toApprovalForm(req dto.ApprovalFormRequest) ds.ApprovalForm {
	return ds.ApprovalForm{
		Title:          req.Title,
		Approver:       req.Approver,
		Amount:         req.Amount,
		Description:    req.Description,
		Benefits:       req.Benefits,
		AvoidableRisks: req.AvoidableRisks,
	}
}
