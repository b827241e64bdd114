package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ringi/internal/app/ds"
	"ringi/internal/app/dto"
)

// ============ ДОМЕН ЗАЯВКИ ============

// CreateApproval создаёт заявку
// @Summary Создание заявки
// @Description Создаёт заявку на согласование от имени текущего пользователя. Статус - pending, согласующему уходит письмо.
// @Tags Approvals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ApprovalFormRequest true "Данные заявки"
// @Success 201 {object} dto.SuccessResponse{data=dto.ApprovalResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/approvals [post]
func (h *Handler) CreateApproval(c *gin.Context) {
	var request dto.ApprovalFormRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.bindError(c, err)
		return
	}

	req, err := h.Workflow.Create(c.Request.Context(), h.currentUser(c), toApprovalForm(request))
	if err != nil {
		h.workflowError(c, err)
		return
	}

	h.successResponse(c, http.StatusCreated, "заявка создана", toApprovalResponse(req))
}

// GetApprovals получает список заявок
// @Summary Список заявок
// @Description Заявки, где текущий пользователь заявитель или согласующий, новые сверху
// @Tags Approvals
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Размер страницы (по умолчанию 10, максимум 100)"
// @Param offset query int false "Смещение"
// @Success 200 {object} dto.SuccessResponse{data=dto.ApprovalListResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/approvals [get]
func (h *Handler) GetApprovals(c *gin.Context) {
	var query dto.ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.bindError(c, err)
		return
	}

	page, err := h.Workflow.List(c.Request.Context(), h.currentUser(c), query.Limit, query.Offset)
	if err != nil {
		h.workflowError(c, err)
		return
	}

	response := dto.ApprovalListResponse{
		Data:  make([]dto.ApprovalResponse, len(page.Data)),
		Total: page.Total,
	}
	for i := range page.Data {
		response.Data[i] = toApprovalResponse(&page.Data[i])
	}
	h.successResponse(c, http.StatusOK, "", response)
}

// GetApproval получает одну заявку
// @Summary Получение заявки
// @Description Заявка по ID; доступна заявителю и согласующему
// @Tags Approvals
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID заявки"
// @Success 200 {object} dto.SuccessResponse{data=dto.ApprovalResponse}
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/approvals/{id} [get]
func (h *Handler) GetApproval(c *gin.Context) {
	req, err := h.Workflow.Get(c.Request.Context(), h.currentUser(c), c.Param("id"))
	if err != nil {
		h.workflowError(c, err)
		return
	}

	h.successResponse(c, http.StatusOK, "", toApprovalResponse(req))
}

// EditApproval изменяет заявку
// @Summary Изменение заявки
// @Description Перезаписывает поля заявки. Только заявитель и только в статусе pending.
// @Tags Approvals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID заявки"
// @Param request body dto.ApprovalFormRequest true "Новые данные заявки"
// @Success 200 {object} dto.SuccessResponse{data=dto.ApprovalResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/approvals/{id} [put]
func (h *Handler) EditApproval(c *gin.Context) {
	var request dto.ApprovalFormRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.bindError(c, err)
		return
	}

	req, err := h.Workflow.Edit(c.Request.Context(), h.currentUser(c), c.Param("id"), toApprovalForm(request))
	if err != nil {
		h.workflowError(c, err)
		return
	}

	h.successResponse(c, http.StatusOK, "заявка обновлена", toApprovalResponse(req))
}

// UpdateApprovalStatus решение согласующего
// @Summary Согласование или отклонение
// @Description Согласующий переводит заявку в approved (с комментарием) или rejected (с причиной)
// @Tags Approvals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID заявки"
// @Param request body dto.UpdateStatusRequest true "Решение"
// @Success 200 {object} dto.SuccessResponse{data=dto.ApprovalResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/approvals/{id}/status [put]
func (h *Handler) UpdateApprovalStatus(c *gin.Context) {
	var request dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.bindError(c, err)
		return
	}

	req, err := h.Workflow.UpdateStatus(c.Request.Context(), h.currentUser(c), c.Param("id"),
		ds.Status(request.Status), request.Reason, request.Comment)
	if err != nil {
		h.workflowError(c, err)
		return
	}

	h.successResponse(c, http.StatusOK, "статус заявки изменён", toApprovalResponse(req))
}

// WithdrawApproval отзыв заявки
// @Summary Отзыв заявки
// @Description Заявитель отзывает заявку, пока она в статусе pending
// @Tags Approvals
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID заявки"
// @Success 200 {object} dto.SuccessResponse{data=dto.ApprovalResponse}
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/approvals/{id}/withdraw [put]
func (h *Handler) WithdrawApproval(c *gin.Context) {
	req, err := h.Workflow.Withdraw(c.Request.Context(), h.currentUser(c), c.Param("id"))
	if err != nil {
		h.workflowError(c, err)
		return
	}

	h.successResponse(c, http.StatusOK, "заявка отозвана", toApprovalResponse(req))
}

// GetApprovers список согласующих для автодополнения
// @Summary Недавние согласующие
// @Description Согласующие из заявок текущего пользователя без повторов, недавние первыми
// @Tags Approvals
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Максимум адресов (по умолчанию 100)"
// @Success 200 {object} dto.SuccessResponse{data=dto.ApproversResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/approvers [get]
func (h *Handler) GetApprovers(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.errorResponse(c, http.StatusBadRequest, "validation", "limit должен быть числом")
			return
		}
		limit = n
	}

	approvers, err := h.Workflow.Approvers(c.Request.Context(), h.currentUser(c), limit)
	if err != nil {
		h.workflowError(c, err)
		return
	}

	h.successResponse(c, http.StatusOK, "", dto.ApproversResponse{Approvers: approvers})
}
