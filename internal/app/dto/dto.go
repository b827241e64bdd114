package dto

import "time"

// ============ Общие структуры ============

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ============ Заявки (Approval Requests) ============

type ApprovalResponse struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Applicant       string     `json:"applicant"`
	Approver        string     `json:"approver"`
	Status          string     `json:"status"`
	Amount          float64    `json:"amount"`
	Description     string     `json:"description"`
	Benefits        string     `json:"benefits"`
	AvoidableRisks  string     `json:"avoidable_risks"`
	CreatedAt       time.Time  `json:"created_at"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	ApproverComment string     `json:"approver_comment,omitempty"`
}

type ApprovalListResponse struct {
	Data  []ApprovalResponse `json:"data"`
	Total int                `json:"total"`
}

// ApprovalFormRequest - тело создания и редактирования заявки.
// Заявитель берётся из авторизации, не из тела.
type ApprovalFormRequest struct {
	Title          string   `json:"title" binding:"required,max=100"`
	Approver       string   `json:"approver" binding:"required,email"`
	Amount         *float64 `json:"amount" binding:"omitempty,gte=0"`
	Description    string   `json:"description" binding:"max=500"`
	Benefits       string   `json:"benefits" binding:"max=500"`
	AvoidableRisks string   `json:"avoidable_risks" binding:"max=500"`
}

type UpdateStatusRequest struct {
	Status  string `json:"status" binding:"required,oneof=approved rejected"`
	Reason  string `json:"reason" binding:"max=500"`
	Comment string `json:"comment" binding:"max=500"`
}

type ListQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

type ApproversResponse struct {
	Approvers []string `json:"approvers"`
}

// ============ Пользователи (Users) ============

type UserResponse struct {
	Email    string `json:"email"`
	AuthMode string `json:"auth_mode"`
}
