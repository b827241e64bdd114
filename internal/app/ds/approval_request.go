package ds

import (
	"strings"
	"time"
)

// Статус заявки на согласование
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusWithdrawn Status = "withdrawn"
	// Старые таблицы содержат "deleted" - такие строки только скрываются из списка
	StatusDeleted Status = "deleted"
)

// IsDecision - статусы, которые выставляет согласующий
func (s Status) IsDecision() bool {
	return s == StatusApproved || s == StatusRejected
}

// Заявка на согласование (одна строка таблицы)
type ApprovalRequest struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Applicant       string     `json:"applicant"`
	Approver        string     `json:"approver"`
	Status          Status     `json:"status"`
	Amount          float64    `json:"amount"`
	Description     string     `json:"description"`
	Benefits        string     `json:"benefits"`
	AvoidableRisks  string     `json:"avoidable_risks"`
	CreatedAt       time.Time  `json:"created_at"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"` // время решения (approved или rejected)
	RejectionReason string     `json:"rejection_reason,omitempty"`
	ApproverComment string     `json:"approver_comment,omitempty"`
}

// IsParticipant - пользователь является заявителем или согласующим (адреса без учёта регистра)
func (r *ApprovalRequest) IsParticipant(email string) bool {
	return strings.EqualFold(r.Applicant, email) || strings.EqualFold(r.Approver, email)
}

// Данные формы заявки (создание и редактирование)
type ApprovalForm struct {
	Title          string   `json:"title" validate:"required,max=100"`
	Approver       string   `json:"approver" validate:"required,email"`
	Amount         *float64 `json:"amount" validate:"omitempty,gte=0"`
	Description    string   `json:"description" validate:"max=500"`
	Benefits       string   `json:"benefits" validate:"max=500"`
	AvoidableRisks string   `json:"avoidable_risks" validate:"max=500"`
}

// Страница списка заявок
type ApprovalPage struct {
	Data  []ApprovalRequest `json:"data"`
	Total int               `json:"total"`
}
