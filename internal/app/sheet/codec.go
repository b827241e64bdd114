package sheet

import (
	"strconv"
	"strings"
	"time"

	"ringi/internal/app/ds"
)

// DefaultTimeLayout - формат дат в листе
const DefaultTimeLayout = "2006/01/02 15:04:05"

// форматы, встречающиеся в старых листах
var fallbackTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02 15:04",
}

// Codec переводит строку листа в заявку и обратно
type Codec struct {
	Layout     Layout
	TimeLayout string
	Location   *time.Location
}

func (c Codec) timeLayout() string {
	if c.TimeLayout == "" {
		return DefaultTimeLayout
	}
	return c.TimeLayout
}

// Zone - часовой пояс дат листа, по умолчанию UTC
func (c Codec) Zone() *time.Location {
	return c.location()
}

func (c Codec) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c Codec) get(row Row, f Field) string {
	col, ok := c.Layout.Col(f)
	if !ok {
		return ""
	}
	return strings.TrimSpace(row.Cell(col))
}

func (c Codec) set(row Row, f Field, v string) {
	if col, ok := c.Layout.Col(f); ok {
		row[col] = v
	}
}

// ID - идентификатор строки без полного разбора
func (c Codec) ID(row Row) string {
	return c.get(row, FieldID)
}

// Decode разбирает строку; нечитаемые даты и суммы дают нулевые значения
func (c Codec) Decode(row Row) ds.ApprovalRequest {
	req := ds.ApprovalRequest{
		ID:              c.get(row, FieldID),
		Title:           c.get(row, FieldTitle),
		Applicant:       c.get(row, FieldApplicant),
		Approver:        c.get(row, FieldApprover),
		Status:          ds.Status(strings.ToLower(c.get(row, FieldStatus))),
		Description:     c.get(row, FieldDescription),
		Benefits:        c.get(row, FieldBenefits),
		AvoidableRisks:  c.get(row, FieldAvoidableRisks),
		RejectionReason: c.get(row, FieldRejectionReason),
		ApproverComment: c.get(row, FieldApproverComment),
	}
	if v := c.get(row, FieldAmount); v != "" {
		if amount, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64); err == nil {
			req.Amount = amount
		}
	}
	if t, ok := c.parseTime(c.get(row, FieldCreatedAt)); ok {
		req.CreatedAt = t
	}
	if t, ok := c.parseTime(c.get(row, FieldApprovedAt)); ok {
		req.ApprovedAt = &t
	}
	return req
}

// Encode записывает заявку поверх base (base не изменяется).
// Ячейки вне раскладки сохраняются как есть.
func (c Codec) Encode(base Row, req *ds.ApprovalRequest) Row {
	width := c.Layout.Width()
	if len(base) > width {
		width = len(base)
	}
	row := make(Row, width)
	copy(row, base)

	c.set(row, FieldID, req.ID)
	c.set(row, FieldTitle, req.Title)
	c.set(row, FieldApplicant, req.Applicant)
	c.set(row, FieldApprover, req.Approver)
	c.set(row, FieldStatus, string(req.Status))
	c.set(row, FieldAmount, strconv.FormatFloat(req.Amount, 'f', -1, 64))
	c.set(row, FieldDescription, req.Description)
	c.set(row, FieldBenefits, req.Benefits)
	c.set(row, FieldAvoidableRisks, req.AvoidableRisks)
	c.set(row, FieldCreatedAt, c.formatTime(req.CreatedAt))
	approvedAt := ""
	if req.ApprovedAt != nil {
		approvedAt = c.formatTime(*req.ApprovedAt)
	}
	c.set(row, FieldApprovedAt, approvedAt)
	c.set(row, FieldRejectionReason, req.RejectionReason)
	c.set(row, FieldApproverComment, req.ApproverComment)
	return row
}

func (c Codec) formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(c.location()).Format(c.timeLayout())
}

func (c Codec) parseTime(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	layouts := append([]string{c.timeLayout()}, fallbackTimeLayouts...)
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, v, c.location()); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
