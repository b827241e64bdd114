package notify

import (
	"fmt"
	"strings"

	"ringi/internal/app/ds"
)

// Event - переход, о котором отправляется письмо
type Event string

const (
	EventSubmitted Event = "submitted"
	EventUpdated   Event = "updated"
	EventApproved  Event = "approved"
	EventRejected  Event = "rejected"
	EventWithdrawn Event = "withdrawn"
)

// Message - готовое письмо
type Message struct {
	Kind    Event
	To      []string
	Cc      []string
	Subject string
	Body    string
}

// Composer собирает тему, текст и адресатов письма
type Composer struct {
	// SubjectPrefix, например "[Ringi]"
	SubjectPrefix string
	// BaseURL - ссылка на заявку в письме, если задана
	BaseURL string
}

var subjects = map[Event]string{
	EventSubmitted: "New request",
	EventUpdated:   "Request updated",
	EventApproved:  "Approved",
	EventRejected:  "Rejected",
	EventWithdrawn: "Withdrawn",
}

// Compose: создание, правка и отзыв уходят согласующему (копия заявителю),
// решения - заявителю (копия согласующему).
func (c Composer) Compose(ev Event, req *ds.ApprovalRequest) Message {
	to, cc := req.Approver, req.Applicant
	if ev == EventApproved || ev == EventRejected {
		to, cc = req.Applicant, req.Approver
	}

	msg := Message{
		Kind:    ev,
		To:      []string{to},
		Subject: c.subject(ev, req.Title),
		Body:    c.body(ev, req),
	}
	if cc != "" && cc != to {
		msg.Cc = []string{cc}
	}
	return msg
}

func (c Composer) subject(ev Event, title string) string {
	tag, ok := subjects[ev]
	if !ok {
		tag = string(ev)
	}
	s := fmt.Sprintf("%s: %s", tag, title)
	if c.SubjectPrefix != "" {
		s = c.SubjectPrefix + " " + s
	}
	return s
}

func (c Composer) body(ev Event, req *ds.ApprovalRequest) string {
	status := string(req.Status)
	if ev == EventUpdated {
		status += " (updated)"
	}
	approver := req.Approver
	if approver == "" {
		approver = "(not set)"
	}

	var b strings.Builder
	b.WriteString("The status of an approval request has changed.\n\n")
	b.WriteString("-----------------------------------\n")
	b.WriteString("[Request details]\n")
	fmt.Fprintf(&b, "ID: %s\n", req.ID)
	fmt.Fprintf(&b, "Title: %s\n", req.Title)
	fmt.Fprintf(&b, "Applicant: %s\n", req.Applicant)
	fmt.Fprintf(&b, "Approver: %s\n", approver)
	fmt.Fprintf(&b, "Current status: %s\n", status)

	switch {
	case ev == EventApproved && req.ApproverComment != "":
		fmt.Fprintf(&b, "Approver comment: %s\n", req.ApproverComment)
	case ev == EventRejected && req.RejectionReason != "":
		fmt.Fprintf(&b, "Rejection reason: %s\n", req.RejectionReason)
	}
	if c.BaseURL != "" {
		fmt.Fprintf(&b, "Link: %s?id=%s\n", strings.TrimRight(c.BaseURL, "/"), req.ID)
	}
	b.WriteString("-----------------------------------")
	return b.String()
}
