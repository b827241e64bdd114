package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ringi/internal/app/ds"
)

func sampleRequest() *ds.ApprovalRequest {
	return &ds.ApprovalRequest{
		ID:        "APR_01HZX",
		Title:     "Laptop",
		Applicant: "alice@example.com",
		Approver:  "bob@example.com",
		Status:    ds.StatusPending,
	}
}

func TestCompose_RecipientPolicy(t *testing.T) {
	c := Composer{}
	req := sampleRequest()

	for _, ev := range []Event{EventSubmitted, EventUpdated, EventWithdrawn} {
		msg := c.Compose(ev, req)
		require.Equal(t, []string{"bob@example.com"}, msg.To, ev)
		require.Equal(t, []string{"alice@example.com"}, msg.Cc, ev)
	}
	for _, ev := range []Event{EventApproved, EventRejected} {
		msg := c.Compose(ev, req)
		require.Equal(t, []string{"alice@example.com"}, msg.To, ev)
		require.Equal(t, []string{"bob@example.com"}, msg.Cc, ev)
	}
}

func TestCompose_SelfApprovalHasNoDuplicateCc(t *testing.T) {
	req := sampleRequest()
	req.Approver = req.Applicant

	msg := Composer{}.Compose(EventSubmitted, req)
	require.Empty(t, msg.Cc)
}

func TestCompose_SubjectAndBody(t *testing.T) {
	c := Composer{SubjectPrefix: "[Ringi]", BaseURL: "https://ringi.example.com/"}
	req := sampleRequest()
	req.Status = ds.StatusApproved
	req.ApproverComment = "ok"

	msg := c.Compose(EventApproved, req)
	require.Equal(t, "[Ringi] Approved: Laptop", msg.Subject)
	require.Contains(t, msg.Body, "ID: APR_01HZX\n")
	require.Contains(t, msg.Body, "Current status: approved\n")
	require.Contains(t, msg.Body, "Approver comment: ok\n")
	require.Contains(t, msg.Body, "Link: https://ringi.example.com?id=APR_01HZX\n")
	require.NotContains(t, msg.Body, "Rejection reason")

	// детерминированность
	require.Equal(t, msg, c.Compose(EventApproved, req))
}

func TestCompose_RejectedAndUpdated(t *testing.T) {
	req := sampleRequest()
	req.Status = ds.StatusRejected
	req.RejectionReason = "too expensive"

	msg := Composer{}.Compose(EventRejected, req)
	require.Equal(t, "Rejected: Laptop", msg.Subject)
	require.Contains(t, msg.Body, "Rejection reason: too expensive")

	req = sampleRequest()
	msg = Composer{}.Compose(EventUpdated, req)
	require.Contains(t, msg.Body, "Current status: pending (updated)")
}

type recordingChannel struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (r *recordingChannel) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

func (r *recordingChannel) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestDispatcher_SwallowsErrors(t *testing.T) {
	ch := &recordingChannel{err: errors.New("smtp down")}
	d := NewDispatcher(ch, 0)

	require.NotPanics(t, func() {
		d.Notify(context.Background(), Message{Subject: "x", To: []string{"a@example.com"}})
	})
	require.Equal(t, 1, ch.count())
}

type panickyChannel struct{}

func (panickyChannel) Send(context.Context, Message) error { panic("bad channel") }

func TestDispatcher_RecoversChannelPanic(t *testing.T) {
	d := NewDispatcher(panickyChannel{}, 0)
	require.NotPanics(t, func() {
		d.Notify(context.Background(), Message{Subject: "x"})
	})
}

func TestDispatcher_AsyncDrainsOnClose(t *testing.T) {
	ch := &recordingChannel{}
	d := NewDispatcher(ch, 2)

	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < 10; i++ {
		d.Notify(ctx, Message{Subject: "x", To: []string{"a@example.com"}})
	}
	cancel()
	d.Close()
	require.Equal(t, 10, ch.count())

	// после Close отправка синхронная
	d.Notify(context.Background(), Message{Subject: "late"})
	require.Equal(t, 11, ch.count())
}

func TestSMTPChannel_RejectsEmptyRecipients(t *testing.T) {
	ch := NewSMTPChannel("localhost", 2525, "", "", "ringi@example.com")
	err := ch.Send(context.Background(), Message{Subject: "x"})
	require.ErrorContains(t, err, "no recipients")
}

func TestSMTPChannel_CancelledContext(t *testing.T) {
	ch := NewSMTPChannel("localhost", 2525, "", "", "ringi@example.com")
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	err := ch.Send(ctx, Message{Subject: "x", To: []string{"a@example.com"}})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
