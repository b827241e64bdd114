// Package workflow - жизненный цикл заявки на согласование (ринги):
// pending -> approved | rejected | withdrawn.
//
// Каждая операция читает лист, проверяет права и состояние и пишет изменения
// внутри одной эксклюзивной секции. Письма уходят после освобождения секции;
// ошибка доставки не откатывает изменение.
package workflow

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"ringi/internal/app/ds"
	"ringi/internal/app/lock"
	"ringi/internal/app/metrics"
	"ringi/internal/app/notify"
	"ringi/internal/app/sheet"
)

const (
	IDPrefix = "APR_"

	DefaultListLimit = 10
	MaxListLimit     = 100

	DefaultApproversLimit = 100
)

// IDGenerator - источник идентификаторов (idgen.Generator)
type IDGenerator interface {
	Generate() (string, error)
}

// Notifier доставляет письма и сам разбирается с ошибками (notify.Dispatcher)
type Notifier interface {
	Notify(ctx context.Context, msg notify.Message)
}

type Options struct {
	// AllowSelfApproval разрешает указывать себя согласующим
	AllowSelfApproval bool
	// RequireDetails делает обязательными описание, выгоды и риски
	RequireDetails bool
	// Now - часы; по умолчанию time.Now
	Now func() time.Time
}

type Service struct {
	book     *sheet.Book
	section  *lock.Section
	ids      IDGenerator
	composer notify.Composer
	notifier Notifier
	validate *validator.Validate
	opts     Options
}

func NewService(book *sheet.Book, section *lock.Section, ids IDGenerator, composer notify.Composer, notifier Notifier, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	return &Service{
		book:     book,
		section:  section,
		ids:      ids,
		composer: composer,
		notifier: notifier,
		validate: v,
		opts:     opts,
	}
}

// Create регистрирует новую заявку от имени requester
func (s *Service) Create(ctx context.Context, requester string, form ds.ApprovalForm) (*ds.ApprovalRequest, error) {
	req, err := s.create(ctx, requester, form)
	s.record("create", err)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notify.EventSubmitted, req)
	return req, nil
}

func (s *Service) create(ctx context.Context, requester string, form ds.ApprovalForm) (*ds.ApprovalRequest, error) {
	requester, err := identity(requester)
	if err != nil {
		return nil, err
	}
	form, err = s.checkForm(requester, form)
	if err != nil {
		return nil, err
	}

	return lock.Do(ctx, s.section, func(ctx context.Context) (*ds.ApprovalRequest, error) {
		snap, err := s.book.Load(ctx)
		if err != nil {
			return nil, err
		}

		id, err := s.newID(snap)
		if err != nil {
			return nil, err
		}

		req := &ds.ApprovalRequest{
			ID:        id,
			Applicant: requester,
			Status:    ds.StatusPending,
			CreatedAt: s.now(),
		}
		applyForm(req, form)

		if err := s.book.Append(ctx, snap, req); err != nil {
			return nil, err
		}
		return req, nil
	})
}

// Edit перезаписывает изменяемые поля заявки. Только заявитель и только в статусе pending.
func (s *Service) Edit(ctx context.Context, requester, id string, form ds.ApprovalForm) (*ds.ApprovalRequest, error) {
	req, err := s.edit(ctx, requester, id, form)
	s.record("edit", err)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notify.EventUpdated, req)
	return req, nil
}

func (s *Service) edit(ctx context.Context, requester, id string, form ds.ApprovalForm) (*ds.ApprovalRequest, error) {
	requester, err := identity(requester)
	if err != nil {
		return nil, err
	}
	form, err = s.checkForm(requester, form)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, func(req *ds.ApprovalRequest) error {
		if !strings.EqualFold(req.Applicant, requester) {
			return fmt.Errorf("%w: only the applicant can edit a request", ErrForbidden)
		}
		if req.Status != ds.StatusPending {
			return fmt.Errorf("%w: status is %s", ErrInvalidState, req.Status)
		}
		applyForm(req, form)
		return nil
	})
}

// List - заявки, где requester заявитель или согласующий, новые сверху
func (s *Service) List(ctx context.Context, requester string, limit, offset int) (*ds.ApprovalPage, error) {
	page, err := s.list(ctx, requester, limit, offset)
	s.record("list", err)
	return page, err
}

func (s *Service) list(ctx context.Context, requester string, limit, offset int) (*ds.ApprovalPage, error) {
	requester, err := identity(requester)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	visible, err := lock.Do(ctx, s.section, func(ctx context.Context) ([]ds.ApprovalRequest, error) {
		snap, err := s.book.Load(ctx)
		if err != nil {
			return nil, err
		}
		var out []ds.ApprovalRequest
		for _, rec := range snap.Records {
			if rec.Request.Status == ds.StatusDeleted || !rec.Request.IsParticipant(requester) {
				continue
			}
			out = append(out, rec.Request)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	sortNewestFirst(visible)

	page := &ds.ApprovalPage{Data: []ds.ApprovalRequest{}, Total: len(visible)}
	if offset < len(visible) {
		end := offset + limit
		if end > len(visible) {
			end = len(visible)
		}
		page.Data = visible[offset:end]
	}
	return page, nil
}

// Get - одна заявка, видимая requester
func (s *Service) Get(ctx context.Context, requester, id string) (*ds.ApprovalRequest, error) {
	req, err := s.get(ctx, requester, id)
	s.record("get", err)
	return req, err
}

func (s *Service) get(ctx context.Context, requester, id string) (*ds.ApprovalRequest, error) {
	requester, err := identity(requester)
	if err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, validationError("id is required")
	}

	return lock.Do(ctx, s.section, func(ctx context.Context) (*ds.ApprovalRequest, error) {
		snap, err := s.book.Load(ctx)
		if err != nil {
			return nil, err
		}
		rec, ok := snap.Find(id)
		if !ok || rec.Request.Status == ds.StatusDeleted {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if !rec.Request.IsParticipant(requester) {
			return nil, fmt.Errorf("%w: not a participant of %s", ErrForbidden, id)
		}
		req := rec.Request
		return &req, nil
	})
}

// UpdateStatus - решение согласующего: approved (с комментарием) или rejected (с причиной)
func (s *Service) UpdateStatus(ctx context.Context, requester, id string, status ds.Status, reason, comment string) (*ds.ApprovalRequest, error) {
	req, err := s.updateStatus(ctx, requester, id, status, reason, comment)
	s.record("update_status", err)
	if err != nil {
		return nil, err
	}

	ev := notify.EventApproved
	if req.Status == ds.StatusRejected {
		ev = notify.EventRejected
	}
	s.notify(ctx, ev, req)
	return req, nil
}

func (s *Service) updateStatus(ctx context.Context, requester, id string, status ds.Status, reason, comment string) (*ds.ApprovalRequest, error) {
	requester, err := identity(requester)
	if err != nil {
		return nil, err
	}
	status = ds.Status(strings.ToLower(strings.TrimSpace(string(status))))
	if !status.IsDecision() {
		return nil, validationError("status must be approved or rejected, got %q", status)
	}
	reason = strings.TrimSpace(reason)
	comment = strings.TrimSpace(comment)

	return s.mutate(ctx, id, func(req *ds.ApprovalRequest) error {
		if !strings.EqualFold(req.Approver, requester) {
			return fmt.Errorf("%w: only the approver can decide on a request", ErrForbidden)
		}
		if req.Status != ds.StatusPending {
			return fmt.Errorf("%w: status is %s", ErrInvalidState, req.Status)
		}

		decidedAt := s.now()
		req.Status = status
		req.ApprovedAt = &decidedAt
		if status == ds.StatusApproved {
			req.ApproverComment = comment
			req.RejectionReason = ""
		} else {
			req.RejectionReason = reason
			req.ApproverComment = ""
		}
		return nil
	})
}

// Withdraw - отзыв заявки заявителем, пока она в статусе pending
func (s *Service) Withdraw(ctx context.Context, requester, id string) (*ds.ApprovalRequest, error) {
	req, err := s.withdraw(ctx, requester, id)
	s.record("withdraw", err)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notify.EventWithdrawn, req)
	return req, nil
}

func (s *Service) withdraw(ctx context.Context, requester, id string) (*ds.ApprovalRequest, error) {
	requester, err := identity(requester)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, func(req *ds.ApprovalRequest) error {
		if !strings.EqualFold(req.Applicant, requester) {
			return fmt.Errorf("%w: only the applicant can withdraw a request", ErrForbidden)
		}
		if req.Status != ds.StatusPending {
			return fmt.Errorf("%w: status is %s", ErrInvalidState, req.Status)
		}
		req.Status = ds.StatusWithdrawn
		return nil
	})
}

// Approvers - согласующие из заявок requester, без повторов, недавние первыми
func (s *Service) Approvers(ctx context.Context, requester string, limit int) ([]string, error) {
	out, err := s.approvers(ctx, requester, limit)
	s.record("approvers", err)
	return out, err
}

func (s *Service) approvers(ctx context.Context, requester string, limit int) ([]string, error) {
	requester, err := identity(requester)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > DefaultApproversLimit {
		limit = DefaultApproversLimit
	}

	own, err := lock.Do(ctx, s.section, func(ctx context.Context) ([]ds.ApprovalRequest, error) {
		snap, err := s.book.Load(ctx)
		if err != nil {
			return nil, err
		}
		var out []ds.ApprovalRequest
		for _, rec := range snap.Records {
			if rec.Request.Status == ds.StatusDeleted || rec.Request.Approver == "" {
				continue
			}
			if strings.EqualFold(rec.Request.Applicant, requester) {
				out = append(out, rec.Request)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	sortNewestFirst(own)

	seen := make(map[string]struct{}, len(own))
	approvers := []string{}
	for _, req := range own {
		key := normalizeEmail(req.Approver)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		approvers = append(approvers, req.Approver)
		if len(approvers) == limit {
			break
		}
	}
	return approvers, nil
}

// mutate находит заявку, применяет change и сохраняет строку - всё под одной блокировкой.
// Если change вернул ошибку, лист не меняется.
func (s *Service) mutate(ctx context.Context, id string, change func(req *ds.ApprovalRequest) error) (*ds.ApprovalRequest, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, validationError("id is required")
	}

	return lock.Do(ctx, s.section, func(ctx context.Context) (*ds.ApprovalRequest, error) {
		snap, err := s.book.Load(ctx)
		if err != nil {
			return nil, err
		}
		rec, ok := snap.Find(id)
		if !ok || rec.Request.Status == ds.StatusDeleted {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		req := rec.Request
		if err := change(&req); err != nil {
			return nil, err
		}
		if err := s.book.Save(ctx, snap, rec, &req); err != nil {
			return nil, err
		}
		return &req, nil
	})
}

// checkForm нормализует и проверяет форму до входа в секцию
func (s *Service) checkForm(requester string, form ds.ApprovalForm) (ds.ApprovalForm, error) {
	form.Title = strings.TrimSpace(form.Title)
	form.Approver = normalizeEmail(form.Approver)
	form.Description = strings.TrimSpace(form.Description)
	form.Benefits = strings.TrimSpace(form.Benefits)
	form.AvoidableRisks = strings.TrimSpace(form.AvoidableRisks)

	if err := s.validate.Struct(form); err != nil {
		return form, fieldErrors(err)
	}

	if s.opts.RequireDetails {
		var missing []string
		if form.Description == "" {
			missing = append(missing, "description")
		}
		if form.Benefits == "" {
			missing = append(missing, "benefits")
		}
		if form.AvoidableRisks == "" {
			missing = append(missing, "avoidable_risks")
		}
		if len(missing) > 0 {
			return form, validationError("%s: required", strings.Join(missing, ", "))
		}
	}

	if !s.opts.AllowSelfApproval && form.Approver == requester {
		return form, validationError("approver: cannot approve own request")
	}
	return form, nil
}

// newID генерирует идентификатор и проверяет, что его ещё нет в листе
func (s *Service) newID(snap *sheet.Snapshot) (string, error) {
	for attempt := 0; attempt < 3; attempt++ {
		raw, err := s.ids.Generate()
		if err != nil {
			return "", fmt.Errorf("generate id: %w", err)
		}
		id := IDPrefix + raw
		if _, taken := snap.Find(id); !taken {
			return id, nil
		}
		logrus.Warnf("workflow: generated id %s already exists, retrying", id)
	}
	return "", fmt.Errorf("generate id: too many collisions")
}

func (s *Service) now() time.Time {
	// в листе хранятся секунды в часовом поясе листа
	return s.opts.Now().In(s.book.Codec.Zone()).Truncate(time.Second)
}

func (s *Service) notify(ctx context.Context, ev notify.Event, req *ds.ApprovalRequest) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, s.composer.Compose(ev, req))
}

func (s *Service) record(op string, err error) {
	result := Result(err)
	metrics.RecordOperation(op, result)
	switch result {
	case "ok":
		logrus.Debugf("workflow: %s ok", op)
	case "error", "store_unavailable", "lock_timeout":
		logrus.Errorf("workflow: %s failed: %v", op, err)
	default:
		logrus.Infof("workflow: %s rejected: %v", op, err)
	}
}

func applyForm(req *ds.ApprovalRequest, form ds.ApprovalForm) {
	req.Title = form.Title
	req.Approver = form.Approver
	req.Amount = 0
	if form.Amount != nil {
		req.Amount = *form.Amount
	}
	req.Description = form.Description
	req.Benefits = form.Benefits
	req.AvoidableRisks = form.AvoidableRisks
}

func identity(requester string) (string, error) {
	requester = normalizeEmail(requester)
	if requester == "" {
		return "", fmt.Errorf("%w: identity is required", ErrForbidden)
	}
	return requester, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// sortNewestFirst: createdAt по убыванию, при равенстве - id по убыванию
func sortNewestFirst(reqs []ds.ApprovalRequest) {
	sort.SliceStable(reqs, func(i, j int) bool {
		if !reqs[i].CreatedAt.Equal(reqs[j].CreatedAt) {
			return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
		}
		return reqs[i].ID > reqs[j].ID
	})
}
