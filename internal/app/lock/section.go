// Package lock - эксклюзивная секция над листом заявок.
// Одна блокировка на весь лист; захват опросом с таймаутом, без очереди и без реентерабельности.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"ringi/internal/app/metrics"
)

const (
	DefaultPollInterval = 10 * time.Millisecond
	DefaultTimeout      = 10 * time.Second
)

// ErrLockTimeout - блокировку не удалось получить за отведённое время, операцию можно повторить
var ErrLockTimeout = errors.New("lock timeout")

// Locker - именованная advisory-блокировка
type Locker interface {
	// TryLock пытается захватить блокировку без ожидания
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// Section выполняет действие под Locker
type Section struct {
	Locker       Locker
	PollInterval time.Duration
	Timeout      time.Duration
}

func NewSection(l Locker, pollInterval, timeout time.Duration) *Section {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Section{Locker: l, PollInterval: pollInterval, Timeout: timeout}
}

// Do захватывает секцию, выполняет action ровно один раз и освобождает секцию,
// даже если action вернул ошибку или запаниковал. Ошибка action возвращается без изменений.
// При таймауте action не вызывается.
func Do[T any](ctx context.Context, s *Section, action func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	started := time.Now()
	if err := s.acquire(ctx); err != nil {
		return zero, err
	}
	metrics.ObserveLockWait(time.Since(started))

	defer func() {
		// освобождаем на свежем контексте: отмена запроса не должна оставить лист запертым
		if err := s.Locker.Unlock(context.WithoutCancel(ctx)); err != nil {
			logrus.Errorf("lock: release failed: %v", err)
		}
	}()

	return action(ctx)
}

func (s *Section) acquire(ctx context.Context) error {
	deadline := time.Now().Add(s.Timeout)
	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()

	for {
		ok, err := s.Locker.TryLock(ctx)
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			metrics.LockTimeouts.Inc()
			return fmt.Errorf("%w after %s", ErrLockTimeout, s.Timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
