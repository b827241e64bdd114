package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"ringi/internal/app/lock"
	"ringi/internal/app/sheet"
)

var (
	ErrNotFound     = errors.New("approval request not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("approval request is not pending")
	ErrValidation   = errors.New("validation failed")
)

// Result - короткий код ошибки для метрик и ответов API
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, lock.ErrLockTimeout):
		return "lock_timeout"
	case errors.Is(err, sheet.ErrStoreUnavailable):
		return "store_unavailable"
	}
	return "error"
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// fieldErrors переводит ошибки validator в "title: required; approver: email"
func fieldErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Field() + ": " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		msgs = append(msgs, msg)
	}
	return validationError("%s", strings.Join(msgs, "; "))
}
