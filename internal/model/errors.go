package model

import (
	"errors"
	"fmt"
)

// Виды ошибок бизнес-правил. Проверяются через errors.Is().
// Все они не требуют повторов: вызывающий выбирает другие входные данные.
var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrScheduleConflict     = errors.New("schedule conflict")
	ErrSlotUnavailable      = errors.New("slot unavailable")
	ErrDuplicateBooking     = errors.New("duplicate booking")
	ErrForbidden            = errors.New("forbidden")
	ErrNotFound             = errors.New("not found")
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrChangeAlreadyPending = errors.New("change already pending")
	ErrAlreadyReviewed      = errors.New("already reviewed")
)

var kinds = []error{
	ErrInvalidArgument,
	ErrScheduleConflict,
	ErrSlotUnavailable,
	ErrDuplicateBooking,
	ErrForbidden,
	ErrNotFound,
	ErrInvalidTransition,
	ErrChangeAlreadyPending,
	ErrAlreadyReviewed,
}

// DomainError ошибка предметной области с контекстом операции
type DomainError struct {
	Domain  string // "slot", "session", "period", ...
	Op      string // операция, например "Open", "Approve"
	Kind    error  // один из Err* выше
	Message string
	Err     error // исходная ошибка, может быть nil
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is сопоставляет ошибку как по виду, так и по исходной ошибке
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError создаёт ошибку предметной области
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message}
}

// WrapError оборачивает существующую ошибку контекстом предметной области
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message, Err: err}
}

// KindOf возвращает вид ошибки или nil, если ошибка не относится к бизнес-правилам
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// IsBusinessError проверяет что ошибка является нарушением бизнес-правила
func IsBusinessError(err error) bool {
	return KindOf(err) != nil
}
