package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/notify"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/Freeeeeet/tutor_scheduler/internal/timerange"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput проверяет входные данные команды по тегам validate
func validateInput(domain, op string, in any) error {
	if err := validate.Struct(in); err != nil {
		return model.WrapError(domain, op, model.ErrInvalidArgument, "invalid input", err)
	}
	return nil
}

// publisher отправляет уведомления после фиксации транзакции.
// Ошибки доставки только логируются, команда уже выполнена.
type publisher struct {
	notifier notify.Notifier
	logger   *zap.Logger
}

func newPublisher(notifier notify.Notifier, logger *zap.Logger) publisher {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return publisher{notifier: notifier, logger: logger}
}

func (p publisher) publish(ctx context.Context, events ...notify.Event) {
	for _, e := range events {
		if len(e.RecipientIDs) == 0 {
			continue
		}
		if err := p.notifier.Notify(ctx, e); err != nil {
			p.logger.Warn("Failed to publish notification",
				zap.String("kind", string(e.Kind)),
				zap.Error(err))
		}
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// userName возвращает имя пользователя или пустую строку, если его нет
func userName(tx *repository.Tx, userID string) string {
	u, err := tx.Users().GetByID(userID)
	if err != nil {
		return ""
	}
	return u.Name()
}

// requireUser проверяет что пользователь существует и имеет нужную роль
func requireUser(tx *repository.Tx, domain, op, userID string, role model.Role) (model.User, error) {
	u, err := tx.Users().GetByID(userID)
	if err != nil {
		return model.User{}, model.WrapError(domain, op, model.ErrNotFound, fmt.Sprintf("%s %s not found", role, userID), err)
	}
	if u.Role != role {
		return model.User{}, model.NewDomainError(domain, op, model.ErrInvalidArgument,
			fmt.Sprintf("user %s is %s, not %s", userID, u.Role, role))
	}
	return u, nil
}

// findSlotConflict ищет слот репетитора, пересекающийся с интервалом. Статус слота не важен.
func findSlotConflict(tx *repository.Tx, tutorID string, r timerange.Range, excludeSlotID string) (model.AvailabilitySlot, bool) {
	conflicts := tx.Slots().Query(func(s model.AvailabilitySlot) bool {
		return s.TutorID == tutorID && s.ID != excludeSlotID && r.Overlaps(s.Range())
	})
	if len(conflicts) == 0 {
		return model.AvailabilitySlot{}, false
	}
	return conflicts[0], true
}

// findSessionConflict ищет действующее занятие репетитора, пересекающееся с интервалом.
// Нужно для занятий, перенесённых отдельно от своего слота.
func findSessionConflict(tx *repository.Tx, tutorID string, r timerange.Range, excludeSessionID, excludeSlotID string) (model.Session, bool) {
	conflicts := tx.Sessions().Query(func(s model.Session) bool {
		return s.TutorID == tutorID &&
			s.ID != excludeSessionID &&
			(excludeSlotID == "" || s.SlotID != excludeSlotID) &&
			s.Status.IsLive() &&
			r.Overlaps(s.Range())
	})
	if len(conflicts) == 0 {
		return model.Session{}, false
	}
	return conflicts[0], true
}

// checkTutorSchedule возвращает ScheduleConflict если у репетитора уже занят интервал
func checkTutorSchedule(tx *repository.Tx, domain, op, tutorID string, r timerange.Range, excludeSlotID, excludeSessionID string) error {
	if slot, ok := findSlotConflict(tx, tutorID, r, excludeSlotID); ok {
		return model.NewDomainError(domain, op, model.ErrScheduleConflict,
			fmt.Sprintf("overlaps slot %s (%s)", slot.ID, slot.Range().Format()))
	}
	if session, ok := findSessionConflict(tx, tutorID, r, excludeSessionID, excludeSlotID); ok {
		return model.NewDomainError(domain, op, model.ErrScheduleConflict,
			fmt.Sprintf("overlaps session %s (%s)", session.ID, session.Range().Format()))
	}
	return nil
}

// checkSlotPeriod запрещает запись на слот завершённого периода
func checkSlotPeriod(tx *repository.Tx, domain, op string, slot model.AvailabilitySlot) error {
	if slot.TeachingPeriodID == "" {
		return nil
	}
	period, err := tx.Periods().GetByID(slot.TeachingPeriodID)
	if err != nil {
		return err
	}
	if !period.IsActive() {
		return model.NewDomainError(domain, op, model.ErrInvalidTransition,
			fmt.Sprintf("teaching period is %s", period.Status))
	}
	return nil
}

// validateRange переводит ошибку интервала в InvalidArgument
func validateRange(domain, op string, r timerange.Range) error {
	if err := r.Validate(); err != nil {
		return model.WrapError(domain, op, model.ErrInvalidArgument, "invalid time range", err)
	}
	return nil
}

// requestedSlotStatus статус слота после записи ученика
func requestedSlotStatus(slot *model.AvailabilitySlot) model.SlotStatus {
	if !slot.IsGroup() {
		return model.SlotStatusPending
	}
	if slot.IsFull() {
		return model.SlotStatusBooked
	}
	return slot.Status
}

// cancelSession переводит занятие в статус отмены и освобождает место ученика в слоте.
// releaseSeat = false, когда слот удаляется вместе с занятиями.
func cancelSession(tx *repository.Tx, sessionID string, status model.SessionStatus, reason string, releaseSeat bool) (model.Session, error) {
	session, err := tx.Sessions().Update(sessionID, func(s *model.Session) error {
		if s.Status.IsTerminal() {
			return model.NewDomainError("session", "Cancel", model.ErrInvalidTransition,
				fmt.Sprintf("session is %s", s.Status))
		}
		s.Status = status
		s.CancellationReason = reason
		s.PendingChange = nil
		return nil
	})
	if err != nil {
		return model.Session{}, err
	}

	if releaseSeat && tx.Slots().Exists(session.SlotID) {
		_, err = tx.Slots().Update(session.SlotID, func(slot *model.AvailabilitySlot) error {
			slot.Release(session.StudentID)
			return nil
		})
		if err != nil {
			return model.Session{}, fmt.Errorf("release seat: %w", err)
		}
	}

	return session, nil
}

// findActivePeriod ищет действующий период для тройки (репетитор, ученик, предмет)
func findActivePeriod(tx *repository.Tx, tutorID, studentID, subject string) (model.TeachingPeriod, bool) {
	periods := tx.Periods().Query(func(p model.TeachingPeriod) bool {
		return p.IsActive() && p.Matches(tutorID, studentID, subject)
	})
	if len(periods) == 0 {
		return model.TeachingPeriod{}, false
	}
	return periods[0], true
}

// liveSessions возвращает действующие занятия, удовлетворяющие условию
func liveSessions(tx *repository.Tx, pred func(model.Session) bool) []model.Session {
	return tx.Sessions().Query(func(s model.Session) bool {
		return s.Status.IsLive() && pred(s)
	})
}

func sortSlots(slots []model.AvailabilitySlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Range().Less(slots[j].Range())
	})
}

func sortSessions(sessions []model.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].Range().Less(sessions[j].Range())
	})
}

// withReason добавляет причину к описанию события
func withReason(details, reason string) string {
	if blank(reason) {
		return details
	}
	return details + "\n" + reason
}
