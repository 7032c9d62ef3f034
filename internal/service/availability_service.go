package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/notify"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/Freeeeeet/tutor_scheduler/internal/timerange"
	"go.uber.org/zap"
)

// OpenSlotInput параметры нового окна репетитора
type OpenSlotInput struct {
	TutorID          string          `validate:"required"`
	Date             timerange.Date  `validate:"required"`
	StartTime        timerange.Clock `validate:"gte=0"`
	EndTime          timerange.Clock `validate:"gte=0"`
	MaxStudents      int             `validate:"gte=0"` // 0 = индивидуальное занятие
	TeachingPeriodID string
	Subject          string
	Title            string
	Description      string
	Location         string
	DocumentIDs      []string `validate:"dive,required"`

	// Заполняется, когда окно создаётся под конкретного ученика:
	// слот сразу ожидает подтверждения и создаётся занятие.
	ForStudentID string
	Note         string
}

// UpdateSlotInput изменяемые поля слота. nil = без изменений.
type UpdateSlotInput struct {
	SlotID      string `validate:"required"`
	Date        *timerange.Date
	StartTime   *timerange.Clock
	EndTime     *timerange.Clock
	MaxStudents *int `validate:"omitempty,gte=1"`
	Subject     *string
	Title       *string
	Description *string
	Location    *string
	DocumentIDs []string `validate:"omitempty,dive,required"`
}

type AvailabilityService struct {
	store *repository.Store
	publisher
	logger *zap.Logger
}

func NewAvailabilityService(store *repository.Store, notifier notify.Notifier, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{
		store:     store,
		publisher: newPublisher(notifier, logger),
		logger:    logger,
	}
}

// OpenSlot публикует новое окно репетитора
func (s *AvailabilityService) OpenSlot(ctx context.Context, actor model.Actor, in OpenSlotInput) (*model.AvailabilitySlot, error) {
	const op = "Open"

	if err := validateInput("slot", op, in); err != nil {
		return nil, err
	}

	// Окно открывает сам репетитор или ученик, запрашивающий время для себя
	ownerOpens := actor.IsTutor() && actor.Is(in.TutorID)
	studentAsks := actor.IsStudent() && in.ForStudentID != "" && actor.Is(in.ForStudentID)
	if !ownerOpens && !studentAsks {
		return nil, model.NewDomainError("slot", op, model.ErrForbidden, "only the tutor can open own slots")
	}

	r := timerange.Range{Date: in.Date, Start: in.StartTime, End: in.EndTime}
	if err := validateRange("slot", op, r); err != nil {
		return nil, err
	}

	var (
		created model.AvailabilitySlot
		events  []notify.Event
	)
	err := s.store.Update(ctx, func(tx *repository.Tx) error {
		tutor, err := requireUser(tx, "slot", op, in.TutorID, model.RoleTutor)
		if err != nil {
			return err
		}

		if in.TeachingPeriodID != "" {
			period, err := tx.Periods().GetByID(in.TeachingPeriodID)
			if err != nil {
				return err
			}
			if period.TutorID != in.TutorID {
				return model.NewDomainError("slot", op, model.ErrInvalidArgument, "teaching period belongs to another tutor")
			}
			if !period.IsActive() {
				return model.NewDomainError("slot", op, model.ErrInvalidTransition,
					fmt.Sprintf("teaching period is %s", period.Status))
			}
		}

		for _, docID := range in.DocumentIDs {
			if !tx.Documents().Exists(docID) {
				return model.NewDomainError("slot", op, model.ErrNotFound, fmt.Sprintf("document %s not found", docID))
			}
		}

		if err := checkTutorSchedule(tx, "slot", op, in.TutorID, r, "", ""); err != nil {
			return err
		}

		slot := model.AvailabilitySlot{
			TutorID:             in.TutorID,
			TeachingPeriodID:    in.TeachingPeriodID,
			Date:                in.Date,
			StartTime:           in.StartTime,
			EndTime:             in.EndTime,
			Status:              model.SlotStatusAvailable,
			Subject:             in.Subject,
			Title:               in.Title,
			Description:         in.Description,
			MaxStudents:         max(in.MaxStudents, model.DefaultCapacity),
			EnrolledStudentIDs:  []string{},
			Location:            in.Location,
			AttachedDocumentIDs: in.DocumentIDs,
		}

		if in.ForStudentID == "" {
			created, err = tx.Slots().Create(slot)
			return err
		}

		student, err := requireUser(tx, "slot", op, in.ForStudentID, model.RoleStudent)
		if err != nil {
			return err
		}
		slot.Enroll(model.StudentRef{ID: student.ID, Name: student.Name()})
		slot.Status = requestedSlotStatus(&slot)

		created, err = tx.Slots().Create(slot)
		if err != nil {
			return err
		}

		session, err := tx.Sessions().Create(newSessionFromSlot(tx, created, tutor, student, in.Subject, in.Note))
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}

		event := notify.Event{
			SlotID:    created.ID,
			SessionID: session.ID,
			Details:   created.Range().Format(),
		}
		if ownerOpens {
			event.Kind = notify.EventSlotOpenedForYou
			event.RecipientIDs = []string{student.ID}
		} else {
			event.Kind = notify.EventBookingRequested
			event.RecipientIDs = []string{tutor.ID}
		}
		events = append(events, event)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Slot opened",
		zap.String("slot_id", created.ID),
		zap.String("tutor_id", created.TutorID),
		zap.String("range", created.Range().Format()),
		zap.Int("capacity", created.Capacity()),
		zap.String("status", string(created.Status)),
	)
	s.publish(ctx, events...)

	return &created, nil
}

// UpdateSlot меняет параметры слота. Время и вместимость меняются только без активных записей.
func (s *AvailabilityService) UpdateSlot(ctx context.Context, actor model.Actor, in UpdateSlotInput) (*model.AvailabilitySlot, error) {
	const op = "Update"

	if err := validateInput("slot", op, in); err != nil {
		return nil, err
	}

	var updated model.AvailabilitySlot
	err := s.store.Update(ctx, func(tx *repository.Tx) error {
		current, err := tx.Slots().GetByID(in.SlotID)
		if err != nil {
			return err
		}
		if !actor.Is(current.TutorID) {
			return model.NewDomainError("slot", op, model.ErrForbidden, "only the slot owner can modify it")
		}

		r := current.Range()
		if in.Date != nil {
			r.Date = *in.Date
		}
		if in.StartTime != nil {
			r.Start = *in.StartTime
		}
		if in.EndTime != nil {
			r.End = *in.EndTime
		}
		timeChanged := r != current.Range()
		capacityChanged := in.MaxStudents != nil && *in.MaxStudents != current.Capacity()

		if timeChanged || capacityChanged {
			live := liveSessions(tx, func(sess model.Session) bool { return sess.SlotID == current.ID })
			if len(live) > 0 {
				return model.NewDomainError("slot", op, model.ErrSlotUnavailable,
					fmt.Sprintf("slot has %d active bookings", len(live)))
			}
			if capacityChanged && *in.MaxStudents < len(current.EnrolledStudentIDs) {
				return model.NewDomainError("slot", op, model.ErrInvalidArgument, "capacity below enrolled count")
			}
		}

		if timeChanged {
			if err := validateRange("slot", op, r); err != nil {
				return err
			}
			if err := checkTutorSchedule(tx, "slot", op, current.TutorID, r, current.ID, ""); err != nil {
				return err
			}
		}

		for _, docID := range in.DocumentIDs {
			if !tx.Documents().Exists(docID) {
				return model.NewDomainError("slot", op, model.ErrNotFound, fmt.Sprintf("document %s not found", docID))
			}
		}

		updated, err = tx.Slots().Update(current.ID, func(slot *model.AvailabilitySlot) error {
			slot.Date, slot.StartTime, slot.EndTime = r.Date, r.Start, r.End
			if in.MaxStudents != nil {
				slot.MaxStudents = *in.MaxStudents
				switch {
				case slot.IsFull():
					slot.Status = model.SlotStatusBooked
				case slot.Status == model.SlotStatusBooked:
					slot.Status = model.SlotStatusAvailable
				}
			}
			if in.Subject != nil {
				slot.Subject = *in.Subject
			}
			if in.Title != nil {
				slot.Title = *in.Title
			}
			if in.Description != nil {
				slot.Description = *in.Description
			}
			if in.Location != nil {
				slot.Location = *in.Location
			}
			if in.DocumentIDs != nil {
				slot.AttachedDocumentIDs = in.DocumentIDs
			}
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Slot updated",
		zap.String("slot_id", updated.ID),
		zap.String("range", updated.Range().Format()),
	)

	return &updated, nil
}

// DeleteSlot удаляет слот. Активные занятия отменяются от имени репетитора с указанной причиной.
func (s *AvailabilityService) DeleteSlot(ctx context.Context, actor model.Actor, slotID, reason string) error {
	const op = "Delete"

	var (
		cancelled []model.Session
		events    []notify.Event
	)
	err := s.store.Update(ctx, func(tx *repository.Tx) error {
		slot, err := tx.Slots().GetByID(slotID)
		if err != nil {
			return err
		}
		if !actor.Is(slot.TutorID) {
			return model.NewDomainError("slot", op, model.ErrForbidden, "only the slot owner can delete it")
		}

		live := liveSessions(tx, func(sess model.Session) bool { return sess.SlotID == slotID })
		if len(live) > 0 && blank(reason) {
			return model.NewDomainError("slot", op, model.ErrInvalidArgument,
				"reason is required to delete a slot with bookings")
		}

		for _, sess := range live {
			c, err := cancelSession(tx, sess.ID, model.SessionStatusCancelledTutor, reason, false)
			if err != nil {
				return fmt.Errorf("cancel session %s: %w", sess.ID, err)
			}
			cancelled = append(cancelled, c)
			events = append(events, notify.Event{
				Kind:         notify.EventSessionCancelled,
				RecipientIDs: []string{c.StudentID},
				SessionID:    c.ID,
				SlotID:       slotID,
				Details:      withReason(c.Range().Format(), reason),
			})
		}

		return tx.Slots().Delete(slotID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Slot deleted",
		zap.String("slot_id", slotID),
		zap.Int("cancelled_sessions", len(cancelled)),
	)
	s.publish(ctx, events...)

	return nil
}

// CheckTimeOverlap проверяет пересечение интервала со слотами и занятиями репетитора
func (s *AvailabilityService) CheckTimeOverlap(ctx context.Context, tutorID string, date timerange.Date, start, end timerange.Clock, excludeSlotID string) (bool, error) {
	return checkTimeOverlap(ctx, s.store, tutorID, date, start, end, excludeSlotID)
}

func checkTimeOverlap(ctx context.Context, store *repository.Store, tutorID string, date timerange.Date, start, end timerange.Clock, excludeSlotID string) (bool, error) {
	r := timerange.Range{Date: date, Start: start, End: end}
	if err := validateRange("slot", "CheckTimeOverlap", r); err != nil {
		return false, err
	}

	var overlap bool
	err := store.View(ctx, func(tx *repository.Tx) error {
		if _, overlap = findSlotConflict(tx, tutorID, r, excludeSlotID); overlap {
			return nil
		}
		_, overlap = findSessionConflict(tx, tutorID, r, "", excludeSlotID)
		return nil
	})
	return overlap, err
}

// newSessionFromSlot создаёт ожидающее занятие ученика по слоту.
// Если слот не привязан к периоду, берётся действующий период по тройке.
func newSessionFromSlot(tx *repository.Tx, slot model.AvailabilitySlot, tutor, student model.User, subject, note string) model.Session {
	if subject == "" {
		subject = slot.Subject
	}

	periodID := slot.TeachingPeriodID
	if periodID == "" {
		if period, ok := findActivePeriod(tx, tutor.ID, student.ID, subject); ok {
			periodID = period.ID
		}
	}

	return model.Session{
		SlotID:           slot.ID,
		TutorID:          tutor.ID,
		StudentID:        student.ID,
		TeachingPeriodID: periodID,
		TutorName:        tutor.Name(),
		StudentName:      student.Name(),
		Title:            slot.Title,
		Subject:          subject,
		Note:             note,
		Date:             slot.Date,
		StartTime:        slot.StartTime,
		EndTime:          slot.EndTime,
		Status:           model.SessionStatusPending,
		Location:         slot.Location,
	}
}
