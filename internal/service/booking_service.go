package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/notify"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"go.uber.org/zap"
)

// RequestSlotInput запрос ученика на запись в слот
type RequestSlotInput struct {
	SlotID  string `validate:"required"`
	Subject string
	Note    string `validate:"max=1000"`
}

type BookingService struct {
	store *repository.Store
	publisher
	logger *zap.Logger
}

func NewBookingService(store *repository.Store, notifier notify.Notifier, logger *zap.Logger) *BookingService {
	return &BookingService{
		store:     store,
		publisher: newPublisher(notifier, logger),
		logger:    logger,
	}
}

// RequestSlot записывает ученика в слот. Создаёт занятие, ожидающее одобрения репетитора.
func (s *BookingService) RequestSlot(ctx context.Context, actor model.Actor, in RequestSlotInput) (*model.Session, error) {
	const op = "Request"

	if err := validateInput("booking", op, in); err != nil {
		return nil, err
	}
	if !actor.IsStudent() {
		return nil, model.NewDomainError("booking", op, model.ErrForbidden, "only students can request slots")
	}

	var session model.Session
	err := s.store.Update(ctx, func(tx *repository.Tx) error {
		student, err := requireUser(tx, "booking", op, actor.UserID, model.RoleStudent)
		if err != nil {
			return err
		}

		slot, err := tx.Slots().GetByID(in.SlotID)
		if err != nil {
			return err
		}

		if slot.IsEnrolled(student.ID) {
			return model.NewDomainError("booking", op, model.ErrDuplicateBooking, "already enrolled in this slot")
		}
		if err := checkSlotPeriod(tx, "booking", op, slot); err != nil {
			return err
		}

		// Индивидуальный слот должен быть свободен, в групповом нужно свободное место
		if !slot.IsGroup() && slot.Status != model.SlotStatusAvailable {
			return model.NewDomainError("booking", op, model.ErrSlotUnavailable,
				fmt.Sprintf("slot is %s", slot.Status))
		}
		if slot.IsFull() {
			return model.NewDomainError("booking", op, model.ErrSlotUnavailable, "slot is full")
		}

		slot, err = tx.Slots().Update(slot.ID, func(sl *model.AvailabilitySlot) error {
			sl.Enroll(model.StudentRef{ID: student.ID, Name: student.Name()})
			sl.Status = requestedSlotStatus(sl)
			return nil
		})
		if err != nil {
			return err
		}

		tutor, err := tx.Users().GetByID(slot.TutorID)
		if err != nil {
			return fmt.Errorf("get tutor: %w", err)
		}

		session, err = tx.Sessions().Create(newSessionFromSlot(tx, slot, tutor, student, in.Subject, in.Note))
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Slot requested",
		zap.String("session_id", session.ID),
		zap.String("slot_id", session.SlotID),
		zap.String("student_id", session.StudentID),
	)
	s.publish(ctx, notify.Event{
		Kind:         notify.EventBookingRequested,
		RecipientIDs: []string{session.TutorID},
		SessionID:    session.ID,
		SlotID:       session.SlotID,
		Details:      fmt.Sprintf("%s: %s", session.StudentName, session.Range().Format()),
	})

	return &session, nil
}

// ApproveBooking подтверждает ожидающее занятие
func (s *BookingService) ApproveBooking(ctx context.Context, actor model.Actor, sessionID string) (*model.Session, error) {
	const op = "Approve"

	var session model.Session
	err := s.store.Update(ctx, func(tx *repository.Tx) error {
		current, err := s.pendingSessionOfTutor(tx, op, actor, sessionID)
		if err != nil {
			return err
		}

		session, err = tx.Sessions().Update(current.ID, func(sess *model.Session) error {
			sess.Status = model.SessionStatusUpcoming
			return nil
		})
		if err != nil {
			return err
		}

		if !tx.Slots().Exists(session.SlotID) {
			return nil
		}
		_, err = tx.Slots().Update(session.SlotID, func(slot *model.AvailabilitySlot) error {
			if slot.IsFull() {
				slot.Status = model.SlotStatusBooked
			}
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking approved",
		zap.String("session_id", session.ID),
		zap.String("slot_id", session.SlotID),
	)
	s.publish(ctx, notify.Event{
		Kind:         notify.EventBookingApproved,
		RecipientIDs: []string{session.StudentID},
		SessionID:    session.ID,
		SlotID:       session.SlotID,
		Details:      session.Range().Format(),
	})

	return &session, nil
}

// RejectBooking отклоняет ожидающее занятие и освобождает место в слоте
func (s *BookingService) RejectBooking(ctx context.Context, actor model.Actor, sessionID, reason string) (*model.Session, error) {
	const op = "Reject"

	if blank(reason) {
		return nil, model.NewDomainError("booking", op, model.ErrInvalidArgument, "reason is required")
	}

	var session model.Session
	err := s.store.Update(ctx, func(tx *repository.Tx) error {
		current, err := s.pendingSessionOfTutor(tx, op, actor, sessionID)
		if err != nil {
			return err
		}

		session, err = cancelSession(tx, current.ID, model.SessionStatusCancelledTutor, reason, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking rejected",
		zap.String("session_id", session.ID),
		zap.String("slot_id", session.SlotID),
		zap.String("reason", reason),
	)
	s.publish(ctx, notify.Event{
		Kind:         notify.EventBookingRejected,
		RecipientIDs: []string{session.StudentID},
		SessionID:    session.ID,
		SlotID:       session.SlotID,
		Details:      withReason(session.Range().Format(), reason),
	})

	return &session, nil
}

// pendingSessionOfTutor возвращает ожидающее занятие, решение по которому принимает актор
func (s *BookingService) pendingSessionOfTutor(tx *repository.Tx, op string, actor model.Actor, sessionID string) (model.Session, error) {
	session, err := tx.Sessions().GetByID(sessionID)
	if err != nil {
		return model.Session{}, err
	}
	if !actor.Is(session.TutorID) {
		return model.Session{}, model.NewDomainError("booking", op, model.ErrForbidden, "only the slot owner can decide on bookings")
	}
	if session.Status != model.SessionStatusPending {
		return model.Session{}, model.NewDomainError("booking", op, model.ErrInvalidTransition,
			fmt.Sprintf("session is %s", session.Status))
	}
	return session, nil
}
