package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/notify"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/Freeeeeet/tutor_scheduler/internal/timerange"
	"go.uber.org/zap"
)

// ProposeChangeInput предложение отменить или перенести занятие
type ProposeChangeInput struct {
	SessionID string           `validate:"required"`
	Type      model.ChangeType `validate:"required,oneof=cancel reschedule"`
	NewDate   *timerange.Date
	NewStart  *timerange.Clock
	NewEnd    *timerange.Clock
	Reason    string `validate:"max=1000"`
}

type SessionService struct {
	store *repository.Store
	publisher
	loc    *time.Location
	logger *zap.Logger
}

func NewSessionService(store *repository.Store, notifier notify.Notifier, loc *time.Location, logger *zap.Logger) *SessionService {
	if loc == nil {
		loc = time.UTC
	}
	return &SessionService{
		store:     store,
		publisher: newPublisher(notifier, logger),
		loc:       loc,
		logger:    logger,
	}
}

// CancelSession отменяет подтверждённое занятие от имени участника
func (s *SessionService) CancelSession(ctx context.Context, actor model.Actor, sessionID, reason string) (*model.Session, error) {
	const op = "Cancel"

	if blank(reason) {
		return nil, model.NewDomainError("session", op, model.ErrInvalidArgument, "reason is required")
	}

	var session model.Session
	err := s.store.Update(ctx, func(tx *repository.Tx) error {
		current, err := s.upcomingSessionOf(tx, op, actor, sessionID)
		if err != nil {
			return err
		}

		session, err = cancelSession(tx, current.ID, model.CancelledStatusFor(current.RoleOf(actor.UserID)), reason, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Session cancelled",
		zap.String("session_id", session.ID),
		zap.String("status", string(session.Status)),
		zap.String("by", actor.UserID),
	)
	s.publish(ctx, notify.Event{
		Kind:         notify.EventSessionCancelled,
		RecipientIDs: []string{session.Counterparty(actor.UserID)},
		SessionID:    session.ID,
		SlotID:       session.SlotID,
		Details:      withReason(session.Range().Format(), reason),
	})

	return &session, nil
}

// ProposeChange прикрепляет к занятию предложение отмены или переноса.
// Предложение применяется только после согласия второй стороны.
func (s *SessionService) ProposeChange(ctx context.Context, actor model.Actor, in ProposeChangeInput) (*model.Session, error) {
	const op = "ProposeChange"

	if err := validateInput("session", op, in); err != nil {
		return nil, err
	}

	change := model.PendingChange{
		Type:       in.Type,
		Reason:     in.Reason,
		ProposedBy: actor.UserID,
	}

	var newRange timerange.Range
	switch in.Type {
	case model.ChangeTypeCancel:
		if blank(in.Reason) {
			return nil, model.NewDomainError("session", op, model.ErrInvalidArgument, "reason is required")
		}
	case model.ChangeTypeReschedule:
		if in.NewDate == nil || in.NewStart == nil || in.NewEnd == nil {
			return nil, model.NewDomainError("session", op, model.ErrInvalidArgument, "new date and time are required")
		}
		newRange = timerange.Range{Date: *in.NewDate, Start: *in.NewStart, End: *in.NewEnd}
		if err := validateRange("session", op, newRange); err != nil {
			return nil, err
		}
		change.NewDate, change.NewStart, change.NewEnd = in.NewDate, in.NewStart, in.NewEnd
	}

	var session model.Session
	err := s.store.Update(ctx, func(tx *repository.Tx) error {
		current, err := s.upcomingSessionOf(tx, op, actor, in.SessionID)
		if err != nil {
			return err
		}
		if current.PendingChange != nil {
			return model.NewDomainError("session", op, model.ErrChangeAlreadyPending,
				fmt.Sprintf("%s already proposed", current.PendingChange.Type))
		}

		if in.Type == model.ChangeTypeReschedule {
			if err := s.checkReschedule(tx, op, current, newRange); err != nil {
				return err
			}
		}

		session, err = tx.Sessions().Update(current.ID, func(sess *model.Session) error {
			change.ProposerRole = current.RoleOf(actor.UserID)
			change.CreatedAt = tx.Now()
			sess.PendingChange = &change
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Session change proposed",
		zap.String("session_id", session.ID),
		zap.String("type", string(in.Type)),
		zap.String("by", actor.UserID),
	)

	details := session.Range().Format()
	if in.Type == model.ChangeTypeReschedule {
		details = fmt.Sprintf("%s → %s", details, newRange.Format())
	}
	s.publish(ctx, notify.Event{
		Kind:         notify.EventChangeProposed,
		RecipientIDs: []string{session.Counterparty(actor.UserID)},
		SessionID:    session.ID,
		Details:      withReason(details, in.Reason),
	})

	return &session, nil
}

// RespondToChange принимает или отклоняет предложение второй стороны
func (s *SessionService) RespondToChange(ctx context.Context, actor model.Actor, sessionID string, accept bool) (*model.Session, error) {
	const op = "RespondToChange"

	var (
		session model.Session
		change  model.PendingChange
	)
	err := s.store.Update(ctx, func(tx *repository.Tx) error {
		current, err := s.upcomingSessionOf(tx, op, actor, sessionID)
		if err != nil {
			return err
		}
		if current.PendingChange == nil {
			return model.NewDomainError("session", op, model.ErrInvalidTransition, "no pending change")
		}
		change = *current.PendingChange
		if actor.Is(change.ProposedBy) {
			return model.NewDomainError("session", op, model.ErrForbidden, "only the counterparty can respond")
		}

		if !accept {
			session, err = tx.Sessions().Update(current.ID, func(sess *model.Session) error {
				sess.PendingChange = nil
				return nil
			})
			return err
		}

		switch change.Type {
		case model.ChangeTypeCancel:
			session, err = cancelSession(tx, current.ID, model.CancelledStatusFor(current.RoleOf(change.ProposedBy)), change.Reason, true)
			return err
		case model.ChangeTypeReschedule:
			return s.applyReschedule(tx, op, current, change, &session)
		default:
			return model.NewDomainError("session", op, model.ErrInvalidArgument,
				fmt.Sprintf("unknown change type %q", change.Type))
		}
	})
	if err != nil {
		return nil, err
	}

	kind := notify.EventChangeRejected
	if accept {
		kind = notify.EventChangeAccepted
	}
	s.logger.Info("Session change answered",
		zap.String("session_id", session.ID),
		zap.String("type", string(change.Type)),
		zap.Bool("accepted", accept),
	)
	s.publish(ctx, notify.Event{
		Kind:         kind,
		RecipientIDs: []string{change.ProposedBy},
		SessionID:    session.ID,
		SlotID:       session.SlotID,
		Details:      session.Range().Format(),
	})

	return &session, nil
}

// applyReschedule переносит занятие. Индивидуальный слот переносится вместе с ним.
func (s *SessionService) applyReschedule(tx *repository.Tx, op string, current model.Session, change model.PendingChange, out *model.Session) error {
	r, ok := change.NewRange()
	if !ok {
		return model.NewDomainError("session", op, model.ErrInvalidArgument, "reschedule without new time")
	}
	// С момента предложения расписание могло измениться
	if err := s.checkReschedule(tx, op, current, r); err != nil {
		return err
	}

	session, err := tx.Sessions().Update(current.ID, func(sess *model.Session) error {
		sess.Date, sess.StartTime, sess.EndTime = r.Date, r.Start, r.End
		sess.PendingChange = nil
		return nil
	})
	if err != nil {
		return err
	}

	slot, err := tx.Slots().GetByID(current.SlotID)
	if err == nil && !slot.IsGroup() {
		_, err = tx.Slots().Update(slot.ID, func(sl *model.AvailabilitySlot) error {
			sl.Date, sl.StartTime, sl.EndTime = r.Date, r.Start, r.End
			return nil
		})
		if err != nil {
			return fmt.Errorf("move slot: %w", err)
		}
	}

	*out = session
	return nil
}

// checkReschedule проверяет что новый интервал не занят у репетитора.
// Слот индивидуального занятия переносится вместе с ним и не учитывается.
func (s *SessionService) checkReschedule(tx *repository.Tx, op string, session model.Session, r timerange.Range) error {
	excludeSlotID := ""
	if slot, err := tx.Slots().GetByID(session.SlotID); err == nil && !slot.IsGroup() {
		excludeSlotID = slot.ID
	}
	return checkTutorSchedule(tx, "session", op, session.TutorID, r, excludeSlotID, session.ID)
}

// CompleteSession отмечает подтверждённое занятие проведённым
func (s *SessionService) CompleteSession(ctx context.Context, actor model.Actor, sessionID string) (*model.Session, error) {
	const op = "Complete"

	var session model.Session
	err := s.store.Update(ctx, func(tx *repository.Tx) error {
		current, err := tx.Sessions().GetByID(sessionID)
		if err != nil {
			return err
		}
		if !actor.Is(current.TutorID) && !actor.IsCoordinator() {
			return model.NewDomainError("session", op, model.ErrForbidden, "only the tutor can complete a session")
		}
		if current.Status != model.SessionStatusUpcoming {
			return model.NewDomainError("session", op, model.ErrInvalidTransition,
				fmt.Sprintf("session is %s", current.Status))
		}

		session, err = tx.Sessions().Update(current.ID, completeSession)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Session completed", zap.String("session_id", session.ID))
	s.publishCompleted(ctx, session)

	return &session, nil
}

// CompleteElapsed завершает подтверждённые занятия, время которых уже прошло
func (s *SessionService) CompleteElapsed(ctx context.Context, now time.Time) ([]model.Session, error) {
	var completed []model.Session
	err := s.store.Update(ctx, func(tx *repository.Tx) error {
		due := tx.Sessions().Query(func(sess model.Session) bool {
			if sess.Status != model.SessionStatusUpcoming {
				return false
			}
			end, err := sess.Date.In(s.loc, sess.EndTime)
			return err == nil && !end.After(now)
		})

		for _, sess := range due {
			done, err := tx.Sessions().Update(sess.ID, completeSession)
			if err != nil {
				return fmt.Errorf("complete session %s: %w", sess.ID, err)
			}
			completed = append(completed, done)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(completed) > 0 {
		s.logger.Info("Elapsed sessions completed",
			zap.Int("count", len(completed)),
			zap.String("actor", model.SystemUserID),
		)
	}
	for _, sess := range completed {
		s.publishCompleted(ctx, sess)
	}

	return completed, nil
}

func completeSession(sess *model.Session) error {
	sess.Status = model.SessionStatusCompleted
	sess.PendingChange = nil
	return nil
}

func (s *SessionService) publishCompleted(ctx context.Context, session model.Session) {
	s.publish(ctx, notify.Event{
		Kind:         notify.EventSessionCompleted,
		RecipientIDs: []string{session.StudentID},
		SessionID:    session.ID,
		Details:      session.Range().Format(),
	})
}

// SubmitFeedback сохраняет отзыв ученика о проведённом занятии. Отзыв оставляется один раз.
func (s *SessionService) SubmitFeedback(ctx context.Context, actor model.Actor, sessionID string, rating int, comment string) (*model.Session, error) {
	const op = "SubmitFeedback"

	if rating < 1 || rating > 5 {
		return nil, model.NewDomainError("session", op, model.ErrInvalidArgument, "rating must be between 1 and 5")
	}

	var session model.Session
	err := s.store.Update(ctx, func(tx *repository.Tx) error {
		current, err := tx.Sessions().GetByID(sessionID)
		if err != nil {
			return err
		}
		if !actor.Is(current.StudentID) {
			return model.NewDomainError("session", op, model.ErrForbidden, "only the student can review a session")
		}
		if current.Status != model.SessionStatusCompleted {
			return model.NewDomainError("session", op, model.ErrInvalidTransition,
				fmt.Sprintf("session is %s", current.Status))
		}
		if current.Review != nil {
			return model.NewDomainError("session", op, model.ErrAlreadyReviewed, "session already reviewed")
		}

		session, err = tx.Sessions().Update(current.ID, func(sess *model.Session) error {
			sess.Review = &model.Review{Rating: rating, Comment: comment, CreatedAt: tx.Now()}
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Feedback submitted",
		zap.String("session_id", session.ID),
		zap.Int("rating", rating),
	)
	s.publish(ctx, notify.Event{
		Kind:         notify.EventFeedbackSubmitted,
		RecipientIDs: []string{session.TutorID},
		SessionID:    session.ID,
		Details:      fmt.Sprintf("%s: %d/5", session.StudentName, rating),
	})

	return &session, nil
}

// UpdateProgressNote сохраняет заметку репетитора и добавляет занятие в историю периода
func (s *SessionService) UpdateProgressNote(ctx context.Context, actor model.Actor, sessionID string, evaluation model.Evaluation, content string) (*model.Session, error) {
	const op = "UpdateProgressNote"

	if !evaluation.IsValid() {
		return nil, model.NewDomainError("session", op, model.ErrInvalidArgument,
			fmt.Sprintf("unknown evaluation %q", evaluation))
	}
	if blank(content) {
		return nil, model.NewDomainError("session", op, model.ErrInvalidArgument, "content is required")
	}

	var session model.Session
	err := s.store.Update(ctx, func(tx *repository.Tx) error {
		current, err := tx.Sessions().GetByID(sessionID)
		if err != nil {
			return err
		}
		if !actor.Is(current.TutorID) {
			return model.NewDomainError("session", op, model.ErrForbidden, "only the tutor can write progress notes")
		}
		if current.Status != model.SessionStatusUpcoming && current.Status != model.SessionStatusCompleted {
			return model.NewDomainError("session", op, model.ErrInvalidTransition,
				fmt.Sprintf("session is %s", current.Status))
		}

		session, err = tx.Sessions().Update(current.ID, func(sess *model.Session) error {
			sess.ProgressNote = &model.ProgressNote{Evaluation: evaluation, Content: content, UpdatedAt: tx.Now()}
			return nil
		})
		if err != nil {
			return err
		}

		if session.TeachingPeriodID == "" || !tx.Periods().Exists(session.TeachingPeriodID) {
			return nil
		}
		_, err = tx.Periods().Update(session.TeachingPeriodID, func(p *model.TeachingPeriod) error {
			p.AddProgressNote(session.ID)
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Progress note updated",
		zap.String("session_id", session.ID),
		zap.String("evaluation", string(evaluation)),
	)

	return &session, nil
}

// upcomingSessionOf возвращает подтверждённое занятие, в котором участвует актор
func (s *SessionService) upcomingSessionOf(tx *repository.Tx, op string, actor model.Actor, sessionID string) (model.Session, error) {
	session, err := tx.Sessions().GetByID(sessionID)
	if err != nil {
		return model.Session{}, err
	}
	if !session.IsParticipant(actor.UserID) {
		return model.Session{}, model.NewDomainError("session", op, model.ErrForbidden, "not a participant")
	}
	if session.Status != model.SessionStatusUpcoming {
		return model.Session{}, model.NewDomainError("session", op, model.ErrInvalidTransition,
			fmt.Sprintf("session is %s", session.Status))
	}
	return session, nil
}
