package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/notify"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/Freeeeeet/tutor_scheduler/internal/timerange"
	"go.uber.org/zap"
)

// MatchInput назначение репетитора по заявке.
// RequestID указывает на ProgramRegistration или TutorRequest.
type MatchInput struct {
	RequestID string `validate:"required"`
	TutorID   string
	Subject   string
}

type MatchingService struct {
	store *repository.Store
	publisher
	loc    *time.Location
	logger *zap.Logger
}

func NewMatchingService(store *repository.Store, notifier notify.Notifier, loc *time.Location, logger *zap.Logger) *MatchingService {
	if loc == nil {
		loc = time.UTC
	}
	return &MatchingService{
		store:     store,
		publisher: newPublisher(notifier, logger),
		loc:       loc,
		logger:    logger,
	}
}

// match итог сопоставления заявки
type match struct {
	requestID string
	studentID string
	tutorID   string
	subject   string
}

// MatchTutorToRequest одобряет заявку и открывает период обучения
func (s *MatchingService) MatchTutorToRequest(ctx context.Context, actor model.Actor, in MatchInput) (*model.TeachingPeriod, error) {
	const op = "Match"

	if err := validateInput("matching", op, in); err != nil {
		return nil, err
	}

	var period model.TeachingPeriod
	err := s.store.Update(ctx, func(tx *repository.Tx) error {
		var (
			m   match
			err error
		)
		switch {
		case tx.Registrations().Exists(in.RequestID):
			m, err = s.matchRegistration(tx, op, actor, in)
		case tx.TutorRequests().Exists(in.RequestID):
			m, err = s.matchTutorRequest(tx, op, actor, in)
		default:
			return model.NewDomainError("matching", op, model.ErrNotFound, fmt.Sprintf("request %s not found", in.RequestID))
		}
		if err != nil {
			return err
		}

		if _, err := requireUser(tx, "matching", op, m.tutorID, model.RoleTutor); err != nil {
			return err
		}
		if existing, ok := findActivePeriod(tx, m.tutorID, m.studentID, m.subject); ok {
			return model.NewDomainError("matching", op, model.ErrInvalidTransition,
				fmt.Sprintf("teaching period %s is already active", existing.ID))
		}

		var email string
		if student, err := tx.Users().GetByID(m.studentID); err == nil {
			email = student.Email
		}

		period, err = tx.Periods().Create(model.TeachingPeriod{
			TutorID:                m.tutorID,
			StudentID:              m.studentID,
			StudentEmail:           email,
			Subject:                m.subject,
			StartDate:              timerange.DateOf(tx.Now().In(s.loc)),
			Status:                 model.PeriodStatusActive,
			RequestID:              m.requestID,
			ProgressNoteSessionIDs: []string{},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Tutor matched",
		zap.String("period_id", period.ID),
		zap.String("request_id", period.RequestID),
		zap.String("tutor_id", period.TutorID),
		zap.String("student_id", period.StudentID),
		zap.String("subject", period.Subject),
	)
	s.publish(ctx, notify.Event{
		Kind:         notify.EventTeachingStarted,
		RecipientIDs: []string{period.StudentID, period.TutorID},
		PeriodID:     period.ID,
		RequestID:    period.RequestID,
		Details:      period.Subject,
	})

	return &period, nil
}

func (s *MatchingService) matchRegistration(tx *repository.Tx, op string, actor model.Actor, in MatchInput) (match, error) {
	reg, err := tx.Registrations().GetByID(in.RequestID)
	if err != nil {
		return match{}, err
	}
	if !actor.IsCoordinator() {
		return match{}, model.NewDomainError("matching", op, model.ErrForbidden, "only coordinators can match registrations")
	}
	if !reg.Status.IsPending() {
		return match{}, model.NewDomainError("matching", op, model.ErrInvalidTransition,
			fmt.Sprintf("registration is %s", reg.Status))
	}
	if in.TutorID == "" {
		return match{}, model.NewDomainError("matching", op, model.ErrInvalidArgument, "tutor is required")
	}

	subject := in.Subject
	switch {
	case subject == "" && len(reg.Subjects) == 1:
		subject = reg.Subjects[0]
	case subject == "":
		return match{}, model.NewDomainError("matching", op, model.ErrInvalidArgument,
			"subject is required for a multi-subject registration")
	case !slices.Contains(reg.Subjects, subject):
		return match{}, model.NewDomainError("matching", op, model.ErrInvalidArgument,
			fmt.Sprintf("subject %q is not in the registration", subject))
	}

	_, err = tx.Registrations().Update(reg.ID, func(r *model.ProgramRegistration) error {
		r.Status = model.RequestStatusApproved
		r.MatchedTutorID = in.TutorID
		return nil
	})
	if err != nil {
		return match{}, err
	}

	return match{requestID: reg.ID, studentID: reg.StudentID, tutorID: in.TutorID, subject: subject}, nil
}

func (s *MatchingService) matchTutorRequest(tx *repository.Tx, op string, actor model.Actor, in MatchInput) (match, error) {
	req, err := tx.TutorRequests().GetByID(in.RequestID)
	if err != nil {
		return match{}, err
	}
	if !actor.IsCoordinator() && !actor.Is(req.TutorID) {
		return match{}, model.NewDomainError("matching", op, model.ErrForbidden, "only the requested tutor can accept")
	}
	if !req.Status.IsPending() {
		return match{}, model.NewDomainError("matching", op, model.ErrInvalidTransition,
			fmt.Sprintf("request is %s", req.Status))
	}
	if in.TutorID != "" && in.TutorID != req.TutorID {
		return match{}, model.NewDomainError("matching", op, model.ErrInvalidArgument, "request was sent to another tutor")
	}
	if in.Subject != "" && in.Subject != req.Subject {
		return match{}, model.NewDomainError("matching", op, model.ErrInvalidArgument, "subject differs from the request")
	}

	_, err = tx.TutorRequests().Update(req.ID, func(r *model.TutorRequest) error {
		r.Status = model.RequestStatusAccepted
		return nil
	})
	if err != nil {
		return match{}, err
	}

	return match{requestID: req.ID, studentID: req.StudentID, tutorID: req.TutorID, subject: req.Subject}, nil
}

// EndTeachingPeriod завершает период обучения.
// Без причины период считается завершённым, с причиной отменённым.
// Незавершённые занятия периода отменяются с этой причиной, проведённые не меняются.
func (s *MatchingService) EndTeachingPeriod(ctx context.Context, actor model.Actor, periodID, reason string) (*model.TeachingPeriod, error) {
	const op = "EndPeriod"

	var (
		period    model.TeachingPeriod
		cancelled []model.Session
	)
	err := s.store.Update(ctx, func(tx *repository.Tx) error {
		current, err := tx.Periods().GetByID(periodID)
		if err != nil {
			return err
		}
		if !actor.IsCoordinator() && !actor.Is(current.TutorID) {
			return model.NewDomainError("period", op, model.ErrForbidden, "only the tutor or a coordinator can end a period")
		}
		if !current.IsActive() {
			return model.NewDomainError("period", op, model.ErrInvalidTransition,
				fmt.Sprintf("period is %s", current.Status))
		}

		live := liveSessions(tx, func(sess model.Session) bool { return sess.TeachingPeriodID == periodID })
		if len(live) > 0 && blank(reason) {
			return model.NewDomainError("period", op, model.ErrInvalidArgument,
				"reason is required while sessions are still scheduled")
		}

		for _, sess := range live {
			c, err := cancelSession(tx, sess.ID, model.SessionStatusCancelledTutor, reason, true)
			if err != nil {
				return fmt.Errorf("cancel session %s: %w", sess.ID, err)
			}
			cancelled = append(cancelled, c)
		}

		period, err = tx.Periods().Update(current.ID, func(p *model.TeachingPeriod) error {
			end := timerange.DateOf(tx.Now().In(s.loc))
			p.EndDate = &end
			p.EndReason = reason
			p.Status = model.PeriodStatusFinished
			if !blank(reason) {
				p.Status = model.PeriodStatusCancelled
			}
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Teaching period ended",
		zap.String("period_id", period.ID),
		zap.String("status", string(period.Status)),
		zap.Int("cancelled_sessions", len(cancelled)),
	)
	s.publish(ctx, notify.Event{
		Kind:         notify.EventTeachingEnded,
		RecipientIDs: []string{period.StudentID, period.TutorID},
		PeriodID:     period.ID,
		Details:      withReason(period.Subject, reason),
	})

	return &period, nil
}

// RejectRequest отклоняет заявку на программу или запрос к репетитору
func (s *MatchingService) RejectRequest(ctx context.Context, actor model.Actor, requestID, reason string) error {
	const op = "Reject"

	if blank(reason) {
		return model.NewDomainError("matching", op, model.ErrInvalidArgument, "reason is required")
	}

	var studentID string
	err := s.store.Update(ctx, func(tx *repository.Tx) error {
		switch {
		case tx.Registrations().Exists(requestID):
			if !actor.IsCoordinator() {
				return model.NewDomainError("matching", op, model.ErrForbidden, "only coordinators can reject registrations")
			}
			reg, err := tx.Registrations().Update(requestID, func(r *model.ProgramRegistration) error {
				if !r.Status.IsPending() {
					return model.NewDomainError("matching", op, model.ErrInvalidTransition,
						fmt.Sprintf("registration is %s", r.Status))
				}
				r.Status = model.RequestStatusRejected
				r.DecisionReason = reason
				return nil
			})
			studentID = reg.StudentID
			return err

		case tx.TutorRequests().Exists(requestID):
			req, err := tx.TutorRequests().GetByID(requestID)
			if err != nil {
				return err
			}
			if !actor.IsCoordinator() && !actor.Is(req.TutorID) {
				return model.NewDomainError("matching", op, model.ErrForbidden, "only the requested tutor can reject")
			}
			req, err = tx.TutorRequests().Update(requestID, func(r *model.TutorRequest) error {
				if !r.Status.IsPending() {
					return model.NewDomainError("matching", op, model.ErrInvalidTransition,
						fmt.Sprintf("request is %s", r.Status))
				}
				r.Status = model.RequestStatusRejected
				r.DecisionReason = reason
				return nil
			})
			studentID = req.StudentID
			return err
		}
		return model.NewDomainError("matching", op, model.ErrNotFound, fmt.Sprintf("request %s not found", requestID))
	})
	if err != nil {
		return err
	}

	s.logger.Info("Request rejected", zap.String("request_id", requestID))
	s.publish(ctx, notify.Event{
		Kind:         notify.EventRequestRejected,
		RecipientIDs: []string{studentID},
		RequestID:    requestID,
		Details:      reason,
	})

	return nil
}
