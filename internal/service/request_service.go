package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/notify"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"go.uber.org/zap"
)

// SubmitRegistrationInput заявка ученика на программу
type SubmitRegistrationInput struct {
	Subjects     []string `validate:"required,min=1,dive,required"`
	Goals        string   `validate:"max=2000"`
	Availability string   `validate:"max=500"`
}

// SubmitTutorRequestInput запрос ученика к конкретному репетитору
type SubmitTutorRequestInput struct {
	TutorID string `validate:"required"`
	Subject string `validate:"required"`
	Message string `validate:"max=2000"`
}

type RequestService struct {
	store *repository.Store
	publisher
	logger *zap.Logger
}

func NewRequestService(store *repository.Store, notifier notify.Notifier, logger *zap.Logger) *RequestService {
	return &RequestService{
		store:     store,
		publisher: newPublisher(notifier, logger),
		logger:    logger,
	}
}

// SubmitRegistration создаёт заявку на программу, которую рассматривает координатор
func (s *RequestService) SubmitRegistration(ctx context.Context, actor model.Actor, in SubmitRegistrationInput) (*model.ProgramRegistration, error) {
	const op = "SubmitRegistration"

	if err := validateInput("request", op, in); err != nil {
		return nil, err
	}
	if !actor.IsStudent() {
		return nil, model.NewDomainError("request", op, model.ErrForbidden, "only students can register")
	}

	var (
		reg          model.ProgramRegistration
		coordinators []string
	)
	err := s.store.Update(ctx, func(tx *repository.Tx) error {
		if _, err := requireUser(tx, "request", op, actor.UserID, model.RoleStudent); err != nil {
			return err
		}

		var err error
		reg, err = tx.Registrations().Create(model.ProgramRegistration{
			StudentID:    actor.UserID,
			Subjects:     in.Subjects,
			Goals:        in.Goals,
			Availability: in.Availability,
			Status:       model.RequestStatusPending,
		})
		if err != nil {
			return err
		}

		for _, u := range tx.Users().Query(func(u model.User) bool { return u.Role == model.RoleCoordinator }) {
			coordinators = append(coordinators, u.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Program registration submitted",
		zap.String("request_id", reg.ID),
		zap.String("student_id", reg.StudentID),
		zap.Strings("subjects", reg.Subjects),
	)
	s.publish(ctx, notify.Event{
		Kind:         notify.EventRequestSubmitted,
		RecipientIDs: coordinators,
		RequestID:    reg.ID,
	})

	return &reg, nil
}

// SubmitTutorRequest отправляет запрос репетитору
func (s *RequestService) SubmitTutorRequest(ctx context.Context, actor model.Actor, in SubmitTutorRequestInput) (*model.TutorRequest, error) {
	const op = "SubmitTutorRequest"

	if err := validateInput("request", op, in); err != nil {
		return nil, err
	}
	if !actor.IsStudent() {
		return nil, model.NewDomainError("request", op, model.ErrForbidden, "only students can request a tutor")
	}

	var req model.TutorRequest
	err := s.store.Update(ctx, func(tx *repository.Tx) error {
		if _, err := requireUser(tx, "request", op, actor.UserID, model.RoleStudent); err != nil {
			return err
		}
		if _, err := requireUser(tx, "request", op, in.TutorID, model.RoleTutor); err != nil {
			return err
		}

		if _, ok := findActivePeriod(tx, in.TutorID, actor.UserID, in.Subject); ok {
			return model.NewDomainError("request", op, model.ErrInvalidTransition, "already studying this subject with the tutor")
		}
		pending := tx.TutorRequests().Count(func(r model.TutorRequest) bool {
			return r.StudentID == actor.UserID && r.TutorID == in.TutorID && r.Subject == in.Subject && r.Status.IsPending()
		})
		if pending > 0 {
			return model.NewDomainError("request", op, model.ErrInvalidArgument,
				fmt.Sprintf("request for %s is already pending", in.Subject))
		}

		var err error
		req, err = tx.TutorRequests().Create(model.TutorRequest{
			StudentID: actor.UserID,
			TutorID:   in.TutorID,
			Subject:   in.Subject,
			Message:   in.Message,
			Status:    model.RequestStatusPending,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Tutor request submitted",
		zap.String("request_id", req.ID),
		zap.String("student_id", req.StudentID),
		zap.String("tutor_id", req.TutorID),
	)
	s.publish(ctx, notify.Event{
		Kind:         notify.EventRequestSubmitted,
		RecipientIDs: []string{req.TutorID},
		RequestID:    req.ID,
		Details:      req.Subject,
	})

	return &req, nil
}
