package service

import (
	"context"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/Freeeeeet/tutor_scheduler/internal/timerange"
)

// SessionCard занятие в виде карточки для списка участника
type SessionCard struct {
	SessionID        string
	Title            string
	Subject          string
	CounterpartID    string
	CounterpartName  string
	When             string // "20.10.2025 09:00-10:00"
	Range            timerange.Range
	Status           model.SessionStatus
	Location         string
	PendingChange    *model.PendingChange
	Review           *model.Review
	ProgressNote     *model.ProgressNote
	CanReview        bool
	AwaitingResponse bool // изменение предложено второй стороной и ждёт ответа
}

// QueryService чтения без изменения состояния
type QueryService struct {
	store *repository.Store
}

func NewQueryService(store *repository.Store) *QueryService {
	return &QueryService{store: store}
}

// SlotsForTutor возвращает слоты репетитора в диапазоне дат включительно.
// Пустая граница не ограничивает диапазон.
func (s *QueryService) SlotsForTutor(ctx context.Context, tutorID string, from, to timerange.Date) ([]model.AvailabilitySlot, error) {
	var slots []model.AvailabilitySlot
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		slots = tx.Slots().Query(func(slot model.AvailabilitySlot) bool {
			return slot.TutorID == tutorID &&
				(from == "" || slot.Date >= from) &&
				(to == "" || slot.Date <= to)
		})
		return nil
	})
	sortSlots(slots)
	return slots, err
}

// BookableSlots возвращает слоты репетитора, в которые ещё можно записаться
func (s *QueryService) BookableSlots(ctx context.Context, tutorID string, from timerange.Date) ([]model.AvailabilitySlot, error) {
	var slots []model.AvailabilitySlot
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		slots = tx.Slots().Query(func(slot model.AvailabilitySlot) bool {
			if slot.TutorID != tutorID || (from != "" && slot.Date < from) || slot.IsFull() {
				return false
			}
			return slot.IsGroup() || slot.Status == model.SlotStatusAvailable
		})
		return nil
	})
	sortSlots(slots)
	return slots, err
}

// SessionsForTutor занятия репетитора в хронологическом порядке
func (s *QueryService) SessionsForTutor(ctx context.Context, tutorID string) ([]model.Session, error) {
	return s.sessions(ctx, func(sess model.Session) bool { return sess.TutorID == tutorID })
}

// SessionsForStudent занятия ученика в хронологическом порядке
func (s *QueryService) SessionsForStudent(ctx context.Context, studentID string) ([]model.Session, error) {
	return s.sessions(ctx, func(sess model.Session) bool { return sess.StudentID == studentID })
}

func (s *QueryService) sessions(ctx context.Context, pred func(model.Session) bool) ([]model.Session, error) {
	var sessions []model.Session
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		sessions = tx.Sessions().Query(pred)
		return nil
	})
	sortSessions(sessions)
	return sessions, err
}

// TeachingPeriodsFor периоды обучения, где пользователь репетитор или ученик
func (s *QueryService) TeachingPeriodsFor(ctx context.Context, userID string) ([]model.TeachingPeriod, error) {
	var periods []model.TeachingPeriod
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		periods = tx.Periods().Query(func(p model.TeachingPeriod) bool {
			return p.TutorID == userID || p.StudentID == userID
		})
		return nil
	})
	return periods, err
}

// NotHandledStudents заявки на программу, ещё не обработанные координатором
func (s *QueryService) NotHandledStudents(ctx context.Context) ([]model.ProgramRegistration, error) {
	var regs []model.ProgramRegistration
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		regs = tx.Registrations().Query(func(r model.ProgramRegistration) bool {
			return r.Status.IsPending()
		})
		return nil
	})
	return regs, err
}

// PendingTutorRequests запросы учеников к репетитору, ожидающие решения
func (s *QueryService) PendingTutorRequests(ctx context.Context, tutorID string) ([]model.TutorRequest, error) {
	var reqs []model.TutorRequest
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		reqs = tx.TutorRequests().Query(func(r model.TutorRequest) bool {
			return r.TutorID == tutorID && r.Status.IsPending()
		})
		return nil
	})
	return reqs, err
}

// CheckTimeOverlap проверяет пересечение интервала со слотами репетитора
func (s *QueryService) CheckTimeOverlap(ctx context.Context, tutorID string, date timerange.Date, start, end timerange.Clock, excludeSlotID string) (bool, error) {
	return checkTimeOverlap(ctx, s.store, tutorID, date, start, end, excludeSlotID)
}

// SlotsWithDocument слоты, к которым прикреплён документ
func (s *QueryService) SlotsWithDocument(ctx context.Context, documentID string) ([]model.AvailabilitySlot, error) {
	var slots []model.AvailabilitySlot
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		slots = tx.Slots().Query(func(slot model.AvailabilitySlot) bool {
			return slot.HasDocument(documentID)
		})
		return nil
	})
	sortSlots(slots)
	return slots, err
}

// TutorSessionCards карточки занятий для репетитора
func (s *QueryService) TutorSessionCards(ctx context.Context, tutorID string) ([]SessionCard, error) {
	sessions, err := s.SessionsForTutor(ctx, tutorID)
	if err != nil {
		return nil, err
	}
	return toCards(sessions, tutorID), nil
}

// StudentSessionCards карточки занятий для ученика
func (s *QueryService) StudentSessionCards(ctx context.Context, studentID string) ([]SessionCard, error) {
	sessions, err := s.SessionsForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return toCards(sessions, studentID), nil
}

func toCards(sessions []model.Session, viewerID string) []SessionCard {
	cards := make([]SessionCard, 0, len(sessions))
	for _, sess := range sessions {
		counterpartName := sess.TutorName
		if viewerID == sess.TutorID {
			counterpartName = sess.StudentName
		}

		cards = append(cards, SessionCard{
			SessionID:        sess.ID,
			Title:            sess.Title,
			Subject:          sess.Subject,
			CounterpartID:    sess.Counterparty(viewerID),
			CounterpartName:  counterpartName,
			When:             sess.Range().Format(),
			Range:            sess.Range(),
			Status:           sess.Status,
			Location:         sess.Location,
			PendingChange:    sess.PendingChange,
			Review:           sess.Review,
			ProgressNote:     sess.ProgressNote,
			CanReview:        viewerID == sess.StudentID && sess.Status == model.SessionStatusCompleted && sess.Review == nil,
			AwaitingResponse: sess.PendingChange != nil && sess.PendingChange.ProposedBy != viewerID,
		})
	}
	return cards
}
