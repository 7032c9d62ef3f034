package model

import (
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/timerange"
)

type SessionStatus string

const (
	SessionStatusPending          SessionStatus = "pending"           // Ожидает одобрения репетитора
	SessionStatusUpcoming         SessionStatus = "upcoming"          // Подтверждено
	SessionStatusCompleted        SessionStatus = "completed"         // Проведено
	SessionStatusCancelledTutor   SessionStatus = "cancelled-tutor"   // Отменено репетитором
	SessionStatusCancelledStudent SessionStatus = "cancelled-student" // Отменено учеником
)

// IsCancelled отменено любой из сторон
func (s SessionStatus) IsCancelled() bool {
	return s == SessionStatusCancelledTutor || s == SessionStatusCancelledStudent
}

// IsTerminal основной статус больше не меняется
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s.IsCancelled()
}

// IsLive занятие ещё занимает место в слоте
func (s SessionStatus) IsLive() bool {
	return s == SessionStatusPending || s == SessionStatusUpcoming
}

// CancelledStatusFor статус отмены по роли инициатора
func CancelledStatusFor(role Role) SessionStatus {
	if role == RoleStudent {
		return SessionStatusCancelledStudent
	}
	return SessionStatusCancelledTutor
}

type Evaluation string

const (
	EvaluationExcellent        Evaluation = "excellent"
	EvaluationGood             Evaluation = "good"
	EvaluationAverage          Evaluation = "average"
	EvaluationNeedsImprovement Evaluation = "needs-improvement"
)

func (e Evaluation) IsValid() bool {
	switch e {
	case EvaluationExcellent, EvaluationGood, EvaluationAverage, EvaluationNeedsImprovement:
		return true
	}
	return false
}

// Review отзыв ученика, оставляется один раз
type Review struct {
	Rating    int       `json:"rating"` // 1-5
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// ProgressNote заметка репетитора об успехах ученика
type ProgressNote struct {
	Evaluation Evaluation `json:"evaluation"`
	Content    string     `json:"content"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type ChangeType string

const (
	ChangeTypeCancel     ChangeType = "cancel"
	ChangeTypeReschedule ChangeType = "reschedule"
)

func (c ChangeType) IsValid() bool {
	return c == ChangeTypeCancel || c == ChangeTypeReschedule
}

// PendingChange предложенная отмена или перенос, ждёт ответа второй стороны
type PendingChange struct {
	Type         ChangeType       `json:"type"`
	NewDate      *timerange.Date  `json:"new_date,omitempty"`
	NewStart     *timerange.Clock `json:"new_start,omitempty"`
	NewEnd       *timerange.Clock `json:"new_end,omitempty"`
	Reason       string           `json:"reason"`
	ProposedBy   string           `json:"proposed_by"`
	ProposerRole Role             `json:"proposer_role"`
	CreatedAt    time.Time        `json:"created_at"`
}

// NewRange возвращает интервал после переноса
func (c *PendingChange) NewRange() (timerange.Range, bool) {
	if c.NewDate == nil || c.NewStart == nil || c.NewEnd == nil {
		return timerange.Range{}, false
	}
	return timerange.Range{Date: *c.NewDate, Start: *c.NewStart, End: *c.NewEnd}, true
}

// Session занятие конкретного ученика, созданное из слота
type Session struct {
	ID               string          `json:"id"`
	SlotID           string          `json:"slot_id"`
	TutorID          string          `json:"tutor_id"`
	StudentID        string          `json:"student_id"`
	TeachingPeriodID string          `json:"teaching_period_id,omitempty"`
	TutorName        string          `json:"tutor_name"`
	StudentName      string          `json:"student_name"`
	Title            string          `json:"title,omitempty"`
	Subject          string          `json:"subject,omitempty"`
	Note             string          `json:"note,omitempty"`
	Date             timerange.Date  `json:"date"`
	StartTime        timerange.Clock `json:"start_time"`
	EndTime          timerange.Clock `json:"end_time"`
	Status           SessionStatus   `json:"status"`
	Location         string          `json:"location,omitempty"`

	Review             *Review        `json:"review,omitempty"`
	CancellationReason string         `json:"cancellation_reason,omitempty"`
	ProgressNote       *ProgressNote  `json:"progress_note,omitempty"`
	PendingChange      *PendingChange `json:"pending_change,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Range возвращает интервал занятия
func (s *Session) Range() timerange.Range {
	return timerange.Range{Date: s.Date, Start: s.StartTime, End: s.EndTime}
}

// IsParticipant проверяет что пользователь участвует в занятии
func (s *Session) IsParticipant(userID string) bool {
	return userID != "" && (userID == s.TutorID || userID == s.StudentID)
}

// Counterparty возвращает вторую сторону занятия
func (s *Session) Counterparty(userID string) string {
	if userID == s.TutorID {
		return s.StudentID
	}
	return s.TutorID
}

// RoleOf возвращает роль участника в занятии
func (s *Session) RoleOf(userID string) Role {
	if userID == s.TutorID {
		return RoleTutor
	}
	return RoleStudent
}

func (s Session) Clone() Session {
	if s.Review != nil {
		r := *s.Review
		s.Review = &r
	}
	if s.ProgressNote != nil {
		p := *s.ProgressNote
		s.ProgressNote = &p
	}
	if s.PendingChange != nil {
		c := *s.PendingChange
		if c.NewDate != nil {
			d := *c.NewDate
			c.NewDate = &d
		}
		if c.NewStart != nil {
			v := *c.NewStart
			c.NewStart = &v
		}
		if c.NewEnd != nil {
			v := *c.NewEnd
			c.NewEnd = &v
		}
		s.PendingChange = &c
	}
	return s
}
