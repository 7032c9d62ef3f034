package model

import (
	"slices"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/timerange"
)

type PeriodStatus string

const (
	PeriodStatusActive    PeriodStatus = "active"
	PeriodStatusFinished  PeriodStatus = "finished"
	PeriodStatusCancelled PeriodStatus = "cancelled"
)

// TeachingPeriod длительная связка репетитор-ученик по одному предмету
type TeachingPeriod struct {
	ID                     string          `json:"id"`
	TutorID                string          `json:"tutor_id"`
	StudentID              string          `json:"student_id"`
	StudentEmail           string          `json:"student_email,omitempty"`
	Subject                string          `json:"subject"`
	StartDate              timerange.Date  `json:"start_date"`
	EndDate                *timerange.Date `json:"end_date,omitempty"` // задана = период завершён
	Status                 PeriodStatus    `json:"status"`
	EndReason              string          `json:"end_reason,omitempty"`
	RequestID              string          `json:"request_id,omitempty"`
	ProgressNoteSessionIDs []string        `json:"progress_note_session_ids"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// IsActive период продолжается
func (p *TeachingPeriod) IsActive() bool {
	return p.Status == PeriodStatusActive
}

// Matches проверяет тройку (репетитор, ученик, предмет)
func (p *TeachingPeriod) Matches(tutorID, studentID, subject string) bool {
	return p.TutorID == tutorID && p.StudentID == studentID && p.Subject == subject
}

// AddProgressNote добавляет занятие в упорядоченный список заметок, без повторов
func (p *TeachingPeriod) AddProgressNote(sessionID string) {
	if slices.Contains(p.ProgressNoteSessionIDs, sessionID) {
		return
	}
	p.ProgressNoteSessionIDs = append(p.ProgressNoteSessionIDs, sessionID)
}

func (p TeachingPeriod) Clone() TeachingPeriod {
	if p.EndDate != nil {
		d := *p.EndDate
		p.EndDate = &d
	}
	p.ProgressNoteSessionIDs = slices.Clone(p.ProgressNoteSessionIDs)
	return p
}
