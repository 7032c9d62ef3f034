package model

import (
	"slices"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/timerange"
)

type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "available" // Можно записаться
	SlotStatusPending   SlotStatus = "pending"   // Есть запрос, ожидает решения репетитора
	SlotStatusBooked    SlotStatus = "booked"    // Подтверждено или места закончились
)

// DefaultCapacity вместимость индивидуального занятия
const DefaultCapacity = 1

// StudentRef ученик, закреплённый за слотом
type StudentRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AvailabilitySlot окно времени, опубликованное репетитором
type AvailabilitySlot struct {
	ID                  string          `json:"id"`
	TutorID             string          `json:"tutor_id"`
	TeachingPeriodID    string          `json:"teaching_period_id,omitempty"`
	Date                timerange.Date  `json:"date"`
	StartTime           timerange.Clock `json:"start_time"`
	EndTime             timerange.Clock `json:"end_time"`
	Status              SlotStatus      `json:"status"`
	Student             *StudentRef     `json:"student,omitempty"` // только для индивидуальных слотов
	Subject             string          `json:"subject,omitempty"`
	Title               string          `json:"title,omitempty"`
	Description         string          `json:"description,omitempty"`
	MaxStudents         int             `json:"max_students"`
	EnrolledStudentIDs  []string        `json:"enrolled_student_ids"`
	Location            string          `json:"location,omitempty"`
	AttachedDocumentIDs []string        `json:"attached_document_ids,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Range возвращает интервал слота
func (s *AvailabilitySlot) Range() timerange.Range {
	return timerange.Range{Date: s.Date, Start: s.StartTime, End: s.EndTime}
}

// Capacity возвращает вместимость с учётом значения по умолчанию
func (s *AvailabilitySlot) Capacity() int {
	if s.MaxStudents < 1 {
		return DefaultCapacity
	}
	return s.MaxStudents
}

// IsGroup групповое занятие
func (s *AvailabilitySlot) IsGroup() bool {
	return s.Capacity() > 1
}

// IsFull все места заняты
func (s *AvailabilitySlot) IsFull() bool {
	return len(s.EnrolledStudentIDs) >= s.Capacity()
}

// IsEnrolled проверяет записан ли ученик
func (s *AvailabilitySlot) IsEnrolled(studentID string) bool {
	return slices.Contains(s.EnrolledStudentIDs, studentID)
}

// Enroll добавляет ученика
func (s *AvailabilitySlot) Enroll(student StudentRef) {
	if s.IsEnrolled(student.ID) {
		return
	}
	s.EnrolledStudentIDs = append(s.EnrolledStudentIDs, student.ID)
	if !s.IsGroup() {
		s.Student = &student
	}
}

// Release убирает ученика и возвращает слот в доступные, если освободилось место
func (s *AvailabilitySlot) Release(studentID string) {
	s.EnrolledStudentIDs = slices.DeleteFunc(s.EnrolledStudentIDs, func(id string) bool {
		return id == studentID
	})
	if s.Student != nil && s.Student.ID == studentID {
		s.Student = nil
	}
	if !s.IsFull() {
		s.Status = SlotStatusAvailable
	}
}

// HasDocument проверяет прикреплён ли документ
func (s *AvailabilitySlot) HasDocument(documentID string) bool {
	return slices.Contains(s.AttachedDocumentIDs, documentID)
}

func (s AvailabilitySlot) Clone() AvailabilitySlot {
	if s.Student != nil {
		st := *s.Student
		s.Student = &st
	}
	s.EnrolledStudentIDs = slices.Clone(s.EnrolledStudentIDs)
	s.AttachedDocumentIDs = slices.Clone(s.AttachedDocumentIDs)
	return s
}
