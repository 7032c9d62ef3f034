package model

import (
	"slices"
	"time"
)

type RequestStatus string

// Request status constants
const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved" // ProgramRegistration
	RequestStatusAccepted RequestStatus = "accepted" // TutorRequest
	RequestStatusRejected RequestStatus = "rejected"
)

// IsPending checks if request is pending
func (s RequestStatus) IsPending() bool {
	return s == RequestStatusPending
}

// ProgramRegistration заявка ученика на программу: предметы, цели, удобное время
type ProgramRegistration struct {
	ID             string        `json:"id"`
	StudentID      string        `json:"student_id"`
	Subjects       []string      `json:"subjects"`
	Goals          string        `json:"goals"`
	Availability   string        `json:"availability"`
	Status         RequestStatus `json:"status"`
	MatchedTutorID string        `json:"matched_tutor_id,omitempty"`
	DecisionReason string        `json:"decision_reason,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (r ProgramRegistration) Clone() ProgramRegistration {
	r.Subjects = slices.Clone(r.Subjects)
	return r
}

// TutorRequest прямой запрос ученика к конкретному репетитору
type TutorRequest struct {
	ID             string        `json:"id"`
	StudentID      string        `json:"student_id"`
	TutorID        string        `json:"tutor_id"`
	Subject        string        `json:"subject"`
	Message        string        `json:"message"`
	Status         RequestStatus `json:"status"`
	DecisionReason string        `json:"decision_reason,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (r TutorRequest) Clone() TutorRequest {
	return r
}
