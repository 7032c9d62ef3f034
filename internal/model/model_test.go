package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Freeeeeet/tutor_scheduler/internal/timerange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserValidate(t *testing.T) {
	student := NewStudent("lan", "Lan", "lan@example.com", StudentProfile{Grade: "10"})
	require.NoError(t, student.Validate())

	mismatched := student
	mismatched.Role = RoleTutor
	err := mismatched.Validate()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	twoProfiles := NewTutor("minh", "Minh", "", TutorProfile{Subjects: []string{"Toán"}})
	twoProfiles.Student = &StudentProfile{}
	assert.ErrorIs(t, twoProfiles.Validate(), ErrInvalidArgument)

	noName := NewCoordinator("", "", "", CoordinatorProfile{})
	assert.ErrorIs(t, noName.Validate(), ErrInvalidArgument)
}

func TestUserCloneIsDeep(t *testing.T) {
	chat := int64(42)
	tutor := NewTutor("minh", "Minh", "", TutorProfile{Subjects: []string{"Toán"}})
	tutor.TelegramChatID = &chat

	clone := tutor.Clone()
	clone.Tutor.Subjects[0] = "Lý"
	*clone.TelegramChatID = 7

	assert.Equal(t, "Toán", tutor.Tutor.Subjects[0])
	assert.Equal(t, int64(42), *tutor.TelegramChatID)
}

func TestSlotEnrollAndRelease(t *testing.T) {
	slot := AvailabilitySlot{MaxStudents: 2, Status: SlotStatusAvailable}

	slot.Enroll(StudentRef{ID: "s1", Name: "An"})
	slot.Enroll(StudentRef{ID: "s1", Name: "An"})
	assert.Equal(t, []string{"s1"}, slot.EnrolledStudentIDs)
	assert.Nil(t, slot.Student, "group slots do not bind a single student")

	slot.Enroll(StudentRef{ID: "s2", Name: "Bình"})
	assert.True(t, slot.IsFull())

	slot.Status = SlotStatusBooked
	slot.Release("s1")
	assert.Equal(t, []string{"s2"}, slot.EnrolledStudentIDs)
	assert.Equal(t, SlotStatusAvailable, slot.Status)
}

func TestSlotOneOnOneBindsStudent(t *testing.T) {
	slot := AvailabilitySlot{Status: SlotStatusAvailable}
	assert.Equal(t, DefaultCapacity, slot.Capacity())

	slot.Enroll(StudentRef{ID: "s1", Name: "An"})
	require.NotNil(t, slot.Student)
	assert.Equal(t, "s1", slot.Student.ID)

	slot.Release("s1")
	assert.Nil(t, slot.Student)
	assert.Empty(t, slot.EnrolledStudentIDs)
}

func TestSessionCloneIsDeep(t *testing.T) {
	d := timerange.MustDate("2025-10-21")
	start := timerange.MustClock(9, 0)
	s := Session{
		Review:        &Review{Rating: 5},
		PendingChange: &PendingChange{Type: ChangeTypeReschedule, NewDate: &d, NewStart: &start},
	}

	c := s.Clone()
	c.Review.Rating = 1
	*c.PendingChange.NewDate = "2030-01-01"
	*c.PendingChange.NewStart = 0

	assert.Equal(t, 5, s.Review.Rating)
	assert.Equal(t, timerange.MustDate("2025-10-21"), *s.PendingChange.NewDate)
	assert.Equal(t, timerange.MustClock(9, 0), *s.PendingChange.NewStart)
}

func TestSessionStatusPredicates(t *testing.T) {
	assert.True(t, SessionStatusCompleted.IsTerminal())
	assert.True(t, SessionStatusCancelledStudent.IsTerminal())
	assert.False(t, SessionStatusUpcoming.IsTerminal())
	assert.True(t, SessionStatusPending.IsLive())
	assert.False(t, SessionStatusCancelledTutor.IsLive())
	assert.Equal(t, SessionStatusCancelledStudent, CancelledStatusFor(RoleStudent))
	assert.Equal(t, SessionStatusCancelledTutor, CancelledStatusFor(RoleTutor))
}

func TestDomainErrorMatching(t *testing.T) {
	err := NewDomainError("slot", "Open", ErrScheduleConflict, "overlaps slot 1")
	wrapped := fmt.Errorf("open slot: %w", err)

	assert.ErrorIs(t, wrapped, ErrScheduleConflict)
	assert.NotErrorIs(t, wrapped, ErrNotFound)
	assert.Equal(t, ErrScheduleConflict, KindOf(wrapped))
	assert.Equal(t, "slot.Open: overlaps slot 1", err.Error())

	cause := errors.New("disk full")
	withCause := WrapError("store", "Commit", ErrInvalidArgument, "persist", cause)
	assert.ErrorIs(t, withCause, cause)
	assert.ErrorIs(t, withCause, ErrInvalidArgument)

	assert.False(t, IsBusinessError(cause))
	assert.Nil(t, KindOf(cause))
}

func TestTeachingPeriodProgressNotesAreUnique(t *testing.T) {
	p := TeachingPeriod{}
	p.AddProgressNote("a")
	p.AddProgressNote("b")
	p.AddProgressNote("a")
	assert.Equal(t, []string{"a", "b"}, p.ProgressNoteSessionIDs)
	assert.True(t, (&TeachingPeriod{TutorID: "t", StudentID: "s", Subject: "Toán"}).Matches("t", "s", "Toán"))
}
