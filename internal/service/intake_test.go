package service

import (
	"testing"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterUser(t *testing.T) {
	e := newTestEnv(t)

	tutor, err := e.users.Register(e.ctx, RegisterUserInput{
		Username:    "tutor.chi",
		DisplayName: "Cô Chi",
		Email:       "chi@example.com",
		Role:        model.RoleTutor,
		Subjects:    []string{"Anh"},
		Bio:         "IELTS 8.0",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tutor.ID)
	require.NotNil(t, tutor.Tutor)
	assert.Nil(t, tutor.Student)
	assert.Equal(t, []string{"Anh"}, tutor.Tutor.Subjects)
	assert.Equal(t, "Cô Chi", tutor.Name())

	got, err := e.users.GetByID(e.ctx, tutor.ID)
	require.NoError(t, err)
	assert.Equal(t, tutor.Username, got.Username)

	_, err = e.users.Register(e.ctx, RegisterUserInput{Username: "tutor.chi", Role: model.RoleStudent})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = e.users.Register(e.ctx, RegisterUserInput{Username: "x", Role: "admin"})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = e.users.Register(e.ctx, RegisterUserInput{Username: "y", Role: model.RoleStudent, Email: "not-an-email"})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	tutors, err := e.users.ListByRole(e.ctx, model.RoleTutor)
	require.NoError(t, err)
	assert.Len(t, tutors, 3)
}

func TestTelegramChatLink(t *testing.T) {
	e := newTestEnv(t)

	_, ok := e.users.TelegramChatID(e.ctx, e.student.ID)
	assert.False(t, ok)

	require.NoError(t, e.users.LinkTelegram(e.ctx, e.student.ID, 777))
	chatID, ok := e.users.TelegramChatID(e.ctx, e.student.ID)
	assert.True(t, ok)
	assert.Equal(t, int64(777), chatID)

	assert.ErrorIs(t, e.users.LinkTelegram(e.ctx, "missing", 1), model.ErrNotFound)
	_, ok = e.users.TelegramChatID(e.ctx, "missing")
	assert.False(t, ok)
}

func TestSubmitRegistration(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.requests.SubmitRegistration(e.ctx, e.tutor.Actor(), SubmitRegistrationInput{Subjects: []string{"Toán"}})
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = e.requests.SubmitRegistration(e.ctx, e.student.Actor(), SubmitRegistrationInput{})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	reg, err := e.requests.SubmitRegistration(e.ctx, e.student.Actor(), SubmitRegistrationInput{
		Subjects:     []string{"Toán", "Văn"},
		Goals:        "8 điểm",
		Availability: "tối thứ 3, thứ 5",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPending, reg.Status)
	assert.Equal(t, e.student.ID, reg.StudentID)

	last := e.events.Last()
	assert.Equal(t, notify.EventRequestSubmitted, last.Kind)
	assert.Equal(t, []string{e.coordinator.ID}, last.RecipientIDs)
}

func TestSubmitTutorRequest(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.requests.SubmitTutorRequest(e.ctx, e.student.Actor(), SubmitTutorRequestInput{TutorID: e.student2.ID, Subject: "Toán"})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = e.requests.SubmitTutorRequest(e.ctx, e.student.Actor(), SubmitTutorRequestInput{TutorID: e.tutor.ID, Subject: "Toán"})
	require.NoError(t, err)

	_, err = e.requests.SubmitTutorRequest(e.ctx, e.student.Actor(), SubmitTutorRequestInput{TutorID: e.tutor.ID, Subject: "Toán"})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	pending, err := e.queries.PendingTutorRequests(e.ctx, e.tutor.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestDocuments(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.documents.Register(e.ctx, e.student.Actor(), RegisterDocumentInput{Title: "x", Type: "pdf", FileName: "x.pdf"})
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = e.documents.Register(e.ctx, e.tutor.Actor(), RegisterDocumentInput{Title: "x"})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	doc, err := e.documents.Register(e.ctx, e.coordinator.Actor(), RegisterDocumentInput{
		Title:     "Bài tập tuần 1",
		Type:      "worksheet",
		FileName:  "tuan-1.docx",
		SizeBytes: 2048,
	})
	require.NoError(t, err)
	assert.Equal(t, e.coordinator.ID, doc.UploadedBy)

	got, err := e.documents.Get(e.ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bài tập tuần 1", got.Title)

	_, err = e.documents.Get(e.ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	docs, err := e.documents.List(e.ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}
