package app

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/config"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestApp_InMemory(t *testing.T) {
	cfg := &config.Config{
		Environment:        "test",
		Timezone:           "Asia/Ho_Chi_Minh",
		CompletionInterval: time.Hour,
		NotifyQueueSize:    4,
	}

	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	student, err := a.Users.Register(ctx, service.RegisterUserInput{Username: "student.lan", Role: model.RoleStudent})
	require.NoError(t, err)
	_, err = a.Requests.SubmitRegistration(ctx, student.Actor(), service.SubmitRegistrationInput{Subjects: []string{"Toán"}})
	require.NoError(t, err)

	regs, err := a.Queries.NotHandledStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, regs, 1)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestApp_InvalidTimezone(t *testing.T) {
	cfg := &config.Config{Timezone: "Mars/Olympus", CompletionInterval: time.Hour, NotifyQueueSize: 1}

	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
