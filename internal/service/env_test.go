package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/notify"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/Freeeeeet/tutor_scheduler/internal/timerange"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testNow момент, от которого считаются все даты в тестах
var testNow = time.Date(2025, 10, 15, 8, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Notify(_ context.Context, event notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) Last() notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return notify.Event{}
	}
	return r.events[len(r.events)-1]
}

func (r *recorder) Count(kind notify.EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

type testEnv struct {
	t      *testing.T
	ctx    context.Context
	store  *repository.Store
	events *recorder

	users        *UserService
	availability *AvailabilityService
	booking      *BookingService
	sessions     *SessionService
	matching     *MatchingService
	queries      *QueryService
	requests     *RequestService
	documents    *DocumentService

	tutor       model.User
	otherTutor  model.User
	student     model.User
	student2    model.User
	coordinator model.User
}

func newTestEnv(t *testing.T, opts ...repository.Option) *testEnv {
	t.Helper()

	seq := 0
	base := []repository.Option{
		repository.WithClock(func() time.Time { return testNow }),
		repository.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%03d", seq)
		}),
	}
	store := repository.NewStore(append(base, opts...)...)
	events := &recorder{}
	logger := zap.NewNop()

	e := &testEnv{
		t:      t,
		ctx:    context.Background(),
		store:  store,
		events: events,

		users:        NewUserService(store, logger),
		availability: NewAvailabilityService(store, events, logger),
		booking:      NewBookingService(store, events, logger),
		sessions:     NewSessionService(store, events, time.UTC, logger),
		matching:     NewMatchingService(store, events, time.UTC, logger),
		queries:      NewQueryService(store),
		requests:     NewRequestService(store, events, logger),
		documents:    NewDocumentService(store, logger),
	}

	e.tutor = e.register("tutor.an", model.RoleTutor)
	e.otherTutor = e.register("tutor.binh", model.RoleTutor)
	e.student = e.register("student.lan", model.RoleStudent)
	e.student2 = e.register("student.minh", model.RoleStudent)
	e.coordinator = e.register("coord.hoa", model.RoleCoordinator)

	return e
}

func (e *testEnv) register(username string, role model.Role) model.User {
	e.t.Helper()
	u, err := e.users.Register(e.ctx, RegisterUserInput{
		Username:    username,
		DisplayName: username,
		Email:       username + "@example.com",
		Role:        role,
		Subjects:    []string{"Toán"},
	})
	require.NoError(e.t, err)
	return *u
}

func clock(t *testing.T, s string) timerange.Clock {
	t.Helper()
	c, err := timerange.ParseClock(s)
	require.NoError(t, err)
	return c
}

func (e *testEnv) openSlot(date, start, end string, capacity int) model.AvailabilitySlot {
	e.t.Helper()
	slot, err := e.availability.OpenSlot(e.ctx, e.tutor.Actor(), OpenSlotInput{
		TutorID:     e.tutor.ID,
		Date:        timerange.MustDate(date),
		StartTime:   clock(e.t, start),
		EndTime:     clock(e.t, end),
		MaxStudents: capacity,
		Subject:     "Toán",
		Title:       "Đại số",
	})
	require.NoError(e.t, err)
	return *slot
}

func (e *testEnv) request(student model.User, slotID string) model.Session {
	e.t.Helper()
	session, err := e.booking.RequestSlot(e.ctx, student.Actor(), RequestSlotInput{SlotID: slotID})
	require.NoError(e.t, err)
	return *session
}

// upcoming записывает ученика в слот и подтверждает занятие
func (e *testEnv) upcoming(student model.User, slotID string) model.Session {
	e.t.Helper()
	pending := e.request(student, slotID)
	session, err := e.booking.ApproveBooking(e.ctx, e.tutor.Actor(), pending.ID)
	require.NoError(e.t, err)
	return *session
}

func (e *testEnv) slot(id string) model.AvailabilitySlot {
	e.t.Helper()
	var slot model.AvailabilitySlot
	require.NoError(e.t, e.store.View(e.ctx, func(tx *repository.Tx) error {
		var err error
		slot, err = tx.Slots().GetByID(id)
		return err
	}))
	return slot
}

func (e *testEnv) session(id string) model.Session {
	e.t.Helper()
	var session model.Session
	require.NoError(e.t, e.store.View(e.ctx, func(tx *repository.Tx) error {
		var err error
		session, err = tx.Sessions().GetByID(id)
		return err
	}))
	return session
}

func (e *testEnv) period(id string) model.TeachingPeriod {
	e.t.Helper()
	var period model.TeachingPeriod
	require.NoError(e.t, e.store.View(e.ctx, func(tx *repository.Tx) error {
		var err error
		period, err = tx.Periods().GetByID(id)
		return err
	}))
	return period
}

func (e *testEnv) slotExists(id string) bool {
	var ok bool
	_ = e.store.View(e.ctx, func(tx *repository.Tx) error {
		ok = tx.Slots().Exists(id)
		return nil
	})
	return ok
}

func (e *testEnv) snapshot() repository.Snapshot {
	return e.store.Snapshot()
}
