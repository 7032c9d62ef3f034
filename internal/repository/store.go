// Package repository содержит хранилище сущностей: единственный источник истины
// для слотов, занятий, периодов обучения, заявок и документов.
package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Op вид изменения сущности
type Op string

const (
	OpPut    Op = "put"
	OpDelete Op = "delete"
)

// Change зафиксированное изменение одной сущности. Value = nil для удаления.
type Change struct {
	Collection Collection
	ID         string
	Op         Op
	Value      any
}

// Persister сохраняет изменения транзакции во внешнем хранилище.
// Вызывается внутри критической секции до фиксации в памяти;
// ошибка откатывает всю транзакцию.
type Persister interface {
	Apply(ctx context.Context, changes []Change) error
}

type state struct {
	users         *tableSpec[model.User]
	slots         *tableSpec[model.AvailabilitySlot]
	sessions      *tableSpec[model.Session]
	periods       *tableSpec[model.TeachingPeriod]
	registrations *tableSpec[model.ProgramRegistration]
	tutorRequests *tableSpec[model.TutorRequest]
	documents     *tableSpec[model.Document]
}

func newState() *state {
	return &state{
		users: newTableSpec(CollectionUsers,
			func(u *model.User) *string { return &u.ID },
			func(u *model.User, now time.Time, created bool) {
				if created {
					u.CreatedAt = now
				}
			}),
		slots: newTableSpec(CollectionSlots,
			func(s *model.AvailabilitySlot) *string { return &s.ID },
			func(s *model.AvailabilitySlot, now time.Time, created bool) {
				if created {
					s.CreatedAt = now
				}
				s.UpdatedAt = now
			}),
		sessions: newTableSpec(CollectionSessions,
			func(s *model.Session) *string { return &s.ID },
			func(s *model.Session, now time.Time, created bool) {
				if created {
					s.CreatedAt = now
				}
				s.UpdatedAt = now
			}),
		periods: newTableSpec(CollectionPeriods,
			func(p *model.TeachingPeriod) *string { return &p.ID },
			func(p *model.TeachingPeriod, now time.Time, created bool) {
				if created {
					p.CreatedAt = now
				}
				p.UpdatedAt = now
			}),
		registrations: newTableSpec(CollectionRegistrations,
			func(r *model.ProgramRegistration) *string { return &r.ID },
			func(r *model.ProgramRegistration, now time.Time, created bool) {
				if created {
					r.CreatedAt = now
				}
				r.UpdatedAt = now
			}),
		tutorRequests: newTableSpec(CollectionTutorRequests,
			func(r *model.TutorRequest) *string { return &r.ID },
			func(r *model.TutorRequest, now time.Time, created bool) {
				if created {
					r.CreatedAt = now
				}
				r.UpdatedAt = now
			}),
		documents: newTableSpec(CollectionDocuments,
			func(d *model.Document) *string { return &d.ID },
			func(d *model.Document, now time.Time, created bool) {
				if created {
					d.CreatedAt = now
				}
			}),
	}
}

// Store хранилище в памяти. Одна блокировка на всё состояние:
// команды выполняются по одной, чтения идут параллельно.
type Store struct {
	mu        sync.RWMutex
	state     *state
	persister Persister
	now       func() time.Time
	newID     func() string
	logger    *zap.Logger
}

type Option func(*Store)

// WithClock задаёт источник текущего времени
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator задаёт генератор ID
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithPersister подключает внешнее хранилище
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithLogger задаёт логгер
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore создаёт пустое хранилище
func NewStore(opts ...Option) *Store {
	s := &Store{
		state:  newState(),
		now:    time.Now,
		newID:  uuid.NewString,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now текущее время по часам хранилища
func (s *Store) Now() time.Time {
	return s.now()
}

// View выполняет fn на согласованном снимке состояния только для чтения
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx := &Tx{ctx: ctx, store: s, now: s.now()}
	return fn(tx)
}

// Update выполняет fn как атомарную единицу: либо применяются все изменения
// вместе с каскадами, либо ни одного.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{ctx: ctx, store: s, writable: true, now: s.now()}
	defer func() {
		if r := recover(); r != nil {
			tx.rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}

	if s.persister != nil && len(tx.changes) > 0 {
		changes := compact(tx.changes)
		if err := s.persister.Apply(ctx, changes); err != nil {
			tx.rollback()
			s.logger.Error("Failed to persist changes", zap.Int("changes", len(changes)), zap.Error(err))
			return fmt.Errorf("persist changes: %w", err)
		}
	}

	return nil
}

// Tx транзакция над хранилищем
type Tx struct {
	ctx      context.Context
	store    *Store
	writable bool
	now      time.Time
	undo     []func()
	changes  []Change
}

// Context контекст команды
func (tx *Tx) Context() context.Context { return tx.ctx }

// Now время начала транзакции, одно для всех изменений в ней
func (tx *Tx) Now() time.Time { return tx.now }

func (tx *Tx) Users() *Table[model.User] {
	return &Table[model.User]{tx: tx, spec: tx.store.state.users}
}

func (tx *Tx) Slots() *Table[model.AvailabilitySlot] {
	return &Table[model.AvailabilitySlot]{tx: tx, spec: tx.store.state.slots}
}

func (tx *Tx) Sessions() *Table[model.Session] {
	return &Table[model.Session]{tx: tx, spec: tx.store.state.sessions}
}

func (tx *Tx) Periods() *Table[model.TeachingPeriod] {
	return &Table[model.TeachingPeriod]{tx: tx, spec: tx.store.state.periods}
}

func (tx *Tx) Registrations() *Table[model.ProgramRegistration] {
	return &Table[model.ProgramRegistration]{tx: tx, spec: tx.store.state.registrations}
}

func (tx *Tx) TutorRequests() *Table[model.TutorRequest] {
	return &Table[model.TutorRequest]{tx: tx, spec: tx.store.state.tutorRequests}
}

func (tx *Tx) Documents() *Table[model.Document] {
	return &Table[model.Document]{tx: tx, spec: tx.store.state.documents}
}

func (tx *Tx) requireWritable(op string) error {
	if !tx.writable {
		return model.NewDomainError("store", op, model.ErrInvalidTransition, "read-only transaction")
	}
	return nil
}

func (tx *Tx) journal(undo func()) {
	tx.undo = append(tx.undo, undo)
}

func (tx *Tx) record(c Change) {
	tx.changes = append(tx.changes, c)
}

func (tx *Tx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
	tx.changes = nil
}

// compact оставляет последнее изменение каждой сущности, сохраняя порядок
func compact(changes []Change) []Change {
	type key struct {
		c  Collection
		id string
	}
	last := make(map[key]int, len(changes))
	for i, c := range changes {
		last[key{c.Collection, c.ID}] = i
	}
	result := make([]Change, 0, len(last))
	for i, c := range changes {
		if last[key{c.Collection, c.ID}] == i {
			result = append(result, c)
		}
	}
	return result
}
