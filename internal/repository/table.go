package repository

import (
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

// Collection имя коллекции сущностей, совпадает с ключом в снимке
type Collection string

const (
	CollectionUsers         Collection = "users"
	CollectionSlots         Collection = "slots"
	CollectionSessions      Collection = "sessions"
	CollectionPeriods       Collection = "teaching_periods"
	CollectionRegistrations Collection = "program_registrations"
	CollectionTutorRequests Collection = "tutor_requests"
	CollectionDocuments     Collection = "documents"
)

// Collections все коллекции в порядке зависимостей
var Collections = []Collection{
	CollectionUsers,
	CollectionDocuments,
	CollectionRegistrations,
	CollectionTutorRequests,
	CollectionPeriods,
	CollectionSlots,
	CollectionSessions,
}

type entity[T any] interface {
	Clone() T
}

// tableSpec хранит строки одной коллекции и знает как работать с её ID и временными метками
type tableSpec[T entity[T]] struct {
	name  Collection
	rows  map[string]T
	id    func(*T) *string
	touch func(v *T, now time.Time, created bool)
}

func newTableSpec[T entity[T]](name Collection, id func(*T) *string, touch func(*T, time.Time, bool)) *tableSpec[T] {
	return &tableSpec[T]{name: name, rows: make(map[string]T), id: id, touch: touch}
}

func (s *tableSpec[T]) sortedIDs() []string {
	ids := make([]string, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Table коллекция, привязанная к транзакции. Все чтения возвращают копии.
type Table[T entity[T]] struct {
	tx   *Tx
	spec *tableSpec[T]
}

// GetAll возвращает все сущности коллекции
func (t *Table[T]) GetAll() []T {
	return t.Query(nil)
}

// GetByID возвращает сущность по ID
func (t *Table[T]) GetByID(id string) (T, error) {
	v, ok := t.spec.rows[id]
	if !ok {
		var zero T
		return zero, t.notFound("GetByID", id)
	}
	return v.Clone(), nil
}

// Exists проверяет наличие сущности
func (t *Table[T]) Exists(id string) bool {
	_, ok := t.spec.rows[id]
	return ok
}

// Query возвращает сущности, удовлетворяющие предикату (nil = все), упорядоченные по ID.
// Предикат получает хранимое значение и не должен его изменять.
func (t *Table[T]) Query(pred func(T) bool) []T {
	result := make([]T, 0)
	for _, id := range t.spec.sortedIDs() {
		v := t.spec.rows[id]
		if pred == nil || pred(v) {
			result = append(result, v.Clone())
		}
	}
	return result
}

// Count считает сущности, удовлетворяющие предикату
func (t *Table[T]) Count(pred func(T) bool) int {
	n := 0
	for _, v := range t.spec.rows {
		if pred == nil || pred(v) {
			n++
		}
	}
	return n
}

// Create сохраняет новую сущность, назначая ID если он пуст
func (t *Table[T]) Create(v T) (T, error) {
	var zero T
	if err := t.tx.requireWritable("Create"); err != nil {
		return zero, err
	}

	stored := v.Clone()
	idPtr := t.spec.id(&stored)
	if *idPtr == "" {
		*idPtr = t.tx.store.newID()
	}
	id := *idPtr
	if _, exists := t.spec.rows[id]; exists {
		return zero, model.NewDomainError(string(t.spec.name), "Create", model.ErrInvalidArgument,
			fmt.Sprintf("id %s already exists", id))
	}
	if t.spec.touch != nil {
		t.spec.touch(&stored, t.tx.now, true)
	}

	t.spec.rows[id] = stored
	t.tx.journal(func() { delete(t.spec.rows, id) })
	t.tx.record(Change{Collection: t.spec.name, ID: id, Op: OpPut, Value: stored.Clone()})

	return stored.Clone(), nil
}

// Update применяет patch к копии сущности и сохраняет результат.
// Ошибка из patch отменяет изменение.
func (t *Table[T]) Update(id string, patch func(*T) error) (T, error) {
	var zero T
	if err := t.tx.requireWritable("Update"); err != nil {
		return zero, err
	}

	prev, ok := t.spec.rows[id]
	if !ok {
		return zero, t.notFound("Update", id)
	}

	next := prev.Clone()
	if err := patch(&next); err != nil {
		return zero, err
	}
	// ID неизменяем
	*t.spec.id(&next) = id
	if t.spec.touch != nil {
		t.spec.touch(&next, t.tx.now, false)
	}

	t.spec.rows[id] = next
	t.tx.journal(func() { t.spec.rows[id] = prev })
	t.tx.record(Change{Collection: t.spec.name, ID: id, Op: OpPut, Value: next.Clone()})

	return next.Clone(), nil
}

// Delete физически удаляет сущность
func (t *Table[T]) Delete(id string) error {
	if err := t.tx.requireWritable("Delete"); err != nil {
		return err
	}

	prev, ok := t.spec.rows[id]
	if !ok {
		return t.notFound("Delete", id)
	}

	delete(t.spec.rows, id)
	t.tx.journal(func() { t.spec.rows[id] = prev })
	t.tx.record(Change{Collection: t.spec.name, ID: id, Op: OpDelete})

	return nil
}

func (t *Table[T]) notFound(op, id string) error {
	return model.NewDomainError(string(t.spec.name), op, model.ErrNotFound, fmt.Sprintf("%s not found", id))
}
