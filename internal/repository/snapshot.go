package repository

import (
	"encoding/json"
	"fmt"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

// Snapshot плоское представление состояния: по одной коллекции на тип сущности,
// сущности по ключу ID. Сериализуется в JSON и подходит для любого долговременного хранилища.
type Snapshot struct {
	Users         map[string]model.User                `json:"users"`
	Slots         map[string]model.AvailabilitySlot    `json:"slots"`
	Sessions      map[string]model.Session             `json:"sessions"`
	Periods       map[string]model.TeachingPeriod      `json:"teaching_periods"`
	Registrations map[string]model.ProgramRegistration `json:"program_registrations"`
	TutorRequests map[string]model.TutorRequest        `json:"tutor_requests"`
	Documents     map[string]model.Document            `json:"documents"`
}

// NewSnapshot создаёт пустой снимок
func NewSnapshot() Snapshot {
	return Snapshot{
		Users:         make(map[string]model.User),
		Slots:         make(map[string]model.AvailabilitySlot),
		Sessions:      make(map[string]model.Session),
		Periods:       make(map[string]model.TeachingPeriod),
		Registrations: make(map[string]model.ProgramRegistration),
		TutorRequests: make(map[string]model.TutorRequest),
		Documents:     make(map[string]model.Document),
	}
}

// Put декодирует JSON сущности и кладёт её в коллекцию
func (s *Snapshot) Put(collection Collection, id string, body []byte) error {
	switch collection {
	case CollectionUsers:
		return putJSON(s.Users, id, body)
	case CollectionSlots:
		return putJSON(s.Slots, id, body)
	case CollectionSessions:
		return putJSON(s.Sessions, id, body)
	case CollectionPeriods:
		return putJSON(s.Periods, id, body)
	case CollectionRegistrations:
		return putJSON(s.Registrations, id, body)
	case CollectionTutorRequests:
		return putJSON(s.TutorRequests, id, body)
	case CollectionDocuments:
		return putJSON(s.Documents, id, body)
	default:
		return fmt.Errorf("unknown collection %q", collection)
	}
}

// Len общее количество сущностей
func (s *Snapshot) Len() int {
	return len(s.Users) + len(s.Slots) + len(s.Sessions) + len(s.Periods) +
		len(s.Registrations) + len(s.TutorRequests) + len(s.Documents)
}

func putJSON[T any](m map[string]T, id string, body []byte) error {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("decode %s: %w", id, err)
	}
	m[id] = v
	return nil
}

func fill[T entity[T]](spec *tableSpec[T], rows map[string]T) {
	for id, v := range rows {
		stored := v.Clone()
		*spec.id(&stored) = id
		spec.rows[id] = stored
	}
}

func dump[T entity[T]](spec *tableSpec[T]) map[string]T {
	rows := make(map[string]T, len(spec.rows))
	for id, v := range spec.rows {
		rows[id] = v.Clone()
	}
	return rows
}

// WithSnapshot загружает начальное состояние из снимка
func WithSnapshot(snap Snapshot) Option {
	return func(s *Store) {
		fill(s.state.users, snap.Users)
		fill(s.state.slots, snap.Slots)
		fill(s.state.sessions, snap.Sessions)
		fill(s.state.periods, snap.Periods)
		fill(s.state.registrations, snap.Registrations)
		fill(s.state.tutorRequests, snap.TutorRequests)
		fill(s.state.documents, snap.Documents)
	}
}

// Snapshot возвращает копию текущего состояния
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Users:         dump(s.state.users),
		Slots:         dump(s.state.slots),
		Sessions:      dump(s.state.sessions),
		Periods:       dump(s.state.periods),
		Registrations: dump(s.state.registrations),
		TutorRequests: dump(s.state.tutorRequests),
		Documents:     dump(s.state.documents),
	}
}
