package model

import (
	"slices"
	"time"
)

type Role string

const (
	RoleStudent     Role = "student"
	RoleTutor       Role = "tutor"
	RoleCoordinator Role = "coordinator"
)

// IsValid проверяет что роль известна
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleTutor, RoleCoordinator:
		return true
	}
	return false
}

// Identity общая часть всех пользователей
type Identity struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	Email          string `json:"email"`
	Role           Role   `json:"role"`
	TelegramChatID *int64 `json:"telegram_chat_id,omitempty"` // куда слать уведомления, может быть nil
}

type StudentProfile struct {
	Grade  string `json:"grade"`
	School string `json:"school"`
}

type TutorProfile struct {
	Subjects []string `json:"subjects"`
	Bio      string   `json:"bio"`
}

type CoordinatorProfile struct {
	Department string `json:"department"`
}

// User пользователь платформы. Заполнен ровно один профиль, соответствующий Role.
type User struct {
	Identity

	Student     *StudentProfile     `json:"student,omitempty"`
	Tutor       *TutorProfile       `json:"tutor,omitempty"`
	Coordinator *CoordinatorProfile `json:"coordinator,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewStudent создаёт студента
func NewStudent(username, displayName, email string, profile StudentProfile) User {
	return User{
		Identity: Identity{Username: username, DisplayName: displayName, Email: email, Role: RoleStudent},
		Student:  &profile,
	}
}

// NewTutor создаёт репетитора
func NewTutor(username, displayName, email string, profile TutorProfile) User {
	return User{
		Identity: Identity{Username: username, DisplayName: displayName, Email: email, Role: RoleTutor},
		Tutor:    &profile,
	}
}

// NewCoordinator создаёт координатора
func NewCoordinator(username, displayName, email string, profile CoordinatorProfile) User {
	return User{
		Identity:    Identity{Username: username, DisplayName: displayName, Email: email, Role: RoleCoordinator},
		Coordinator: &profile,
	}
}

// Validate проверяет что профиль соответствует роли
func (u *User) Validate() error {
	if u.Username == "" {
		return NewDomainError("user", "Validate", ErrInvalidArgument, "username is required")
	}
	if !u.Role.IsValid() {
		return NewDomainError("user", "Validate", ErrInvalidArgument, "unknown role "+string(u.Role))
	}

	set := 0
	for _, p := range []bool{u.Student != nil, u.Tutor != nil, u.Coordinator != nil} {
		if p {
			set++
		}
	}
	ok := set == 1 &&
		(u.Role != RoleStudent || u.Student != nil) &&
		(u.Role != RoleTutor || u.Tutor != nil) &&
		(u.Role != RoleCoordinator || u.Coordinator != nil)
	if !ok {
		return NewDomainError("user", "Validate", ErrInvalidArgument, "profile does not match role "+string(u.Role))
	}
	return nil
}

// Name возвращает отображаемое имя, а при его отсутствии username
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// Actor возвращает идентичность пользователя для передачи в команды
func (u *User) Actor() Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}

func (u User) Clone() User {
	if u.TelegramChatID != nil {
		id := *u.TelegramChatID
		u.TelegramChatID = &id
	}
	if u.Student != nil {
		p := *u.Student
		u.Student = &p
	}
	if u.Tutor != nil {
		p := *u.Tutor
		p.Subjects = slices.Clone(p.Subjects)
		u.Tutor = &p
	}
	if u.Coordinator != nil {
		p := *u.Coordinator
		u.Coordinator = &p
	}
	return u
}
