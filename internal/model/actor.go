package model

// SystemUserID идентификатор фоновых задач
const SystemUserID = "system"

// Actor текущий пользователь, от имени которого выполняется команда.
// Передаётся явно в каждую команду, ядро его не хранит.
type Actor struct {
	UserID string
	Role   Role
}

// SystemActor актор для фоновых задач (автозавершение занятий)
func SystemActor() Actor {
	return Actor{UserID: SystemUserID, Role: RoleCoordinator}
}

func (a Actor) IsStudent() bool     { return a.Role == RoleStudent }
func (a Actor) IsTutor() bool       { return a.Role == RoleTutor }
func (a Actor) IsCoordinator() bool { return a.Role == RoleCoordinator }

// Is проверяет что актор это указанный пользователь
func (a Actor) Is(userID string) bool {
	return a.UserID != "" && a.UserID == userID
}
