package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"go.uber.org/zap"
)

// RegisterUserInput данные нового пользователя. Поля профиля берутся по роли.
type RegisterUserInput struct {
	Username       string     `validate:"required,max=64"`
	DisplayName    string     `validate:"max=128"`
	Email          string     `validate:"omitempty,email"`
	Role           model.Role `validate:"required,oneof=student tutor coordinator"`
	TelegramChatID *int64

	Grade      string
	School     string
	Subjects   []string `validate:"dive,required"`
	Bio        string
	Department string
}

type UserService struct {
	store  *repository.Store
	logger *zap.Logger
}

func NewUserService(store *repository.Store, logger *zap.Logger) *UserService {
	return &UserService{
		store:  store,
		logger: logger,
	}
}

// Register создаёт пользователя с профилем, соответствующим роли
func (s *UserService) Register(ctx context.Context, in RegisterUserInput) (*model.User, error) {
	const op = "Register"

	if err := validateInput("user", op, in); err != nil {
		return nil, err
	}

	var user model.User
	switch in.Role {
	case model.RoleStudent:
		user = model.NewStudent(in.Username, in.DisplayName, in.Email, model.StudentProfile{Grade: in.Grade, School: in.School})
	case model.RoleTutor:
		user = model.NewTutor(in.Username, in.DisplayName, in.Email, model.TutorProfile{Subjects: in.Subjects, Bio: in.Bio})
	case model.RoleCoordinator:
		user = model.NewCoordinator(in.Username, in.DisplayName, in.Email, model.CoordinatorProfile{Department: in.Department})
	}
	user.TelegramChatID = in.TelegramChatID

	if err := user.Validate(); err != nil {
		return nil, err
	}

	err := s.store.Update(ctx, func(tx *repository.Tx) error {
		taken := tx.Users().Count(func(u model.User) bool { return u.Username == in.Username })
		if taken > 0 {
			return model.NewDomainError("user", op, model.ErrInvalidArgument,
				fmt.Sprintf("username %s is taken", in.Username))
		}

		var err error
		user, err = tx.Users().Create(user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("New user registered",
		zap.String("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)),
	)

	return &user, nil
}

// GetByID получает пользователя по ID
func (s *UserService) GetByID(ctx context.Context, userID string) (*model.User, error) {
	var user model.User
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		var err error
		user, err = tx.Users().GetByID(userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListByRole возвращает пользователей с указанной ролью
func (s *UserService) ListByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	var users []model.User
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		users = tx.Users().Query(func(u model.User) bool { return u.Role == role })
		return nil
	})
	return users, err
}

// LinkTelegram привязывает Telegram чат для уведомлений
func (s *UserService) LinkTelegram(ctx context.Context, userID string, chatID int64) error {
	err := s.store.Update(ctx, func(tx *repository.Tx) error {
		_, err := tx.Users().Update(userID, func(u *model.User) error {
			u.TelegramChatID = &chatID
			return nil
		})
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("Telegram chat linked",
		zap.String("user_id", userID),
		zap.Int64("chat_id", chatID),
	)
	return nil
}

// TelegramChatID возвращает чат пользователя для уведомлений
func (s *UserService) TelegramChatID(ctx context.Context, userID string) (int64, bool) {
	var chatID *int64
	_ = s.store.View(ctx, func(tx *repository.Tx) error {
		if u, err := tx.Users().GetByID(userID); err == nil {
			chatID = u.TelegramChatID
		}
		return nil
	})
	if chatID == nil {
		return 0, false
	}
	return *chatID, true
}
