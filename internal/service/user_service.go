package service

import (
	"community-platform/internal/metrics"
	"community-platform/internal/model"
	"community-platform/internal/ports"
	"community-platform/internal/security"
	"community-platform/internal/util"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type UserService struct {
	db            ports.Executor
	tx            ports.Transactor
	users         ports.UserRepository
	refreshTokens ports.RefreshTokenRepository
	cache         ports.CacheRepository
	validate      *validator.Validate
}

func NewUserService(
	db ports.Executor,
	tx ports.Transactor,
	users ports.UserRepository,
	refreshTokens ports.RefreshTokenRepository,
	cache ports.CacheRepository,
) *UserService {
	return &UserService{
		db:            db,
		tx:            tx,
		users:         users,
		refreshTokens: refreshTokens,
		cache:         cache,
		validate:      validator.New(),
	}
}

// Register : создает пользователя с ролью user, занятые email или username дают model.ErrConflict
func (s *UserService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)

	if err := s.validate.Var(username, "required,alphanum,min=3,max=32"); err != nil {
		return nil, fmt.Errorf("%w: имя пользователя должно содержать от 3 до 32 латинских букв или цифр", model.ErrValidation)
	}
	if err := s.validate.Var(email, "required,email,max=254"); err != nil {
		return nil, fmt.Errorf("%w: некорректный email", model.ErrValidation)
	}
	if err := security.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, util.LogError("[UserService] не удалось создать хэш пароля", err)
	}

	created, err := s.users.CreateUser(ctx, s.db, &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
	})
	if errors.Is(err, model.ErrConflict) {
		return nil, err
	}
	if err != nil {
		return nil, util.LogError("[UserService] ошибка создания пользователя", err)
	}

	zap.L().Info("зарегистрирован пользователь", zap.Int64("user_id", created.ID))

	return created.Sanitized(), nil
}

// GetCurrentUser : профиль сначала ищется в Redis, промах дочитывается из БД
func (s *UserService) GetCurrentUser(ctx context.Context, userID int64) (*model.User, error) {
	cached, err := s.cache.GetUser(ctx, userID)
	switch {
	case err != nil:
		metrics.UserCacheRequestsTotal.WithLabelValues("error").Inc()
		zap.L().Warn("кэш профилей недоступен", zap.Error(err))
	case cached != nil:
		metrics.UserCacheRequestsTotal.WithLabelValues("hit").Inc()
		return cached, nil
	default:
		metrics.UserCacheRequestsTotal.WithLabelValues("miss").Inc()
	}

	user, err := s.users.FindByID(ctx, s.db, userID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, util.LogError("[UserService] ошибка получения пользователя", err)
	}

	if err := s.cache.SetUser(ctx, user); err != nil {
		zap.L().Warn("не удалось сохранить профиль в кэш", zap.Int64("user_id", userID), zap.Error(err))
	}

	return user.Sanitized(), nil
}

// SetBlocked : блокировка доступна модераторам и администраторам.
// Заблокированный пользователь теряет все refresh токены в той же транзакции,
// выданные ему access токены доживают до истечения срока.
func (s *UserService) SetBlocked(ctx context.Context, actorID, targetID int64, blocked bool) error {
	if actorID == targetID {
		return fmt.Errorf("%w: нельзя изменить блокировку своей учетной записи", model.ErrValidation)
	}

	actor, err := s.users.FindByID(ctx, s.db, actorID)
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrForbidden
	}
	if err != nil {
		return util.LogError("[UserService] ошибка поиска модератора", err)
	}
	if actor.Blocked || !actor.CanModerate() {
		return model.ErrForbidden
	}

	exec, rollback, commit, err := s.tx.BeginTX(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rollback() }()

	target, err := s.users.FindByID(ctx, exec, targetID)
	if errors.Is(err, model.ErrNotFound) {
		return err
	}
	if err != nil {
		return util.LogError("[UserService] ошибка поиска пользователя", err)
	}
	if target.Role == model.RoleAdmin && actor.Role != model.RoleAdmin {
		return model.ErrForbidden
	}

	if err := s.users.UpdateBlockedStatus(ctx, exec, targetID, blocked); err != nil {
		return util.LogError("[UserService] не удалось изменить блокировку", err)
	}
	if blocked {
		if _, err := s.refreshTokens.RevokeAll(ctx, exec, targetID); err != nil {
			return util.LogError("[UserService] не удалось отозвать сессии заблокированного пользователя", err)
		}
	}

	if err := commit(); err != nil {
		return util.LogError("[UserService] ошибка фиксации блокировки", err)
	}

	if err := s.cache.DeleteUser(ctx, targetID); err != nil {
		zap.L().Warn("не удалось сбросить профиль из кэша", zap.Int64("user_id", targetID), zap.Error(err))
	}
	zap.L().Info("изменена блокировка пользователя",
		zap.Int64("actor_id", actorID), zap.Int64("user_id", targetID), zap.Bool("blocked", blocked))

	return nil
}
