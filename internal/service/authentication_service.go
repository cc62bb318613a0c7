package service

import (
	"community-platform/internal/metrics"
	"community-platform/internal/model"
	"community-platform/internal/ports"
	"community-platform/internal/security"
	"community-platform/internal/util"
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

type AuthenticationService struct {
	db            ports.Executor
	tx            ports.Transactor
	users         ports.UserRepository
	refreshTokens ports.RefreshTokenRepository
	resetTokens   ports.PasswordResetRepository
	jwtService    ports.JWTServiceInterface
	cache         ports.CacheRepository
}

func NewAuthenticationService(
	db ports.Executor,
	tx ports.Transactor,
	users ports.UserRepository,
	refreshTokens ports.RefreshTokenRepository,
	resetTokens ports.PasswordResetRepository,
	jwtService ports.JWTServiceInterface,
	cache ports.CacheRepository,
) *AuthenticationService {
	return &AuthenticationService{
		db:            db,
		tx:            tx,
		users:         users,
		refreshTokens: refreshTokens,
		resetTokens:   resetTokens,
		jwtService:    jwtService,
		cache:         cache,
	}
}

// Login выполняет вход по email и паролю.
//
// Неизвестный email и неверный пароль дают одну и ту же ошибку model.ErrInvalidCredentials,
// чтобы по ответу нельзя было перебирать зарегистрированные адреса.
// Блокировка проверяется только после верного пароля.
//
// При успехе все прежние refresh токены пользователя отзываются и в той же
// транзакции сохраняется новый, так что после входа у пользователя ровно одна
// действующая сессия.
//
// Возвращает:
//   - пару токенов и профиль без хэша пароля
//   - model.ErrInvalidCredentials, model.ErrAccountBlocked или внутреннюю ошибку
func (s *AuthenticationService) Login(ctx context.Context, email, password string) (result *model.LoginResult, err error) {
	defer func() {
		metrics.ObserveAuth("login", err, model.ErrInvalidCredentials, model.ErrAccountBlocked)
	}()

	user, err := s.users.FindByEmail(ctx, s.db, normalizeEmail(email))
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.ErrInvalidCredentials
	}
	if err != nil {
		return nil, util.LogError("[AuthService] ошибка поиска пользователя", err)
	}

	if !security.CheckPassword(password, user.PasswordHash) {
		return nil, model.ErrInvalidCredentials
	}
	if user.Blocked {
		return nil, model.ErrAccountBlocked
	}

	tokens, refreshExpiresAt, err := s.jwtService.IssueTokenPair(user.ID)
	if err != nil {
		return nil, util.LogError("[AuthService] ошибка генерации токенов", err)
	}

	exec, rollback, commit, err := s.tx.BeginTX(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rollback() }()

	// параллельные входы одного пользователя выполняются по очереди
	if err := s.users.LockForUpdate(ctx, exec, user.ID); err != nil {
		return nil, util.LogError("[AuthService] не удалось заблокировать пользователя", err)
	}
	if _, err := s.refreshTokens.RevokeAll(ctx, exec, user.ID); err != nil {
		return nil, util.LogError("[AuthService] не удалось отозвать прежние сессии", err)
	}
	if _, err := s.refreshTokens.Save(ctx, exec, user.ID, security.HashRefreshToken(tokens.RefreshToken), refreshExpiresAt); err != nil {
		return nil, util.LogError("[AuthService] не удалось сохранить refresh токен", err)
	}

	if err := commit(); err != nil {
		return nil, util.LogError("[AuthService] ошибка фиксации транзакции входа", err)
	}

	zap.L().Info("пользователь вошел", zap.Int64("user_id", user.ID))

	return &model.LoginResult{Tokens: tokens, User: user.Sanitized()}, nil
}

// Refresh обменивает действующий refresh токен на новую пару.
//
// Токен, найденный в хранилище, но не прошедший разбор, считается подделанным
// или поврежденным: запись отзывается. Если токен успели ротировать параллельно,
// возвращается model.ErrSession.
func (s *AuthenticationService) Refresh(ctx context.Context, refreshToken string) (tokens *model.TokensPair, err error) {
	defer func() {
		metrics.ObserveAuth("refresh", err, model.ErrInvalidToken, model.ErrSession)
	}()

	tokenHash := security.HashRefreshToken(refreshToken)

	stored, err := s.refreshTokens.FindValid(ctx, s.db, tokenHash)
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.ErrInvalidToken
	}
	if err != nil {
		return nil, util.LogError("[AuthService] ошибка поиска refresh токена", err)
	}

	if err := security.DecodeRefreshToken(refreshToken); err != nil {
		zap.L().Warn("refresh токен из хранилища не прошел разбор, запись отзывается",
			zap.Int64("user_id", stored.UserID), zap.Error(err))
		if _, revokeErr := s.refreshTokens.Revoke(ctx, s.db, tokenHash); revokeErr != nil {
			zap.L().Error("не удалось отозвать поврежденный refresh токен", zap.Error(revokeErr))
		}
		return nil, model.ErrInvalidToken
	}

	tokens, refreshExpiresAt, err := s.jwtService.IssueTokenPair(stored.UserID)
	if err != nil {
		return nil, util.LogError("[AuthService] ошибка генерации токенов", err)
	}

	exec, rollback, commit, err := s.tx.BeginTX(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rollback() }()

	_, err = s.refreshTokens.Rotate(ctx, exec, tokenHash, security.HashRefreshToken(tokens.RefreshToken), refreshExpiresAt)
	if errors.Is(err, model.ErrTokenNotValid) {
		zap.L().Warn("refresh токен уже ротирован или отозван", zap.Int64("user_id", stored.UserID))
		return nil, model.ErrSession
	}
	if err != nil {
		return nil, util.LogError("[AuthService] ошибка ротации refresh токена", err)
	}

	if err := commit(); err != nil {
		return nil, util.LogError("[AuthService] ошибка фиксации ротации", err)
	}

	return tokens, nil
}

// Logout : отзывает переданный refresh токен, а без него все сессии владельца access токена.
// Клиенту всегда сообщается успех, ошибки только логируются.
func (s *AuthenticationService) Logout(ctx context.Context, refreshToken, accessToken string) {
	var err error
	defer func() { metrics.ObserveAuth("logout", err) }()

	switch {
	case refreshToken != "":
		var found bool
		found, err = s.refreshTokens.Revoke(ctx, s.db, security.HashRefreshToken(refreshToken))
		if err != nil {
			zap.L().Error("ошибка отзыва refresh токена при выходе", zap.Error(err))
			return
		}
		if !found {
			zap.L().Debug("выход с неизвестным refresh токеном")
		}
	case accessToken != "":
		claims, verifyErr := s.jwtService.VerifyAccessToken(accessToken)
		if verifyErr != nil {
			zap.L().Debug("выход с недействительным access токеном", zap.Error(verifyErr))
			return
		}
		if _, err = s.refreshTokens.RevokeAll(ctx, s.db, claims.UserID); err != nil {
			zap.L().Error("ошибка отзыва сессий пользователя при выходе",
				zap.Int64("user_id", claims.UserID), zap.Error(err))
		}
	}
}

// ChangePassword меняет пароль авторизованного пользователя.
//
// Новый пароль проверяется до любых обращений к БД. Email должен принадлежать
// владельцу access токена, а старый пароль должен совпасть, иначе
// model.ErrInvalidCredentials. Действующие сессии не отзываются.
func (s *AuthenticationService) ChangePassword(ctx context.Context, userID int64, email, oldPassword, newPassword string) (err error) {
	defer func() {
		metrics.ObserveAuth("change_password", err, model.ErrValidation, model.ErrInvalidCredentials)
	}()

	if err := security.ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, s.db, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrInvalidCredentials
	}
	if err != nil {
		return util.LogError("[AuthService] ошибка поиска пользователя", err)
	}

	if user.Email != normalizeEmail(email) || !security.CheckPassword(oldPassword, user.PasswordHash) {
		return model.ErrInvalidCredentials
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return util.LogError("[AuthService] не удалось создать хэш пароля", err)
	}

	exec, rollback, commit, err := s.tx.BeginTX(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rollback() }()

	if err := s.users.UpdatePasswordHash(ctx, exec, user.ID, hash); err != nil {
		return util.LogError("[AuthService] не удалось обновить пароль", err)
	}
	if err := commit(); err != nil {
		return util.LogError("[AuthService] ошибка фиксации смены пароля", err)
	}

	s.invalidateUser(ctx, user.ID)
	zap.L().Info("пароль изменен", zap.Int64("user_id", user.ID))

	return nil
}

// ResetPassword : устанавливает новый пароль по одноразовому токену сброса.
// Обновление хэша, погашение токена и отзыв всех сессий выполняются одной транзакцией.
func (s *AuthenticationService) ResetPassword(ctx context.Context, resetToken, newPassword string) (err error) {
	defer func() {
		metrics.ObserveAuth("reset_password", err, model.ErrValidation, model.ErrInvalidToken)
	}()

	if err := security.ValidatePassword(newPassword); err != nil {
		return err
	}
	if resetToken == "" {
		return model.ErrInvalidToken
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return util.LogError("[AuthService] не удалось создать хэш пароля", err)
	}

	exec, rollback, commit, err := s.tx.BeginTX(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rollback() }()

	token, err := s.resetTokens.FindValidForUpdate(ctx, exec, resetToken)
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrInvalidToken
	}
	if err != nil {
		return util.LogError("[AuthService] ошибка поиска токена сброса", err)
	}

	if err := s.users.UpdatePasswordHash(ctx, exec, token.UserID, hash); err != nil {
		return util.LogError("[AuthService] не удалось обновить пароль", err)
	}
	if err := s.resetTokens.MarkUsed(ctx, exec, token.ID); err != nil {
		if errors.Is(err, model.ErrTokenNotValid) {
			return model.ErrInvalidToken
		}
		return util.LogError("[AuthService] не удалось погасить токен сброса", err)
	}
	if _, err := s.refreshTokens.RevokeAll(ctx, exec, token.UserID); err != nil {
		return util.LogError("[AuthService] не удалось отозвать сессии", err)
	}

	if err := commit(); err != nil {
		return util.LogError("[AuthService] ошибка фиксации сброса пароля", err)
	}

	s.invalidateUser(ctx, token.UserID)
	zap.L().Info("пароль сброшен по токену", zap.Int64("user_id", token.UserID))

	return nil
}

// VerifyResetToken : имя владельца действующего токена сброса
func (s *AuthenticationService) VerifyResetToken(ctx context.Context, resetToken string) (string, error) {
	if resetToken == "" {
		return "", model.ErrInvalidToken
	}

	username, err := s.resetTokens.FindOwnerUsername(ctx, s.db, resetToken)
	if errors.Is(err, model.ErrNotFound) {
		return "", model.ErrInvalidToken
	}
	if err != nil {
		return "", util.LogError("[AuthService] ошибка проверки токена сброса", err)
	}

	return username, nil
}

// invalidateUser : ошибка кэша не должна ломать уже зафиксированную операцию
func (s *AuthenticationService) invalidateUser(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteUser(ctx, userID); err != nil {
		zap.L().Warn("не удалось сбросить профиль из кэша", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
