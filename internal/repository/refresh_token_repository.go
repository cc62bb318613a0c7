package repository

import (
	"community-platform/internal/model"
	"community-platform/internal/util"
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

const refreshTokenColumns = `id, user_id, token_hash, expires_at, revoked, revoked_at, created_at`

type RefreshTokenRepository struct{}

func NewRefreshTokenRepository() *RefreshTokenRepository {
	return &RefreshTokenRepository{}
}

// Save : сохраняет новый действующий refresh токен
func (r *RefreshTokenRepository) Save(ctx context.Context, exec sqlx.ExtContext, userID int64, tokenHash string, expiresAt time.Time) (*model.RefreshToken, error) {
	query := `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING ` + refreshTokenColumns

	var token model.RefreshToken
	if err := sqlx.GetContext(ctx, exec, &token, query, userID, tokenHash, expiresAt.UTC()); err != nil {
		return nil, util.LogError("[RefreshTokenRepo] ошибка вставки refresh токена", err)
	}

	return &token, nil
}

// FindValid : ищет токен, который одновременно не отозван и не просрочен.
// Для любого другого состояния возвращает model.ErrNotFound.
func (r *RefreshTokenRepository) FindValid(ctx context.Context, exec sqlx.ExtContext, tokenHash string) (*model.RefreshToken, error) {
	query := `
		SELECT ` + refreshTokenColumns + `
		FROM refresh_tokens
		WHERE token_hash = $1 AND revoked = FALSE AND expires_at > NOW()`

	var token model.RefreshToken
	err := sqlx.GetContext(ctx, exec, &token, query, tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, util.LogError("[RefreshTokenRepo] ошибка поиска refresh токена", err)
	}

	return &token, nil
}

// Rotate : отзывает старый токен и сохраняет новый для того же пользователя.
// Вызывается на транзакции: если старый токен уже не действителен, возвращает
// model.ErrTokenNotValid и ничего не вставляет. Из двух конкурентных ротаций
// одного токена строку обновит только одна, вторая после снятия блокировки
// увидит revoked = TRUE.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, exec sqlx.ExtContext, oldTokenHash, newTokenHash string, newExpiresAt time.Time) (*model.RefreshToken, error) {
	revokeQuery := `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = NOW()
		WHERE token_hash = $1 AND revoked = FALSE AND expires_at > NOW()
		RETURNING user_id`

	var userID int64
	err := sqlx.GetContext(ctx, exec, &userID, revokeQuery, oldTokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrTokenNotValid
	}
	if err != nil {
		return nil, util.LogError("[RefreshTokenRepo] ошибка отзыва токена при ротации", err)
	}

	return r.Save(ctx, exec, userID, newTokenHash, newExpiresAt)
}

// Revoke : помечает токен отозванным, возвращает true, если токен существует
func (r *RefreshTokenRepository) Revoke(ctx context.Context, exec sqlx.ExtContext, tokenHash string) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = COALESCE(revoked_at, NOW())
		WHERE token_hash = $1`

	result, err := exec.ExecContext(ctx, query, tokenHash)
	if err != nil {
		return false, util.LogError("[RefreshTokenRepo] не удалось отозвать токен", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, util.LogError("[RefreshTokenRepo] не удалось проверить, отозван ли токен", err)
	}

	return rowsAffected > 0, nil
}

// RevokeAll : отзывает все действующие токены пользователя
func (r *RefreshTokenRepository) RevokeAll(ctx context.Context, exec sqlx.ExtContext, userID int64) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = NOW()
		WHERE user_id = $1 AND revoked = FALSE`

	result, err := exec.ExecContext(ctx, query, userID)
	if err != nil {
		return false, util.LogError("[RefreshTokenRepo] не удалось отозвать токены пользователя", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, util.LogError("[RefreshTokenRepo] не удалось проверить отзыв токенов", err)
	}

	return rowsAffected > 0, nil
}

// DeleteExpired : удаляет просроченные токены
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, exec sqlx.ExtContext) (int64, error) {
	result, err := exec.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, util.LogError("[RefreshTokenRepo] не удалось удалить просроченные токены", err)
	}

	return result.RowsAffected()
}
