package repository

import (
	"community-platform/internal/model"
	"community-platform/internal/util"
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// PasswordResetRepository : токены сброса пароля создаются внешним сервисом рассылки,
// здесь они только проверяются и погашаются
type PasswordResetRepository struct{}

func NewPasswordResetRepository() *PasswordResetRepository {
	return &PasswordResetRepository{}
}

// FindValidForUpdate : неиспользованный и непросроченный токен, строка блокируется до конца транзакции
func (r *PasswordResetRepository) FindValidForUpdate(ctx context.Context, exec sqlx.ExtContext, token string) (*model.PasswordResetToken, error) {
	query := `
		SELECT id, user_id, token, expires_at, used, used_at, created_at
		FROM password_reset_tokens
		WHERE token = $1 AND used = FALSE AND expires_at > NOW()
		FOR UPDATE`

	var resetToken model.PasswordResetToken
	err := sqlx.GetContext(ctx, exec, &resetToken, query, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, util.LogError("[PasswordResetRepo] ошибка поиска токена сброса", err)
	}

	return &resetToken, nil
}

// FindOwnerUsername : имя владельца действующего токена сброса
func (r *PasswordResetRepository) FindOwnerUsername(ctx context.Context, exec sqlx.ExtContext, token string) (string, error) {
	query := `
		SELECT u.username
		FROM password_reset_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token = $1 AND t.used = FALSE AND t.expires_at > NOW()`

	var username string
	err := sqlx.GetContext(ctx, exec, &username, query, token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", model.ErrNotFound
	}
	if err != nil {
		return "", util.LogError("[PasswordResetRepo] ошибка поиска владельца токена", err)
	}

	return username, nil
}

// MarkUsed : переход used = TRUE необратим
func (r *PasswordResetRepository) MarkUsed(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	query := `UPDATE password_reset_tokens SET used = TRUE, used_at = NOW() WHERE id = $1 AND used = FALSE`

	result, err := exec.ExecContext(ctx, query, id)
	if err != nil {
		return util.LogError("[PasswordResetRepo] не удалось погасить токен сброса", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return util.LogError("[PasswordResetRepo] не удалось проверить погашение токена", err)
	}
	if rowsAffected == 0 {
		return model.ErrTokenNotValid
	}

	return nil
}
