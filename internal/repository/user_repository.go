package repository

import (
	"community-platform/internal/model"
	"community-platform/internal/util"
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	userColumns = `id, username, email, password_hash, role, blocked, email_verified, points, created_at, updated_at`

	uniqueViolation = "23505"
)

type UserRepository struct{}

func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

// CreateUser : сохраняет нового пользователя, занятый email или username дает model.ErrConflict
func (r *UserRepository) CreateUser(ctx context.Context, exec sqlx.ExtContext, user *model.User) (*model.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	role := user.Role
	if role == "" {
		role = model.RoleUser
	}

	var created model.User
	err := sqlx.GetContext(ctx, exec, &created, query, user.Username, user.Email, user.PasswordHash, role)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, model.ErrConflict
		}
		return nil, util.LogError("[UserRepo] ошибка вставки данных в БД", err)
	}

	return &created, nil
}

// FindByID : ищет пользователя по id
func (r *UserRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	var user model.User
	err := sqlx.GetContext(ctx, exec, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, util.LogError("[UserRepo] не удалось найти пользователя в БД", err)
	}
	return &user, nil
}

// FindByEmail : email хранится в нижнем регистре
func (r *UserRepository) FindByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	var user model.User
	err := sqlx.GetContext(ctx, exec, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, util.LogError("[UserRepo] не удалось найти пользователя по email", err)
	}
	return &user, nil
}

// LockForUpdate : блокирует строку пользователя до конца транзакции, exec должен быть транзакцией
func (r *UserRepository) LockForUpdate(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	query := `SELECT id FROM users WHERE id = $1 FOR UPDATE`
	var locked int64
	err := sqlx.GetContext(ctx, exec, &locked, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	if err != nil {
		return util.LogError("[UserRepo] не удалось заблокировать строку пользователя", err)
	}
	return nil
}

// UpdatePasswordHash : меняет хэш пароля пользователя
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, exec sqlx.ExtContext, id int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	return r.updateOne(ctx, exec, "[UserRepo] не удалось обновить пароль", query, id, passwordHash)
}

// UpdateBlockedStatus : блокировка или разблокировка пользователя
func (r *UserRepository) UpdateBlockedStatus(ctx context.Context, exec sqlx.ExtContext, id int64, blocked bool) error {
	query := `UPDATE users SET blocked = $2, updated_at = NOW() WHERE id = $1`
	return r.updateOne(ctx, exec, "[UserRepo] не удалось обновить статус блокировки", query, id, blocked)
}

func (r *UserRepository) updateOne(ctx context.Context, exec sqlx.ExtContext, message, query string, args ...any) error {
	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return util.LogError(message, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return util.LogError(message, err)
	}
	if rowsAffected == 0 {
		return model.ErrNotFound
	}

	return nil
}
