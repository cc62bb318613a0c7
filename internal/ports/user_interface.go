package ports

import (
	"community-platform/internal/model"
	"context"

	"github.com/jmoiron/sqlx"
)

// Executor : *sqlx.DB или *sqlx.Tx
type Executor = sqlx.ExtContext

type UserRepository interface {
	CreateUser(ctx context.Context, exec Executor, user *model.User) (*model.User, error)
	FindByID(ctx context.Context, exec Executor, id int64) (*model.User, error)
	FindByEmail(ctx context.Context, exec Executor, email string) (*model.User, error)
	LockForUpdate(ctx context.Context, exec Executor, id int64) error
	UpdatePasswordHash(ctx context.Context, exec Executor, id int64, passwordHash string) error
	UpdateBlockedStatus(ctx context.Context, exec Executor, id int64, blocked bool) error
}

type UserService interface {
	Register(ctx context.Context, username, email, password string) (*model.User, error)
	GetCurrentUser(ctx context.Context, userID int64) (*model.User, error)
	SetBlocked(ctx context.Context, actorID, targetID int64, blocked bool) error
}
