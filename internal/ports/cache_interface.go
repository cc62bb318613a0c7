package ports

import (
	"community-platform/internal/model"
	"context"
)

// CacheRepository : Redis слой для профилей пользователей
type CacheRepository interface {
	SetUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id int64) (*model.User, error)
	DeleteUser(ctx context.Context, id int64) error
}
