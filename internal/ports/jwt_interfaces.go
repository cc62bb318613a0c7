package ports

import (
	"community-platform/internal/model"
	"community-platform/internal/security"
	"context"
	"time"
)

// RefreshTokenRepository : хранилище refresh токенов, ключ: SHA-256 от токена
type RefreshTokenRepository interface {
	Save(ctx context.Context, exec Executor, userID int64, tokenHash string, expiresAt time.Time) (*model.RefreshToken, error)
	FindValid(ctx context.Context, exec Executor, tokenHash string) (*model.RefreshToken, error)
	Rotate(ctx context.Context, exec Executor, oldTokenHash, newTokenHash string, newExpiresAt time.Time) (*model.RefreshToken, error)
	Revoke(ctx context.Context, exec Executor, tokenHash string) (bool, error)
	RevokeAll(ctx context.Context, exec Executor, userID int64) (bool, error)
	DeleteExpired(ctx context.Context, exec Executor) (int64, error)
}

type PasswordResetRepository interface {
	FindValidForUpdate(ctx context.Context, exec Executor, token string) (*model.PasswordResetToken, error)
	FindOwnerUsername(ctx context.Context, exec Executor, token string) (string, error)
	MarkUsed(ctx context.Context, exec Executor, id int64) error
}

type JWTServiceInterface interface {
	IssueTokenPair(userID int64) (*model.TokensPair, time.Time, error)
	VerifyAccessToken(tokenStr string) (*security.Claims, error)
}
