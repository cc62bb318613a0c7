package ports

import (
	"community-platform/internal/model"
	"context"
)

type AuthenticationService interface {
	Login(ctx context.Context, email, password string) (*model.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*model.TokensPair, error)
	Logout(ctx context.Context, refreshToken, accessToken string)
	ChangePassword(ctx context.Context, userID int64, email, oldPassword, newPassword string) error
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	VerifyResetToken(ctx context.Context, resetToken string) (string, error)
}

// Transactor : открывает транзакцию; rollback после commit ничего не делает
type Transactor interface {
	BeginTX(ctx context.Context) (exec Executor, rollback func() error, commit func() error, err error)
}
