package requestresponse

import "community-platform/internal/model"

// LoginRequest : тело запроса на аутентификацию
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=254" example:"a@x.com"`
	Password string `json:"password" validate:"required" example:"secret1"`
}

// LoginData : данные успешной аутентификации
type LoginData struct {
	AccessToken  string      `json:"accessToken" example:"eyJhbGciOiJIUzUxMiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string      `json:"refreshToken" example:"vcSi0369y1I62wOpxZFpgZ..."`
	User         *model.User `json:"user"`
}

// LogoutRequest : refresh токен необязателен
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken" example:"vcSi0369y1I62wOpxZFpgZ..."`
}

// RefreshTokenRequest : запрос на обновление пары токенов
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required" example:"vcSi0369y1I62wOpxZFpgZ..."`
}

// ChangePasswordRequest : смена пароля авторизованным пользователем
type ChangePasswordRequest struct {
	Email       string `json:"email" validate:"required,max=254" example:"a@x.com"`
	Password    string `json:"password" validate:"required" example:"secret1"`
	NewPassword string `json:"newPassword" validate:"required" example:"secret2"`
}

// ResetPasswordRequest : сброс пароля по одноразовому токену
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required,max=128" example:"3f9a0c..."`
	NewPassword string `json:"newPassword" validate:"required" example:"secret2"`
}

// VerifyResetTokenRequest : проверка токена сброса пароля
type VerifyResetTokenRequest struct {
	Token string `json:"token" validate:"required,max=128" example:"3f9a0c..."`
}

// VerifyResetTokenData : имя пользователя, которому принадлежит токен
type VerifyResetTokenData struct {
	Username string `json:"username" example:"user1"`
}
