package security

import (
	"community-platform/internal/model"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 6
	// bcrypt учитывает только первые 72 байта
	maxPasswordBytes = 72
)

var bcryptCost = bcrypt.DefaultCost

// SetBcryptCost : стоимость хэширования из конфигурации, 0 оставляет значение по умолчанию
func SetBcryptCost(cost int) error {
	if cost == 0 {
		return nil
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost должен быть в диапазоне [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	bcryptCost = cost
	return nil
}

// ValidatePassword : политика пароля, общая для регистрации, смены и сброса
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("%w: пароль должен содержать минимум %d символов", model.ErrValidation, MinPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: пароль должен быть не длиннее %d байт", model.ErrValidation, maxPasswordBytes)
	}
	return nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("ошибка хэширования пароля: %w", err)
	}
	return string(hash), nil
}

// CheckPassword : false и для неверного пароля, и для повреждённого хэша
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
