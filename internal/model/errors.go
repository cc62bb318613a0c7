package model

import "errors"

var (
	// ошибки уровня репозиториев
	ErrNotFound      = errors.New("запись не найдена")
	ErrConflict      = errors.New("запись уже существует")
	ErrTokenNotValid = errors.New("токен уже использован, отозван или просрочен")

	// ошибки уровня сервисов
	ErrInvalidCredentials = errors.New("неверный email или пароль")
	ErrInvalidToken       = errors.New("невалидный токен")
	ErrUnauthorized       = errors.New("пользователь не авторизован")
	ErrValidation         = errors.New("ошибка валидации")
	ErrForbidden          = errors.New("доступ запрещён")
	ErrAccountBlocked     = errors.New("аккаунт заблокирован")
	ErrSession            = errors.New("не удалось обновить сессию")
)
