package util

import (
	"crypto/rand"
	"fmt"
)

// RandomBytes : n криптографически случайных байт
func RandomBytes(n int) ([]byte, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return nil, fmt.Errorf("[util] ошибка генерации случайных байт: %w", err)
	}
	return bytes, nil
}
