package util

import (
	"community-platform/internal/model/requestresponse"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

func WriteJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("ошибка кодирования ответа", zap.Error(err))
	}
}

func WriteSuccess(w http.ResponseWriter, statusCode int, data interface{}, message string) {
	WriteJSON(w, statusCode, requestresponse.Response{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// HandleError : ответ с ошибкой в общем конверте
func HandleError(w http.ResponseWriter, statusCode int, code string, message string) {
	WriteJSON(w, statusCode, requestresponse.Response{
		Success: false,
		Error:   code,
		Message: message,
	})
}
