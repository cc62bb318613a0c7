package requestresponse

const (
	CodeInvalidRequest     = "VALIDATION_ERROR"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeSession            = "SESSION_ERROR"
	CodeForbidden          = "FORBIDDEN"
	CodeAccountBlocked     = "ACCOUNT_BLOCKED"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeInternal           = "INTERNAL_ERROR"
)

// Response : общий конверт всех ответов API
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty" example:"INVALID_TOKEN"`
	Message string      `json:"message,omitempty" example:"Операция выполнена успешно"`
}

// ErrorResponse : конверт ответа с ошибкой (для документации)
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error" example:"VALIDATION_ERROR"`
	Message string `json:"message" example:"описание ошибки"`
}
