package requestresponse

// RegisterRequest : тело запроса регистрации
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum" example:"newuser123"`
	Email    string `json:"email" validate:"required,email,max=254" example:"a@x.com"`
	Password string `json:"password" validate:"required" example:"secret1"`
}

// SetBlockedRequest : блокировка или разблокировка пользователя модератором
type SetBlockedRequest struct {
	Blocked *bool `json:"blocked" validate:"required" example:"true"`
}

// SetBlockedData : итоговое состояние блокировки
type SetBlockedData struct {
	UserID  int64 `json:"id" example:"42"`
	Blocked bool  `json:"blocked" example:"true"`
}
