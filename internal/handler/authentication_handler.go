package handler

import (
	"community-platform/internal/model/requestresponse"
	"community-platform/internal/ports"
	"community-platform/internal/security"
	"community-platform/internal/util"
	"net/http"
)

type AuthenticationHandler struct {
	ports.AuthenticationService
}

func NewAuthenticationHandler(authenticationService ports.AuthenticationService) *AuthenticationHandler {
	return &AuthenticationHandler{authenticationService}
}

// Login godoc
// @Summary Вход по email и паролю
// @Description Отзывает все прежние сессии пользователя и выдает новую пару токенов
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.LoginRequest true "Тело запроса"
// @Success 200 {object} requestresponse.Response{data=requestresponse.LoginData}
// @Failure 400 {object} requestresponse.ErrorResponse "Некорректный JSON или пустые поля"
// @Failure 401 {object} requestresponse.ErrorResponse "Неверный email или пароль"
// @Failure 403 {object} requestresponse.ErrorResponse "Аккаунт заблокирован"
// @Failure 429 {object} requestresponse.ErrorResponse "Слишком много попыток"
// @Failure 500 {object} requestresponse.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/auth/login [post]
func (h *AuthenticationHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.AuthenticationService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	util.WriteSuccess(w, http.StatusOK, requestresponse.LoginData{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		User:         result.User,
	}, "")
}

// Logout godoc
// @Summary Выход
// @Description Отзывает переданный refresh токен, а без него все сессии владельца access токена. Всегда отвечает успехом.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param Authorization header string false "Bearer токен" default(Bearer <access_token>)
// @Param body body requestresponse.LogoutRequest false "Тело запроса"
// @Success 200 {object} requestresponse.Response
// @Router /api/auth/logout [post]
func (h *AuthenticationHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.LogoutRequest
	if !decodeOptionalJSON(r, &req) {
		req = requestresponse.LogoutRequest{}
	}

	accessToken, _ := security.BearerToken(r)
	h.AuthenticationService.Logout(r.Context(), req.RefreshToken, accessToken)

	util.WriteSuccess(w, http.StatusOK, nil, "выход выполнен")
}

// Refresh godoc
// @Summary Обновление токенов
// @Description Обменивает действующий refresh токен на новую пару. Старый токен после этого недействителен.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.RefreshTokenRequest true "Тело запроса"
// @Success 200 {object} requestresponse.Response{data=model.TokensPair}
// @Failure 400 {object} requestresponse.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} requestresponse.ErrorResponse "Токен недействителен или уже ротирован"
// @Failure 500 {object} requestresponse.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/auth/refresh [post]
func (h *AuthenticationHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.RefreshTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tokens, err := h.AuthenticationService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	util.WriteSuccess(w, http.StatusOK, tokens, "")
}

// ChangePassword godoc
// @Summary Смена пароля
// @Description Требует access токен, email владельца и текущий пароль. Сессии не отзываются.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Param body body requestresponse.ChangePasswordRequest true "Тело запроса"
// @Success 200 {object} requestresponse.Response
// @Failure 400 {object} requestresponse.ErrorResponse "Пароль короче 6 символов"
// @Failure 401 {object} requestresponse.ErrorResponse "Не авторизован или неверный пароль"
// @Failure 500 {object} requestresponse.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/auth/change-password [post]
func (h *AuthenticationHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req requestresponse.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err = h.AuthenticationService.ChangePassword(r.Context(), claims.UserID, req.Email, req.Password, req.NewPassword)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	util.WriteSuccess(w, http.StatusOK, nil, "пароль изменен")
}

// ResetPassword godoc
// @Summary Сброс пароля
// @Description Устанавливает новый пароль по одноразовому токену и отзывает все сессии пользователя
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.ResetPasswordRequest true "Тело запроса"
// @Success 200 {object} requestresponse.Response
// @Failure 400 {object} requestresponse.ErrorResponse "Пароль короче 6 символов"
// @Failure 401 {object} requestresponse.ErrorResponse "Токен использован или просрочен"
// @Failure 500 {object} requestresponse.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/auth/reset-password [post]
func (h *AuthenticationHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.AuthenticationService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}

	util.WriteSuccess(w, http.StatusOK, nil, "пароль обновлен")
}

// VerifyResetToken godoc
// @Summary Проверка токена сброса пароля
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.VerifyResetTokenRequest true "Тело запроса"
// @Success 200 {object} requestresponse.Response{data=requestresponse.VerifyResetTokenData}
// @Failure 400 {object} requestresponse.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} requestresponse.ErrorResponse "Токен использован или просрочен"
// @Router /api/auth/verify-reset-token [post]
func (h *AuthenticationHandler) VerifyResetToken(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.VerifyResetTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	username, err := h.AuthenticationService.VerifyResetToken(r.Context(), req.Token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	util.WriteSuccess(w, http.StatusOK, requestresponse.VerifyResetTokenData{Username: username}, "")
}
