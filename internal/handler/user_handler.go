package handler

import (
	"community-platform/internal/model/requestresponse"
	"community-platform/internal/ports"
	"community-platform/internal/security"
	"community-platform/internal/util"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	ports.UserService
}

func NewUserHandler(userService ports.UserService) *UserHandler {
	return &UserHandler{userService}
}

// RegisterUser godoc
// @Summary Регистрация нового пользователя
// @Tags Users
// @Accept json
// @Produce json
// @Param body body requestresponse.RegisterRequest true "Тело запроса"
// @Success 201 {object} requestresponse.Response{data=model.User}
// @Failure 400 {object} requestresponse.ErrorResponse "Некорректные данные"
// @Failure 409 {object} requestresponse.ErrorResponse "Email или имя пользователя заняты"
// @Failure 500 {object} requestresponse.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/register [post]
func (h *UserHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.UserService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	util.WriteSuccess(w, http.StatusCreated, user, "пользователь зарегистрирован")
}

// GetCurrentUser godoc
// @Summary Профиль текущего пользователя
// @Description Профиль владельца access токена, HEAD только проверяет токен
// @Tags Authentication
// @Produce json
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.Response{data=model.User}
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/auth/me [get]
// @Router /api/auth/me [head]
func (h *UserHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	user, err := h.UserService.GetCurrentUser(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	util.WriteSuccess(w, http.StatusOK, user, "")
}

// SetBlocked godoc
// @Summary Блокировка пользователя
// @Description Доступно модераторам и администраторам. Блокировка отзывает все refresh токены пользователя.
// @Tags Users
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Param id path int true "ID пользователя"
// @Param body body requestresponse.SetBlockedRequest true "Тело запроса"
// @Success 200 {object} requestresponse.Response{data=requestresponse.SetBlockedData}
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/users/{id}/block [put]
func (h *UserHandler) SetBlocked(w http.ResponseWriter, r *http.Request) {
	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	targetID, err := parseUserID(chi.URLParam(r, "id"))
	if err != nil {
		util.HandleError(w, http.StatusBadRequest, requestresponse.CodeInvalidRequest, err.Error())
		return
	}

	var req requestresponse.SetBlockedRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.UserService.SetBlocked(r.Context(), claims.UserID, targetID, *req.Blocked); err != nil {
		writeServiceError(w, r, err)
		return
	}

	util.WriteSuccess(w, http.StatusOK, requestresponse.SetBlockedData{UserID: targetID, Blocked: *req.Blocked}, "")
}

func parseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("некорректный id пользователя")
	}
	return id, nil
}
