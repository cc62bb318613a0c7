package handler

import (
	"community-platform/internal/model/requestresponse"
	"community-platform/internal/util"
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health godoc
// @Summary Проверка доступности
// @Tags Health
// @Produce json
// @Success 200 {object} requestresponse.Response
// @Failure 503 {object} requestresponse.ErrorResponse
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		zap.L().Warn("БД недоступна", zap.Error(err))
		util.HandleError(w, http.StatusServiceUnavailable, requestresponse.CodeInternal, "база данных недоступна")
		return
	}

	util.WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"}, "")
}
