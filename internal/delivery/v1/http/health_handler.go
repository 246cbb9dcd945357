package http

import (
	"net/http"

	"github.com/DRSN-tech/similarity-backend/internal/usecase"
	"github.com/DRSN-tech/similarity-backend/pkg/logger"
)

// HealthHandler отдаёт состояние сервиса для мониторинга: размер каталога
// и доступность модели векторизации.
type HealthHandler struct {
	catalogUsecase usecase.CatalogUC
	logger         logger.Logger
}

func NewHealthHandler(catalogUsecase usecase.CatalogUC, logger logger.Logger) *HealthHandler {
	return &HealthHandler{
		catalogUsecase: catalogUsecase,
		logger:         logger,
	}
}

// health
//
//	@Summary	Проверка работоспособности сервиса
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	HealthResponse	"Сервис работает"
//	@Failure	503	{object}	HealthResponse	"Сервис неработоспособен"
//	@Router		/health [get]
func (h *HealthHandler) health(w http.ResponseWriter, r *http.Request) {
	res, err := h.catalogUsecase.Stats(r.Context())
	if err != nil {
		h.logger.Errorf(err, "health check failed")
		WriteSuccess(w, http.StatusServiceUnavailable, &HealthResponse{Status: "unhealthy"})
		return
	}

	WriteSuccess(w, http.StatusOK, NewHealthResponse(res))
}
