package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/DRSN-tech/similarity-backend/internal/usecase"
	"github.com/DRSN-tech/similarity-backend/pkg/e"
	"github.com/DRSN-tech/similarity-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type CatalogHandler struct {
	catalogUsecase usecase.CatalogUC
	imageRepo      usecase.ImageRepository
	logger         logger.Logger
}

func NewCatalogHandler(catalogUsecase usecase.CatalogUC, imageRepo usecase.ImageRepository, logger logger.Logger) *CatalogHandler {
	return &CatalogHandler{catalogUsecase: catalogUsecase, imageRepo: imageRepo, logger: logger}
}

// populate
//
//	@Summary		Пакетная загрузка каталога
//	@Description	Загружает товары с эмбеддингами; ошибки отдельных элементов не прерывают пакет
//	@Tags			catalog
//	@Accept			json
//	@Produce		json
//	@Param			request	body		PopulateRequest	true	"Товары с эмбеддингами"
//	@Success		200		{object}	PopulateResponse	"Отчёт загрузки"
//	@Failure		400		{object}	ErrorResponse	"Ошибка валидации"
//	@Router			/catalog/populate [post]
func (h *CatalogHandler) populate(w http.ResponseWriter, r *http.Request) {
	var req PopulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, e.ErrStatusBadRequest)
		return
	}

	res, err := h.catalogUsecase.Populate(r.Context(), req.ToUseCase())
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewPopulateResponse(res))
}

// uploadImages
//
//	@Summary		Загрузка изображений товаров
//	@Description	Загружает изображения в объектное хранилище и возвращает ключи для image_key
//	@Tags			catalog
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			images	formData	file	true	"Изображения товаров"
//	@Success		200		{object}	UploadImagesResponse	"Ключи изображений"
//	@Failure		400		{object}	ErrorResponse	"Ошибка валидации"
//	@Failure		415		{object}	ErrorResponse	"Неподдерживаемый тип файла"
//	@Router			/catalog/images [post]
func (h *CatalogHandler) uploadImages(w http.ResponseWriter, r *http.Request) {
	const (
		maxTotalRequestSize = 64 << 20
		maxMemory           = 16 << 20
	)

	r.Body = http.MaxBytesReader(w, r.Body, maxTotalRequestSize)

	if err := ensureMultipartForm(r, maxMemory); err != nil {
		h.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), r.Header.Get("Content-Type"))
		WriteError(w, err)
		return
	}

	images, err := parseImages(r.MultipartForm.File["images"])
	if err != nil {
		h.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}

	res, err := h.catalogUsecase.UploadImages(r.Context(), usecase.NewUploadImagesReq("products", images))
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, &UploadImagesResponse{ImageKeys: res.ImagesKeys})
}

// clear
//
//	@Summary		Очистка каталога
//	@Description	Удаляет все товары из БД, индекса и кэша
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}	"Каталог очищен"
//	@Router			/catalog [delete]
func (h *CatalogHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.catalogUsecase.Clear(r.Context()); err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, map[string]interface{}{"cleared": true})
}

// getProduct
//
//	@Summary		Карточка товара
//	@Tags			catalog
//	@Produce		json
//	@Param			id	path		string	true	"ID товара"
//	@Success		200	{object}	ProductResponse	"Карточка товара"
//	@Failure		404	{object}	ErrorResponse	"Товар не найден"
//	@Router			/products/{id} [get]
func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	info, err := h.catalogUsecase.GetProduct(r.Context(), id)
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewProductResponse(info))
}

// stats
//
//	@Summary		Статистика каталога
//	@Description	Число товаров, размерность векторов и состояние модели
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{object}	StatsResponse	"Статистика"
//	@Router			/stats [get]
func (h *CatalogHandler) stats(w http.ResponseWriter, r *http.Request) {
	res, err := h.catalogUsecase.Stats(r.Context())
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewStatsResponse(res))
}

// productImage отдаёт изображение товара из объектного хранилища.
func (h *CatalogHandler) productImage(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		WriteError(w, e.ErrNotFound)
		return
	}

	obj, contentType, err := h.imageRepo.Get(r.Context(), key)
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj); err != nil {
		h.logger.Warnf("image stream failed: %s", err.Error())
	}
}
