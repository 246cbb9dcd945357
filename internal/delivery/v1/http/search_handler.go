package http

import (
	"encoding/json"
	"net/http"

	"github.com/DRSN-tech/similarity-backend/internal/usecase"
	"github.com/DRSN-tech/similarity-backend/pkg/e"
	"github.com/DRSN-tech/similarity-backend/pkg/logger"
)

type SearchHandler struct {
	searchUsecase usecase.SearchUC
	logger        logger.Logger
}

func NewSearchHandler(searchUsecase usecase.SearchUC, logger logger.Logger) *SearchHandler {
	return &SearchHandler{searchUsecase: searchUsecase, logger: logger}
}

// searchByImage
//
//	@Summary		Поиск похожих товаров по изображению
//	@Description	Векторизует изображение и возвращает похожие товары каталога
//	@Tags			search
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			image			formData	file	true	"Изображение запроса"
//	@Param			limit			formData	integer	false	"Число результатов (1..50, по умолчанию 5)"
//	@Param			min_similarity	formData	number	false	"Порог близости (0..1, по умолчанию 0)"
//	@Success		200				{object}	SearchResponse	"Выдача поиска"
//	@Failure		400				{object}	ErrorResponse	"Ошибка валидации"
//	@Failure		503				{object}	ErrorResponse	"Сервис векторизации недоступен"
//	@Router			/search [post]
func (h *SearchHandler) searchByImage(w http.ResponseWriter, r *http.Request) {
	const (
		maxTotalRequestSize = 20 << 20
		maxMemory           = 16 << 20
	)

	r.Body = http.MaxBytesReader(w, r.Body, maxTotalRequestSize)

	if err := ensureMultipartForm(r, maxMemory); err != nil {
		h.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), r.Header.Get("Content-Type"))
		WriteError(w, err)
		return
	}

	params, err := parseSearchParams(r.FormValue)
	if err != nil {
		h.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}

	image, err := parseImage(r.MultipartForm.File["image"])
	if err != nil {
		h.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}

	res, err := h.searchUsecase.SearchByImage(r.Context(), usecase.NewSearchByImageReq(*image, params.Limit, params.MinSimilarity))
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewSearchResponse(res))
}

// searchByVector
//
//	@Summary		Поиск похожих товаров по эмбеддингу
//	@Description	Возвращает похожие товары по готовому вектору запроса
//	@Tags			search
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SearchVectorRequest	true	"Вектор запроса и параметры"
//	@Success		200		{object}	SearchResponse	"Выдача поиска"
//	@Failure		400		{object}	ErrorResponse	"Ошибка валидации"
//	@Router			/search/vector [post]
func (h *SearchHandler) searchByVector(w http.ResponseWriter, r *http.Request) {
	var req SearchVectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, e.ErrStatusBadRequest)
		return
	}

	if len(req.Embedding) == 0 {
		WriteError(w, e.ErrEmptyVector)
		return
	}

	res, err := h.searchUsecase.Search(r.Context(), usecase.NewSearchReq(req.Embedding, req.Limit, req.MinSimilarity))
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewSearchResponse(res))
}
