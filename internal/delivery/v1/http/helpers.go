package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/DRSN-tech/similarity-backend/internal/usecase"
	"github.com/DRSN-tech/similarity-backend/pkg/e"
	"github.com/jimlawless/whereami"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SearchParams — параметры поиска из формы или query string.
type SearchParams struct {
	Limit         int
	MinSimilarity float64
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

// ToHTTPResponse отображает доменные ошибки в HTTP-статусы. Разные виды
// отказов должны оставаться различимыми для клиента.
func ToHTTPResponse(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrStatusBadRequest):
		return http.StatusBadRequest, e.ErrStatusBadRequest.Error()
	case errors.Is(err, e.ErrExpectedMultipart):
		return http.StatusBadRequest, e.ErrExpectedMultipart.Error()
	case errors.Is(err, e.ErrDimensionMismatch):
		return http.StatusBadRequest, e.ErrDimensionMismatch.Error()
	case errors.Is(err, e.ErrInvalidVector):
		return http.StatusBadRequest, e.ErrInvalidVector.Error()
	case errors.Is(err, e.ErrInvalidSearchParams):
		return http.StatusBadRequest, e.ErrInvalidSearchParams.Error()
	case errors.Is(err, e.ErrEmptyVector):
		return http.StatusBadRequest, e.ErrEmptyVector.Error()
	case errors.Is(err, e.ErrEmptyID):
		return http.StatusBadRequest, e.ErrEmptyID.Error()
	case errors.Is(err, e.ErrInvalidPrice):
		return http.StatusBadRequest, e.ErrInvalidPrice.Error()
	case errors.Is(err, e.ErrNoImage):
		return http.StatusBadRequest, e.ErrNoImage.Error()
	case errors.Is(err, e.ErrNotFound):
		return http.StatusNotFound, e.ErrNotFound.Error()
	case errors.Is(err, e.ErrDuplicateID):
		return http.StatusConflict, e.ErrDuplicateID.Error()
	case errors.Is(err, e.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, e.ErrFileTooLarge.Error()
	case errors.Is(err, e.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, e.ErrUnsupportedMediaType.Error()
	case errors.Is(err, e.ErrEmbedderUnavailable):
		return http.StatusServiceUnavailable, e.ErrEmbedderUnavailable.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func ensureMultipartForm(r *http.Request, maxMemory int64) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return e.Wrap(whereami.WhereAmI(), e.ErrExpectedMultipart)
	}
	return r.ParseMultipartForm(maxMemory)
}

// parseSearchParams читает limit и min_similarity из значений формы.
// Отсутствующие значения остаются нулевыми: клампинг выполняет usecase.
func parseSearchParams(getValue func(string) string) (*SearchParams, error) {
	params := &SearchParams{}

	if v := getValue("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return nil, e.Wrap("limit", e.ErrInvalidSearchParams)
		}
		params.Limit = limit
	}

	if v := getValue("min_similarity"); v != "" {
		minSim, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, e.Wrap("min_similarity", e.ErrInvalidSearchParams)
		}
		params.MinSimilarity = minSim
	}

	return params, nil
}

// parseImage читает одно изображение из multipart-формы.
func parseImage(files []*multipart.FileHeader) (*usecase.ProductImage, error) {
	const maxFileSize = 15 << 20

	if len(files) == 0 {
		return nil, e.ErrNoImage
	}

	fh := files[0]
	data, mimeType, err := readFile(fh, maxFileSize)
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(mimeType, "image/") {
		return nil, e.Wrap(fh.Filename, e.ErrUnsupportedMediaType)
	}

	return usecase.NewProductImage(data, mimeType, int64(len(data)), fh.Filename), nil
}

// parseImages читает все изображения из multipart-формы.
func parseImages(files []*multipart.FileHeader) ([]usecase.ProductImage, error) {
	if len(files) == 0 {
		return nil, e.ErrNoImage
	}

	images := make([]usecase.ProductImage, 0, len(files))
	for _, fh := range files {
		image, err := parseImage([]*multipart.FileHeader{fh})
		if err != nil {
			return nil, err
		}
		images = append(images, *image)
	}

	return images, nil
}

func readFile(fh *multipart.FileHeader, maxSize int64) ([]byte, string, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, "", e.ErrInternalServerError
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, "", e.ErrInternalServerError
	}
	if int64(len(data)) > maxSize {
		return nil, "", e.Wrap(fh.Filename, e.ErrFileTooLarge)
	}

	mimeType := http.DetectContentType(data[:min(len(data), 512)])
	return data, mimeType, nil
}
