package http

import (
	"github.com/DRSN-tech/similarity-backend/internal/domain"
	"github.com/DRSN-tech/similarity-backend/internal/usecase"
)

// SearchVectorRequest — тело запроса поиска по готовому эмбеддингу.
type SearchVectorRequest struct {
	Embedding     []float32 `json:"embedding"`
	Limit         int       `json:"limit"`
	MinSimilarity float64   `json:"min_similarity"`
}

// SearchResultItem — один элемент выдачи поиска.
type SearchResultItem struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Brand      string  `json:"brand"`
	Price      int64   `json:"price"`
	Category   string  `json:"category"`
	ProductURL string  `json:"product_url"`
	ImageURL   string  `json:"image_url,omitempty"`
	Similarity float64 `json:"similarity"`
	Rank       int     `json:"rank"`
}

// SearchResponse — выдача поиска с применёнными параметрами.
type SearchResponse struct {
	Results       []SearchResultItem `json:"results"`
	Count         int                `json:"count"`
	Limit         int                `json:"limit"`
	MinSimilarity float64            `json:"min_similarity"`
}

// PopulateItemRequest — один товар пакетной загрузки.
type PopulateItemRequest struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Brand      string    `json:"brand"`
	Price      int64     `json:"price"`
	Category   string    `json:"category"`
	ProductURL string    `json:"product_url"`
	ImageKey   string    `json:"image_key"`
	Embedding  []float32 `json:"embedding"`
}

// PopulateRequest — тело запроса пакетной загрузки каталога.
type PopulateRequest struct {
	Items  []PopulateItemRequest `json:"items"`
	Upsert bool                  `json:"upsert"`
}

// PopulateItemError — причина пропуска элемента пакетной загрузки.
type PopulateItemError struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// PopulateResponse — отчёт пакетной загрузки.
type PopulateResponse struct {
	Inserted int                 `json:"inserted"`
	Skipped  int                 `json:"skipped"`
	Errors   []PopulateItemError `json:"errors,omitempty"`
}

// ProductResponse — карточка товара.
type ProductResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Brand      string `json:"brand"`
	Price      int64  `json:"price"`
	Category   string `json:"category"`
	ProductURL string `json:"product_url"`
	ImageURL   string `json:"image_url,omitempty"`
}

// StatsResponse — статистика каталога и модели векторизации.
type StatsResponse struct {
	ProductCount int    `json:"product_count"`
	Dimension    int    `json:"dimension"`
	ModelName    string `json:"model_name,omitempty"`
	ModelLoaded  bool   `json:"model_loaded"`
}

// UploadImagesResponse — ключи загруженных изображений товаров.
type UploadImagesResponse struct {
	ImageKeys []string `json:"image_keys"`
}

// HealthResponse — состояние сервиса для мониторинга.
type HealthResponse struct {
	Status       string `json:"status"`
	ProductCount int    `json:"product_count"`
	ModelName    string `json:"model_name,omitempty"`
	ModelLoaded  bool   `json:"model_loaded"`
}

const staticImagesPrefix = "/static/product-images/"

func imageURL(imageKey string) string {
	if imageKey == "" {
		return ""
	}
	return staticImagesPrefix + imageKey
}

func NewSearchResponse(res *usecase.SearchRes) *SearchResponse {
	items := make([]SearchResultItem, 0, len(res.Results))
	for _, record := range res.Results {
		items = append(items, newSearchResultItem(record))
	}

	return &SearchResponse{
		Results:       items,
		Count:         len(items),
		Limit:         res.Limit,
		MinSimilarity: res.MinSim,
	}
}

func newSearchResultItem(record domain.ResultRecord) SearchResultItem {
	return SearchResultItem{
		ID:         record.Product.ID,
		Name:       record.Product.Name,
		Brand:      record.Product.Brand,
		Price:      record.Product.Price,
		Category:   record.Product.Category,
		ProductURL: record.Product.ProductURL,
		ImageURL:   imageURL(record.Product.ImageKey),
		Similarity: record.Similarity,
		Rank:       record.Rank,
	}
}

func NewPopulateResponse(res *usecase.PopulateRes) *PopulateResponse {
	errs := make([]PopulateItemError, 0, len(res.Errors))
	for _, itemErr := range res.Errors {
		errs = append(errs, PopulateItemError{ID: itemErr.ID, Reason: itemErr.Reason})
	}

	return &PopulateResponse{
		Inserted: res.Inserted,
		Skipped:  res.Skipped,
		Errors:   errs,
	}
}

func NewProductResponse(info *usecase.ProductInfo) *ProductResponse {
	return &ProductResponse{
		ID:         info.ID,
		Name:       info.Name,
		Brand:      info.Brand,
		Price:      info.Price,
		Category:   info.Category,
		ProductURL: info.ProductURL,
		ImageURL:   imageURL(info.ImageKey),
	}
}

func NewHealthResponse(res *usecase.StatsRes) *HealthResponse {
	return &HealthResponse{
		Status:       "ok",
		ProductCount: res.ProductCount,
		ModelName:    res.ModelName,
		ModelLoaded:  res.ModelLoaded,
	}
}

func NewStatsResponse(res *usecase.StatsRes) *StatsResponse {
	return &StatsResponse{
		ProductCount: res.ProductCount,
		Dimension:    res.Dimension,
		ModelName:    res.ModelName,
		ModelLoaded:  res.ModelLoaded,
	}
}

func (r *PopulateRequest) ToUseCase() *usecase.PopulateReq {
	items := make([]usecase.PopulateItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, usecase.PopulateItem{
			ID:         item.ID,
			Name:       item.Name,
			Brand:      item.Brand,
			Price:      item.Price,
			Category:   item.Category,
			ProductURL: item.ProductURL,
			ImageKey:   item.ImageKey,
			Embedding:  item.Embedding,
		})
	}

	return &usecase.PopulateReq{
		Items:  items,
		Upsert: r.Upsert,
	}
}
