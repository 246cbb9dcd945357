package http

import (
	_ "github.com/DRSN-tech/similarity-backend/docs" // Импорт сгенерированных файлов
	"github.com/DRSN-tech/similarity-backend/internal/usecase"
	"github.com/DRSN-tech/similarity-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(searchUC usecase.SearchUC, catalogUC usecase.CatalogUC, imageRepo usecase.ImageRepository) {
	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"), // ссылка на JSON
	))

	healthHandler := NewHealthHandler(catalogUC, r.logger)
	r.router.Get("/health", healthHandler.health)

	catalogHandler := NewCatalogHandler(catalogUC, imageRepo, r.logger)
	r.router.Get(staticImagesPrefix+"*", catalogHandler.productImage)

	r.router.Route("/api/v1", func(v1 chi.Router) {
		searchHandler := NewSearchHandler(searchUC, r.logger)
		registerSearchRoutes(v1, searchHandler)
		registerCatalogRoutes(v1, catalogHandler)
	})
}

func registerSearchRoutes(router chi.Router, handler *SearchHandler) {
	router.Route("/search", func(s chi.Router) {
		s.Post("/", handler.searchByImage)
		s.Post("/vector", handler.searchByVector)
	})
}

func registerCatalogRoutes(router chi.Router, handler *CatalogHandler) {
	router.Route("/catalog", func(c chi.Router) {
		c.Post("/populate", handler.populate)
		c.Post("/images", handler.uploadImages)
		c.Delete("/", handler.clear)
	})
	router.Get("/products/{id}", handler.getProduct)
	router.Get("/stats", handler.stats)
}
