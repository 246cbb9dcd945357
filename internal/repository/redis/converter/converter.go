package converter

import "github.com/DRSN-tech/similarity-backend/internal/usecase"

// ProductInfoConverter преобразует карточки товаров между usecase и Redis-моделью.
type ProductInfoConverter struct{}

func NewProductInfoConverter() ProductInfoConverter {
	return ProductInfoConverter{}
}

func (ProductInfoConverter) ToRedisModel(entity *usecase.ProductInfo) *ProductInfoRedisModel {
	return &ProductInfoRedisModel{
		ID:         entity.ID,
		Name:       entity.Name,
		Brand:      entity.Brand,
		Price:      entity.Price,
		Category:   entity.Category,
		ProductURL: entity.ProductURL,
		ImageKey:   entity.ImageKey,
	}
}

func (ProductInfoConverter) ToUseCase(model *ProductInfoRedisModel) *usecase.ProductInfo {
	return &usecase.ProductInfo{
		ID:         model.ID,
		Name:       model.Name,
		Brand:      model.Brand,
		Price:      model.Price,
		Category:   model.Category,
		ProductURL: model.ProductURL,
		ImageKey:   model.ImageKey,
	}
}
