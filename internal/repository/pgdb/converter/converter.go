package converter

import (
	"github.com/DRSN-tech/similarity-backend/internal/domain"
	"github.com/DRSN-tech/similarity-backend/internal/usecase"
	"github.com/DRSN-tech/similarity-backend/internal/vector"
)

// ProductConverter преобразует сущности Product между domain и моделью PostgreSQL.
// Эмбеддинг укладывается в BYTEA кодеком vector.Pack/Unpack.
type ProductConverter struct{}

func NewProductConverter() ProductConverter {
	return ProductConverter{}
}

func (ProductConverter) ToModel(entity *domain.Product) *ProductModel {
	return &ProductModel{
		ID:         entity.ID,
		Name:       entity.Name,
		Brand:      entity.Brand,
		Price:      entity.Price,
		Category:   entity.Category,
		ProductURL: entity.ProductURL,
		ImageKey:   entity.ImageKey,
		Embedding:  vector.Pack(entity.Embedding),
		CreatedAt:  entity.CreatedAt,
		UpdatedAt:  entity.UpdatedAt,
	}
}

func (ProductConverter) ToEntity(model *ProductModel) (*domain.Product, error) {
	embedding, err := vector.Unpack(model.Embedding)
	if err != nil {
		return nil, err
	}

	return &domain.Product{
		ID:         model.ID,
		Name:       model.Name,
		Brand:      model.Brand,
		Price:      model.Price,
		Category:   model.Category,
		ProductURL: model.ProductURL,
		ImageKey:   model.ImageKey,
		Embedding:  embedding,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}, nil
}

// OutboxEventConverter преобразует сущности OutboxEvent между usecase и моделью PostgreSQL.
type OutboxEventConverter struct{}

func NewOutboxEventConverter() OutboxEventConverter {
	return OutboxEventConverter{}
}

func (OutboxEventConverter) ToModel(entity *usecase.OutboxEvent) *OutboxEventModel {
	return &OutboxEventModel{
		ID:          entity.ID,
		EventID:     entity.EventID,
		EventType:   string(entity.EventType),
		ProductID:   entity.ProductID,
		Payload:     entity.Payload,
		Status:      string(entity.Status),
		CreatedAt:   entity.CreatedAt,
		ProcessedAt: entity.ProcessedAt,
	}
}

func (OutboxEventConverter) ToEntity(model *OutboxEventModel) *usecase.OutboxEvent {
	return &usecase.OutboxEvent{
		ID:          model.ID,
		EventID:     model.EventID,
		EventType:   usecase.OutboxEventType(model.EventType),
		ProductID:   model.ProductID,
		Payload:     model.Payload,
		Status:      usecase.OutboxStatus(model.Status),
		CreatedAt:   model.CreatedAt,
		ProcessedAt: model.ProcessedAt,
	}
}

func (c OutboxEventConverter) ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent {
	entities := make([]*usecase.OutboxEvent, 0, len(models))
	for _, model := range models {
		entities = append(entities, c.ToEntity(model))
	}

	return entities
}
