package domain

import "time"

// Product описывает товар каталога вместе с его визуальным эмбеддингом.
// Запись никогда не изменяется на месте: обновление — это замена по ID.
type Product struct {
	ID         string
	Name       string
	Brand      string
	Price      int64 // Цена хранится в вонах, неотрицательная
	Category   string
	ProductURL string
	ImageKey   string // Ключ изображения в S3
	Embedding  []float32
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}

func NewProduct(id, name, brand string, price int64, category, productURL, imageKey string, embedding []float32) *Product {
	return &Product{
		ID:         id,
		Name:       name,
		Brand:      brand,
		Price:      price,
		Category:   category,
		ProductURL: productURL,
		ImageKey:   imageKey,
		Embedding:  embedding,
	}
}
