package converter

// ProductInfoRedisModel — JSON-представление карточки товара в Redis.
type ProductInfoRedisModel struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Brand      string `json:"brand"`
	Price      int64  `json:"price"`
	Category   string `json:"category"`
	ProductURL string `json:"product_url"`
	ImageKey   string `json:"image_key"`
}
