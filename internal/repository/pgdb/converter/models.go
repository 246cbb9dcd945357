package converter

import "time"

// ProductModel представляет запись таблицы products в PostgreSQL.
// Эмбеддинг хранится как BYTEA (little-endian float32).
type ProductModel struct {
	ID         string     `db:"id"`
	Name       string     `db:"name"`
	Brand      string     `db:"brand"`
	Price      int64      `db:"price"`
	Category   string     `db:"category"`
	ProductURL string     `db:"product_url"`
	ImageKey   string     `db:"image_key"`
	Embedding  []byte     `db:"embedding"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  *time.Time `db:"updated_at"`
}

// OutboxEventModel представляет запись таблицы outbox_events в PostgreSQL.
type OutboxEventModel struct {
	ID          int64      `db:"id"`
	EventID     string     `db:"event_id"`
	EventType   string     `db:"event_type"`
	ProductID   string     `db:"product_id"`
	Payload     []byte     `db:"payload"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	ProcessedAt *time.Time `db:"processed_at"`
}
