package e

import "fmt"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Ошибки целостности векторов и каталога
	ErrDimensionMismatch = fmt.Errorf("embedding dimension mismatch")
	ErrInvalidVector     = fmt.Errorf("embedding contains non-finite components")
	ErrDuplicateID       = fmt.Errorf("duplicate product id")
	ErrNotFound          = fmt.Errorf("product not found")
	ErrIntegrity         = fmt.Errorf("catalog integrity violation")
	ErrEmptyID           = fmt.Errorf("product id is required")
	ErrEmptyVector       = fmt.Errorf("embedding is empty")

	// 400 Bad Request
	ErrStatusBadRequest     = fmt.Errorf("bad request")
	ErrExpectedMultipart    = fmt.Errorf("expected multipart/form-data")
	ErrNoImage              = fmt.Errorf("no image provided")
	ErrInvalidPrice         = fmt.Errorf("price must be a non-negative number")
	ErrInvalidSearchParams  = fmt.Errorf("invalid search parameters")
	ErrUnsupportedMediaType = fmt.Errorf("unsupported media type")
	ErrFileTooLarge         = fmt.Errorf("file too large")

	// Прочее
	ErrInternalServerError  = fmt.Errorf("internal server error")
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")
	ErrEmbedderUnavailable  = fmt.Errorf("embedding service unavailable")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
