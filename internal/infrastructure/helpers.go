package infrastructure

import "github.com/DRSN-tech/similarity-backend/pkg/e"

// mimeExtensions перечисляет форматы изображений, которые принимает каталог.
var mimeExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// GetExtensionFromMIME возвращает расширение файла для ключа объекта в хранилище.
// Для неподдерживаемого MIME-типа возвращает e.ErrUnsupportedMediaType.
func GetExtensionFromMIME(mime string) (string, error) {
	ext, ok := mimeExtensions[mime]
	if !ok {
		return "", e.ErrUnsupportedMediaType
	}

	return ext, nil
}
