package domain

// Image — изображение товара для загрузки в объектное хранилище.
type Image struct {
	ObjectKey   string
	ContentType string
	Bytes       []byte
	Size        int64
}

func NewImage(objectKey, contentType string, data []byte) *Image {
	return &Image{
		ObjectKey:   objectKey,
		ContentType: contentType,
		Bytes:       data,
		Size:        int64(len(data)),
	}
}
