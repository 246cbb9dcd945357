package usecase

import "context"

// EmbedderInfra — внешний сервис векторизации изображений (непрозрачная функция Embed).
// Детерминирован для одинакового входа; первая векторизация может быть медленной
// из-за холодного старта модели.
type EmbedderInfra interface {
	Vectorize(ctx context.Context, req *VectorizeReq) ([]VectorizeRes, error)
	ModelInfo(ctx context.Context) (*ModelInfo, error)
}

type MessageProducer interface {
	WriteRawMessage(ctx context.Context, req *WriteRawMessageReq) error
}

type ImagesInfra interface {
	UploadImages(ctx context.Context, req *UploadImagesReq) (*UploadImagesRes, error)
	CleanupImages(keys []string)
}
