package minio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/DRSN-tech/similarity-backend/internal/cfg"
	"github.com/DRSN-tech/similarity-backend/internal/domain"
	"github.com/DRSN-tech/similarity-backend/internal/infrastructure"
	"github.com/DRSN-tech/similarity-backend/internal/usecase"
	"github.com/DRSN-tech/similarity-backend/pkg/e"
	"github.com/DRSN-tech/similarity-backend/pkg/jitter"
	"github.com/DRSN-tech/similarity-backend/pkg/logger"

	"github.com/google/uuid"
)

const (
	cleanupAttempts = 3
	cleanupTimeout  = 30 * time.Second
)

// MinioInfrastructure загружает эталонные изображения товаров в объектное
// хранилище. Загрузка атомарна на уровне запроса: при сбое любой части
// пакета уже загруженные объекты удаляются фоновой компенсацией.
type MinioInfrastructure struct {
	imageRepo   usecase.ImageRepository
	logger      logger.Logger
	shutdownCtx context.Context
	cleanupWg   sync.WaitGroup
	uploadLimit int
}

func NewMinioInfrastructure(imageRepo usecase.ImageRepository, cfg *cfg.MinIOCfg, logger logger.Logger, shutdownCtx context.Context) *MinioInfrastructure {
	return &MinioInfrastructure{
		imageRepo:   imageRepo,
		logger:      logger,
		shutdownCtx: shutdownCtx,
		uploadLimit: cfg.UploadImagesLimit,
	}
}

// UploadImages загружает изображения параллельно с ограничением конкурентности.
// Первая ошибка отменяет остальные загрузки и запускает компенсацию.
func (m *MinioInfrastructure) UploadImages(ctx context.Context, req *usecase.UploadImagesReq) (*usecase.UploadImagesRes, error) {
	const op = "MinioInfrastructure.UploadImages"

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	keyCh := make(chan string, len(req.Images))
	errCh := make(chan error, len(req.Images))
	sem := make(chan struct{}, m.uploadLimit)

	var uploadWg sync.WaitGroup
	for _, image := range req.Images {
		uploadWg.Add(1)
		go func() {
			defer uploadWg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			key, err := m.uploadOne(ctx, req.Prefix, image)
			if err != nil {
				errCh <- err
				return
			}
			keyCh <- key
		}()
	}

	go func() {
		uploadWg.Wait()
		close(errCh)
		close(keyCh)
	}()

	keys := make([]string, 0, len(req.Images))
	completed := false
	defer func() {
		if !completed && len(keys) > 0 {
			m.CleanupImages(keys)
		}
	}()

	for len(keys) < len(req.Images) {
		select {
		case key, ok := <-keyCh:
			if ok {
				keys = append(keys, key)
			}
		case err, ok := <-errCh:
			if ok {
				cancel()
				return nil, e.Wrap(op, err)
			}
		case <-ctx.Done():
			return nil, e.Wrap(op, ctx.Err())
		}
	}

	completed = true
	return usecase.NewUploadImagesRes(keys), nil
}

// uploadOne строит уникальный ключ объекта и отправляет изображение в хранилище.
func (m *MinioInfrastructure) uploadOne(ctx context.Context, prefix string, image usecase.ProductImage) (string, error) {
	ext, err := infrastructure.GetExtensionFromMIME(image.MimeType)
	if err != nil {
		return "", fmt.Errorf("image %s has unsupported type %s: %w", image.Name, image.MimeType, err)
	}

	objKey := fmt.Sprintf("%s/%s-%s.%s", prefix, image.Name, uuid.NewString(), ext)
	key, err := m.imageRepo.Upload(ctx, domain.NewImage(objKey, image.MimeType, image.Data))
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", image.Name, err)
	}

	return key, nil
}

// CleanupImages запускает фоновое удаление указанных ключей.
func (m *MinioInfrastructure) CleanupImages(keys []string) {
	if len(keys) == 0 {
		return
	}
	m.cleanupWg.Add(1)
	go m.deleteKeys(keys)
}

// deleteKeys удаляет объекты с повторами и backoff; прерывается при завершении приложения.
func (m *MinioInfrastructure) deleteKeys(keys []string) {
	defer m.cleanupWg.Done()

	ctx, cancel := context.WithTimeout(m.shutdownCtx, cleanupTimeout)
	defer cancel()

	m.logger.Infof("cleaning up %d uploaded object(s)", len(keys))

	for _, key := range keys {
		for attempt := 0; attempt < cleanupAttempts; attempt++ {
			if err := m.imageRepo.Delete(ctx, key); err == nil {
				break
			}

			if attempt == cleanupAttempts-1 {
				m.logger.Warnf("cleanup gave up on key %s", key)
				break
			}

			select {
			case <-time.After(jitter.ExponentialBackoff(time.Second, 8*time.Second, attempt, jitter.DefaultJitter)):
			case <-ctx.Done():
				m.logger.Warnf("cleanup interrupted by shutdown, key=%s", key)
				return
			}
		}
	}
}

// WaitForCleanup дожидается фоновых компенсаций при завершении приложения.
func (m *MinioInfrastructure) WaitForCleanup(shutdownTimeoutCtx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.cleanupWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-shutdownTimeoutCtx.Done():
		return fmt.Errorf("minio cleanup timeout during shutdown: %w", shutdownTimeoutCtx.Err())
	}
}
