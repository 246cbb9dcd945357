package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/DRSN-tech/similarity-backend/internal/cfg"
	"github.com/DRSN-tech/similarity-backend/internal/usecase"
	"github.com/DRSN-tech/similarity-backend/pkg/e"
	"github.com/DRSN-tech/similarity-backend/pkg/jitter"
	"github.com/DRSN-tech/similarity-backend/pkg/logger"
)

// Embedder — HTTP-клиент внешнего сервиса векторизации изображений (CLIP).
// Первая векторизация может быть медленной из-за холодного старта модели,
// поэтому сбои повторяются с экспоненциальной задержкой.
type Embedder struct {
	addr          string
	httpClient    *http.Client
	maxConcurrent int
	maxRetries    int
	logger        logger.Logger
}

func NewEmbedder(cfg *cfg.EmbedderCfg, logger logger.Logger) *Embedder {
	return &Embedder{
		addr:          cfg.Addr,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		maxConcurrent: cfg.MaxConcurrent,
		maxRetries:    cfg.MaxRetries,
		logger:        logger,
	}
}

// embedResponse — ответ сервиса на POST /embed.
type embedResponse struct {
	Vector       []float32 `json:"vector"`
	ModelVersion string    `json:"model_version"`
}

// infoResponse — ответ сервиса на GET /info.
type infoResponse struct {
	ModelName string `json:"model_name"`
	Dimension int    `json:"dimension"`
	Loaded    bool   `json:"loaded"`
}

// Vectorize выполняет векторизацию изображений с retry-логикой и экспоненциальной задержкой.
func (m *Embedder) Vectorize(ctx context.Context, req *usecase.VectorizeReq) ([]usecase.VectorizeRes, error) {
	const (
		op         = "Embedder.Vectorize"
		baseJitter = 1 * time.Second
		maxJitter  = 30 * time.Second
	)

	for attempt := 0; attempt < m.maxRetries; attempt++ {
		vectors, err := m.vectorizeBatch(ctx, req)
		if err == nil {
			return vectors, nil
		}

		if attempt == m.maxRetries-1 {
			// Причина последней попытки сохраняется в цепочке: по ней
			// обработчик отличает недоступность сервиса от прочих сбоев.
			return nil, e.Wrap(op, fmt.Errorf("all %d attempts failed: %w", m.maxRetries, err))
		}

		sleepTime := jitter.ExponentialBackoff(
			baseJitter,
			maxJitter,
			attempt,
			jitter.DefaultJitter,
		)

		m.logger.Warnf("vectorization failed, retrying in %v (attempt %d)", sleepTime, attempt+1)
		select {
		case <-time.After(sleepTime):
		case <-ctx.Done():
			return nil, e.Wrap(op, ctx.Err())
		}
	}

	return nil, e.Wrap(op, fmt.Errorf("unreachable"))
}

// ModelInfo возвращает сведения о модели векторизации.
func (m *Embedder) ModelInfo(ctx context.Context) (*usecase.ModelInfo, error) {
	const op = "Embedder.ModelInfo"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.addr+"/info", nil)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, e.Wrap(op, e.ErrEmbedderUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, e.Wrap(op, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var info infoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, e.Wrap(op, err)
	}

	return &usecase.ModelInfo{
		ModelName: info.ModelName,
		Dimension: info.Dimension,
		Loaded:    info.Loaded,
	}, nil
}

// vectorizeBatch отправляет батч изображений на векторизацию параллельно с ограничением конкурентности.
func (m *Embedder) vectorizeBatch(ctx context.Context, req *usecase.VectorizeReq) ([]usecase.VectorizeRes, error) {
	const op = "Embedder.vectorizeBatch"

	vectorCh := make(chan usecase.VectorizeRes, len(req.Images))
	errCh := make(chan error, len(req.Images))
	sem := make(chan struct{}, m.maxConcurrent)

	var wg sync.WaitGroup
	for _, image := range req.Images {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := m.vectorizeOne(ctx, image)
			if err != nil {
				errCh <- err
				return
			}

			vectorCh <- *res
		}()
	}

	go func() {
		wg.Wait()
		close(errCh)
		close(vectorCh)
	}()

	vectors := make([]usecase.VectorizeRes, 0, len(req.Images))
	for completed := 0; completed < len(req.Images); {
		select {
		case vector, ok := <-vectorCh:
			if ok {
				vectors = append(vectors, vector)
				completed++
			}
		case err, ok := <-errCh:
			if ok {
				return nil, e.Wrap(op, err)
			}
		case <-ctx.Done():
			return nil, e.Wrap(op, ctx.Err())
		}
	}

	return vectors, nil
}

// vectorizeOne отправляет одно изображение на POST /embed (multipart/form-data).
func (m *Embedder) vectorizeOne(ctx context.Context, image usecase.ProductImage) (*usecase.VectorizeRes, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("image", image.Name)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(image.Data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.addr+"/embed", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, e.ErrEmbedderUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embed failed with status %d: %s", resp.StatusCode, data)
	}

	var res embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}

	return usecase.NewVectorizeRes(res.Vector, res.ModelVersion), nil
}
