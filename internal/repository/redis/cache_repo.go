package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DRSN-tech/similarity-backend/internal/cfg"
	"github.com/DRSN-tech/similarity-backend/internal/repository/redis/converter"
	"github.com/DRSN-tech/similarity-backend/internal/usecase"
	"github.com/DRSN-tech/similarity-backend/pkg/clients"
	"github.com/DRSN-tech/similarity-backend/pkg/e"
	"github.com/DRSN-tech/similarity-backend/pkg/logger"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

const productKeyPattern = "product:*"

// CacheRepo — кэш карточек товаров в Redis. Промах кэша не считается ошибкой
// бизнес-операции: вызывающий код продолжает работу с каталогом.
type CacheRepo struct {
	client *clients.RedisClient
	conv   converter.ProductInfoConverter
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, conv converter.ProductInfoConverter,
	cfg *cfg.RedisCfg, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		conv:   conv,
		cfg:    cfg,
		logger: logger,
	}
}

// GetProduct возвращает закэшированную карточку товара; промах — ErrNotFound.
func (c *CacheRepo) GetProduct(ctx context.Context, id string) (*usecase.ProductInfo, error) {
	data, err := c.client.Client.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, r.Nil) {
			return nil, e.ErrNotFound
		}

		c.logger.Warnf("Redis GET failed: %v", e.Wrap(whereami.WhereAmI(), err))
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var model converter.ProductInfoRedisModel
	if err := json.Unmarshal(data, &model); err != nil {
		c.logger.Warnf("Redis unmarshal failed: %v", e.Wrap(whereami.WhereAmI(), err))
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if model.ID != id {
		c.logger.Warnf("Cache ID mismatch: key_id: %s, model_id: %s", id, model.ID)
		if err := c.client.Client.Del(context.Background(), productKey(id)).Err(); err != nil {
			c.logger.Warnf("Redis del failed: %v", e.Wrap(whereami.WhereAmI(), err))
		}
		return nil, e.ErrNotFound
	}

	return c.conv.ToUseCase(&model), nil
}

// SetProduct кэширует карточку товара с заданным TTL.
func (c *CacheRepo) SetProduct(ctx context.Context, info *usecase.ProductInfo) error {
	data, err := json.Marshal(c.conv.ToRedisModel(info))
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := c.client.Client.Set(ctx, productKey(info.ID), data, c.cfg.ProductTTL).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// DeleteProducts удаляет карточки из кэша по ID товаров.
func (c *CacheRepo) DeleteProducts(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}

	if err := c.client.Client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warnf("Redis DEL failed: %v", e.Wrap(whereami.WhereAmI(), err))
	}

	return nil
}

// InvalidateAll удаляет все закэшированные карточки товаров (SCAN вместо KEYS,
// чтобы не блокировать Redis на больших каталогах).
func (c *CacheRepo) InvalidateAll(ctx context.Context) error {
	iter := c.client.Client.Scan(ctx, 0, productKeyPattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())

		if len(keys) >= 100 {
			if err := c.client.Client.Del(ctx, keys...).Err(); err != nil {
				return e.Wrap(whereami.WhereAmI(), err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if len(keys) > 0 {
		if err := c.client.Client.Del(ctx, keys...).Err(); err != nil {
			return e.Wrap(whereami.WhereAmI(), err)
		}
	}

	return nil
}

// productKey возвращает Redis-ключ карточки товара.
func productKey(id string) string {
	return fmt.Sprintf("product:%s", id)
}
