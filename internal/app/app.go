package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/similarity-backend/internal/cfg"
	"github.com/DRSN-tech/similarity-backend/internal/catalog"
	v1Http "github.com/DRSN-tech/similarity-backend/internal/delivery/v1/http"
	embedderInfra "github.com/DRSN-tech/similarity-backend/internal/infrastructure/embedder"
	"github.com/DRSN-tech/similarity-backend/internal/infrastructure/kafka"
	minioInfra "github.com/DRSN-tech/similarity-backend/internal/infrastructure/minio"
	s3Repo "github.com/DRSN-tech/similarity-backend/internal/repository/minio"
	"github.com/DRSN-tech/similarity-backend/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/similarity-backend/internal/repository/pgdb/converter"
	qdrantRepo "github.com/DRSN-tech/similarity-backend/internal/repository/qdrant"
	"github.com/DRSN-tech/similarity-backend/internal/repository/redis"
	redisConv "github.com/DRSN-tech/similarity-backend/internal/repository/redis/converter"
	"github.com/DRSN-tech/similarity-backend/internal/ranking"
	"github.com/DRSN-tech/similarity-backend/internal/usecase"
	"github.com/DRSN-tech/similarity-backend/internal/vector"
	"github.com/DRSN-tech/similarity-backend/pkg/clients"
	"github.com/DRSN-tech/similarity-backend/pkg/closer"
	"github.com/DRSN-tech/similarity-backend/pkg/e"
	"github.com/DRSN-tech/similarity-backend/pkg/logger"
	"github.com/DRSN-tech/similarity-backend/pkg/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

// App собирает зависимости сервиса поиска похожих товаров и управляет их
// жизненным циклом. Ресурсы закрываются через closer в порядке LIFO.
type App struct {
	cfg       *config.Config
	logger    logger.Logger
	closer    *closer.Closer
	httpSrv   *v1Http.Server
	catalogUC *usecase.CatalogUseCase
}

func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	cl := closer.NewCloser(2 * time.Second)

	db, err := initPGDB(log, cfg)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add(func(ctx context.Context) error {
		db.Close()
		return nil
	})

	codec := vector.NewCodec(cfg.Search.VectorSize)
	store := catalog.NewStore(codec)
	ranker := ranking.NewRanker()

	prConv := pgdbConv.NewProductConverter()
	outboxConv := pgdbConv.NewOutboxEventConverter()
	infoConv := redisConv.NewProductInfoConverter()

	productRepo := pgdb.NewProductRepo(db.Pool, prConv)
	outboxRepo := pgdb.NewOutboxEventRepo(db.Pool, outboxConv)

	minioClient, err := clients.NewMinIOClient(cfg.Minio)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minioCtx, minioCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := clients.EnsureBucket(minioCtx, minioClient, cfg.Minio.BucketName); err != nil {
		minioCancel()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	minioCancel()

	imageRepo := s3Repo.NewImageRepo(minioClient, cfg.Minio)

	// Фоновая очистка MinIO живёт до завершения приложения
	minioShutdownCtx, minioShutdownCancel := context.WithCancel(context.Background())
	imagesInfra := minioInfra.NewMinioInfrastructure(imageRepo, cfg.Minio, log, minioShutdownCtx)
	cl.Add(func(ctx context.Context) error {
		defer minioShutdownCancel()
		return imagesInfra.WaitForCleanup(ctx)
	})

	qdrantClient, err := clients.NewQdrantClient(cfg.Qdrant)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	qdrantCtx, qdrantCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := clients.EnsureCollection(qdrantCtx, qdrantClient); err != nil {
		qdrantCancel()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	qdrantCancel()
	cl.Add(func(ctx context.Context) error {
		return qdrantClient.Client.Close()
	})

	embRepo := qdrantRepo.NewEmbeddingRepo(qdrantClient.Client, cfg.Qdrant)

	redisClient := clients.NewRedisClient(cfg.Redis)
	redisCtx, redisCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer redisCancel()
	if err := redisClient.Ping(redisCtx); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add(func(ctx context.Context) error {
		return redisClient.Client.Close()
	})
	cacheRepo := redis.NewCacheRepo(redisClient, infoConv, cfg.Redis, log)

	embedder := embedderInfra.NewEmbedder(cfg.Embedder, log)

	producer, err := kafka.NewProducer(log, cfg.Kafka)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if err := producer.EnsureTopic(10 * time.Second); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add(func(ctx context.Context) error {
		return producer.Close()
	})

	workerCtx, workerCancel := context.WithCancel(context.Background())
	outboxWorker := kafka.NewOutboxWorker(outboxRepo, log, producer, db.Dsn)
	outboxWorker.Start(workerCtx)
	cl.Add(func(ctx context.Context) error {
		workerCancel()
		outboxWorker.Stop()
		return nil
	})

	searchUC := usecase.NewSearchUC(store, codec, ranker, embedder, embRepo, log, cfg.Search)
	catalogUC := usecase.NewCatalogUC(store, codec, productRepo, outboxRepo, embRepo, cacheRepo, embedder, imagesInfra, db.Pool, log)

	r := chi.NewRouter()
	router := v1Http.NewRouter(r, log)
	router.Init(searchUC, catalogUC, imageRepo)

	httpSrv := v1Http.NewServer(r, cfg.Http)

	return &App{
		cfg:       cfg,
		logger:    log,
		closer:    cl,
		httpSrv:   httpSrv,
		catalogUC: catalogUC,
	}, nil
}

// Run восстанавливает каталог из БД, запускает HTTP-сервер и блокируется
// до сигнала остановки или фатальной ошибки сервера.
func (a *App) Run() error {
	warmCtx, warmCancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := a.catalogUC.WarmStart(warmCtx); err != nil {
		warmCancel()
		a.logger.Errorf(err, "failed to restore catalog")
		return err
	}
	warmCancel()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Errorf(err, "HTTP server failed: %v", err)
			errCh <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.httpSrv.Stop(shutdownCtx); err != nil {
		a.logger.Errorf(err, "HTTP server shutdown error")
	} else {
		a.logger.Infof("HTTP server stopped")
	}

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Warnf("resource shutdown: %v", err)
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}

func initPGDB(logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		logger.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.Ping(); err != nil {
		logger.Errorf(err, "failed to ping database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
