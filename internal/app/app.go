package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	config "github.com/jiftechnify/upix-backend/internal/cfg"
	v1Http "github.com/jiftechnify/upix-backend/internal/delivery/v1/http"
	"github.com/jiftechnify/upix-backend/internal/imaging"
	cacheInfra "github.com/jiftechnify/upix-backend/internal/infrastructure/cache"
	"github.com/jiftechnify/upix-backend/internal/infrastructure/kafka"
	minioInfra "github.com/jiftechnify/upix-backend/internal/infrastructure/minio"
	s3Repo "github.com/jiftechnify/upix-backend/internal/repository/minio"
	redisRepo "github.com/jiftechnify/upix-backend/internal/repository/redis"
	"github.com/jiftechnify/upix-backend/internal/usecase"
	"github.com/jiftechnify/upix-backend/pkg/clients"
	"github.com/jiftechnify/upix-backend/pkg/closer"
	"github.com/jiftechnify/upix-backend/pkg/e"
	"github.com/jiftechnify/upix-backend/pkg/logger"
	"github.com/jimlawless/whereami"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	httpSrv     *v1Http.Server
	cacheWriter *cacheInfra.Writer
	closer      *closer.Closer
}

func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	cl := closer.New()

	minioClient, err := clients.NewMinIOClient(cfg.Minio)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minioCtx, minioCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer minioCancel()
	if err := clients.EnsureBucket(minioCtx, minioClient, cfg.Minio.BucketName); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redisClient := clients.NewRedisClient(cfg.Redis)
	redisCtx, redisCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer redisCancel()
	if err := redisClient.Ping(redisCtx); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add(func(_ context.Context) error {
		return redisClient.Client.Close()
	})

	derivativeRepo := s3Repo.NewDerivativeRepo(minioClient, cfg.Minio)
	cacheRepo := redisRepo.NewResponseCacheRepo(redisClient, cfg.Redis, log)
	imagesInfra := minioInfra.NewMinioInfrastructure(derivativeRepo, cfg.Minio, log)

	var events usecase.EventPublisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(log, cfg.Kafka)
		events = producer
		cl.Add(func(_ context.Context) error {
			return producer.Close()
		})
		log.Infof("ingest event producer enabled (topic: %s)", cfg.Kafka.Topic)
	}

	cacheWriter := cacheInfra.NewWriter(cacheRepo, log)
	cl.Add(func(_ context.Context) error {
		cacheWriter.Stop()
		return nil
	})

	imageUC := usecase.NewImageUC(
		derivativeRepo,
		cacheRepo,
		cacheWriter,
		imagesInfra,
		events,
		imaging.NewValidator(cfg.Image),
		cfg.Image,
		log,
	)

	r := chi.NewRouter()
	router := v1Http.NewRouter(r, log)
	router.Init(imageUC, cfg.Image)

	httpSrv := v1Http.NewServer(r, cfg.Http)
	cl.Add(func(ctx context.Context) error {
		return httpSrv.Stop(ctx)
	})

	return &App{
		cfg:         cfg,
		logger:      log,
		httpSrv:     httpSrv,
		cacheWriter: cacheWriter,
		closer:      cl,
	}, nil
}

// Run starts the background cache writer and the HTTP server, then blocks
// until a shutdown signal or a fatal server error. Resources are closed in
// LIFO order: server first, so the writer can drain after the last request.
func (a *App) Run() error {
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	a.cacheWriter.Start(appCtx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Errorf(err, "HTTP server failed")
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

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Warnf("shutdown finished with errors: %v", err)
	} else {
		a.logger.Infof("Application shutdown complete")
	}

	return appErr
}
