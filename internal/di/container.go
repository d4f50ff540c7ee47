package di

import (
	"context"

	"github.com/GoArmGo/PlacesApp/internal/adapter/geocoding"
	"github.com/GoArmGo/PlacesApp/internal/adapter/storage/imagestore"
	"github.com/GoArmGo/PlacesApp/internal/adapter/storage/local"
	"github.com/GoArmGo/PlacesApp/internal/adapter/storage/minio"
	"github.com/GoArmGo/PlacesApp/internal/app"
	"github.com/GoArmGo/PlacesApp/internal/auth"
	"github.com/GoArmGo/PlacesApp/internal/cache"
	"github.com/GoArmGo/PlacesApp/internal/config"
	"github.com/GoArmGo/PlacesApp/internal/core/ports"
	"github.com/GoArmGo/PlacesApp/internal/database/client"
	"github.com/GoArmGo/PlacesApp/internal/database/postgres"
	"github.com/GoArmGo/PlacesApp/internal/handler"
	"github.com/GoArmGo/PlacesApp/internal/logger"
	"github.com/GoArmGo/PlacesApp/internal/rabbitmq"
	"github.com/GoArmGo/PlacesApp/internal/usecase"
)

// BuildApp инициализирует все зависимости и возвращает готовый объект App.
// При ошибке уже открытые ресурсы закрываются.
func BuildApp(ctx context.Context) (_ *app.App, err error) {
	// 1. Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	slogger := logger.NewSlog(logger.SlogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	slogger.Info("logger initialized", "level", cfg.LogLevel, "format", cfg.LogFormat)

	var closers []app.Closer
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				_ = closers[i].Close()
			}
		}
	}()

	// 2. PostgreSQL: пул + миграции, поверх него GORM
	dbClient, err := client.NewClient(cfg, slogger)
	if err != nil {
		return nil, err
	}
	closers = append(closers, app.Closer{Name: "postgres", Close: dbClient.Close})

	gormDB, err := postgres.NewGorm(dbClient.DB.DB)
	if err != nil {
		return nil, err
	}

	// 3. Хранилища
	placeStorage := postgres.NewGormPlaceStorage(gormDB, slogger)
	userStorage := postgres.NewGormUserStorage(gormDB, slogger)

	// 4. Кэш (опционально)
	var readCache ports.Cache = cache.Noop{}
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		closers = append(closers, app.Closer{Name: "redis", Close: redisCache.Close})
		readCache = redisCache
	} else {
		slogger.Info("REDIS_ADDR not set, read cache disabled")
	}

	// 5. Хранилище изображений
	localFiles, err := local.NewStorage(cfg.UploadDir, slogger)
	if err != nil {
		return nil, err
	}
	var uploads ports.FileStorage = localFiles
	var remote ports.FileStorage
	if cfg.ImageBackend == config.ImageBackendS3 {
		s3Client, err := minio.NewMinioClient(ctx, cfg, slogger)
		if err != nil {
			return nil, err
		}
		uploads, remote = s3Client, s3Client
	}
	images := imagestore.NewStore(uploads, remote, localFiles, cfg.MaxImageSize, slogger)

	// 6. RabbitMQ (опционально)
	var publisher ports.ImageCleanupPublisher = rabbitmq.NewNoopPublisher(slogger)
	var consumer ports.ImageCleanupConsumer
	if cfg.RabbitMQ.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(cfg, slogger)
		if err != nil {
			return nil, err
		}
		closers = append(closers, app.Closer{Name: "rabbitmq", Close: mq.Close})
		publisher, consumer = mq, mq
	}

	// 7. Внешние сервисы и бизнес-логика
	geocoder := geocoding.NewClient(cfg, slogger)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)

	placeUseCase := usecase.NewPlaceUseCase(placeStorage, userStorage, geocoder, images, readCache, publisher, slogger)
	userUseCase := usecase.NewUserUseCase(userStorage, tokens, readCache, slogger)

	// 8. HTTP
	errs := handler.NewErrorResponder(images, slogger)
	authLimiter := handler.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst, errs)
	router := handler.NewRouter(handler.RouterDeps{
		Places:      handler.NewPlaceHandler(placeUseCase, images, errs, cfg.MaxImageSize, slogger),
		Users:       handler.NewUserHandler(userUseCase, images, errs, cfg.MaxImageSize, slogger),
		Errors:      errs,
		Tokens:      tokens,
		AuthLimiter: authLimiter,
		UploadDir:   localFiles.Dir(),
		Logger:      slogger,
	})

	slogger.Info("all dependencies initialized", "image_backend", cfg.ImageBackend)
	return app.NewApp(cfg, slogger, router, authLimiter, images, consumer, closers), nil
}
