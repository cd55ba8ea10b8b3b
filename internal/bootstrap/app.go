package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cowrite/internal/ai"
	"cowrite/internal/cache"
	"cowrite/internal/config"
	"cowrite/internal/document"
	"cowrite/internal/model"
	"cowrite/internal/pkg/logger"
	mysqlClient "cowrite/internal/platform/mysql"
	rabbitmqClient "cowrite/internal/platform/rabbitmq"
	redisClient "cowrite/internal/platform/redis"
	"cowrite/internal/repository"
	"cowrite/internal/worker"
)

type App struct {
	Config        *config.Config
	Log           *logger.Logger
	MySQL         *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	HistoryCache  *cache.HistoryCache
	Generator     ai.Generator
	Documents     *document.Registry
	MessageWorker *worker.MessagePersistWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQL)
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(model.All()...); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	historyCache := cache.NewHistoryCache(
		redisCli,
		time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ)
	if err != nil {
		return nil, err
	}

	generator := ai.NewOpenAICompatibleClient(ai.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
	})
	blockModel := cfg.ModelID(config.ModelBlock)
	registry, err := document.NewRegistry(
		document.NewTextHandler(generator, blockModel),
		document.NewCodeHandler(generator, blockModel),
	)
	if err != nil {
		return nil, fmt.Errorf("build document registry failed: %w", err)
	}

	messageRepo := repository.NewMessageRepository(mysqlDB)
	messageWorker := worker.NewMessagePersistWorker(mqConn, messageRepo, historyCache, cfg.RabbitMQ, log)
	if err := messageWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start message worker failed: %w", err)
	}

	log.Info("bootstrap complete",
		"env", cfg.App.Env,
		"async_persist", cfg.Chat.AsyncPersist,
		"document_kinds", registry.Kinds(),
	)

	return &App{
		Config:        cfg,
		Log:           log,
		MySQL:         mysqlDB,
		Redis:         redisCli,
		MQConn:        mqConn,
		HistoryCache:  historyCache,
		Generator:     generator,
		Documents:     registry,
		MessageWorker: messageWorker,
		StartedAt:     time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MessageWorker != nil {
		a.MessageWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
	return closeErr
}
