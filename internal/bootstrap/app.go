package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"portfolio-chatbot/internal/ai"
	"portfolio-chatbot/internal/app"
	"portfolio-chatbot/internal/cache"
	"portfolio-chatbot/internal/config"
	"portfolio-chatbot/internal/generation"
	"portfolio-chatbot/internal/logging"
	awsClient "portfolio-chatbot/internal/platform/aws"
	mysqlClient "portfolio-chatbot/internal/platform/mysql"
	rabbitmqClient "portfolio-chatbot/internal/platform/rabbitmq"
	redisClient "portfolio-chatbot/internal/platform/redis"
	"portfolio-chatbot/internal/pkg/jwtutil"
	"portfolio-chatbot/internal/repository"
	"portfolio-chatbot/internal/storage"
	"portfolio-chatbot/internal/worker"
)

type App struct {
	Config       *config.Config
	Logger       *slog.Logger
	MySQL        *gorm.DB
	Redis        *redis.Client
	MQConn       *amqp.Connection
	RecordWorker *worker.GenerationRecordWorker
	Services     Services

	StartedAt time.Time
	closeLog  func() error
}

type Services struct {
	Auth   *app.AuthService
	Chat   *app.ChatService
	Deploy *app.DeployService
}

func New(ctx context.Context) (_ *App, err error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	logger, closeLog, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	a := &App{
		Config:    cfg,
		Logger:    logger,
		StartedAt: time.Now(),
		closeLog:  closeLog,
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.MySQL, err = mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlClient.Migrate(a.MySQL); err != nil {
		return nil, err
	}

	a.Redis, err = redisClient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}

	var records app.GenerationRecordPublisher
	if cfg.RabbitMQ.DisableGenerationAudit {
		logger.Info("generation audit disabled")
	} else {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			return nil, err
		}
		a.RecordWorker = worker.NewGenerationRecordWorker(
			a.MQConn,
			repository.NewGenerationRecordRepository(a.MySQL),
			cfg.RabbitMQ.GenerationRecordQueue,
		)
		if err := a.RecordWorker.Start(ctx); err != nil {
			return nil, fmt.Errorf("start generation record worker failed: %w", err)
		}
		records = rabbitmqClient.NewRecordPublisher(a.MQConn, cfg.RabbitMQ.GenerationRecordQueue)
	}

	awsCfg, err := awsClient.LoadConfig(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}

	documents, err := newStorage(ctx, cfg, awsCfg)
	if err != nil {
		return nil, err
	}
	invoker, err := newInvoker(ctx, cfg, awsCfg, documents)
	if err != nil {
		return nil, err
	}

	a.Services = NewServices(cfg, a.MySQL, a.Redis, documents, invoker, records)
	logger.Info("bootstrap complete",
		"storage_driver", cfg.Storage.Driver,
		"generation_driver", invoker.Driver(),
		"generation_audit", records != nil,
	)
	return a, nil
}

// NewServices wires the request-path services. records may be nil.
func NewServices(
	cfg *config.Config,
	db *gorm.DB,
	redisCli *redis.Client,
	documents storage.Gateway,
	invoker generation.Invoker,
	records app.GenerationRecordPublisher,
) Services {
	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	tokens := jwtutil.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.JWTExpiration())
	historyCache := cache.NewHistoryCache(
		redisCli,
		time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(cfg.Redis.DirtyTTLSeconds)*time.Second,
	)

	return Services{
		Auth:   app.NewAuthService(userRepo, tokens, cache.NewTokenRevoker(redisCli)),
		Chat:   app.NewChatService(chatRepo, messageRepo, documents, invoker, historyCache, records),
		Deploy: app.NewDeployService(chatRepo, messageRepo, documents),
	}
}

func newStorage(ctx context.Context, cfg *config.Config, awsCfg awssdk.Config) (storage.Gateway, error) {
	switch cfg.Storage.Driver {
	case "s3":
		return storage.NewS3Store(awsCfg, cfg.Storage.Bucket, cfg.Storage.PublicBaseURL), nil
	case "minio":
		store, err := storage.NewMinioStore(ctx, storage.MinioOptions{
			Endpoint:      cfg.Storage.Endpoint,
			AccessKey:     cfg.AWS.AccessKeyID,
			SecretKey:     cfg.AWS.SecretAccessKey,
			SessionToken:  cfg.AWS.SessionToken,
			Region:        cfg.AWS.Region,
			Bucket:        cfg.Storage.Bucket,
			UseSSL:        cfg.Storage.UseSSL,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		return storage.NewMemoryStore(cfg.Storage.Bucket, cfg.Storage.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

func newInvoker(ctx context.Context, cfg *config.Config, awsCfg awssdk.Config, documents storage.Gateway) (generation.Invoker, error) {
	switch cfg.Generation.Driver {
	case generation.DriverLambda:
		return generation.NewLambdaInvoker(awsCfg, cfg.Generation.FunctionName, cfg.GenerationTimeout()), nil
	case generation.DriverDirect:
		llm := cfg.LLM
		if llm.APIKeySecretARN != "" {
			secrets, err := awsClient.LoadLLMSecrets(ctx, awsCfg, llm.APIKeySecretARN)
			if err != nil {
				return nil, err
			}
			if secrets.APIKey != "" {
				llm.APIKey = secrets.APIKey
			}
			if secrets.Instructions != "" {
				llm.Instructions = secrets.Instructions
			}
		}
		if llm.APIKey == "" {
			return nil, fmt.Errorf("llm api key is required for the direct generation driver")
		}
		return generation.NewDirectInvoker(
			documents,
			ai.NewOpenAICompatibleClient(),
			ai.ChatConfig{BaseURL: llm.BaseURL, APIKey: llm.APIKey, Model: llm.Model},
			llm.Instructions,
			cfg.GenerationTimeout(),
		), nil
	default:
		return nil, fmt.Errorf("unsupported generation driver %q", cfg.Generation.Driver)
	}
}

func (a *App) Close() error {
	var closeErr error
	if a.RecordWorker != nil {
		a.RecordWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
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
	if a.closeLog != nil {
		if err := a.closeLog(); err != nil {
			closeErr = err
		}
	}
	return closeErr
}
