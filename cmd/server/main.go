package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/weiawesome/wes-io-chat/internal/cache"
	"github.com/weiawesome/wes-io-chat/internal/cassandra"
	"github.com/weiawesome/wes-io-chat/internal/config"
	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/handler"
	"github.com/weiawesome/wes-io-chat/internal/hub"
	"github.com/weiawesome/wes-io-chat/internal/idgen"
	"github.com/weiawesome/wes-io-chat/internal/kafka"
	"github.com/weiawesome/wes-io-chat/internal/metrics"
	"github.com/weiawesome/wes-io-chat/internal/repository"
	"github.com/weiawesome/wes-io-chat/internal/service"
	"github.com/weiawesome/wes-io-chat/pkg/database"
	pkglog "github.com/weiawesome/wes-io-chat/pkg/log"
)

func main() {
	// Load configuration; edits to log.level apply without a restart
	cfg, err := config.Watch(func(next *config.Config) {
		pkglog.SetLevel(next.Log.Level)
	})
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "chat-server",
	})
	logger := pkglog.L()
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database using GORM
	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to connect to database")
	}
	defer database.Close(db)

	models := []interface{}{&domain.UserModel{}}
	if cfg.Messages.Driver == "gorm" {
		models = append(models, &domain.MessageModel{})
	}
	if err := database.AutoMigrate(db, models...); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")

	userRepo := repository.NewGormUserRepository(db)
	messageRepo, closeMessages := newMessageRepository(cfg, db)
	defer closeMessages()

	// Directory cache
	var dirCache cache.DirectoryCache = cache.NopCache{}
	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Str("address", cfg.Redis.Address).Msg("failed to connect to redis")
		}
		dirCache = cache.NewRedisDirectoryCache(client, cfg.Cache.Prefix)
		logger.Info().Str("address", cfg.Redis.Address).Msg("directory cache enabled")
	}
	defer dirCache.Close()

	// Message stream
	var publisher kafka.MessagePublisher = kafka.NoopPublisher{}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewConfluentProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize kafka producer")
		}
		publisher = producer
		logger.Info().Str("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka publisher enabled")
	}
	defer publisher.Close()

	ids, err := idgen.New(cfg.ID)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create id generator")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wsHub := hub.NewHub(cfg.WebSocket)
	if err := metrics.ObserveHub(prometheus.DefaultRegisterer, wsHub); err != nil {
		logger.Fatal().Err(err).Msg("failed to register hub metrics")
	}

	directory := service.NewDirectoryService(userRepo, dirCache, cfg.Cache.TTL)
	relay := service.NewRelayService(wsHub, messageRepo, ids, publisher, cfg.Relay)

	router := handler.NewRouter(logger, cfg.Server,
		handler.NewHandler(directory),
		handler.NewWSHandler(wsHub, relay, cfg.WebSocket, cfg.Server.AllowedOrigins))

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		wsHub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info().
			Str("addr", server.Addr).
			Str("join_mode", cfg.Relay.JoinMode).
			Str("id_strategy", cfg.ID.Strategy).
			Str("messages", cfg.Messages.Driver).
			Msg("chat server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down chat server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("chat server stopped with error")
		return
	}
	logger.Info().Msg("chat server stopped")
}

func newMessageRepository(cfg *config.Config, db *gorm.DB) (repository.MessageRepository, func()) {
	logger := pkglog.L()

	if cfg.Messages.Driver != "cassandra" {
		return repository.NewGormMessageRepository(db), func() {}
	}

	client, err := cassandra.NewClient(cfg.Cassandra)
	if err != nil {
		logger.Fatal().Err(err).Strs("hosts", cfg.Cassandra.Hosts).Msg("failed to connect to cassandra")
	}

	repo := repository.NewCassandraMessageRepository(client.Session())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repo.EnsureSchema(ctx); err != nil {
		client.Close()
		logger.Fatal().Err(err).Msg("failed to prepare cassandra schema")
	}

	logger.Info().Str("keyspace", cfg.Cassandra.Keyspace).Msg("cassandra message store enabled")
	return repo, client.Close
}
