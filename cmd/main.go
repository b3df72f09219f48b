package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/Shopify/sarama"
	"github.com/go-playground/validator/v10"
	"github.com/golang-migrate/migrate/v4"
	"github.com/jmoiron/sqlx"
	"github.com/practice-sem-2/mtp-service/internal/api"
	"github.com/practice-sem-2/mtp-service/internal/config"
	"github.com/practice-sem-2/mtp-service/internal/credentials"
	"github.com/practice-sem-2/mtp-service/internal/server"
	storage "github.com/practice-sem-2/mtp-service/internal/storages"
	usecase "github.com/practice-sem-2/mtp-service/internal/usecases"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/golang-migrate/migrate/v4/database/pgx"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v4/stdlib"
)

const shutdownTimeout = 10 * time.Second

func initLogger(level string) *logrus.Logger {

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		PrettyPrint: true,
	})

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
		logger.
			WithField("log_level", level).
			Warning("specified invalid log level")
	} else {
		logger.SetLevel(logLevel)
		logger.
			WithField("log_level", level).
			Infof("specified %s log level", logLevel.String())
	}

	return logger
}

func initDB(dsn string, logger *logrus.Logger) *sqlx.DB {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		logger.Fatalf("can't connect to database: %s", err.Error())
	}

	err = db.Ping()

	if err != nil {
		logger.Fatalf("database ping failed: %s", err.Error())
	}

	logger.Info("successfully connected to database")
	return db
}

func initProducer(brokers []string, logger *logrus.Logger) sarama.SyncProducer {
	config := sarama.NewConfig()
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Timeout = 10 * time.Second
	config.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer(brokers, config)

	if err != nil {
		logger.WithError(err).Fatalf("can't create producer")
	}

	return producer
}

func initCredentials(cfg *config.Config, logger *logrus.Logger) usecase.Credential {
	digester, err := credentials.NewDigester(cfg.HashSize.Password, cfg.HashSize.AuthID)
	if err != nil {
		logger.WithError(err).Fatal("can't create password digester")
	}

	if cfg.Auth.TokenFormat != "jwt" {
		return digester
	}

	signer, err := credentials.NewJWTDigester(digester, []byte(cfg.Auth.JWTSecret))
	if err != nil {
		logger.WithError(err).Fatal("can't create token signer")
	}
	return signer
}

// initStore returns the record store and a function releasing its resources.
func initStore(cfg *config.Config, v *validator.Validate, logger *logrus.Logger) (storage.RecordStore, func()) {
	if cfg.Database.Driver == "memory" {
		logger.Warn("using in-memory record store, data is lost on restart")
		return storage.NewMemoryStore(v), func() {}
	}

	db := initDB(cfg.Database.DSN, logger)
	return storage.NewPostgresStore(db, v), func() {
		if err := db.Close(); err != nil {
			logger.Errorf("during db connection close an error occurred: %s", err.Error())
		}
	}
}

func initUpdates(cfg *config.Config, v *validator.Validate, logger *logrus.Logger) (storage.UpdatesPublisher, func()) {
	brokers := cfg.Kafka.BrokerList()
	if len(brokers) == 0 {
		logger.Info("no kafka brokers configured, updates are not published")
		return storage.NopUpdates{}, func() {}
	}

	producer := initProducer(brokers, logger)
	store := storage.NewUpdatesStore(producer, v, &storage.UpdatesStoreConfig{
		UpdatesTopic: cfg.Kafka.UpdatesTopic,
	})
	return store, func() {
		if err := producer.Close(); err != nil {
			logger.WithError(err).Error("can't close kafka producer")
		}
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	if err := config.Setup(v, cmd.Flags()); err != nil {
		return nil, err
	}
	return config.Load(v)
}

func serve(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	validate := validator.New()

	store, closeStore := initStore(cfg, validate, logger)
	defer closeStore()

	updates, closeUpdates := initUpdates(cfg, validate, logger)
	defer closeUpdates()

	engine := usecase.NewEngine(
		store,
		initCredentials(cfg, logger),
		api.NewParser(validate),
		usecase.EngineConfig{
			MessagesLimit: cfg.Limits.Messages,
			UsersLimit:    cfg.Limits.Users,
			MinVersion:    cfg.API.MinVersion,
			MaxVersion:    cfg.API.MaxVersion,
		},
		logger,
		usecase.WithUpdates(updates),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           server.NewServer(engine, store, registry, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(),
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("signal caught. Gracefully shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("graceful shutdown failed")
		}
	}()

	logger.Infof("start listening on %s", srv.Addr)
	if err = srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http serving error: %w", err)
	}
	return nil
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or revert the database schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := initLogger(cfg.Log)

			m, err := migrate.New(cfg.Migrations.Dir, cfg.Migrations.DSN)
			if err != nil {
				return fmt.Errorf("failed to open migrations: %w", err)
			}
			defer m.Close()

			if args[0] == "up" {
				err = m.Up()
			} else {
				err = m.Down()
			}
			if errors.Is(err, migrate.ErrNoChange) {
				logger.Info("schema is up to date")
				return nil
			}
			if err != nil {
				return fmt.Errorf("migration %s failed: %w", args[0], err)
			}
			logger.Infof("migration %s applied", args[0])
			return nil
		},
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mtp-server",
		Short:         "MTP chat protocol server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	config.RegisterFlags(cmd.PersistentFlags())
	cmd.AddCommand(newMigrateCommand())
	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
