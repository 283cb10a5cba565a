package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	grpcctx "github.com/dtroode/regicide-accounts/internal/api/grpc/context"
	"github.com/dtroode/regicide-accounts/internal/api/grpc/router"
	grpcServer "github.com/dtroode/regicide-accounts/internal/api/grpc/server"
	"github.com/dtroode/regicide-accounts/internal/awsconfig"
	"github.com/dtroode/regicide-accounts/internal/config"
	"github.com/dtroode/regicide-accounts/internal/logger"
	"github.com/dtroode/regicide-accounts/internal/model"
	"github.com/dtroode/regicide-accounts/internal/repository/dynamo"
	"github.com/dtroode/regicide-accounts/internal/repository/memory"
	"github.com/dtroode/regicide-accounts/internal/repository/postgres"
	"github.com/dtroode/regicide-accounts/internal/schema"
	"github.com/dtroode/regicide-accounts/internal/secrets"
	"github.com/dtroode/regicide-accounts/internal/service"
	storage "github.com/dtroode/regicide-accounts/internal/storage/minio"
	"github.com/dtroode/regicide-accounts/internal/telemetry"
	"github.com/dtroode/regicide-accounts/internal/template"
	"github.com/dtroode/regicide-accounts/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.NewWithWriter(os.Stdout, cfg.LogLevel, cfg.LogJSON)

	if cfg.Auth.SecretID != "" {
		if err := applySecret(ctx, cfg); err != nil {
			logger.Fatal("failed to load secret", "secret_id", cfg.Auth.SecretID, "error", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		logger.Fatal("failed to set up tracing", "error", err)
	}

	store, closeStore, err := newKeyValueStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize account store", "backend", cfg.Store.Backend, "error", err)
	}
	defer closeStore()

	accountTemplate, err := loadTemplate(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to load default account", "error", err)
	}

	codec := token.NewCodec([]byte(cfg.Auth.SigningKey))
	accounts := service.NewAccountStore(
		store,
		schema.New(logger),
		[]byte(cfg.Auth.PasswordSalt),
		logger,
		service.WithEmailIndex(cfg.Store.EmailIndex),
		service.WithRetryPolicy(service.RetryPolicy{
			Initial:   cfg.Register.Initial,
			Increment: cfg.Register.Increment,
			MaxStep:   cfg.Register.MaxStep,
		}),
		service.WithRegisterTimeout(cfg.Register.Timeout),
	)
	sessions := service.NewSession(accounts, codec, accountTemplate, cfg.Auth.TokenTTL, logger)
	authorizer := service.NewAuthorizer(codec, logger)

	r := router.New(sessions, authorizer, codec, grpcctx.NewManager(), logger, cfg.GRPC.Reflection)
	server := grpcServer.NewGRPCServer(r.Register(), fmt.Sprintf(":%s", cfg.GRPC.Port))

	var sl model.SecurityLayer
	if cfg.GRPC.EnableHTTPS {
		sl = grpcServer.NewTLSListener(cfg.GRPC.CertFileName, cfg.GRPC.PrivateKeyFileName)
	} else {
		sl = grpcServer.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		if err := s.Start(sl); err != nil {
			logger.Error("failed to start server", "error", err)
			stop()
		}
	}(server)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	r.Shutdown()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", server.Address())
	}
	wg.Wait()

	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("failed to flush traces", "error", err)
	}
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}

func awsConfigOptions(cfg *config.Config) awsconfig.Options {
	return awsconfig.Options{
		Region:          cfg.DynamoDB.Region,
		AccessKeyID:     cfg.DynamoDB.AccessKeyID,
		SecretAccessKey: cfg.DynamoDB.SecretAccessKey,
	}
}

func applySecret(ctx context.Context, cfg *config.Config) error {
	awsCfg, err := awsconfig.Load(ctx, awsConfigOptions(cfg))
	if err != nil {
		return err
	}

	creds, err := secrets.NewLoader(secrets.NewClient(awsCfg)).Load(ctx, cfg.Auth.SecretID)
	if err != nil {
		return err
	}
	cfg.ApplySecret(creds)
	return nil
}

func newKeyValueStore(ctx context.Context, cfg *config.Config, logger *logger.Logger) (model.KeyValueStore, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewStore(db, logger), func() { _ = db.Close() }, nil

	case config.BackendMemory:
		logger.Warn("using in-memory account store, data is lost on restart")
		return memory.NewStore(), func() {}, nil

	default:
		awsCfg, err := awsconfig.Load(ctx, awsConfigOptions(cfg))
		if err != nil {
			return nil, nil, err
		}
		store := dynamo.New(dynamo.NewClient(awsCfg, cfg.DynamoDB.Endpoint), cfg.Store.Table, logger)
		if cfg.DynamoDB.CreateTable {
			if err := store.EnsureTable(ctx, cfg.Store.EmailIndex); err != nil {
				return nil, nil, err
			}
		}
		return store, func() {}, nil
	}
}

func loadTemplate(ctx context.Context, cfg *config.Config, logger *logger.Logger) (model.Account, error) {
	var objects model.Storage
	if cfg.Storage.Endpoint != "" {
		client, err := storage.NewClient(ctx, storage.Options{
			Endpoint:     cfg.Storage.Endpoint,
			AccessKey:    cfg.Storage.AccessKey,
			SecretKey:    cfg.Storage.SecretKey,
			Bucket:       cfg.Storage.Bucket,
			UseSSL:       cfg.Storage.UseSSL,
			CreateBucket: cfg.Storage.CreateBucket,
		}, logger)
		if err != nil {
			return model.Account{}, err
		}
		objects = client
	}

	loader := template.NewLoader(objects, cfg.Template.Key, cfg.Template.File, logger)

	if cfg.Template.Publish {
		account, err := template.NewLoader(nil, "", cfg.Template.File, logger).Load(ctx)
		if err != nil {
			return model.Account{}, err
		}
		if err := loader.Publish(ctx, account); err != nil {
			return model.Account{}, err
		}
	}

	return loader.Load(ctx)
}
