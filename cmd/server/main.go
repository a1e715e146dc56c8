package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Brownie44l1/alzdetect/internal/artifact"
	"github.com/Brownie44l1/alzdetect/internal/cache"
	"github.com/Brownie44l1/alzdetect/internal/config"
	"github.com/Brownie44l1/alzdetect/internal/logging"
	"github.com/Brownie44l1/alzdetect/internal/model"
	"github.com/Brownie44l1/alzdetect/internal/store"
)

// Version is the application version.
const Version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:     "alzdetect",
	Short:   "Alzheimer's stage classification from brain MRI scans",
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default $CONFIG_PATH or ./config.yaml)")
	rootCmd.AddCommand(serveCmd, classifyCmd, fetchModelCmd)
}

// env holds the process-wide resources shared by every command.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

func setup() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger}, nil
}

// loadClassifier fetches the model if it is missing and loads it once.
func (e *env) loadClassifier(ctx context.Context) (*model.Classifier, error) {
	fetcher := artifact.NewFetcher(e.logger, os.Stderr)
	if err := fetcher.Ensure(ctx, e.cfg.Model.Path, e.cfg.Model.URL); err != nil {
		return nil, err
	}

	e.logger.Info("loading model", zap.String("path", e.cfg.Model.Path))
	classifier, err := model.Load(e.cfg.Model.Path, e.cfg.Model.MetadataPath, e.cfg.Model.LibraryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize classifier: %w", err)
	}
	e.logger.Info("model loaded", zap.Any("classes", classifier.Metadata.Classes))
	return classifier, nil
}

func (e *env) openStore(ctx context.Context) (*store.Store, error) {
	db, err := store.Open(ctx, e.cfg.Database.Type, e.cfg.Database.ConnectionString)
	if err != nil {
		return nil, err
	}
	e.logger.Info("database ready", zap.String("type", e.cfg.Database.Type))
	return db, nil
}

// openCache returns Redis when configured, otherwise an in-process cache.
func (e *env) openCache(ctx context.Context) (cache.Cache, func(), error) {
	if e.cfg.Cache.RedisAddr == "" {
		return cache.NewMemoryCache(e.cfg.Cache.TTL), func() {}, nil
	}
	rc, err := cache.NewRedisCache(ctx, e.cfg.Cache.RedisAddr, e.cfg.Cache.TTL)
	if err != nil {
		return nil, nil, err
	}
	return rc, func() { _ = rc.Close() }, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
