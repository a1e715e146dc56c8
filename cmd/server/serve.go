package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Brownie44l1/alzdetect/internal/handlers"
	"github.com/Brownie44l1/alzdetect/internal/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the model and serve the prediction API",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.logger.Sync()
		ctx := cmd.Context()

		classifier, err := e.loadClassifier(ctx)
		if err != nil {
			return err
		}
		defer classifier.Close()

		db, err := e.openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		results, closeCache, err := e.openCache(ctx)
		if err != nil {
			return err
		}
		defer closeCache()

		p := pipeline.New(classifier, db, e.logger, pipeline.WithResultCache(results))
		handler := handlers.NewHandler(p, classifier, db, results, e.logger)

		addr := fmt.Sprintf(":%d", e.cfg.Server.Port)
		srv := &http.Server{
			Addr:              addr,
			Handler:           handler.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			e.logger.Info("server starting", zap.String("addr", addr),
				zap.Strings("endpoints", []string{
					"GET /health", "POST /predict", "POST /classify", "GET /records", "GET /reports/{id}",
				}))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server failed: %w", err)
		case <-ctx.Done():
			e.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	},
}
