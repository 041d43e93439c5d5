package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carebot/carebot-api/internal/config"
	v1 "github.com/carebot/carebot-api/internal/handler/v1"
	"github.com/carebot/carebot-api/internal/service"
	"github.com/carebot/carebot-api/internal/store"
	"github.com/carebot/carebot-api/pkg/filestore"
	"github.com/carebot/carebot-api/pkg/logger"
	"github.com/carebot/carebot-api/pkg/metrics"
	"github.com/carebot/carebot-api/pkg/tracer"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "carebot-server",
		Short: "Carebot patient-document backend",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(statsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print record store statistics and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			st := store.Open(cfg.Storage.DatabaseFile, zap.NewNop())
			if err := st.Load(); err != nil {
				return err
			}

			s := st.Stats()
			fmt.Printf("patients:          %d\n", s.TotalPatients)
			fmt.Printf("documents:         %d\n", s.TotalDocuments)
			fmt.Printf("pending documents: %d\n", s.PendingDocuments)
			fmt.Printf("upload sessions:   %d\n", s.TotalSessions)
			fmt.Printf("storage used:      %d bytes\n", s.TotalStorageUsed)
			return nil
		},
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	st := store.Open(cfg.Storage.DatabaseFile, log)
	if err := st.Load(); err != nil {
		return fmt.Errorf("initializing record store: %w", err)
	}

	files, err := filestore.New(cfg.Upload.Dir)
	if err != nil {
		return err
	}

	m := metrics.NewCollector(strings.ReplaceAll(cfg.App.Name, "-", "_"))

	patients := service.NewPatientService(st, log, m)
	documents := service.NewDocumentService(st, log, m)
	sessions := service.NewSessionService(st, log, m)
	uploads := service.NewUploadService(files, patients, documents, sessions, cfg.Upload, log, m)
	db := service.NewDatabaseService(st)

	h := v1.New(patients, documents, uploads, db, cfg, log)
	router := v1.NewRouter(h, cfg, log, m)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("address", cfg.Server.Address()),
			zap.String("upload_dir", files.Dir()),
			zap.Int64("max_file_size", cfg.Upload.MaxFileSize),
			zap.String("database_file", cfg.Storage.DatabaseFile),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	// Final commit so the watermark reflects shutdown time.
	if err := st.Commit(); err != nil {
		log.Error("final store commit failed", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}
