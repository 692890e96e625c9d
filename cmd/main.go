package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"lpr-gate/config"
	"lpr-gate/internal/container"
	"lpr-gate/internal/infrastructure/source"
	"lpr-gate/internal/infrastructure/storage"
	plog "lpr-gate/pkg/log"
)

func main() {
	once := flag.Bool("once", false, "process frames already in LPR_FRAME_DIR and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := plog.New(plog.Options{Level: cfg.LogLevel, File: cfg.LogFile, Caller: cfg.LogCaller})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flag.Arg(0) == "migrate" {
		if err := migrate(ctx, cfg); err != nil {
			logger.WithError(err).Fatal("migration failed")
		}
		logger.Info("schema is up to date")
		return
	}

	// Собираем сервисы приложения
	c, err := container.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to build application")
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.WithError(err).Warn("failed to close resources")
		}
	}()

	if err := os.MkdirAll(cfg.FrameDir, 0o755); err != nil {
		logger.WithError(err).Fatal("failed to create frame dir")
	}

	src, err := source.NewDirectorySource(cfg.FrameDir, source.DirectoryOptions{
		Follow:   !*once,
		Debounce: 500 * time.Millisecond,
	}, logger.WithField("component", "source"))
	if err != nil {
		logger.WithError(err).Fatal("failed to open frame source")
	}
	defer src.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// после исчерпания источника останавливаем и бота
		defer stop()
		return c.Runner.Run(gctx, src)
	})

	if c.Bot != nil {
		g.Go(func() error {
			return c.Bot.Run(gctx)
		})
	}

	logger.WithField("frame_dir", cfg.FrameDir).Info("lpr gate is running")
	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("stopped with error")
		return
	}
	logger.Info("stopped")
}

// migrate создаёт таблицу detections и выходит
func migrate(ctx context.Context, cfg *config.Config) error {
	db, err := storage.OpenPostgres(ctx, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	return storage.NewPostgresDetectionRepository(db).Migrate(ctx)
}
