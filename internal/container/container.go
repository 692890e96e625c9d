package container

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"lpr-gate/config"
	telegram "lpr-gate/internal/api"
	app "lpr-gate/internal/application"
	"lpr-gate/internal/domain/plate"
	"lpr-gate/internal/domain/port"
	"lpr-gate/internal/infrastructure/detector"
	"lpr-gate/internal/infrastructure/recognizer"
	"lpr-gate/internal/infrastructure/snapshot"
	"lpr-gate/internal/infrastructure/storage"
	"lpr-gate/internal/infrastructure/vision"
)

const snapshotPrefix = "snapshots"

// Container собранные сервисы приложения и ресурсы, которые надо закрыть
type Container struct {
	History     port.DetectionHistory
	Subscribers *app.SubscriberService
	Gate        *app.DedupGate
	Pipeline    *app.Pipeline
	Runner      *app.Runner
	Bot         *telegram.Bot // nil без TELEGRAM_TOKEN

	closers []func() error
	awsCfg  *aws.Config
	log     logrus.FieldLogger
}

// New собирает граф зависимостей по конфигурации. При ошибке уже открытые ресурсы закрываются.
func New(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*Container, error) {
	c := &Container{log: log}
	built, err := c.build(ctx, cfg)
	if err != nil {
		if cerr := c.Close(); cerr != nil {
			log.WithError(cerr).Warn("failed to release resources")
		}
		return nil, err
	}
	return built, nil
}

func (c *Container) build(ctx context.Context, cfg *config.Config) (*Container, error) {
	log := c.log

	validator, err := plate.NewValidator(cfg.PlateGrammars)
	if err != nil {
		return nil, err
	}

	if c.History, err = c.buildHistory(ctx, cfg); err != nil {
		return nil, err
	}

	pv, renderer, err := buildVision(cfg)
	if err != nil {
		return nil, err
	}

	rec, err := c.buildRecognizer(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []app.PipelineOption{
		app.WithMargin(cfg.MarginPx),
		app.WithWorkers(cfg.Workers),
	}
	snapshots, err := c.buildSnapshots(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if snapshots != nil {
		opts = append(opts, app.WithSnapshots(snapshots))
	}

	c.Gate = app.NewDedupGate(c.History, cfg.DedupWindow, log.WithField("component", "dedup"))
	c.Pipeline = app.NewPipeline(pv, rec, validator, c.Gate, log.WithField("component", "pipeline"), opts...)
	c.Subscribers = app.NewSubscriberService(storage.NewMemorySubscriberRepository(cfg.TelegramChatIDs...))

	var notifiers []port.AdmissionNotifier
	if cfg.TelegramToken != "" {
		c.Bot, err = telegram.NewBot(cfg.TelegramToken, c.Subscribers, c.History, log.WithField("component", "telegram"))
		if err != nil {
			return nil, fmt.Errorf("create telegram bot: %w", err)
		}
		notifiers = append(notifiers, c.Bot)
	}

	det := detector.NewWebSocketDetector(cfg.DetectorURL, log.WithField("component", "detector"))
	c.closers = append(c.closers, det.Close)

	c.Runner = app.NewRunner(det, c.Pipeline, renderer, app.RunnerConfig{
		Threshold:  cfg.DetectionThreshold,
		PlateClass: cfg.PlateClass,
		MaxFPS:     cfg.MaxFPS,
	}, log.WithField("component", "runner"), notifiers...)

	if c.Bot != nil {
		c.Bot.SetProcessor(c.Runner)
	}

	log.WithFields(logrus.Fields{
		"history":    cfg.HistoryBackend,
		"vision":     cfg.VisionBackend,
		"recognizer": cfg.Recognizer,
		"snapshots":  cfg.SnapshotBackend,
		"window":     cfg.DedupWindow,
		"grammars":   validator.Patterns(),
	}).Info("container ready")

	return c, nil
}

// Close освобождает ресурсы в обратном порядке создания
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Container) buildHistory(ctx context.Context, cfg *config.Config) (port.DetectionHistory, error) {
	switch cfg.HistoryBackend {
	case "postgres":
		db, err := storage.OpenPostgres(ctx, cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, db.Close)

		repo := storage.NewPostgresDetectionRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			return nil, err
		}
		return repo, nil

	case "redis":
		client, err := storage.NewRedisClient(ctx, storage.RedisOptions{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, client.Close)

		// ключи номера не должны истекать раньше окна
		retention := cfg.RedisRetention
		if retention > 0 && retention < cfg.DedupWindow {
			retention = cfg.DedupWindow
		}
		return storage.NewRedisDetectionRepository(client, retention), nil

	default:
		return storage.NewMemoryDetectionRepository(), nil
	}
}

func buildVision(cfg *config.Config) (port.PlateVision, port.FrameRenderer, error) {
	if cfg.VisionBackend == "gocv" {
		g, err := vision.NewGoCV()
		if err != nil {
			return nil, nil, err
		}
		return g, g, nil
	}
	return vision.NewNative(), vision.NewOverlay(), nil
}

func (c *Container) buildRecognizer(ctx context.Context, cfg *config.Config) (port.TextRecognizer, error) {
	if cfg.Recognizer == "rekognition" {
		awsCfg, err := c.aws(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return recognizer.NewRekognition(rekognition.NewFromConfig(awsCfg), float32(cfg.MinConfidence)), nil
	}

	t, err := recognizer.NewTesseract(cfg.TesseractLang)
	if err != nil {
		return nil, fmt.Errorf("recognizer tesseract: %w (build with -tags tesseract or set LPR_RECOGNIZER=rekognition)", err)
	}
	c.closers = append(c.closers, t.Close)
	return t, nil
}

func (c *Container) buildSnapshots(ctx context.Context, cfg *config.Config) (port.SnapshotStore, error) {
	switch cfg.SnapshotBackend {
	case "fs":
		return snapshot.NewFileStore(cfg.SnapshotDir), nil
	case "s3":
		awsCfg, err := c.aws(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return snapshot.NewS3Store(s3.NewFromConfig(awsCfg), cfg.AWSBucketName, snapshotPrefix), nil
	default:
		return nil, nil
	}
}

// aws загружает конфигурацию SDK один раз на контейнер
func (c *Container) aws(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	if c.awsCfg != nil {
		return *c.awsCfg, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	c.awsCfg = &awsCfg
	return awsCfg, nil
}
