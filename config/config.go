package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	// Конвейер
	MarginPx           int           `validate:"gte=0"`
	DedupWindow        time.Duration `validate:"gt=0"`
	PlateGrammars      []string      `validate:"min=1,dive,required"`
	DetectionThreshold float64       `validate:"gte=0,lte=1"`
	PlateClass         string
	Workers            int `validate:"gte=1"`

	VisionBackend string `validate:"oneof=native gocv"`
	Recognizer    string `validate:"oneof=tesseract rekognition"`
	TesseractLang string
	MinConfidence float64 `validate:"gte=0,lte=100"`

	// Источник кадров
	DetectorURL string  `validate:"required,url"`
	FrameDir    string  `validate:"required"`
	MaxFPS      float64 `validate:"gte=0"`

	// История
	HistoryBackend string `validate:"oneof=memory postgres redis"`
	DBDSN          string `validate:"required_if=HistoryBackend postgres"`
	RedisAddress   string `validate:"required_if=HistoryBackend redis"`
	RedisPassword  string
	RedisDB        int           `validate:"gte=0"`
	RedisRetention time.Duration `validate:"gte=0"`

	// Снимки
	SnapshotBackend string `validate:"oneof=none fs s3"`
	SnapshotDir     string `validate:"required_if=SnapshotBackend fs"`
	AWSRegion       string
	AWSBucketName   string `validate:"required_if=SnapshotBackend s3"`

	TelegramToken   string
	TelegramChatIDs []int64

	LogLevel  string `validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFile   string
	LogCaller bool
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var p parser
	cfg := &Config{
		MarginPx:           p.int("LPR_MARGIN_PX", 5),
		DedupWindow:        p.duration("LPR_DEDUP_WINDOW", 60*time.Second),
		PlateGrammars:      splitList(getEnv("LPR_PLATE_GRAMMARS", "LLLNNNN,LLLNANN")),
		DetectionThreshold: p.float("LPR_DETECTION_THRESHOLD", 0.5),
		PlateClass:         getEnv("LPR_PLATE_CLASS", "license_plate"),
		Workers:            p.int("LPR_WORKERS", 1),

		VisionBackend: getEnv("LPR_VISION_BACKEND", "native"),
		Recognizer:    getEnv("LPR_RECOGNIZER", "tesseract"),
		TesseractLang: getEnv("LPR_TESSERACT_LANG", "eng"),
		MinConfidence: p.float("LPR_MIN_CONFIDENCE", 80),

		DetectorURL: getEnv("LPR_DETECTOR_URL", ""),
		FrameDir:    getEnv("LPR_FRAME_DIR", "./frames"),
		MaxFPS:      p.float("LPR_MAX_FPS", 0),

		HistoryBackend: getEnv("LPR_HISTORY_BACKEND", "memory"),
		DBDSN:          getEnv("DB_DSN", ""),
		RedisAddress:   getEnv("REDIS_ADDRESS", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        p.int("REDIS_DB", 0),
		RedisRetention: p.duration("LPR_REDIS_RETENTION", 24*time.Hour),

		SnapshotBackend: getEnv("LPR_SNAPSHOT_BACKEND", "none"),
		SnapshotDir:     getEnv("LPR_SNAPSHOT_DIR", "./data/snapshots"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		AWSBucketName:   getEnv("AWS_BUCKET_NAME", ""),

		TelegramToken:   getEnv("TELEGRAM_TOKEN", ""),
		TelegramChatIDs: p.ids("TELEGRAM_CHAT_IDS"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFile:   getEnv("LOG_FILE", ""),
		LogCaller: p.bool("LOG_CALLER", false),
	}
	if p.err != nil {
		return nil, p.err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения по тегам validate
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser запоминает первую ошибку разбора, чтобы Load проверил её один раз
type parser struct {
	err error
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s: %w", key, err)
	}
}

func (p *parser) int(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, err)
	}
	return n
}

func (p *parser) bool(key string, fallback bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, err)
	}
	return b
}

func (p *parser) float(key string, fallback float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, err)
	}
	return f
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, err)
	}
	return d
}

func (p *parser) ids(key string) []int64 {
	var out []int64
	for _, s := range splitList(getEnv(key, "")) {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			p.fail(key, err)
			continue
		}
		out = append(out, id)
	}
	return out
}
