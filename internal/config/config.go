package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const (
	ImageBackendLocal = "local"
	ImageBackendS3    = "s3"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	ServerPort  string `env:"SERVER_PORT" envDefault:"8080"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	JWTSecret string        `env:"JWT_SECRET,required"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"1h"`

	// Геокодер (Google Geocoding API)
	GoogleAPIKey     string `env:"GOOGLE_API_KEY,required"`
	GeocodingBaseURL string `env:"GEOCODING_BASE_URL" envDefault:"https://maps.googleapis.com"`

	// Хранение изображений: local или s3
	ImageBackend string `env:"IMAGE_BACKEND" envDefault:"local"`
	UploadDir    string `env:"UPLOAD_DIR" envDefault:"uploads/images"`
	MaxImageSize int64  `env:"MAX_IMAGE_SIZE" envDefault:"5000000"`

	S3 struct {
		Endpoint        string `env:"S3_ENDPOINT"`
		AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
		SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
		UseSSL          bool   `env:"S3_USE_SSL"`
		BucketName      string `env:"S3_BUCKET"`
		Region          string `env:"S3_REGION" envDefault:"us-east-1"`
		PublicURL       string `env:"S3_PUBLIC_URL"`
	}

	Redis struct {
		Addr     string        `env:"REDIS_ADDR"`
		Password string        `env:"REDIS_PASSWORD"`
		DB       int           `env:"REDIS_DB" envDefault:"0"`
		TTL      time.Duration `env:"CACHE_TTL" envDefault:"60s"`
	}

	RabbitMQ struct {
		RabbitMQURL       string `env:"RABBITMQ_URL"`
		RabbitMQQueueName string `env:"IMAGE_CLEANUP_QUEUE" envDefault:"image_cleanup_queue"`
	}

	AuthRateLimit int `env:"AUTH_RATE_LIMIT" envDefault:"5"`
	AuthRateBurst int `env:"AUTH_RATE_BURST" envDefault:"10"`
}

// LoadConfig загружает конфигурацию из переменных окружения.
// В режиме разработки пытается загрузить .env файл.
func LoadConfig() (*Config, error) {
	if _, err := os.Stat(".env"); !os.IsNotExist(err) {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("ошибка загрузки .env файла: %w", err)
		}
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации из окружения: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет согласованность настроек, которые env не умеет проверить сам.
func (c *Config) Validate() error {
	switch c.ImageBackend {
	case ImageBackendLocal:
	case ImageBackendS3:
		if c.S3.Endpoint == "" || c.S3.AccessKeyID == "" || c.S3.SecretAccessKey == "" || c.S3.BucketName == "" {
			return fmt.Errorf("IMAGE_BACKEND=s3 requires S3_ENDPOINT, S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY and S3_BUCKET")
		}
	default:
		return fmt.Errorf("unknown IMAGE_BACKEND %q (use %q or %q)", c.ImageBackend, ImageBackendLocal, ImageBackendS3)
	}

	if c.MaxImageSize <= 0 {
		return fmt.Errorf("MAX_IMAGE_SIZE must be positive, got %d", c.MaxImageSize)
	}
	return nil
}
