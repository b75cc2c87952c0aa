package config

import (
	"compressor/api/model"
	img "compressor/converter/image"
	"compressor/converter/watermark"
	"github.com/caarlos0/env/v8"
	"go.uber.org/zap/zapcore"
	"log/slog"
	"time"
)

type Config struct {
	AppName string `env:"APP_NAME" envDefault:"Image compressor"`
	Port    string `env:"PORT" envDefault:"8080"`

	LogLevel zapcore.Level `env:"LOG_LEVEL" envDefault:"debug"`

	RateLimitMaxRequests   int `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"100"`
	RateLimitDurationInSec int `env:"RATE_LIMIT_DURATION_IN_SEC" envDefault:"5"`
	BodyLimitMB            int `env:"BODY_LIMIT_MB" envDefault:"64"`

	// Basic auth is disabled while the username is empty.
	AuthUsername string `env:"AUTH_USERNAME"`
	AuthPassword string `env:"AUTH_PASSWORD"`

	CacheTTLInMin int `env:"CACHE_TTL_IN_MIN" envDefault:"5"`

	MarkURL            string           `env:"MARK_URL" envDefault:"https://raw.githubusercontent.com/jonyprachine123/img/refs/heads/main/logo.webp"`
	MarkS3Key          string           `env:"MARK_S3_KEY"`
	MarkFetchTimeoutMs int              `env:"MARK_FETCH_TIMEOUT_MS" envDefault:"10000"`
	MarkMode           model.MarkMode   `env:"MARK_MODE" envDefault:"centered"`
	MarkScale          float64          `env:"MARK_SCALE" envDefault:"0.25"`
	MarkPadding        int              `env:"MARK_PADDING" envDefault:"20"`
	MarkFilter         watermark.Filter `env:"MARK_FILTER" envDefault:"lanczos"`
	CenteredOpacity    float64          `env:"CENTERED_OPACITY" envDefault:"0.35"`
	ScatteredOpacity   float64          `env:"SCATTERED_OPACITY" envDefault:"0.9"`

	Codec              img.Type `env:"CODEC" envDefault:"jpeg"`
	MinQuality         int      `env:"MIN_QUALITY" envDefault:"20"`
	MaxQuality         int      `env:"MAX_QUALITY" envDefault:"85"`
	SmallImageFraction float64  `env:"SMALL_IMAGE_FRACTION" envDefault:"1.0"`
	Workers            int      `env:"WORKERS" envDefault:"4"`

	// Results are uploaded only when a bucket is set.
	S3Region    string `env:"S3_REGION"`
	S3Bucket    string `env:"S3_BUCKET"`
	S3Prefix    string `env:"S3_PREFIX" envDefault:"compressed"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3Endpoint  string `env:"S3_ENDPOINT"`

	// Jobs are recorded only when a URI is set.
	MongoURI        string `env:"MONGO_URI"`
	MongoDatabase   string `env:"MONGO_DATABASE" envDefault:"compressor"`
	MongoCollection string `env:"MONGO_COLLECTION" envDefault:"jobs"`
}

func New() *Config {
	conf, err := Parse()
	if err != nil {
		slog.Error(err.Error())

		panic("Failed to parse config")
	}

	return conf
}

func (c *Config) RateLimitDuration() time.Duration {
	return time.Duration(c.RateLimitDurationInSec) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLInMin) * time.Minute
}

func (c *Config) MarkFetchTimeout() time.Duration {
	return time.Duration(c.MarkFetchTimeoutMs) * time.Millisecond
}

// Parse reads the config from the environment.
func Parse() (*Config, error) {
	conf := &Config{}

	if err := env.Parse(conf); err != nil {
		return nil, err
	}

	return conf, nil
}
