package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ListenAddr string `envconfig:"listen_addr" default:":3002"`
	LogLevel   string `envconfig:"log_level" default:"info"`

	StorageType      string `envconfig:"storage_type" default:"memory"`
	LocalStoragePath string `envconfig:"local_storage_path" default:"./data"`
	DataSourceName   string `envconfig:"data_source_name" default:"designs.db"`
	S3BucketName     string `envconfig:"s3_bucket_name"`

	JWTSecret string `envconfig:"jwt_secret"`

	MinioEndpoint  string `envconfig:"minio_endpoint"`
	MinioAccessKey string `envconfig:"minio_access_key"`
	MinioSecretKey string `envconfig:"minio_secret_key"`
	MinioBucket    string `envconfig:"minio_bucket"`
	MinioUseSSL    bool   `envconfig:"minio_use_ssl" default:"false"`
	MinioPublicURL string `envconfig:"minio_public_url"`

	BaseProductID    string  `envconfig:"base_product_id" default:"custom-tshirt"`
	BaseProductPrice float64 `envconfig:"base_product_price" default:"29.99"`
	BaseProductImage string  `envconfig:"base_product_image" default:"/assets/shirts/half-sleeve-front.png"`

	CanvasWidth  int    `envconfig:"canvas_width" default:"320"`
	CanvasHeight int    `envconfig:"canvas_height" default:"420"`
	GestureMode  string `envconfig:"gesture_mode" default:"press-and-drag"`
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found")
	}

	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return nil, errors.Wrap(err, "failed to parse env")
	}
	if c.CanvasWidth <= 0 || c.CanvasHeight <= 0 {
		return nil, errors.Errorf("invalid canvas size %dx%d", c.CanvasWidth, c.CanvasHeight)
	}
	return c, nil
}

// MinioConfigured reports whether uploads and previews go to object storage.
func (c *Config) MinioConfigured() bool {
	return c.MinioEndpoint != "" && c.MinioAccessKey != "" && c.MinioSecretKey != "" && c.MinioBucket != ""
}
