package uploads

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	DefaultTimeout = 20 * time.Second
	// DefaultChunkSize matches the smallest S3 multipart part, so every chunk but
	// the last can be stored as one part.
	DefaultChunkSize = 5 << 20
)

// Config holds the settings of an Uploader. Zero values fall back to defaults.
type Config struct {
	// BaseURL of the platform API that issues upload URLs.
	BaseURL string `envconfig:"BASE_URL" default:"https://botapi.max.ru"`
	// AccessToken authorizes upload URL requests.
	AccessToken string `envconfig:"ACCESS_TOKEN"`
	// Timeout bounds the transfer of a single upload.
	Timeout time.Duration `envconfig:"TIMEOUT" default:"20s"`
	// ChunkSize is the largest chunk read from a stream per request.
	ChunkSize int `envconfig:"CHUNK_SIZE" default:"5242880"`
	// StrictStatus makes buffer uploads fail with *UploadError on status >= 400
	// like chunked uploads do, instead of returning the error body as the result.
	StrictStatus bool `envconfig:"STRICT_STATUS" default:"false"`
}

// LoadConfig reads the configuration from MOLPAUPLOAD_* environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("molpaupload", &cfg); err != nil {
		return Config{}, fmt.Errorf("cannot load upload config: %w", err)
	}
	if cfg.ChunkSize <= 0 {
		return Config{}, fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkSize)
	}
	return cfg, nil
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

func (c Config) chunkSize() int {
	if c.ChunkSize > 0 {
		return c.ChunkSize
	}
	return DefaultChunkSize
}
