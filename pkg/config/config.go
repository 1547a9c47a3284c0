package config

import "time"

// FeedService definition feed_service YAML structure
type FeedService struct {
	Port      string          `mapstructure:"port"`
	Feed      FeedConfig      `mapstructure:"feed"`
	MongoSQL  DatabaseConfig  `mapstructure:"mongo"`
	Redis     RedisConfig     `mapstructure:"redis"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	Transport TransportConfig `mapstructure:"transport"`
	Token     TokenConfig     `mapstructure:"token"`
}

// FeedConfig definition message feed behaviour
type FeedConfig struct {
	// PageSize is the number of records one history page is expected to hold.
	PageSize int `mapstructure:"page_size"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	Addr    string `mapstructure:"addr"`
	RedisDB int    `mapstructure:"redis_db"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// MinIOConfig definition attachment bucket setting
type MinIOConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	BucketName    string        `mapstructure:"bucket_name"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	RetryInterval int           `mapstructure:"retry_interval"`
	RetryCount    int           `mapstructure:"retry_count"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
	MaxUploadMB   int64         `mapstructure:"max_upload_mb"`
	AllowedTypes  []string      `mapstructure:"allowed_types"`
}

// TransportConfig definition upstream chat websocket
type TransportConfig struct {
	URL            string        `mapstructure:"url"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// TokenConfig definition jwt setting
type TokenConfig struct {
	Secret string `mapstructure:"secret"`
}

const defaultPageSize = 20

// PageSizeOrDefault returns the configured page size, falling back to 20.
func (f FeedConfig) PageSizeOrDefault() int {
	if f.PageSize <= 0 {
		return defaultPageSize
	}
	return f.PageSize
}
