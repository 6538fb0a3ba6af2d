package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Cache     CacheConfig     `yaml:"cache"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	Auth      AuthConfig      `yaml:"auth"`
	Speech    SpeechConfig    `yaml:"speech"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Order     OrderConfig     `yaml:"order"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type RabbitMQConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
	Exchange string `yaml:"exchange"`
}

type CacheConfig struct {
	HotTTL        time.Duration `yaml:"hot_ttl"`
	StaticTTL     time.Duration `yaml:"static_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type RealtimeConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	ReconnectDelay  time.Duration `yaml:"reconnect_delay"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type SpeechConfig struct {
	URL            string        `yaml:"url"`
	APIKey         string        `yaml:"api_key"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
}

type RateLimitConfig struct {
	TranscribeRPS   float64 `yaml:"transcribe_rps"`
	TranscribeBurst int     `yaml:"transcribe_burst"`
}

type OrderConfig struct {
	MaxRetryAttempts int           `yaml:"max_retry_attempts"`
	DefaultStation   string        `yaml:"default_station"`
	Retention        time.Duration `yaml:"retention"`
	CleanupInterval  time.Duration `yaml:"cleanup_interval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            5432,
			User:            "plate",
			Password:        "secret",
			Name:            "plate",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			User:     "guest",
			Password: "guest",
			VHost:    "/",
			Exchange: "kds.changes",
		},
		Cache: CacheConfig{
			HotTTL:        5 * time.Second,
			StaticTTL:     5 * time.Minute,
			SweepInterval: 30 * time.Second,
		},
		Realtime: RealtimeConfig{
			RefreshInterval: 30 * time.Second,
			ReconnectDelay:  3 * time.Second,
		},
		Auth: AuthConfig{
			JWTSecret: "changeme",
			TokenTTL:  12 * time.Hour,
		},
		Speech: SpeechConfig{
			URL:            "https://api.openai.com/v1/audio/transcriptions",
			Timeout:        30 * time.Second,
			MaxUploadBytes: 10 << 20,
		},
		RateLimit: RateLimitConfig{
			TranscribeRPS:   0.5,
			TranscribeBurst: 5,
		},
		Order: OrderConfig{
			MaxRetryAttempts: 3,
			DefaultStation:   "expo",
			Retention:        72 * time.Hour,
			CleanupInterval:  time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults and environment variables only.
func Load() (*Config, error) {
	cfg := Defaults()
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with environment variables. Values already in cfg
// act as the defaults.
func ApplyEnv(cfg *Config) error {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", cfg.Server.Port)
	v.SetDefault("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout.String())
	v.SetDefault("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout.String())
	v.SetDefault("DB_DRIVER", cfg.Database.Driver)
	v.SetDefault("DB_HOST", cfg.Database.Host)
	v.SetDefault("DB_PORT", cfg.Database.Port)
	v.SetDefault("DB_USER", cfg.Database.User)
	v.SetDefault("DB_PASSWORD", cfg.Database.Password)
	v.SetDefault("DB_NAME", cfg.Database.Name)
	v.SetDefault("DB_SSLMODE", cfg.Database.SSLMode)
	v.SetDefault("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	v.SetDefault("DB_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)
	v.SetDefault("DB_CONN_MAX_LIFETIME", cfg.Database.ConnMaxLifetime.String())
	v.SetDefault("RABBITMQ_ENABLED", cfg.RabbitMQ.Enabled)
	v.SetDefault("RABBITMQ_HOST", cfg.RabbitMQ.Host)
	v.SetDefault("RABBITMQ_PORT", cfg.RabbitMQ.Port)
	v.SetDefault("RABBITMQ_USER", cfg.RabbitMQ.User)
	v.SetDefault("RABBITMQ_PASSWORD", cfg.RabbitMQ.Password)
	v.SetDefault("RABBITMQ_VHOST", cfg.RabbitMQ.VHost)
	v.SetDefault("JWT_SECRET", cfg.Auth.JWTSecret)
	v.SetDefault("SPEECH_URL", cfg.Speech.URL)
	v.SetDefault("SPEECH_API_KEY", cfg.Speech.APIKey)
	v.SetDefault("LOG_LEVEL", cfg.Log.Level)
	v.SetDefault("LOG_FORMAT", cfg.Log.Format)

	readTimeout, err := time.ParseDuration(v.GetString("SERVER_READ_TIMEOUT"))
	if err != nil {
		return err
	}
	writeTimeout, err := time.ParseDuration(v.GetString("SERVER_WRITE_TIMEOUT"))
	if err != nil {
		return err
	}
	connMaxLifetime, err := time.ParseDuration(v.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		return err
	}

	cfg.Server.Port = v.GetInt("SERVER_PORT")
	cfg.Server.ReadTimeout = readTimeout
	cfg.Server.WriteTimeout = writeTimeout

	cfg.Database.Driver = v.GetString("DB_DRIVER")
	cfg.Database.Host = v.GetString("DB_HOST")
	cfg.Database.Port = v.GetInt("DB_PORT")
	cfg.Database.User = v.GetString("DB_USER")
	cfg.Database.Password = v.GetString("DB_PASSWORD")
	cfg.Database.Name = v.GetString("DB_NAME")
	cfg.Database.SSLMode = v.GetString("DB_SSLMODE")
	cfg.Database.MaxOpenConns = v.GetInt("DB_MAX_OPEN_CONNS")
	cfg.Database.MaxIdleConns = v.GetInt("DB_MAX_IDLE_CONNS")
	cfg.Database.ConnMaxLifetime = connMaxLifetime

	cfg.RabbitMQ.Enabled = v.GetBool("RABBITMQ_ENABLED")
	cfg.RabbitMQ.Host = v.GetString("RABBITMQ_HOST")
	cfg.RabbitMQ.Port = v.GetInt("RABBITMQ_PORT")
	cfg.RabbitMQ.User = v.GetString("RABBITMQ_USER")
	cfg.RabbitMQ.Password = v.GetString("RABBITMQ_PASSWORD")
	cfg.RabbitMQ.VHost = v.GetString("RABBITMQ_VHOST")

	cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")
	cfg.Speech.URL = v.GetString("SPEECH_URL")
	cfg.Speech.APIKey = v.GetString("SPEECH_API_KEY")

	cfg.Log.Level = v.GetString("LOG_LEVEL")
	cfg.Log.Format = v.GetString("LOG_FORMAT")

	return nil
}
