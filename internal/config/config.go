package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nurpe/amc-schedule/internal/model"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type AuthConfig struct {
	AccessSecret string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	URLExpiry time.Duration
}

type BatchConfig struct {
	Workers       int
	ChunkSize     int
	ProgressEvery int
}

type Config struct {
	Environment string
	LogLevel    string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Minio       MinioConfig
	Batch       BatchConfig
	Schedule    model.Settings
}

func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from path when given, otherwise from app.env
// in the usual locations. Environment variables take precedence either way.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("app")
		v.SetConfigType("env")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("./deploy")
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && path != "" {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	rates, err := parseFloats(v.GetString("AMC_ROI_RATES"))
	if err != nil {
		return nil, fmt.Errorf("AMC_ROI_RATES: %w", err)
	}

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			Driver:          strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			TTL:      v.GetDuration("CACHE_TTL"),
		},
		Kafka: KafkaConfig{
			Brokers: parseList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		Minio: MinioConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			URLExpiry: v.GetDuration("MINIO_URL_EXPIRY"),
		},
		Batch: BatchConfig{
			Workers:       v.GetInt("BATCH_WORKERS"),
			ChunkSize:     v.GetInt("BATCH_CHUNK_SIZE"),
			ProgressEvery: v.GetInt("BATCH_PROGRESS_EVERY"),
		},
		Schedule: model.Settings{
			ROIRates:            rates,
			AMCPercentage:       v.GetFloat64("AMC_PERCENTAGE"),
			AMCYears:            v.GetInt("AMC_YEARS"),
			AMCStartOffsetYears: v.GetInt("AMC_START_OFFSET_YEARS"),
			GSTRate:             v.GetFloat64("GST_RATE"),
			WarrantyPercentage:  v.GetFloat64("WARRANTY_PERCENTAGE"),
			WarrantyYears:       v.GetInt("WARRANTY_YEARS"),
		},
	}

	applyDefaults(cfg, v)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config, v *viper.Viper) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7089
	}
	if cfg.DB.Driver == "" {
		cfg.DB.Driver = "postgres"
	}
	if cfg.DB.Driver == "sqlite" && cfg.DB.DSN == "" {
		cfg.DB.DSN = "file:amc.db"
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = 24 * time.Hour
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "amc.batch.events"
	}
	if cfg.Minio.Bucket == "" {
		cfg.Minio.Bucket = "amc-exports"
	}
	if cfg.Minio.URLExpiry == 0 {
		cfg.Minio.URLExpiry = time.Hour
	}
	if cfg.Batch.Workers <= 0 {
		cfg.Batch.Workers = 4
	}
	if cfg.Batch.ChunkSize <= 0 {
		cfg.Batch.ChunkSize = 1000
	}
	if cfg.Batch.ProgressEvery <= 0 {
		cfg.Batch.ProgressEvery = 100
	}

	def := model.DefaultSettings()
	if len(cfg.Schedule.ROIRates) == 0 {
		cfg.Schedule.ROIRates = def.ROIRates
	}
	if !v.IsSet("AMC_START_OFFSET_YEARS") {
		cfg.Schedule.AMCStartOffsetYears = def.AMCStartOffsetYears
	}
	if !v.IsSet("GST_RATE") {
		cfg.Schedule.GSTRate = def.GSTRate
	}
	cfg.Schedule = cfg.Schedule.Normalize()
}

func validate(cfg *Config) error {
	switch cfg.DB.Driver {
	case "postgres":
		if cfg.DB.DSN == "" {
			return fmt.Errorf("DB_DSN is required")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", cfg.DB.Driver)
	}
	if cfg.Schedule.GSTRate < 0 || cfg.Schedule.GSTRate > 1 {
		return fmt.Errorf("GST_RATE must be between 0 and 1")
	}
	for _, r := range cfg.Schedule.ROIRates {
		if r < 0 {
			return fmt.Errorf("AMC_ROI_RATES must not contain negative rates")
		}
	}
	if cfg.Minio.Endpoint != "" && (cfg.Minio.AccessKey == "" || cfg.Minio.SecretKey == "") {
		return fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required with MINIO_ENDPOINT")
	}
	return nil
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}

func parseFloats(raw string) ([]float64, error) {
	items := parseList(raw)
	if len(items) == 0 {
		return nil, nil
	}
	out := make([]float64, 0, len(items))
	for _, item := range items {
		f, err := strconv.ParseFloat(item, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid rate %q", item)
		}
		out = append(out, f)
	}
	return out, nil
}
