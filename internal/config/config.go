// config.go
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port     string
	LogLevel string

	DBDriver    string
	MongoURI    string
	MongoDBName string
	PostgresDSN string
	SQLitePath  string

	RabbitURL     string
	AuthURL       string
	OperatorToken string

	UploadDir       string
	UploadURLPrefix string

	Recognition RecognitionConfig
}

// RecognitionConfig selects which recognition backends are built at startup.
type RecognitionConfig struct {
	TesseractEnabled  bool
	TesseractLanguage string
	ONNXModelPath     string
	ONNXDictPath      string
	ONNXLibraryPath   string
	GoogleCredentials string
	BarcodeEnabled    bool
	RotateVariants    bool
	Timeout           time.Duration
	CallTimeout       time.Duration
}

// Load reads an optional .env file, then layers defaults, environment and an
// optional CONFIG_FILE through viper.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", file, err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("db_driver", "mongo")
	v.SetDefault("mongo_uri", "mongodb://host.docker.internal:27017")
	v.SetDefault("mongo_db_name", "order_tracking_db")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("sqlite_path", "./tracker.db")
	v.SetDefault("rabbit_url", "")
	v.SetDefault("auth_url", "")
	v.SetDefault("operator_token", "")
	v.SetDefault("upload_dir", "./static/uploads")
	v.SetDefault("upload_url_prefix", "/static/uploads")

	v.SetDefault("tesseract_enabled", true)
	v.SetDefault("tesseract_language", "eng")
	v.SetDefault("onnx_model_path", "")
	v.SetDefault("onnx_dict_path", "")
	v.SetDefault("onnx_library_path", "")
	v.SetDefault("google_credentials_json", "")
	v.SetDefault("barcode_enabled", true)
	v.SetDefault("rotate_variants", false)
	v.SetDefault("recognition_timeout", 90*time.Second)
	v.SetDefault("recognition_call_timeout", 20*time.Second)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Port:            v.GetString("port"),
		LogLevel:        strings.ToLower(v.GetString("log_level")),
		DBDriver:        strings.ToLower(v.GetString("db_driver")),
		MongoURI:        v.GetString("mongo_uri"),
		MongoDBName:     v.GetString("mongo_db_name"),
		PostgresDSN:     v.GetString("postgres_dsn"),
		SQLitePath:      v.GetString("sqlite_path"),
		RabbitURL:       v.GetString("rabbit_url"),
		AuthURL:         v.GetString("auth_url"),
		OperatorToken:   v.GetString("operator_token"),
		UploadDir:       v.GetString("upload_dir"),
		UploadURLPrefix: strings.TrimRight(v.GetString("upload_url_prefix"), "/"),
		Recognition: RecognitionConfig{
			TesseractEnabled:  v.GetBool("tesseract_enabled"),
			TesseractLanguage: v.GetString("tesseract_language"),
			ONNXModelPath:     v.GetString("onnx_model_path"),
			ONNXDictPath:      v.GetString("onnx_dict_path"),
			ONNXLibraryPath:   v.GetString("onnx_library_path"),
			GoogleCredentials: v.GetString("google_credentials_json"),
			BarcodeEnabled:    v.GetBool("barcode_enabled"),
			RotateVariants:    v.GetBool("rotate_variants"),
			Timeout:           v.GetDuration("recognition_timeout"),
			CallTimeout:       v.GetDuration("recognition_call_timeout"),
		},
	}
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo driver")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres driver")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.Recognition.Timeout <= 0 || c.Recognition.CallTimeout <= 0 {
		return fmt.Errorf("recognition timeouts must be positive")
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
