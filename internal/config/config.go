package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port        string
	Mode        string
	CORSOrigins []string
	LoginRate   string
}

type DatabaseConfig struct {
	Driver     string // postgres or sqlite
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
	LogLevel   string
}

type JWTConfig struct {
	Secret   string
	TTLHours int
}

type StorageConfig struct {
	Dir         string
	MaxUploadMB int64
}

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Storage  StorageConfig
}

const devJWTSecret = "default_super_secret_key"

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")
	v.SetDefault("LOGIN_RATE", "10-M")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "postgres")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "salesdesk.db")
	v.SetDefault("DB_LOG_LEVEL", "warn")

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL_HOURS", 168)

	v.SetDefault("STORAGE_DIR", "storage")
	v.SetDefault("MAX_UPLOAD_MB", 5)
}

// Load reads configs/.env when present, then resolves every key from the
// environment with defaults.
func Load() (*Config, error) {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	c := &Config{
		Server: ServerConfig{
			Port:        v.GetString("PORT"),
			Mode:        v.GetString("GIN_MODE"),
			CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
			LoginRate:   v.GetString("LOGIN_RATE"),
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(v.GetString("DB_DRIVER")),
			Host:       v.GetString("DB_HOST"),
			Port:       v.GetString("DB_PORT"),
			User:       v.GetString("DB_USER"),
			Password:   v.GetString("DB_PASSWORD"),
			Name:       v.GetString("DB_NAME"),
			SSLMode:    v.GetString("DB_SSLMODE"),
			SQLitePath: v.GetString("SQLITE_PATH"),
			LogLevel:   strings.ToLower(v.GetString("DB_LOG_LEVEL")),
		},
		JWT: JWTConfig{
			Secret:   v.GetString("JWT_SECRET"),
			TTLHours: v.GetInt("JWT_TTL_HOURS"),
		},
		Storage: StorageConfig{
			Dir:         v.GetString("STORAGE_DIR"),
			MaxUploadMB: v.GetInt64("MAX_UPLOAD_MB"),
		},
	}

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q: must be postgres or sqlite", c.Database.Driver)
	}

	if c.JWT.Secret == "" {
		if c.Server.Mode == "release" {
			return nil, fmt.Errorf("JWT_SECRET is required in release mode")
		}
		c.JWT.Secret = devJWTSecret
	}
	if c.JWT.TTLHours <= 0 {
		c.JWT.TTLHours = 168
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"http://localhost:5173"}
	}
	if c.Storage.MaxUploadMB <= 0 {
		c.Storage.MaxUploadMB = 5
	}

	return c, nil
}

// DSN builds the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

// MaxUploadBytes is the upload size ceiling in bytes.
func (s StorageConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
