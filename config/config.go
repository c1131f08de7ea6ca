package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const placeholderKey = "CHANGE_ME_IN_PRODUCTION"

// MinSessionKeyLen is the shortest session key accepted.
const MinSessionKeyLen = 32

var ErrMissingSessionKey = errors.New("session key is not configured")

type S3Config struct {
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

type Config struct {
	AppName              string   `json:"app_name"`
	ListenIP             string   `json:"listen_ip"`
	ListenPort           int      `json:"listen_port"`
	SessionKey           string   `json:"session_key"`
	SecureCookies        bool     `json:"secure_cookies"`
	DatabaseDriver       string   `json:"database_driver"`
	DatabaseDSN          string   `json:"database_dsn"`
	AdminUsername        string   `json:"admin_username"`
	AdminPassword        string   `json:"admin_password"`
	BcryptCost           int      `json:"bcrypt_cost"`
	CaptchaAfterFailures int      `json:"captcha_after_failures"`
	TokenTTLMinutes      int      `json:"token_ttl_minutes"`
	LogLevel             string   `json:"log_level"`
	LogFormat            string   `json:"log_format"`
	S3                   S3Config `json:"s3"`
}

func Defaults() Config {
	return Config{
		AppName:              "Career Quiz",
		ListenIP:             "127.0.0.1",
		ListenPort:           8080,
		DatabaseDriver:       "sqlite3",
		DatabaseDSN:          "./career.db",
		AdminUsername:        "admin",
		BcryptCost:           12,
		CaptchaAfterFailures: 3,
		TokenTTLMinutes:      60,
		LogLevel:             "info",
		LogFormat:            "text",
		S3:                   S3Config{Region: "us-east-1"},
	}
}

// LoadConfig reads path over the defaults and applies environment overrides.
// A missing file is not an error; a missing session key is.
func LoadConfig(path string) (Config, error) {
	cfg := Defaults()

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("decode %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, err
	}

	if v := os.Getenv("CAREERQUIZ_SESSION_KEY"); v != "" {
		cfg.SessionKey = v
	}
	if v := os.Getenv("CAREERQUIZ_DATABASE_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("CAREERQUIZ_ADMIN_PASSWORD"); v != "" {
		cfg.AdminPassword = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.SessionKey == "" || c.SessionKey == placeholderKey {
		return ErrMissingSessionKey
	}
	if len(c.SessionKey) < MinSessionKeyLen {
		return fmt.Errorf("session key must be at least %d bytes", MinSessionKeyLen)
	}
	switch c.DatabaseDriver {
	case "sqlite3", "pgx":
	default:
		return fmt.Errorf("unsupported database driver %q", c.DatabaseDriver)
	}
	if c.AdminUsername == "" {
		return errors.New("admin username is empty")
	}
	return nil
}

func (c Config) Addr() string {
	return c.ListenIP + ":" + strconv.Itoa(c.ListenPort)
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}
