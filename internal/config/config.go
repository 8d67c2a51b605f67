package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DefaultJWTSecret is the development signing key. Production deployments
// must override it; Validate rejects it when env is "prod".
const DefaultJWTSecret = "rebuttal-dev-secret-change-me"

type Config struct {
	Env       string `yaml:"env"`
	APIPort   int    `yaml:"apiPort"`
	StaticDir string `yaml:"staticDir"`

	Database struct {
		Type     string `yaml:"type"` // "sqlite" or "postgres"
		Path     string `yaml:"path"` // sqlite file
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
		MaxConns int    `yaml:"maxConns"`
		MaxIdle  int    `yaml:"maxIdle"`
	} `yaml:"database"`

	Auth struct {
		Mode         string `yaml:"mode"` // "jwt" or "session"
		JWTSecret    string `yaml:"jwtSecret"`
		JWTExpiresIn string `yaml:"jwtExpiresIn"` // duration string, e.g. "7d", "24h", "30m"
		SessionTTL   string `yaml:"sessionTTL"`
	} `yaml:"auth"`

	AI struct {
		BaseURL        string `yaml:"baseURL"`
		TimeoutSeconds int    `yaml:"timeoutSeconds"`
	} `yaml:"ai"`

	Archive struct {
		Enabled         bool   `yaml:"enabled"`
		Bucket          string `yaml:"bucket"`
		Region          string `yaml:"region"`
		Endpoint        string `yaml:"endpoint"`
		AccessKeyID     string `yaml:"accessKeyId"`
		SecretAccessKey string `yaml:"secretAccessKey"`
	} `yaml:"archive"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"cors"`
}

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("REBUTTAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env vars cover it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !strings.Contains(err.Error(), "no such file") {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("apiPort", 8081)
	v.SetDefault("staticDir", "web/static")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "rebuttal.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslMode", "disable")

	v.SetDefault("auth.mode", "jwt")
	v.SetDefault("auth.jwtSecret", DefaultJWTSecret)
	v.SetDefault("auth.jwtExpiresIn", "7d")
	v.SetDefault("auth.sessionTTL", "7d")

	v.SetDefault("ai.timeoutSeconds", 30)

	v.SetDefault("cors.allowedOrigins", []string{"http://localhost:*", "http://127.0.0.1:*"})
}

// Validate checks invariants that would otherwise surface at request time.
func (c *Config) Validate() error {
	if c.APIPort <= 0 {
		return fmt.Errorf("apiPort must be positive, got %d", c.APIPort)
	}

	switch c.Auth.Mode {
	case "jwt", "session":
	default:
		return fmt.Errorf("auth.mode must be \"jwt\" or \"session\", got %q", c.Auth.Mode)
	}

	if c.Env == "prod" && c.Auth.JWTSecret == DefaultJWTSecret {
		return fmt.Errorf("auth.jwtSecret must be changed from the development default in production")
	}

	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket is required when archiving is enabled")
	}

	return nil
}
