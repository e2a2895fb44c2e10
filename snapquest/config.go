package snapquest

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	return &cfg, nil
}

type Config struct {
	Log    LogConfig    `toml:"log"`
	Web    WebConfig    `toml:"web"`
	DB     DBConfig     `toml:"db"`
	Spaces SpacesConfig `toml:"spaces"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type WebConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	SessionKey      string `toml:"session_key"`
	AdminPassphrase string `toml:"admin_passphrase"`
	AllowOrigins    string `toml:"allow_origins"`
}

type DBConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	PoolSize int    `toml:"pool_size"`
}

type SpacesConfig struct {
	Key       string `toml:"key"`
	Secret    string `toml:"secret"`
	Region    string `toml:"region"`
	Bucket    string `toml:"bucket"`
	PhotoRoot string `toml:"photoroot"`
}

// Secrets may come from the environment in deployments where the config
// file is checked in without them.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SNAPQUEST_SESSION_KEY"); v != "" {
		c.Web.SessionKey = v
	}
	if v := os.Getenv("SNAPQUEST_ADMIN_PASSPHRASE"); v != "" {
		c.Web.AdminPassphrase = v
	}
	if v := os.Getenv("SNAPQUEST_SPACES_KEY"); v != "" {
		c.Spaces.Key = v
	}
	if v := os.Getenv("SNAPQUEST_SPACES_SECRET"); v != "" {
		c.Spaces.Secret = v
	}
}
