package runtime

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents database configuration.
type Config struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Database     string `yaml:"schema"`
	User         string `yaml:"username"`
	Password     string `yaml:"password"`
	SSLMode      string `yaml:"sslmode"`
	MaxConns     int32  `yaml:"max_conns"`
	MinConns     int32  `yaml:"min_conns"`
	LogLevel     string `yaml:"log_level"`
	OrphanPolicy string `yaml:"orphan_policy"`
}

// fileConfig mirrors the layout of config/database.yaml.
type fileConfig struct {
	Database Config `yaml:"database"`
}

// DefaultConfig returns a default database configuration.
func DefaultConfig() *Config {
	return &Config{
		Driver:   DriverPgx,
		Host:     "localhost",
		Port:     5432,
		Database: "postgres",
		User:     "postgres",
		Password: "",
		SSLMode:  "prefer",
		MaxConns: 10,
		MinConns: 2,
		LogLevel: "info",
	}
}

// LoadConfig reads a YAML file with a top-level "database" section on top of
// DefaultConfig, then applies environment overrides. An empty path skips the
// file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		fc := fileConfig{Database: *cfg}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		cfg = &fc.Database
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		c.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("ORPHAN_POLICY"); v != "" {
		c.OrphanPolicy = v
	}
}

// ConnectionString builds the driver specific data source name. An explicit
// DSN always wins.
func (c *Config) ConnectionString() string {
	if c.DSN != "" {
		return c.DSN
	}

	switch NormalizeDriver(c.Driver) {
	case DriverMySQL:
		port := c.Port
		if port == 0 || port == 5432 {
			port = 3306
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", c.User, c.Password, c.Host, port, c.Database)
	case DriverSQLite:
		if c.Database == "" {
			return ":memory:"
		}
		return c.Database
	case DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.User, c.Password),
			Host:   c.Host + ":" + strconv.Itoa(c.portOrDefault()),
			Path:   "/" + c.Database,
		}
		// lib/pq has no "prefer" mode.
		mode := c.sslModeOrDefault()
		if mode == "prefer" {
			mode = "disable"
		}
		q := u.Query()
		q.Set("sslmode", mode)
		u.RawQuery = q.Encode()
		return u.String()
	}

	return buildConnectionString(c)
}

func (c *Config) portOrDefault() int {
	if c.Port == 0 {
		return 5432
	}
	return c.Port
}

func (c *Config) sslModeOrDefault() string {
	if c.SSLMode == "" {
		return "prefer"
	}
	return c.SSLMode
}

// buildConnectionString builds a PostgreSQL keyword/value connection string from config.
func buildConnectionString(config *Config) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host,
		config.portOrDefault(),
		config.User,
		config.Password,
		config.Database,
		config.sslModeOrDefault(),
	)
}
