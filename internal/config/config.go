package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"roadnav/internal/routing"
)

// ErrInvalidConfig is returned when a loaded configuration cannot be used.
var ErrInvalidConfig = errors.New("invalid config")

const (
	SourceOSM   = "osm"
	SourceNeo4j = "neo4j"
)

type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Neo4j   Neo4jConfig    `yaml:"neo4j"`
	Graph   GraphConfig    `yaml:"graph"`
	Routing routing.Config `yaml:"routing"`
	Log     LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// MutationRate limits traffic changes per second across all clients.
	MutationRate    float64       `yaml:"mutation_rate"`
	MutationBurst   int           `yaml:"mutation_burst"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	// MirrorStatus writes traffic changes back to the database.
	MirrorStatus bool `yaml:"mirror_status"`
}

type GraphConfig struct {
	Source   string `yaml:"source"`
	OSMFile  string `yaml:"osm_file"`
	GridRows int    `yaml:"grid_rows"`
	GridCols int    `yaml:"grid_cols"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// getEnv returns the environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Default returns the configuration used when neither a file nor the
// environment say otherwise.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			AllowedOrigins:  []string{"*"},
			MutationRate:    5,
			MutationBurst:   10,
			ShutdownTimeout: 5 * time.Second,
		},
		Neo4j: Neo4jConfig{
			URI:  "bolt://localhost:7687",
			User: "neo4j",
		},
		Graph: GraphConfig{
			Source:   SourceOSM,
			OSMFile:  "map.osm",
			GridRows: 50,
			GridCols: 50,
		},
		Routing: routing.DefaultConfig(),
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig reads the YAML file at path, when given, over the defaults and
// then applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Server.Port = getEnvAsInt("PORT", cfg.Server.Port)
	cfg.Server.AllowedOrigins = getEnvAsList("CORS_ORIGINS", cfg.Server.AllowedOrigins)
	cfg.Server.MutationRate = getEnvAsFloat("MUTATION_RATE", cfg.Server.MutationRate)
	cfg.Neo4j.URI = getEnv("NEO4J_URI", cfg.Neo4j.URI)
	cfg.Neo4j.User = getEnv("NEO4J_USER", cfg.Neo4j.User)
	cfg.Neo4j.Password = getEnv("NEO4J_PASSWORD", cfg.Neo4j.Password)
	cfg.Neo4j.Database = getEnv("NEO4J_DATABASE", cfg.Neo4j.Database)
	cfg.Neo4j.MirrorStatus = getEnvAsBool("NEO4J_MIRROR_STATUS", cfg.Neo4j.MirrorStatus)
	cfg.Graph.Source = getEnv("GRAPH_SOURCE", cfg.Graph.Source)
	cfg.Graph.OSMFile = getEnv("OSM_FILE", cfg.Graph.OSMFile)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d: %w", c.Server.Port, ErrInvalidConfig)
	}
	if c.Server.MutationRate < 0 {
		return fmt.Errorf("server.mutation_rate %v: %w", c.Server.MutationRate, ErrInvalidConfig)
	}
	switch c.Graph.Source {
	case SourceOSM:
		if c.Graph.OSMFile == "" {
			return fmt.Errorf("graph.osm_file is required for source %q: %w", SourceOSM, ErrInvalidConfig)
		}
	case SourceNeo4j:
		if c.Neo4j.URI == "" {
			return fmt.Errorf("neo4j.uri is required for source %q: %w", SourceNeo4j, ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("graph.source %q: %w", c.Graph.Source, ErrInvalidConfig)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if err := c.Routing.Validate(); err != nil {
		return fmt.Errorf("routing: %w", err)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", s, ErrInvalidConfig)
	}
	return level, nil
}
