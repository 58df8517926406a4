package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadnav/internal/roadgraph"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roadnav.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4j.URI)
	assert.Equal(t, SourceOSM, cfg.Graph.Source)
	assert.Equal(t, 20.0, cfg.Routing.TurnPenalty)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
server:
  port: 9000
  allowed_origins: ["https://maps.example.com"]
  shutdown_timeout: 10s
graph:
  source: neo4j
routing:
  turn_penalty: 35
  speed_limits:
    residential: 25
log:
  level: debug
  format: text
`)
	t.Setenv("PORT", "9100")
	t.Setenv("NEO4J_PASSWORD", "secret")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, SourceNeo4j, cfg.Graph.Source)
	assert.Equal(t, "secret", cfg.Neo4j.Password)
	assert.Equal(t, 35.0, cfg.Routing.TurnPenalty)
	assert.Equal(t, 0.5, cfg.Routing.SharpTurnDot, "untouched keys keep defaults")
	assert.Equal(t, 25.0, cfg.Routing.SpeedLimits[roadgraph.ClassResidential])
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{"bad port", "server:\n  port: 70000\n", nil},
		{"bad source", "graph:\n  source: csv\n", nil},
		{"missing osm file", "graph:\n  osm_file: \"\"\n", nil},
		{"bad level", "log:\n  level: loud\n", nil},
		{"bad routing", "routing:\n  jam_factor: -2\n", nil},
		{"bad env rate", "", map[string]string{"MUTATION_RATE": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(writeFile(t, tt.body))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadConfig_Unreadable(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "server: [unterminated"))
	assert.Error(t, err)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("ROADNAV_INT", "not a number")
	t.Setenv("ROADNAV_BOOL", "true")
	t.Setenv("ROADNAV_LIST", " , ")

	assert.Equal(t, 7, getEnvAsInt("ROADNAV_INT", 7))
	assert.True(t, getEnvAsBool("ROADNAV_BOOL", false))
	assert.Empty(t, getEnvAsList("ROADNAV_LIST", []string{"x"}))
	assert.Equal(t, []string{"x"}, getEnvAsList("ROADNAV_UNSET", []string{"x"}))
	assert.Equal(t, 1.5, getEnvAsFloat("ROADNAV_UNSET", 1.5))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(LogConfig{Level: "warn", Format: "text"}, &buf).Info("hidden")
	assert.Empty(t, buf.String())

	NewLogger(LogConfig{Level: "debug", Format: "json"}, &buf).Debug("shown", "k", 1)
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	NewLogger(LogConfig{Level: "nonsense"}, &buf).Info("fallback")
	assert.Contains(t, buf.String(), "fallback")
}
