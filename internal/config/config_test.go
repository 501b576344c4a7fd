package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var configEnv = []string{
	"CONFIG_FILE", "PORT", "API_KEY", "LOG_LEVEL", "TELEGRAM_TOKEN",
	"DETECTION_URL", "DETECTION_TOKEN", "DETECTION_REQUIRE_TOKEN", "DETECTION_TIMEOUT_SECONDS",
	"CORS_ALLOWED_ORIGINS", "MAX_FILE_SIZE_MB", "RATE_LIMIT_PER_MINUTE",
}

// isolate runs the test in an empty directory with no configuration in the environment.
func isolate(t *testing.T) string {
	t.Helper()

	for _, key := range configEnv {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig(zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, int64(DefaultMaxFileSizeMB), cfg.MaxFileSizeMB)
	require.Equal(t, []string{"*"}, cfg.CORSOrigins)
	require.Equal(t, 60*time.Second, cfg.Client().Timeout)
	require.False(t, cfg.Detection.RequireToken)
}

func TestLoadConfig_Environment(t *testing.T) {
	isolate(t)
	t.Setenv("DETECTION_URL", "https://detector.example.com/detect")
	t.Setenv("DETECTION_TOKEN", "hf_token")
	t.Setenv("DETECTION_REQUIRE_TOKEN", "true")
	t.Setenv("DETECTION_TIMEOUT_SECONDS", "15")
	t.Setenv("MAX_FILE_SIZE_MB", "4")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := LoadConfig(zap.NewNop())
	require.NoError(t, err)

	client := cfg.Client()
	require.Equal(t, "https://detector.example.com/detect", client.Endpoint)
	require.Equal(t, "hf_token", client.Token)
	require.True(t, client.RequireToken)
	require.Equal(t, 15*time.Second, client.Timeout)
	require.NoError(t, client.Validate())
	require.Equal(t, int64(4*1024*1024), cfg.MaxFileSizeBytes())
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
}

func TestLoadConfig_InvalidNumbers(t *testing.T) {
	isolate(t)
	t.Setenv("DETECTION_TIMEOUT_SECONDS", "soon")

	_, err := LoadConfig(zap.NewNop())
	require.ErrorContains(t, err, "invalid detection timeout")
}

func TestLoadConfig_File(t *testing.T) {
	dir := isolate(t)

	path := filepath.Join(dir, "leafscan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
detection:
  url: http://localhost:7860/detect
  timeout_seconds: 30
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9191")

	cfg, err := LoadConfig(zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, "9191", cfg.Port)
	require.Equal(t, "http://localhost:7860/detect", cfg.Detection.URL)
	require.Equal(t, 30, cfg.Detection.TimeoutSeconds)
}

func TestClientConfig_Validate(t *testing.T) {
	valid := ClientConfig{Endpoint: "http://localhost:7860/detect", Timeout: time.Second}
	require.NoError(t, valid.Validate())

	cases := []struct {
		cfg    ClientConfig
		field  string
		reason string
	}{
		{ClientConfig{Timeout: time.Second}, "endpoint", "is not set"},
		{ClientConfig{Endpoint: "detector", Timeout: time.Second}, "endpoint", "is not a valid http or https URL"},
		{ClientConfig{Endpoint: "ftp://detector.example.com/detect", Timeout: time.Second}, "endpoint", "is not a valid http or https URL"},
		{ClientConfig{Endpoint: "mailto:ops@example.com", Timeout: time.Second}, "endpoint", "is not a valid http or https URL"},
		{ClientConfig{Endpoint: valid.Endpoint, RequireToken: true, Timeout: time.Second}, "token", "is required by the detection service but not configured"},
		{ClientConfig{Endpoint: valid.Endpoint}, "timeout", "must be positive, got 0s"},
	}

	for _, tc := range cases {
		err := tc.cfg.Validate()

		var configErr *ConfigError
		require.ErrorAs(t, err, &configErr)
		require.Equal(t, tc.field, configErr.Field)
		require.Equal(t, tc.reason, configErr.Reason)
	}
}
