package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, `
model:
  path: models/loan_approval_model.json
workers:
  evaluate-loan-application:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "loan-approval", cfg.App.Name)
	assert.Equal(t, FormatLinear, cfg.Model.Format)
	assert.Equal(t, "label", cfg.Model.Onnx.OutputName)
	assert.Equal(t, ":3000", cfg.Server.APIAddress)
	assert.Equal(t, ":8080", cfg.Server.HealthAddress)
	assert.Equal(t, 3600, cfg.Cache.TTL)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, "info", cfg.Logging.Level)

	w := cfg.Workers["evaluate-loan-application"]
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 30000, w.Timeout)
	assert.Equal(t, 3, w.MaxRetries)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing model path",
			body:    "app:\n  name: x\n",
			wantErr: "model.path is required",
		},
		{
			name:    "bad model format",
			body:    "model:\n  path: m.json\n  format: pickle\n",
			wantErr: "model.format",
		},
		{
			name:    "camunda without broker",
			body:    "model:\n  path: m.json\ncamunda:\n  enabled: true\n",
			wantErr: "camunda.broker_address",
		},
		{
			name:    "cache without redis",
			body:    "model:\n  path: m.json\ncache:\n  enabled: true\n",
			wantErr: "database.redis.address",
		},
		{
			name:    "postgres without host",
			body:    "model:\n  path: m.json\ndatabase:\n  postgres:\n    enabled: true\n",
			wantErr: "database.postgres.host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("LOAN_TEST_DB_PASSWORD", "s3cret")
	path := writeConfig(t, `
model:
  path: m.json
database:
  postgres:
    password: ${LOAN_TEST_DB_PASSWORD}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
}

func TestLoadFromFile_EnvOverride(t *testing.T) {
	t.Setenv("MODEL_FORMAT", "onnx")
	path := writeConfig(t, "model:\n  path: m.json\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, FormatONNX, cfg.Model.Format)
}

func TestGetWorkerConfig(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"record-loan-decision": {Enabled: false, MaxJobsActive: 2},
	}}

	assert.Equal(t, 2, GetWorkerConfig(cfg, "record-loan-decision").MaxJobsActive)
	assert.False(t, IsWorkerEnabled(cfg, "record-loan-decision"))

	def := GetWorkerConfig(cfg, "unknown")
	assert.True(t, def.Enabled)
	assert.Equal(t, 3, def.MaxRetries)
	assert.True(t, IsWorkerEnabled(cfg, "unknown"))
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "loans", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=loans sslmode=disable", p.GetDSN())
}
