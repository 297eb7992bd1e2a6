package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.MaxWorkers.Auto)
}

func TestLoadParsesAutoMaxWorkers(t *testing.T) {
	cfg, err := Load([]byte("max_workers: auto\nmin_workers: 2\n"))
	require.NoError(t, err)
	assert.True(t, cfg.MaxWorkers.Auto)
	assert.Equal(t, 2, cfg.MinWorkers)
}

func TestLoadParsesExplicitMaxWorkers(t *testing.T) {
	cfg, err := Load([]byte("max_workers: 16\n"))
	require.NoError(t, err)
	assert.False(t, cfg.MaxWorkers.Auto)
	assert.Equal(t, 16, cfg.MaxWorkers.Value)
	assert.Equal(t, 16, cfg.MaxWorkers.Resolved())
}

func TestLoadRejectsNonAutoString(t *testing.T) {
	_, err := Load([]byte("max_workers: sometimes\n"))
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveMaxWorkers(t *testing.T) {
	_, err := Load([]byte("max_workers: 0\n"))
	assert.Error(t, err)
}

func TestWorkloadProfileRewritesIdleTimeoutByDefault(t *testing.T) {
	cfg, err := Load([]byte("workload: io\n"))
	require.NoError(t, err)
	assert.Equal(t, 10000, cfg.IdleTimeoutMs)
	assert.False(t, cfg.UserSetIdleTimeout())
}

func TestExplicitIdleTimeoutSurvivesWorkloadProfile(t *testing.T) {
	cfg, err := Load([]byte("workload: io\nidle_timeout_ms: 777\n"))
	require.NoError(t, err)
	assert.Equal(t, 777, cfg.IdleTimeoutMs)
	assert.True(t, cfg.UserSetIdleTimeout())
}

func TestValidateRejectsMinGreaterThanMax(t *testing.T) {
	cfg := Default()
	cfg.MaxWorkers = MaxWorkers{Value: 2}
	cfg.MinWorkers = 5
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadMemoryPercent(t *testing.T) {
	cfg := Default()
	cfg.MaxMemoryPercent = 150
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownWorkload(t *testing.T) {
	cfg := Default()
	cfg.Workload = "gpu"
	assert.Error(t, cfg.Validate())
}
