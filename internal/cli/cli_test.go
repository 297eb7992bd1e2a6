package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wendelmax/tasklets-go/internal/config"
)

func TestBuildCLI(t *testing.T) {
	cmd := BuildCLI()

	assert.NotNil(t, cmd)
	assert.Equal(t, "tasklets", cmd.Use)
	assert.Equal(t, "1.0.0", cmd.Version)

	commands := cmd.Commands()
	assert.Len(t, commands, 4)

	names := make(map[string]bool)
	for _, c := range commands {
		names[c.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["submit"])
	assert.True(t, names["status"])
	assert.True(t, names["health"])

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "configs/default.yaml", configFlag.DefValue)
}

func TestBuildRunCommand(t *testing.T) {
	cmd := buildRunCommand()
	assert.Equal(t, "run", cmd.Use)
	assert.NotNil(t, cmd.RunE)
	assert.NotNil(t, cmd.Flags().Lookup("metrics-addr"))
}

func TestBuildSubmitCommand(t *testing.T) {
	cmd := buildSubmitCommand()
	assert.Equal(t, "submit", cmd.Use)

	fileFlag := cmd.Flags().Lookup("file")
	require.NotNil(t, fileFlag)
	assert.Equal(t, "f", fileFlag.Shorthand)
	assert.NotNil(t, cmd.RunE)
}

func TestBuildStatusAndHealthCommands(t *testing.T) {
	assert.Equal(t, "status", buildStatusCommand().Use)
	assert.Equal(t, "health", buildHealthCommand().Use)
}

func TestLoadConfigValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
max_workers: 4
min_workers: 1
workload: cpu
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.MaxWorkers.Value)
	assert.Equal(t, 1, cfg.MinWorkers)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMetricsPortParsesAddr(t *testing.T) {
	assert.Equal(t, 9191, metricsPort(":9191"))
	assert.Equal(t, 9090, metricsPort("not-an-addr"))
}

func TestMaxWorkersLabel(t *testing.T) {
	assert.Equal(t, "auto", maxWorkersLabel(config.Default()))

	explicit := config.Default()
	explicit.MaxWorkers = config.MaxWorkers{Value: 6}
	assert.Equal(t, "6", maxWorkersLabel(explicit))
}

// submitTasks decodes each entry's payload and submits it through
// SubmitValue, so a well-formed JSON payload must round-trip to a
// completed task without ever touching the Encodable rejection path.
func TestSubmitTasksRunsEncodedPayloadsThroughSubmitValue(t *testing.T) {
	dir := t.TempDir()

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
max_workers: 1
min_workers: 1
workload: cpu
`), 0o644))

	tasksPath := filepath.Join(dir, "tasks.json")
	require.NoError(t, os.WriteFile(tasksPath, []byte(`[{"payload": {"echo": "hi"}}]`), 0o644))

	prevConfigFile := configFile
	configFile = cfgPath
	t.Cleanup(func() { configFile = prevConfigFile })

	require.NoError(t, submitTasks(tasksPath))
}
