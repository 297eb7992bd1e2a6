// ============================================================================
// Tasklets CLI
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Cobra-based command line interface over pkg/pool.
//
// Command Structure:
//   tasklets                       # Root command
//   ├── run                        # Start a resident pool
//   │   ├── --config, -c          # Specify config file
//   │   └── --metrics-addr        # Expose Prometheus /metrics (optional)
//   ├── submit                     # Submit tasks from a JSON file
//   │   └── --file, -f            # Specify task JSON file
//   ├── status                     # View configured pool parameters
//   └── health                     # Start a short-lived pool, report its health
//
// run Command:
//   Starts a pool with the demo execution environment (see exec.go),
//   optionally serves /metrics, then blocks on SIGINT/SIGTERM and
//   shuts the pool down gracefully before exiting.
//
// submit Command:
//   Reads a JSON array of {"payload": ..., "timeout_ms": N} entries,
//   starts a short-lived pool, submits them all, waits for every
//   outcome, and reports a completed/failed summary (crashed and
//   timed-out tasks count as failed; each failure is logged with its kind).
//
// status/health Commands:
//   Both operate against the configuration file only — this CLI has no
//   daemon/RPC layer (distributed execution is a named non-goal), so
//   there is no running pool to query from a second process invocation.
//
// ============================================================================

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/wendelmax/tasklets-go/internal/applog"
	"github.com/wendelmax/tasklets-go/internal/codec"
	"github.com/wendelmax/tasklets-go/internal/config"
	"github.com/wendelmax/tasklets-go/internal/poolmetrics"
	"github.com/wendelmax/tasklets-go/pkg/pool"
)

var configFile string

// BuildCLI constructs the full tasklets command tree.
func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tasklets",
		Short: "Tasklets: a cooperative in-process worker-pool runtime",
		Long: `Tasklets runs a fixed-but-adaptive pool of goroutine workers over an
in-process task queue, with memory-pressure-aware scaling, idle
reclamation, and per-task timeouts.`,
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")

	rootCmd.AddCommand(buildRunCommand())
	rootCmd.AddCommand(buildSubmitCommand())
	rootCmd.AddCommand(buildStatusCommand())
	rootCmd.AddCommand(buildHealthCommand())

	return rootCmd
}

func buildRunCommand() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a resident pool and block until signaled",
		Long:  "Start the pool with the demo exec environment, optionally serve Prometheus metrics, and shut down gracefully on SIGINT/SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPool(metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve /metrics on (e.g. :9090); empty disables it")
	return cmd
}

func runPool(metricsAddr string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log.Printf("Starting tasklets pool (max_workers=%s, min_workers=%d, workload=%s)\n",
		maxWorkersLabel(cfg), cfg.MinWorkers, cfg.Workload)

	opts := []pool.Option{WithLoggerFromConfig(cfg), pool.WithEncoder(codec.JSON{})}

	var reg *prometheus.Registry
	if metricsAddr != "" {
		reg = prometheus.NewRegistry()
		opts = append(opts, pool.WithMetrics(reg))
		go func() {
			log.Printf("Serving metrics on %s/metrics\n", metricsAddr)
			if err := poolmetrics.StartServer(metricsPort(metricsAddr), reg); err != nil {
				log.Printf("metrics server error: %v\n", err)
			}
		}()
	}

	p, err := pool.New(cfg, demoExec, opts...)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("received shutdown signal, draining pool...")
	if err := p.Shutdown(10 * time.Second); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Println("pool stopped")
	return nil
}

func buildSubmitCommand() *cobra.Command {
	var taskFile string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit tasks from a JSON file",
		Long:  "Read a JSON array of task entries, submit them to a short-lived pool, and report per-task outcomes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskFile == "" {
				return fmt.Errorf("task file is required (use --file or -f)")
			}
			return submitTasks(taskFile)
		},
	}

	cmd.Flags().StringVarP(&taskFile, "file", "f", "", "JSON file containing task definitions")
	cmd.MarkFlagRequired("file")
	return cmd
}

type taskEntry struct {
	Payload   json.RawMessage `json:"payload"`
	TimeoutMs int64           `json:"timeout_ms"`
}

func submitTasks(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read task file: %w", err)
	}

	var entries []taskEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse task file: %w", err)
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	p, err := pool.New(cfg, demoExec, WithLoggerFromConfig(cfg), pool.WithEncoder(codec.JSON{}))
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	defer p.Shutdown(5 * time.Second)

	futures := make([]*pool.Future, 0, len(entries))
	for i, e := range entries {
		var v any
		if err := json.Unmarshal(e.Payload, &v); err != nil {
			return fmt.Errorf("decode task %d payload: %w", i, err)
		}

		opts := pool.SubmitOptions{}
		if e.TimeoutMs > 0 {
			opts.TimeoutOverride = time.Duration(e.TimeoutMs) * time.Millisecond
		}
		f, err := p.SubmitValue(v, opts)
		if err != nil {
			return fmt.Errorf("submit task %d: %w", i, err)
		}
		futures = append(futures, f)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var completed, failed int
	for i, f := range futures {
		outcome, err := f.Await(ctx)
		if err != nil {
			log.Printf("task %d: did not settle: %v\n", i, err)
			failed++
			continue
		}
		if outcome.OK() {
			completed++
		} else {
			failed++
			log.Printf("task %d: %s: %s\n", i, outcome.Err.Kind, outcome.Err.Message)
		}
	}

	fmt.Printf("Submitted %d tasks: %d completed, %d failed\n", len(entries), completed, failed)
	return nil
}

func buildStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the configured pool parameters",
		Long:  "Display the resolved configuration this CLI would start a pool with.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus()
		},
	}
	return cmd
}

func showStatus() error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println("Tasklets configuration")
	fmt.Printf("  config file:        %s\n", configFile)
	fmt.Printf("  max_workers:        %s (resolved: %d)\n", maxWorkersLabel(cfg), cfg.MaxWorkers.Resolved())
	fmt.Printf("  min_workers:        %d\n", cfg.MinWorkers)
	fmt.Printf("  idle_timeout_ms:    %d\n", cfg.IdleTimeoutMs)
	fmt.Printf("  task_timeout_ms:    %d\n", cfg.TaskTimeoutMs)
	fmt.Printf("  max_memory_percent: %d\n", cfg.MaxMemoryPercent)
	fmt.Printf("  workload:           %s\n", cfg.Workload)
	fmt.Printf("  adaptive:           %t\n", cfg.Adaptive)
	fmt.Printf("  log_level:          %s\n", cfg.LogLevel)
	fmt.Println("  pool not running (no daemon process — use 'tasklets run' to start one)")
	return nil
}

func buildHealthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Start a pool briefly and report its initial health",
		Long:  "Spin up a pool with min_workers warm and report Health() once, then shut it down. A real host keeps its own Pool handle and calls Health() directly.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHealth()
		},
	}
	return cmd
}

func showHealth() error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	p, err := pool.New(cfg, demoExec, WithLoggerFromConfig(cfg), pool.WithEncoder(codec.JSON{}))
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	defer p.Shutdown(5 * time.Second)

	h := p.Health()
	fmt.Printf("status:              %s\n", h.Status)
	fmt.Printf("live_workers:        %d\n", h.LiveWorkers)
	fmt.Printf("memory_usage_percent: %.1f\n", h.MemoryUsagePercent)
	return nil
}

// WithLoggerFromConfig adapts applog.New to pool.Option, tagging the
// pool with this process's pid the way a single resident instance would
// want to distinguish its own log lines.
func WithLoggerFromConfig(cfg config.Config) pool.Option {
	poolID := fmt.Sprintf("pid-%d", os.Getpid())
	return pool.WithLogger(applog.New(cfg.LogLevel, poolID))
}

func maxWorkersLabel(cfg config.Config) string {
	if cfg.MaxWorkers.Auto {
		return "auto"
	}
	return fmt.Sprintf("%d", cfg.MaxWorkers.Value)
}

func metricsPort(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 9090
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 9090
	}
	return port
}

func loadConfig(path string) (config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("read config file: %w", err)
	}
	return config.Load(data)
}
