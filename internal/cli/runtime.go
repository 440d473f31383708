package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/zachrizzo/RowFlow/internal/config"
	"github.com/zachrizzo/RowFlow/internal/supervisor"
	"github.com/zachrizzo/RowFlow/internal/ui"
)

// systemEndpoint is where a system-wide runtime installation listens.
const systemEndpoint = "http://127.0.0.1:11434"

// runtimeCmd groups runtime lifecycle commands.
var runtimeCmd = &cobra.Command{
	Use:   "runtime",
	Short: "Manage the supervised inference runtime",
	Long: `Start, monitor, and install the locally-supervised inference runtime.

Examples:
  # Run the supervised runtime in the foreground until interrupted
  rowflow runtime run

  # Show runtime status
  rowflow runtime status

  # Install the bundled runtime binary into the data directory
  rowflow runtime install`,
}

var runtimeRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the supervised runtime in the foreground",
	RunE:  runRuntimeRun,
}

var runtimeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show runtime reachability and configuration",
	RunE:  runRuntimeStatus,
}

var runtimeInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the bundled runtime binary",
	RunE:  runRuntimeInstall,
}

func init() {
	runtimeCmd.AddCommand(runtimeRunCmd)
	runtimeCmd.AddCommand(runtimeStatusCmd)
	runtimeCmd.AddCommand(runtimeInstallCmd)
}

// newLocator builds the binary locator for the configured data directory.
func newLocator(cfg *config.Config) *supervisor.Locator {
	return supervisor.NewLocator(cfg.Runtime.DataDir, filepath.Join(cfg.Runtime.DataDir, "resources"))
}

// newSupervisor wires a supervisor from configuration, resolving the binary
// through the locator when no explicit path is configured.
func newSupervisor(cfg *config.Config) *supervisor.Supervisor {
	binary := cfg.Runtime.Binary
	if binary == "" {
		loc := newLocator(cfg)
		if path, ok := loc.BinaryPath(); ok {
			binary = path
		} else if path, ok := supervisor.DetectSystemRuntime(); ok {
			binary = path
		}
	}

	return supervisor.New(supervisor.Config{
		Port:                cfg.Runtime.Port,
		BinaryPath:          binary,
		ModelsDir:           newLocator(cfg).ModelsDir(),
		PreferSystem:        cfg.Runtime.PreferSystem,
		MaxRestartAttempts:  cfg.Runtime.MaxRestartAttempts,
		HealthCheckInterval: cfg.Runtime.HealthCheckInterval,
	})
}

// runtimeEndpoint resolves which endpoint embedding and generation requests
// should target: a reachable system installation when preferred, otherwise
// the supervised instance.
func runtimeEndpoint(cfg *config.Config) string {
	if cfg.Runtime.PreferSystem {
		if _, ok := supervisor.DetectSystemRuntime(); ok {
			return systemEndpoint
		}
	}
	return fmt.Sprintf("http://127.0.0.1:%d", cfg.Runtime.Port)
}

func runRuntimeRun(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	sup := newSupervisor(cfg)

	if err := sup.Initialize(); err != nil {
		return fmt.Errorf("runtime initialization failed: %w", err)
	}

	if cfg.Runtime.PreferSystem {
		if path, ok := supervisor.DetectSystemRuntime(); ok {
			fmt.Printf("System runtime found at %s; nothing to supervise.\n", path)
			fmt.Printf("Requests will target %s\n", systemEndpoint)
			return nil
		}
	}

	if err := sup.Start(); err != nil {
		return fmt.Errorf("failed to start runtime: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down runtime")
		cancel()
	}()

	fmt.Printf("Supervising runtime at %s (interval %s)\n", sup.Endpoint(), cfg.Runtime.HealthCheckInterval)

	err := sup.Supervise(ctx)
	stopErr := sup.Stop()
	if stopErr != nil {
		log.Error("Failed to stop runtime", "error", stopErr)
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	if errors.Is(err, supervisor.ErrRestartBudgetExhausted) {
		state := sup.Status()
		return fmt.Errorf("runtime failed permanently: %s", state.LastError)
	}
	return err
}

func runRuntimeStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	sup := newSupervisor(cfg)

	fmt.Println(ui.Header.Render("Runtime Status"))
	fmt.Println()

	if path, ok := supervisor.DetectSystemRuntime(); ok {
		fmt.Printf("System binary:   %s\n", path)
	} else {
		fmt.Printf("System binary:   %s\n", ui.Dim.Render("not found"))
	}

	loc := newLocator(cfg)
	if path, ok := loc.BinaryPath(); ok {
		fmt.Printf("Managed binary:  %s\n", path)
	} else {
		fmt.Printf("Managed binary:  %s\n", ui.Dim.Render("not installed"))
	}

	if size, err := loc.ModelsSize(); err == nil {
		fmt.Printf("Models size:     %s\n", formatBytes(size))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 6*time.Second)
	defer cancel()

	endpoint := runtimeEndpoint(cfg)
	healthy := sup.HealthCheck(ctx)
	state := sup.Status()

	fmt.Printf("Endpoint:        %s\n", endpoint)
	fmt.Printf("Status:          %s\n", ui.FormatStatus(string(state.Status)))
	if !healthy && state.LastError != "" {
		fmt.Printf("Last error:      %s\n", ui.Error.Render(state.LastError))
	}

	return nil
}

func runRuntimeInstall(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	loc := newLocator(cfg)

	if err := loc.EnsureDirs(); err != nil {
		return err
	}

	path, err := loc.Install()
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n", ui.Success.Render("Installed runtime binary to"), path)
	return nil
}

// formatBytes renders a byte count in human-readable form.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGT"[exp])
}
