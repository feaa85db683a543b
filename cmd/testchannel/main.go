// Test channel harness for a simulated Bluetooth controller.
//
// This is the main entry point for the testchannel application. It connects
// to the controller's test channel port and hands control to an interactive
// shell from which the controller's state can be manipulated: injecting fake
// inquiry results, forcing command timeouts, and resetting state between
// test runs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/nerrad567/testchannel/internal/channel"
	"github.com/nerrad567/testchannel/internal/infrastructure/config"
	"github.com/nerrad567/testchannel/internal/infrastructure/logging"
	"github.com/nerrad567/testchannel/internal/shell"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	app := cli.NewApp()
	app.Name = "testchannel"
	app.Usage = "drive a simulated Bluetooth controller over its test channel"
	app.Version = fmt.Sprintf("%s (%s)", version, commit)
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "path to YAML configuration file",
			EnvVar: "TESTCHANNEL_CONFIG",
		},
		cli.StringFlag{
			Name:  "host",
			Usage: "controller host (overrides config)",
		},
		cli.IntFlag{
			Name:  "port, p",
			Usage: "controller test channel port (overrides config)",
		},
	}
	app.Action = func(c *cli.Context) error {
		// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		return run(ctx, c)
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - c: Parsed command line flags
//
// Returns:
//   - error: nil on clean exit, or error describing failure
func run(ctx context.Context, c *cli.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Debug("starting testchannel", "version", version, "commit", commit)

	// Load configuration
	cfg, path, err := loadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Command line flags override the file
	if host := c.String("host"); host != "" {
		cfg.Channel.Host = host
	}
	if port := c.Int("port"); port != 0 {
		cfg.Channel.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	if path != "" {
		log.Info("configuration loaded", "path", path)
	}

	// Connect to the controller's test channel
	client, err := channel.Connect(ctx, channel.Config{
		Address:        cfg.Address(),
		ConnectTimeout: cfg.GetConnectTimeout(),
		WriteTimeout:   cfg.GetWriteTimeout(),
	})
	if err != nil {
		return fmt.Errorf("connecting to controller: %w", err)
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Error("error closing channel", "error", closeErr)
		}
	}()
	client.SetLogger(log.With("component", "channel"))
	log.Info("connected to controller", "address", cfg.Address())

	// Hand control to the interactive shell
	sh, err := shell.New(shell.Options{
		Channel: client,
		Input:   os.Stdin,
		Output:  os.Stdout,
		Prompt:  cfg.Shell.Prompt,
		Logger:  log.With("component", "shell"),
	})
	if err != nil {
		return fmt.Errorf("creating shell: %w", err)
	}

	if err := sh.Run(ctx); err != nil {
		return fmt.Errorf("shell: %w", err)
	}

	log.Info("session finished", "stats", fmt.Sprintf("%+v", client.Stats()))
	return nil
}

// loadConfig resolves the configuration to use.
//
// An explicitly requested file must load; the default path is used when it
// exists; otherwise the built-in defaults apply. The returned path is empty
// when no file was read.
func loadConfig(flagPath string) (*config.Config, string, error) {
	if flagPath != "" {
		cfg, err := config.Load(flagPath)
		return cfg, flagPath, err
	}

	if _, err := os.Stat(defaultConfigPath); err == nil {
		cfg, err := config.Load(defaultConfigPath)
		return cfg, defaultConfigPath, err
	}

	return config.Default(), "", nil
}
