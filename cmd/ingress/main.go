// cmd/ingress/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/cyberattack-ingress/pkg/config"
	"github.com/David-Botos/cyberattack-ingress/pkg/logging"
)

// app carries the state shared by every command
type app struct {
	envFile string
	paths   config.PathsConfig // Flag overrides, empty fields keep the configured value
	addr    string

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "ingress",
		Short:         "Merge, clean and analyze cyberattack datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", ".env", "Environment file to load before reading configuration")
	flags.StringVar(&a.paths.GlobalSource, "global", "", "Global threats source (overrides GLOBAL_SOURCE)")
	flags.StringVar(&a.paths.DefenseSource, "defense", "", "Defense mechanisms source (overrides DEFENSE_SOURCE)")
	flags.StringVar(&a.paths.MergedCSV, "merged-csv", "", "Merged CSV output (overrides MERGED_CSV)")
	flags.StringVar(&a.paths.MergedJSON, "merged-json", "", "Merged JSON output (overrides MERGED_JSON)")
	flags.StringVar(&a.paths.CleanedJSON, "cleaned", "", "Cleaned dataset (overrides CLEANED_JSON)")
	flags.StringVar(&a.paths.StaticDir, "static-dir", "", "Static directory for chart specs (overrides STATIC_DIR)")

	rootCmd.AddCommand(
		a.newMergeCmd(),
		a.newCleanCmd(),
		a.newRunCmd(),
		a.newReportCmd(),
		a.newServeCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads the environment file, the configuration and the logger
func (a *app) setup() error {
	if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", a.envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	overridePaths(&cfg.Paths, a.paths)
	if a.addr != "" {
		cfg.Server.Addr = a.addr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func overridePaths(dst *config.PathsConfig, src config.PathsConfig) {
	set := func(target *string, value string) {
		if value != "" {
			*target = value
		}
	}
	set(&dst.GlobalSource, src.GlobalSource)
	set(&dst.DefenseSource, src.DefenseSource)
	set(&dst.MergedCSV, src.MergedCSV)
	set(&dst.MergedJSON, src.MergedJSON)
	set(&dst.CleanedJSON, src.CleanedJSON)
	set(&dst.StaticDir, src.StaticDir)
}

// printJSON writes v to stdout as indented JSON
func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
