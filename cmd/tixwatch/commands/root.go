package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	devenv "tixwatch-backend/dev/env"
	"tixwatch-backend/internal/config"
	"tixwatch-backend/internal/pagefetch"
	"tixwatch-backend/lib/restyutil"
	"tixwatch-backend/lib/serviceutil"
	"tixwatch-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

const serviceName = "tixwatch"

var (
	verbose    *bool
	configPath *string

	cfg config.Config
	tel telemetry.Telemetry
)

func init() {
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging and dump http exchanges.")
	configPath = rootCmd.PersistentFlags().String("config", "", "Config file to use instead of searching for "+config.ConfigFile+".")
}

var rootCmd = &cobra.Command{
	Use:   "tixwatch",
	Short: "tixwatch crawls ticketing activity pages, classifies their fields and checks them against the live pages.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)

		var err error
		if *configPath != "" {
			cfg, err = config.Read(*configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		cfg.History.File, err = devenv.ResolvePath(cfg.History.File)
		if err != nil {
			serviceutil.Fatal("failed to resolve history db path", err)
		}

		tel, err = telemetry.SetupFromEnv(cmd.Context(), serviceName)
		if err != nil {
			slog.Warn("failed to setup telemetry", "err", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newFetchClient builds the page client, dumping raw exchanges when
// verbose.
func newFetchClient() *pagefetch.Client {
	opts := cfg.FetchOptions()
	if *verbose && cfg.Paths.HttpDebug != "" {
		output, err := restyutil.NewFilesystemOutput(cfg.Paths.HttpDebug)
		if err != nil {
			slog.Warn("http debug output disabled", "err", err)
		} else {
			opts.Output = output
		}
	}
	return pagefetch.NewClient(opts)
}

// orDefault returns flag when it was set, fallback otherwise, with a
// leading <dev_state> expanded.
func orDefault(cmd *cobra.Command, name, flag, fallback string) string {
	path := fallback
	if cmd.Flags().Changed(name) || fallback == "" {
		path = flag
	}
	resolved, err := devenv.ResolvePath(path)
	if err != nil {
		serviceutil.Fatal("failed to resolve path", err)
	}
	return resolved
}
