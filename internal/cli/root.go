package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcoot/acctstore/internal/factory"
	"github.com/mcoot/acctstore/internal/logging"
)

// noStoreAnnotation marks commands that work on raw files and never open
// the account directory
const noStoreAnnotation = "acctool/no-store"

var (
	cfg *Config
	app *factory.App
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()
	app = nil

	rootCmd := &cobra.Command{
		Use:   "acctool",
		Short: "Manage account files",
		Long: `acctool creates, inspects and edits the per-user account files kept in a
shared account directory.

Each account lives in <username>.<displayname>.acc. Usernames and display
names are unique per directory, ignoring case.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.LoadFile(cmd.Flags()); err != nil {
				return err
			}

			level := logging.ParseLevel(cfg.LogLevel)
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger, err := logging.New(cmd.ErrOrStderr(), logging.Options{
				Format:  cfg.LogFormat,
				Level:   level,
				NoColor: os.Getenv("NO_COLOR") != "",
			})
			if err != nil {
				return err
			}

			if cmd.Annotations[noStoreAnnotation] != "" {
				return nil
			}

			fc, err := cfg.FactoryConfig(logger)
			if err != nil {
				return err
			}
			app, err = factory.New(fc)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app == nil {
				return nil
			}
			return app.Close()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfg.Dir, "dir", "d", cfg.Dir, "Account directory, or key namespace for redis (env: ACCTOOL_DIR)")
	rootCmd.PersistentFlags().StringVar(&cfg.Storage, "storage", cfg.Storage, "Storage backend: fs, redis (env: ACCTOOL_STORAGE)")
	rootCmd.PersistentFlags().StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Redis URL for --storage redis (env: ACCTOOL_REDIS_URL)")
	rootCmd.PersistentFlags().StringVar(&cfg.Format, "format", cfg.Format, "Account file format: v1, legacy (env: ACCTOOL_FORMAT)")
	rootCmd.PersistentFlags().BoolVar(&cfg.Lock, "lock", cfg.Lock, "Lock the directory while creating or renaming (env: ACCTOOL_LOCK)")
	rootCmd.PersistentFlags().StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "YAML config file (env: ACCTOOL_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text, json (env: ACCTOOL_LOG_FORMAT)")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newPasswdCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newRenameCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newInspectCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		if app != nil {
			_ = app.Close()
		}
		NewOutput(cfg.Output, os.Stdout, os.Stderr).PrintError(err)
		os.Exit(exitCode(err))
	}
}
