package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nbenliogludev/go-workflow-agent/internal/config"
	"github.com/nbenliogludev/go-workflow-agent/internal/observability"
)

var (
	cfgFile   string
	appConfig *config.Config
)

// errRunFailed makes the process exit with status 1 once the result has
// already been printed.
var errRunFailed = errors.New("workflow run did not succeed")

var rootCmd = &cobra.Command{
	Use:           "agent-cli",
	Short:         "Drive a web app with a vision model and record every UI state it reaches.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(); err != nil {
			return err
		}
		cfg, err := config.NewConfigFromViper(viper.GetViper())
		if err != nil {
			observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "workflow-agent"})
			return err
		}
		appConfig = cfg
		observability.InitializeLogger(cfg.Logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		observability.Sync()
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			observability.GetLogger().Error("command failed", zap.Error(err))
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		observability.Sync()
		os.Exit(1)
	}
}

func init() {
	config.SetDefaults(viper.GetViper())

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("backend", config.BackendPlaywright, "browser backend (playwright or chromedp)")
	flags.String("dataset", "datasets", "dataset root directory")
	flags.String("apps", "apps.yaml", "app registry file")

	_ = viper.BindPFlag("logger.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("browser.backend", flags.Lookup("backend"))
	_ = viper.BindPFlag("dataset.root", flags.Lookup("dataset"))
	_ = viper.BindPFlag("apps.file", flags.Lookup("apps"))

	rootCmd.AddCommand(newRunCmd(), newBatchCmd(), newRunsCmd())
}

// initializeConfig reads the config file and WORKFLOW_AGENT_* environment
// variables. A missing default config file is not an error.
func initializeConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("WORKFLOW_AGENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}
