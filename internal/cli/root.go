// Package cli implements the command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/qres/internal/config"
	"github.com/aidanlsb/qres/internal/datasource"
	"github.com/aidanlsb/qres/internal/model"
	"github.com/aidanlsb/qres/internal/store"
	"github.com/aidanlsb/qres/internal/ui"
)

var (
	// Global flags
	configPath string
	userName   string
	verbose    bool

	// Resolved values
	resolvedConfigPath string
	cfg                *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "qres",
	Short: "Query Results with parameters - SQL over the results of saved queries",
	Long: `qres runs SQL that reads from the results of other saved queries.

Write query_<id> wherever a table name is expected, or pass parameters
inline with query_<id>('{"name": "value"}'). Each referenced query runs
against its own data source, its rows are loaded into a private in-memory
database, and your SQL runs against those tables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		switch cmd.Name() {
		case "init", "completion", "help", "version", "extract":
			return nil
		}

		loaded, path, err := loadGlobalConfigWithPath()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "Fix the config file or run 'qres init' to create one")
		}
		cfg = loaded
		resolvedConfigPath = path
		ui.ConfigureTheme(cfg.UI.Accent)
		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintln(os.Stderr, ui.Error(err.Error()))
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&userName, "user", "u", "", "Run as this user from config (defaults to default_user)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for agent/script use)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log child queries and the rewritten SQL to stderr")
}

// getConfig returns the loaded config.
func getConfig() *config.Config {
	if cfg == nil {
		return &config.Config{}
	}
	return cfg
}

func loadGlobalConfigWithPath() (*config.Config, string, error) {
	resolvedPath := config.ResolveConfigPath(configPath)

	var loadedCfg *config.Config
	var err error
	if strings.TrimSpace(configPath) != "" {
		loadedCfg, err = config.LoadFrom(configPath)
	} else {
		loadedCfg, err = config.LoadOrDefault(resolvedPath)
	}
	if err != nil {
		return nil, "", err
	}
	return loadedCfg, resolvedPath, nil
}

// openStore loads the configured query store.
func openStore() (*store.Store, error) {
	return store.Load(getConfig().StorePath())
}

// openRegistry builds the data source registry from config.
func openRegistry() (*datasource.Registry, error) {
	return datasource.NewRegistry(getConfig().DataSources(), datasource.DefaultPoolSize)
}

// currentUser resolves --user against the config.
func currentUser() (*model.User, error) {
	return getConfig().User(userName)
}
