package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/qres/internal/config"
	"github.com/aidanlsb/qres/internal/store"
	"github.com/aidanlsb/qres/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config and query store",
	Long: `Creates the config file and an empty query store next to it.

Creates:
  - config.toml   (data sources, users and groups)
  - queries.yaml  (saved queries)

Existing files are kept. Use --config to choose where the config goes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.ResolveConfigPath(configPath)
		if path == "" {
			return handleErrorMsg(ErrConfigInvalid, "could not determine a config path", "Pass --config <path>")
		}

		createdConfig, err := config.CreateDefault(path)
		if err != nil {
			return handleError(ErrFileWriteError, err, "")
		}

		loaded, err := config.LoadFrom(path)
		if err != nil {
			return handleError(ErrConfigInvalid, err, "Fix the existing config file")
		}
		storePath := loaded.StorePath()
		createdStore, err := store.CreateDefault(storePath)
		if err != nil {
			return handleError(ErrFileWriteError, err, "")
		}

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"config":         path,
				"config_created": createdConfig,
				"store":          storePath,
				"store_created":  createdStore,
			}, nil)
			return nil
		}

		if createdConfig {
			fmt.Fprintln(stdout, ui.Successf("Created %s", path))
		} else {
			fmt.Fprintln(stdout, ui.Infof("%s already exists (kept)", path))
		}
		if createdStore {
			fmt.Fprintln(stdout, ui.Successf("Created %s", storePath))
		} else {
			fmt.Fprintln(stdout, ui.Infof("%s already exists (kept)", storePath))
		}
		if createdConfig {
			fmt.Fprintln(stdout, ui.Hint("\nAdd a data source under [sources], then save a query with 'qres queries add'."))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
