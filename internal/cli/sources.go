package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/qres/internal/datasource"
	"github.com/aidanlsb/qres/internal/ui"
)

var sourcesCheckTimeout time.Duration

var sourcesCmd = &cobra.Command{
	Use:     "sources",
	Aliases: []string{"source"},
	Short:   "Inspect configured data sources",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured data sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sources := getConfig().DataSources()

		if isJSONOutput() {
			items := make([]map[string]interface{}, len(sources))
			for i, s := range sources {
				items[i] = map[string]interface{}{
					"name":   s.Name,
					"type":   s.Type,
					"groups": s.Groups,
				}
			}
			outputSuccess(map[string]interface{}{"sources": items}, &Meta{Count: len(items)})
			return nil
		}

		if len(sources) == 0 {
			fmt.Fprintln(stdout, ui.Info("No data sources configured"))
			fmt.Fprintln(stdout, ui.Hint("Supported types: "+strings.Join(datasource.SupportedTypes(), ", ")))
			return nil
		}
		rows := make([][]string, len(sources))
		for i, s := range sources {
			groups := "-"
			if len(s.Groups) > 0 {
				groups = strings.Join(s.Groups, ", ")
			}
			rows[i] = []string{s.Name, s.Type, groups}
		}
		fmt.Fprintln(stdout, ui.SimpleTable([]string{"name", "type", "groups"}, rows))
		return nil
	},
}

var sourcesCheckCmd = &cobra.Command{
	Use:   "check [name...]",
	Short: "Check that data sources accept connections",
	Long:  "Connects to each named source, or every configured source when none are named.",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "Check [sources] in the config")
		}
		defer reg.Close()

		names := args
		if len(names) == 0 {
			for _, s := range reg.Sources() {
				names = append(names, s.Name)
			}
		}

		type checkResult struct {
			Name  string `json:"name"`
			OK    bool   `json:"ok"`
			Error string `json:"error,omitempty"`
		}
		checks := make([]checkResult, 0, len(names))
		failed := 0
		for _, name := range names {
			ctx, cancel := context.WithTimeout(cmd.Context(), sourcesCheckTimeout)
			err := reg.Ping(ctx, name)
			cancel()
			r := checkResult{Name: name, OK: err == nil}
			if err != nil {
				r.Error = err.Error()
				failed++
			}
			checks = append(checks, r)
		}

		if isJSONOutput() {
			if failed > 0 {
				return handleErrorWithDetails(ErrDataSourceError,
					fmt.Sprintf("%d of %d data sources failed", failed, len(checks)), "", checks)
			}
			outputSuccess(map[string]interface{}{"sources": checks}, &Meta{Count: len(checks)})
			return nil
		}

		for _, c := range checks {
			if c.OK {
				fmt.Fprintln(stdout, ui.Check(c.Name))
			} else {
				fmt.Fprintln(stdout, ui.Errorf("%s: %s", c.Name, c.Error))
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d data sources failed", failed, len(checks))
		}
		return nil
	},
}

func init() {
	sourcesCheckCmd.Flags().DurationVar(&sourcesCheckTimeout, "timeout", 10*time.Second, "Per-source connection timeout")
	sourcesCmd.AddCommand(sourcesListCmd, sourcesCheckCmd)
	rootCmd.AddCommand(sourcesCmd)
}
