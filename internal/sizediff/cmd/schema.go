package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"sizediff/internal/config"
	"sizediff/internal/models"
)

var schemaCmd = &cobra.Command{
	Use:       "schema [config|report]",
	Short:     "Generate JSON schema for the configuration or the report",
	Long:      "Generate JSON schema for the sizediff configuration file or the size-delta report it reads",
	Hidden:    true,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"config", "report"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var v any = &config.Config{}
		if len(args) == 1 && args[0] == "report" {
			v = &models.DeltaReport{}
		}
		reflector := new(jsonschema.Reflector)
		bts, err := json.MarshalIndent(reflector.Reflect(v), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal schema: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(bts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
