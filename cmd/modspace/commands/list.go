package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/modspace/cmd/modspace/output"
)

var listCmd = &cobra.Command{
	Use:   "list <resource>",
	Short: "Print every row of a resource",
	Long: "Print every row of a resource with its relations resolved.\n\nResources: " +
		strings.Join(resourceNames(), ", "),
	Example: `  modspace list books --driver sqlite --db modspace.db
  modspace list catalogs --json`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: resourceNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		em, err := openManager(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer em.DB().Close()

		t, err := fetchResource(cmd.Context(), em, args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			out, err := json.MarshalIndent(t.Models, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		output.Section(t.Name)
		if len(t.Rows) == 0 {
			output.Warning("No rows")
			return nil
		}
		output.Table(t.Columns, t.Rows)
		output.Muted("%d row(s)", len(t.Rows))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
