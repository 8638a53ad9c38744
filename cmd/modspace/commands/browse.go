package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/modspace/cmd/modspace/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse <resource>",
	Short: "Browse a resource interactively",
	Long: "Open an interactive table of a resource. Press enter to inspect a row.\n\nResources: " +
		strings.Join(resourceNames(), ", "),
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
		return tui.RunBrowser(t.Name, t.Columns, t.Rows)
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
}
