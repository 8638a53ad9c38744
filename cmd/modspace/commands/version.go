package commands

import (
	"encoding/json"
	"fmt"
	goruntime "runtime"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/modspace/cmd/modspace/output"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput {
			out, err := json.MarshalIndent(map[string]string{
				"version": Version,
				"go":      goruntime.Version(),
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		output.Primary("modspace %s", Version)
		output.Muted("%s %s/%s", goruntime.Version(), goruntime.GOOS, goruntime.GOARCH)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
